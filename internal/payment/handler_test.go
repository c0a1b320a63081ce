package payment

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func setupSandbox(t *testing.T) (*Bridge, *httptest.Server) {
	t.Helper()
	bridge := NewBridge(testSecret, "http://sandbox.test")
	r := chi.NewRouter()
	NewHandler(bridge, testSecret, "https://checkout.example/checkout.js").RegisterRoutes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return bridge, server
}

func openSession(t *testing.T, b *Bridge) *Session {
	t.Helper()
	sess, err := b.Open(context.Background(), "cart_1", Config{
		Key:            "rzp_test",
		Amount:         250,
		Currency:       "INR",
		Name:           "Recepie",
		GatewayOrderID: "order_GW1",
		Prefill:        Prefill{Name: "Alice", Contact: "9990001111"},
		Theme:          Theme{Color: "#c92828"},
	})
	require.NoError(t, err)
	return sess
}

func wsURL(server *httptest.Server, sess *Session) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/payments/sessions/" + sess.ID.String() + "/ws?token=" + sess.Token
}

func waitResolved(t *testing.T, sess *Session) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := sess.Wait(ctx)
	require.NoError(t, err)
	return ev
}

func TestPageRendersCheckoutOptions(t *testing.T) {
	bridge, server := setupSandbox(t)
	sess := openSession(t, bridge)

	resp, err := http.Get(server.URL + "/payments/sessions/" + sess.ID.String() + "/?token=" + sess.Token)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(data)
	assert.Contains(t, body, `https://checkout.example/checkout.js`)
	assert.Contains(t, body, `"order_id":"order_GW1"`)
	assert.Contains(t, body, `"theme":{"color":"#c92828"}`)
}

func TestPageRequiresToken(t *testing.T) {
	bridge, server := setupSandbox(t)
	sess := openSession(t, bridge)

	resp, err := http.Get(server.URL + "/payments/sessions/" + sess.ID.String() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	other := openSession(t, bridge)
	resp, err = http.Get(server.URL + "/payments/sessions/" + sess.ID.String() + "/?token=" + other.Token)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocketSuccessMessage(t *testing.T) {
	bridge, server := setupSandbox(t)
	sess := openSession(t, bridge)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, sess), nil)
	require.NoError(t, err)
	defer conn.Close()

	msg := `{"razorpay_order_id":"order_GW1","razorpay_payment_id":"pay_1","razorpay_signature":"sig"}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))

	ev := waitResolved(t, sess)
	assert.Equal(t, KindSuccess, ev.Kind)
	assert.Equal(t, "pay_1", ev.Payload.PaymentID)

	// the host closes the socket after the terminal message
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestWebSocketDropIsCancellation(t *testing.T) {
	bridge, server := setupSandbox(t)
	sess := openSession(t, bridge)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, sess), nil)
	require.NoError(t, err)
	conn.Close()

	ev := waitResolved(t, sess)
	assert.Equal(t, KindCancelled, ev.Kind)
}

func TestWebSocketSecondMessageIgnored(t *testing.T) {
	bridge, server := setupSandbox(t)
	sess := openSession(t, bridge)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, sess), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("dismissed")))
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"razorpay_order_id":"o","razorpay_payment_id":"p"}`))

	ev := waitResolved(t, sess)
	assert.Equal(t, KindCancelled, ev.Kind)
}

func TestResultCallback(t *testing.T) {
	bridge, server := setupSandbox(t)
	sess := openSession(t, bridge)
	url := server.URL + "/payments/sessions/" + sess.ID.String() + "/result"

	post := func(body string) int {
		req, _ := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+sess.Token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusAccepted, post(`{"razorpay_order_id":"order_GW1","razorpay_payment_id":"pay_9","razorpay_signature":"s"}`))
	ev := waitResolved(t, sess)
	assert.Equal(t, "pay_9", ev.Payload.PaymentID)

	// the session left the registry once resolved
	assert.Equal(t, http.StatusNotFound, post("dismissed"))
}

