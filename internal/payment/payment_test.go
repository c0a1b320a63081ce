package payment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Kind
		payment string
	}{
		{"dismissed", "dismissed", KindCancelled, ""},
		{"dismissed with whitespace", "  dismissed\n", KindCancelled, ""},
		{"gateway success", `{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"sig"}`, KindSuccess, "pay_1"},
		{"neutral names", `{"gateway_order_id":"order_1","gateway_payment_id":"pay_2","gateway_signature":"sig"}`, KindSuccess, "pay_2"},
		{"missing payment id", `{"razorpay_order_id":"order_1"}`, KindMalformed, ""},
		{"error object", `{"error":{"code":"BAD_REQUEST_ERROR"}}`, KindMalformed, ""},
		{"garbage", "hello", KindMalformed, ""},
		{"empty", "", KindMalformed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := ParseMessage([]byte(tt.in))
			assert.Equal(t, tt.want, ev.Kind)
			assert.Equal(t, tt.payment, ev.Payload.PaymentID)
		})
	}
}

func TestSessionResolvesExactlyOnce(t *testing.T) {
	sess := NewSession(uuid.New(), "cart_1", Config{})

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kind := KindSuccess
			if i%2 == 0 {
				kind = KindCancelled
			}
			if sess.Resolve(Event{Kind: kind}) {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	first, ok := sess.Result()
	require.True(t, ok)

	assert.False(t, sess.Resolve(Event{Kind: KindMalformed}))
	again, _ := sess.Result()
	assert.Equal(t, first, again)
}

func TestSessionWait(t *testing.T) {
	sess := NewSession(uuid.New(), "cart_1", Config{})

	go func() {
		time.Sleep(10 * time.Millisecond)
		sess.Resolve(Event{Kind: KindSuccess, Payload: Payload{PaymentID: "pay_1"}})
	}()

	ev, err := sess.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pay_1", ev.Payload.PaymentID)
}

func TestSessionWaitContextCancelled(t *testing.T) {
	sess := NewSession(uuid.New(), "cart_1", Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := sess.Wait(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	_, resolved := sess.Result()
	assert.False(t, resolved)
}

func TestSessionCloseResolvesAsCancelled(t *testing.T) {
	sess := NewSession(uuid.New(), "cart_1", Config{})
	sess.Close()

	ev, ok := sess.Result()
	require.True(t, ok)
	assert.Equal(t, KindCancelled, ev.Kind)

	sess.Close()
	assert.False(t, sess.Resolve(Event{Kind: KindSuccess}))
}

func TestBridgeOpenAndDeregister(t *testing.T) {
	b := NewBridge("secret", "http://localhost:8081/")

	sess, err := b.Open(context.Background(), "cart_1", Config{GatewayOrderID: "order_1"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Contains(t, sess.URL, "http://localhost:8081/payments/sessions/"+sess.ID.String()+"?token=")
	assert.Equal(t, 1, b.OpenCount())

	found, err := b.Lookup(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, found)

	sess.Resolve(Event{Kind: KindCancelled})

	_, err = b.Lookup(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, b.OpenCount())
}

func TestBridgeOpenHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBridge("s", "http://x").Open(ctx, "cart_1", Config{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerifier(t *testing.T) {
	v := NewVerifier("gw-secret")
	good := Payload{GatewayOrderID: "order_1", PaymentID: "pay_1", Signature: Sign("gw-secret", "order_1", "pay_1")}
	require.NoError(t, v.Verify(good))

	bad := good
	bad.Signature = "deadbeef"
	err := v.Verify(bad)
	var pe *PaymentError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "signature mismatch", pe.Reason)

	var none *Verifier
	assert.NoError(t, none.Verify(bad))
	assert.NoError(t, NewVerifier("").Verify(bad))
}
