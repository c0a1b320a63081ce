package receipt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kiwari-pos/checkout/internal/backend"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderTime = time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC)

func sampleOrder() Order {
	return Order{
		Number:        "ORDER_01HZX",
		CustomerName:  "Alice",
		CustomerPhone: "9990001111",
		Lines: []Line{
			{Name: "Paneer Tikka", Quantity: 2, UnitPrice: decimal.NewFromInt(100)},
			{Name: "Naan <hot>", Quantity: 1, UnitPrice: decimal.NewFromInt(50)},
		},
		Total: decimal.NewFromInt(250),
	}
}

func TestBuild(t *testing.T) {
	tx := &backend.Transaction{PaymentID: "pay_1"}
	r := Build(sampleOrder(), tx, "Razorpay", orderTime)

	assert.Equal(t, "ORDER_01HZX", r.OrderID)
	assert.Equal(t, "Razorpay", r.PaymentMethod)
	assert.Equal(t, "pay_1", r.PaymentID)
	assert.Equal(t, "Not specified", r.DeliveryAddress)
	require.Len(t, r.Lines, 2)
	assert.True(t, r.Lines[0].Total.Equal(decimal.NewFromInt(200)))
	assert.True(t, r.Total.Equal(decimal.NewFromInt(250)))
}

func TestBuildDefaultsToCashOnDelivery(t *testing.T) {
	r := Build(sampleOrder(), nil, "", orderTime)
	assert.Equal(t, "Cash on Delivery", r.PaymentMethod)
	assert.Empty(t, r.PaymentID)
}

func TestLinesLayout(t *testing.T) {
	o := sampleOrder()
	o.DeliveryAddress = "12 MG Road"
	lines := Lines(Build(o, nil, "", orderTime))
	text := strings.Join(lines, "\n")

	assert.Equal(t, "RECEIPT", lines[1])
	assert.Contains(t, text, "Order ID: ORDER_01HZX")
	assert.Contains(t, text, "Time: 09/03/2024, 18:30:00")
	assert.Contains(t, text, "Paneer Tikka x2\n₹100.00")
	assert.Contains(t, text, "Total: ₹250.00")
	assert.Contains(t, text, "Payment Method: Cash on Delivery")
	assert.Contains(t, text, "DELIVERY ADDRESS\n----------------\n12 MG Road")
	assert.Contains(t, text, "Thank you for your order!")

	items := strings.Index(text, "ITEMS")
	total := strings.Index(text, "Total:")
	assert.Less(t, items, total)
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(Build(sampleOrder(), nil, "Razorpay", orderTime), "Recepie", "#c92828")
	require.NoError(t, err)

	assert.Contains(t, html, "<h1>Recepie</h1>")
	assert.Contains(t, html, "<th>#</th>")
	assert.Contains(t, html, "<th>Rate</th>")
	assert.Contains(t, html, "<td>1</td>")
	assert.Contains(t, html, "₹200.00")
	assert.Contains(t, html, "Total Amount: ₹250.00")
	assert.Contains(t, html, "Naan &lt;hot&gt;")
	assert.Contains(t, html, "color: #c92828")
}

func TestWriterPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewWriterPrinter(&buf)

	require.NoError(t, p.PrintRaw(context.Background(), []string{"RECEIPT", "line"}))
	assert.Equal(t, "RECEIPT\nline\n", buf.String())
}

func TestNetworkPrinter(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		got <- data
	}()

	p := NewNetworkPrinter(ln.Addr().String())
	require.NoError(t, p.PrintRaw(context.Background(), []string{"RECEIPT"}))

	select {
	case data := <-got:
		assert.True(t, bytes.HasPrefix(data, escInit))
		assert.True(t, bytes.HasSuffix(data, escCut))
		assert.Contains(t, string(data), "RECEIPT\n")
	case <-time.After(2 * time.Second):
		t.Fatal("printer received nothing")
	}
}

func TestNetworkPrinterUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	p := NewNetworkPrinter(addr)
	p.Timeout = 200 * time.Millisecond
	assert.Error(t, p.PrintRaw(context.Background(), []string{"x"}))
}

func TestFileDocuments(t *testing.T) {
	dir := t.TempDir()
	var shared string
	docs := &FileDocuments{Dir: dir, OnShare: func(_ context.Context, uri string) error {
		shared = uri
		return nil
	}}

	uri, err := docs.RenderToFile(context.Background(), "<html>hi</html>")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "file://"))

	path, err := PathFromURI(uri)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html>hi</html>", string(data))

	require.NoError(t, docs.Share(context.Background(), uri))
	assert.Equal(t, uri, shared)
}

func TestFileDocumentsWithoutSharer(t *testing.T) {
	docs := &FileDocuments{Dir: t.TempDir()}
	uri, err := docs.RenderToFile(context.Background(), "x")
	require.NoError(t, err)
	assert.ErrorIs(t, docs.Share(context.Background(), uri), ErrSharingUnavailable)
}

// --- Mock capabilities ---

type mockPrinter struct {
	printFn func(ctx context.Context, lines []string) error
	calls   int
}

func (m *mockPrinter) PrintRaw(ctx context.Context, lines []string) error {
	m.calls++
	if m.printFn != nil {
		return m.printFn(ctx, lines)
	}
	return nil
}

type mockDocuments struct {
	renderFn func(ctx context.Context, html string) (string, error)
	shareFn  func(ctx context.Context, uri string) error
}

func (m *mockDocuments) RenderToFile(ctx context.Context, html string) (string, error) {
	if m.renderFn != nil {
		return m.renderFn(ctx, html)
	}
	return "file:///tmp/receipt.html", nil
}

func (m *mockDocuments) Share(ctx context.Context, uri string) error {
	if m.shareFn != nil {
		return m.shareFn(ctx, uri)
	}
	return nil
}

func TestEmitAllSucceed(t *testing.T) {
	printer := &mockPrinter{}
	e := NewEmitter(printer, &mockDocuments{}, "Recepie", "#c92828")

	rep := e.Emit(context.Background(), Build(sampleOrder(), nil, "", orderTime))

	assert.True(t, rep.Printed)
	assert.True(t, rep.Shared)
	assert.Equal(t, "file:///tmp/receipt.html", rep.DocumentURI)
	assert.NoError(t, rep.Err())
	assert.Equal(t, 1, printer.calls)
}

func TestEmitIsBestEffort(t *testing.T) {
	printer := &mockPrinter{printFn: func(context.Context, []string) error { return errors.New("paper out") }}
	docs := &mockDocuments{shareFn: func(context.Context, string) error { return ErrSharingUnavailable }}
	e := NewEmitter(printer, docs, "Recepie", "#c92828")

	rep := e.Emit(context.Background(), Build(sampleOrder(), nil, "", orderTime))

	assert.False(t, rep.Printed)
	assert.False(t, rep.Shared)
	assert.NotEmpty(t, rep.DocumentURI)
	assert.Len(t, rep.Errors, 2)
	assert.ErrorIs(t, rep.Err(), ErrSharingUnavailable)
}

func TestEmitWithoutCapabilities(t *testing.T) {
	rep := NewEmitter(nil, nil, "Recepie", "").Emit(context.Background(), Build(sampleOrder(), nil, "", orderTime))
	assert.False(t, rep.Printed)
	assert.NoError(t, rep.Err())
}
