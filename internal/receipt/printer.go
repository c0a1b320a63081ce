package receipt

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// Printer sends raw text lines to a receipt printer.
type Printer interface {
	PrintRaw(ctx context.Context, lines []string) error
}

// WriterPrinter prints to any io.Writer, e.g. stdout or a serial device file.
type WriterPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterPrinter(w io.Writer) *WriterPrinter {
	return &WriterPrinter{w: w}
}

func (p *WriterPrinter) PrintRaw(ctx context.Context, lines []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := io.WriteString(p.w, strings.Join(lines, "\n")+"\n"); err != nil {
		return fmt.Errorf("print receipt: %w", err)
	}
	return nil
}

// ESC/POS control sequences.
var (
	escInit = []byte{0x1b, 0x40}
	escCut  = []byte{0x1d, 0x56, 0x42, 0x00}
)

// NetworkPrinter prints to a raw TCP thermal printer (usually port 9100).
type NetworkPrinter struct {
	Addr    string
	Timeout time.Duration
}

func NewNetworkPrinter(addr string) *NetworkPrinter {
	return &NetworkPrinter{Addr: addr, Timeout: 5 * time.Second}
}

func (p *NetworkPrinter) PrintRaw(ctx context.Context, lines []string) error {
	d := net.Dialer{Timeout: p.Timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return fmt.Errorf("connect printer %s: %w", p.Addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(p.Timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	conn.SetWriteDeadline(deadline)

	var buf []byte
	buf = append(buf, escInit...)
	buf = append(buf, strings.Join(lines, "\n")+"\n"...)
	buf = append(buf, escCut...)
	if _, err := conn.Write(buf); err != nil {
		return fmt.Errorf("write printer %s: %w", p.Addr, err)
	}
	return nil
}
