package receipt

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var ErrSharingUnavailable = errors.New("sharing is not available")

// Documents renders receipts to files and shares them.
type Documents interface {
	RenderToFile(ctx context.Context, html string) (string, error)
	Share(ctx context.Context, uri string) error
}

// FileDocuments writes receipts as HTML files under Dir. Sharing is delegated
// to OnShare; without it Share reports ErrSharingUnavailable.
type FileDocuments struct {
	Dir     string
	OnShare func(ctx context.Context, uri string) error
}

func (d *FileDocuments) RenderToFile(ctx context.Context, html string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create receipt dir: %w", err)
	}
	f, err := os.CreateTemp(d.Dir, "receipt-*.html")
	if err != nil {
		return "", fmt.Errorf("create receipt file: %w", err)
	}
	if _, err := f.WriteString(html); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write receipt file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close receipt file: %w", err)
	}

	abs, err := filepath.Abs(f.Name())
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func (d *FileDocuments) Share(ctx context.Context, uri string) error {
	if !strings.HasPrefix(uri, "file://") {
		return fmt.Errorf("share %q: unsupported uri", uri)
	}
	if d.OnShare == nil {
		return ErrSharingUnavailable
	}
	return d.OnShare(ctx, uri)
}

// PathFromURI converts a file:// uri produced by RenderToFile back to a path.
func PathFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("not a file uri: %q", uri)
	}
	return filepath.FromSlash(u.Path), nil
}
