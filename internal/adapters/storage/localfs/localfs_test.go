package localfs

import (
	"context"
	"io"
	"strings"
	"testing"

	"tixel/internal/pkg/errors"
	"tixel/internal/ports"
)

func TestPutGetDelete(t *testing.T) {
	fs := New(t.TempDir())
	ctx := context.Background()

	svg := `<svg xmlns="http://www.w3.org/2000/svg"></svg>`
	out, err := fs.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   "documents/raw/d1.svg",
		ContentType: "image/svg+xml",
		Reader:      strings.NewReader(svg),
	})
	if err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}
	if out.ObjectKey != "documents/raw/d1.svg" {
		t.Errorf("expected key echoed back, got %q", out.ObjectKey)
	}
	if out.Size != int64(len(svg)) {
		t.Errorf("expected size %d, got %d", len(svg), out.Size)
	}

	rc, contentType, size, err := fs.GetObject(ctx, "documents/raw/d1.svg")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	defer rc.Close()

	if size != int64(len(svg)) {
		t.Errorf("expected size %d, got %d", len(svg), size)
	}
	if !strings.Contains(contentType, "svg") {
		t.Errorf("expected svg content type, got %q", contentType)
	}

	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(body) != svg {
		t.Errorf("round-trip mismatch: %q", body)
	}

	if err := fs.DeleteObject(ctx, "documents/raw/d1.svg"); err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}
	if _, _, _, err := fs.GetObject(ctx, "documents/raw/d1.svg"); !errors.IsNotFound(err) {
		t.Errorf("expected NOT_FOUND after delete, got %v", err)
	}
}

func TestGetObjectMissing(t *testing.T) {
	fs := New(t.TempDir())

	_, _, _, err := fs.GetObject(context.Background(), "documents/raw/nope.svg")
	if !errors.IsNotFound(err) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestPutObjectRequiresKey(t *testing.T) {
	fs := New(t.TempDir())

	_, err := fs.PutObject(context.Background(), ports.PutObjectInput{Reader: strings.NewReader("x")})
	if !errors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
