package internal

import (
	"bytes"
	"testing"
)

func TestRandomBytes(t *testing.T) {
	a, err := RandomBytes(24)
	if err != nil {
		t.Fatalf("RandomBytes failed: %v", err)
	}
	b, err := RandomBytes(24)
	if err != nil {
		t.Fatalf("RandomBytes failed: %v", err)
	}
	if len(a) != 24 || len(b) != 24 {
		t.Fatalf("unexpected lengths %d, %d", len(a), len(b))
	}
	if bytes.Equal(a, b) {
		t.Fatal("expected distinct random outputs")
	}
	if _, err := RandomBytes(0); err == nil {
		t.Fatal("expected error for zero size")
	}
}
