package services

import "testing"

func TestTailBufferDropsOldBytesOnRuneBoundary(t *testing.T) {
	b := newTailBuffer(5)
	_, _ = b.Write([]byte("xñyz"))
	_, _ = b.Write([]byte("w"))
	if got := b.String(); got != "ñyzw" {
		t.Fatalf("unexpected tail %q", got)
	}

	b = newTailBuffer(5)
	if n, err := b.Write([]byte("ñññ")); err != nil || n != 6 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if got := b.String(); got != "ññ" {
		t.Fatalf("expected partial rune dropped, got %q", got)
	}
	if cap(b.buf) != 5 {
		t.Fatalf("buffer grew past its limit: cap %d", cap(b.buf))
	}
}
