package wire

import (
	"bytes"
	"testing"
)

func TestValueRoundTrip(t *testing.T) {
	payload := []byte(`{"id":"1"}`)
	b := EncodeValue(2, payload)

	tier, got, err := DecodeValue(b)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if tier != 2 {
		t.Fatalf("tier: got %d want 2", tier)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: got %q want %q", got, payload)
	}
}

func TestValueEmptyPayload(t *testing.T) {
	b := EncodeValue(0, nil)
	_, got, err := DecodeValue(b)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty payload, got %q", got)
	}
}

// DecodeValue must reject trailing bytes (strict framing).
func TestValueRejectsTrailing(t *testing.T) {
	b := EncodeValue(1, []byte("x"))
	b = append(b, 0xDE, 0xAD)
	if _, _, err := DecodeValue(b); err != ErrCorrupt {
		t.Fatalf("expected ErrCorrupt on trailing bytes, got %v", err)
	}
}

func TestValueRejectsForeignBytes(t *testing.T) {
	for _, b := range [][]byte{
		nil,
		[]byte("plain string from another writer"),
		[]byte{'F', 'C', 'H', 'E'},             // magic only
		[]byte{'F', 'C', 'H', 'E', 9, 0, 0, 0}, // wrong version, short header
	} {
		if _, _, err := DecodeValue(b); err != ErrCorrupt {
			t.Fatalf("expected ErrCorrupt for %q, got %v", b, err)
		}
	}
}

func TestValueRejectsTruncatedPayload(t *testing.T) {
	b := EncodeValue(1, []byte("abcdef"))
	// Chop the payload; the declared length no longer matches.
	if _, _, err := DecodeValue(b[:len(b)-2]); err != ErrCorrupt {
		t.Fatalf("expected ErrCorrupt on truncated payload, got %v", err)
	}
}
