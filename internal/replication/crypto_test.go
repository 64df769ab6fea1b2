package replication

import "testing"

func TestSealOpenRoundTrip(t *testing.T) {
	c, err := newCryptor("test-shared-key")
	if err != nil {
		t.Fatalf("newCryptor: %v", err)
	}
	plaintext := []byte(`{"method":"probe","payload":{}}`)

	sealed, err := c.seal(plaintext)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	opened, err := c.open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(opened) != string(plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", opened, plaintext)
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	c1, _ := newCryptor("key-one")
	c2, _ := newCryptor("key-two")

	sealed, err := c1.seal([]byte("hello"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := c2.open(sealed); err != ErrAuthFailed {
		t.Fatalf("open with wrong key: got %v, want ErrAuthFailed", err)
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	c, _ := newCryptor("key")
	sealed, err := c.seal([]byte("hello world"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	sealed[len(sealed)/2] ^= 0xFF

	if _, err := c.open(sealed); err != ErrAuthFailed {
		t.Fatalf("open tampered: got %v, want ErrAuthFailed", err)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	raw, err := encodeEnvelope("probe", map[string]int{"signal": -50})
	if err != nil {
		t.Fatalf("encodeEnvelope: %v", err)
	}
	env, err := decodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decodeEnvelope: %v", err)
	}
	if env.Method != "probe" {
		t.Fatalf("method = %q, want probe", env.Method)
	}
}

func TestDecodeEnvelopeRejectsMissingMethod(t *testing.T) {
	if _, err := decodeEnvelope([]byte(`{"payload":{}}`)); err == nil {
		t.Fatal("expected error for missing method")
	}
}
