package crypt

import "testing"

func TestSealOpenRoundTrip(t *testing.T) {
	cfg, err := NewConfigFromPassphrase("hunter2")
	if err != nil {
		t.Fatalf("NewConfigFromPassphrase: %v", err)
	}
	c, err := NewPageCipher(cfg)
	if err != nil {
		t.Fatalf("NewPageCipher: %v", err)
	}

	plain := make([]byte, 4096)
	for i := range plain {
		plain[i] = byte(i)
	}

	sealed := c.Seal(7, 42, plain)
	if len(sealed) != len(plain) {
		t.Fatalf("sealed length = %d, want %d", len(sealed), len(plain))
	}
	if string(sealed) == string(plain) {
		t.Fatalf("sealed output equals plaintext")
	}

	opened := c.Open(7, 42, sealed)
	if string(opened) != string(plain) {
		t.Fatalf("round trip mismatch")
	}
}

func TestSealDiffersByAddress(t *testing.T) {
	cfg, _ := NewConfigFromPassphrase("hunter2")
	c, _ := NewPageCipher(cfg)

	plain := make([]byte, 4096)
	a := c.Seal(1, 1, plain)
	b := c.Seal(1, 2, plain)
	if string(a) == string(b) {
		t.Fatalf("same ciphertext for different page addresses")
	}
}

func TestReDeriveFromSalt(t *testing.T) {
	cfg1, err := NewConfigFromPassphrase("hunter2")
	if err != nil {
		t.Fatalf("NewConfigFromPassphrase: %v", err)
	}
	cfg2, err := NewConfigFromPassphraseAndSalt("hunter2", cfg1.Salt)
	if err != nil {
		t.Fatalf("NewConfigFromPassphraseAndSalt: %v", err)
	}
	if string(cfg1.Key) != string(cfg2.Key) {
		t.Fatalf("re-derived key does not match original")
	}
}
