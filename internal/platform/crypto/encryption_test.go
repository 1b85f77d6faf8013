package crypto

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc, err := New("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if !svc.Configured() {
		t.Fatal("expected service to be configured")
	}

	plain := []byte("JBSWY3DPEHPK3PXP")
	encrypted, err := svc.Encrypt(plain)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Equal(encrypted, plain) {
		t.Fatal("ciphertext must differ from plaintext")
	}

	decrypted, err := svc.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plain) {
		t.Fatalf("round trip mismatch: %q", decrypted)
	}
}

func TestUnconfiguredServicePassesThrough(t *testing.T) {
	svc, err := New("")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if svc.Configured() {
		t.Fatal("expected unconfigured service")
	}

	plain := []byte("value")
	out, err := svc.Encrypt(plain)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !bytes.Equal(out, plain) {
		t.Fatal("unconfigured encrypt must pass data through")
	}
}

func TestTamperedCiphertextRejected(t *testing.T) {
	svc, err := New("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	encrypted, err := svc.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	encrypted[len(encrypted)-1] ^= 0xff
	if _, err := svc.Decrypt(encrypted); err == nil {
		t.Fatal("expected tampered ciphertext to fail authentication")
	}
}
