package backup

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestEncryptDecryptContent(t *testing.T) {
	plaintext := []byte(`{"version":1,"books":[],"memos":[]}`)

	encrypted, err := EncryptContent(plaintext, "secret")
	if err != nil {
		t.Fatal(err)
	}
	if encrypted == string(plaintext) {
		t.Fatal("ciphertext equals plaintext")
	}

	got, err := DecryptContent(encrypted, "secret")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(plaintext) {
		t.Errorf("round trip mismatch: %q", got)
	}
}

func TestEncryptContentSaltsEachCall(t *testing.T) {
	a, err := EncryptContent([]byte("same input"), "secret")
	if err != nil {
		t.Fatal(err)
	}
	b, err := EncryptContent([]byte("same input"), "secret")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("expected fresh salt and nonce per encryption")
	}
}

func TestDecryptContentWrongPassword(t *testing.T) {
	encrypted, err := EncryptContent([]byte("payload"), "secret")
	if err != nil {
		t.Fatal(err)
	}

	_, err = DecryptContent(encrypted, "wrong")
	if !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestDecryptContentRejectsGarbage(t *testing.T) {
	for name, input := range map[string]string{
		"not base64": "!!!not-base64!!!",
		"too short":  base64.StdEncoding.EncodeToString([]byte("tiny")),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := DecryptContent(input, "secret"); !errors.Is(err, ErrInvalidPassword) {
				t.Fatalf("expected ErrInvalidPassword, got %v", err)
			}
		})
	}
}

func TestDecryptContentRejectsTampering(t *testing.T) {
	encrypted, err := EncryptContent([]byte("payload"), "secret")
	if err != nil {
		t.Fatal(err)
	}

	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		t.Fatal(err)
	}
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := DecryptContent(tampered, "secret"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}
