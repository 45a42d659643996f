package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Parameters match the MemoSuite web apps so backups are portable across
// implementations: PBKDF2-SHA256 with 100000 iterations feeding
// AES-256-GCM, and the ciphertext encoded as base64(salt‖nonce‖sealed).
const (
	kdfIterations = 100000
	saltSize      = 16
	nonceSize     = 12
	keySize       = 32
)

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, kdfIterations, keySize, sha256.New)
}

// EncryptContent encrypts plaintext with a key derived from password. The
// random salt and nonce are prefixed to the ciphertext so the result is
// self-contained.
func EncryptContent(plaintext []byte, password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	combined := make([]byte, 0, saltSize+nonceSize+len(sealed))
	combined = append(combined, salt...)
	combined = append(combined, nonce...)
	combined = append(combined, sealed...)

	return base64.StdEncoding.EncodeToString(combined), nil
}

// DecryptContent reverses EncryptContent. Any failure to decode,
// authenticate, or decrypt is reported as ErrInvalidPassword: a truncated
// or tampered envelope is indistinguishable from a wrong password and the
// caller re-prompts either way.
func DecryptContent(encoded, password string) ([]byte, error) {
	combined, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidPassword
	}
	if len(combined) < saltSize+nonceSize {
		return nil, ErrInvalidPassword
	}

	salt := combined[:saltSize]
	nonce := combined[saltSize : saltSize+nonceSize]
	sealed := combined[saltSize+nonceSize:]

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrInvalidPassword
	}
	return plaintext, nil
}
