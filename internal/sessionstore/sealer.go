package sessionstore

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var sealerInfo = []byte("miniappauth session record")

var errSealedTooShort = errors.New("sealed record too short")

// Sealer encrypts records with XChaCha20-Poly1305
// Output is nonce || ciphertext
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the record key from the secret with HKDF-SHA256
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("secret key must not be empty")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, sealerInfo), key); err != nil {
		return nil, fmt.Errorf("derive key. Err: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher. Err: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce. Err: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plain, nil), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize()+s.aead.Overhead() {
		return nil, errSealedTooShort
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	return s.aead.Open(nil, nonce, ciphertext, nil)
}
