package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrInvalidKeySize = errors.New("invalid key size")
	ErrEncryption     = errors.New("encryption failed")
	ErrDecryption     = errors.New("decryption failed")
)

const keyInfo = "leukemia-dashboard session"

// Sealer encrypts small documents at rest, e.g. the persisted session.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// KeyFromPassphrase stretches an operator supplied passphrase into an
// AES-256 key.
func KeyFromPassphrase(passphrase string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(passphrase), nil, []byte(keyInfo)), key); err != nil {
		return nil, err
	}
	return key, nil
}

// NewAESSealer returns an AES-GCM sealer. The nonce is prepended to every
// sealed document.
func NewAESSealer(key []byte) (Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrInvalidKeySize
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrEncryption
	}
	return &aesSealer{gcm: gcm}, nil
}

type aesSealer struct {
	gcm cipher.AEAD
}

func (a *aesSealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, a.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, ErrEncryption
	}
	return a.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (a *aesSealer) Open(sealed []byte) ([]byte, error) {
	nonceSize := a.gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrDecryption
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := a.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}
