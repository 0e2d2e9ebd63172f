// Package crypto seals document payloads at rest. Keys are derived from the
// deployment secret with scrypt using a fresh per-document salt, and the
// payload is sealed with ChaCha20-Poly1305.
package crypto

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const SaltBytes = 16

var (
	// ErrDecrypt is returned when the secret is wrong or the ciphertext has
	// been modified / corrupted.
	ErrDecrypt = errors.New("wrong secret or corrupted document")
)

// Envelope holds everything needed to recover the plaintext except the secret.
type Envelope struct {
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte
}

// Tunables for scrypt key derivation.
func scryptParams() (N, r, p int) { return 1 << 15, 8, 1 }

func deriveKey(secret string, salt []byte) ([]byte, error) {
	N, r, p := scryptParams()
	return scrypt.Key([]byte(secret), salt, N, r, p, chacha20poly1305.KeySize)
}

// Seal encrypts plaintext under a key derived from secret.
func Seal(secret string, plaintext []byte) (Envelope, error) {
	salt := make([]byte, SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return Envelope{}, err
	}

	key, err := deriveKey(secret, salt)
	if err != nil {
		return Envelope{}, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return Envelope{}, err
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return Envelope{}, err
	}

	return Envelope{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, salt),
	}, nil
}

// Open decrypts an envelope sealed with Seal.
func Open(secret string, env Envelope) ([]byte, error) {
	if len(env.Salt) != SaltBytes || len(env.Nonce) != chacha20poly1305.NonceSize {
		return nil, ErrDecrypt
	}

	key, err := deriveKey(secret, env.Salt)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	pt, err := aead.Open(nil, env.Nonce, env.Ciphertext, env.Salt)
	if err != nil {
		return nil, ErrDecrypt
	}
	return pt, nil
}
