// Package encryption seals short text values, such as transcripts, for
// storage at rest. Values are encrypted with an AEAD cipher under a key
// derived from a passphrase and encoded as base64(nonce || ciphertext).
//
//	enc, err := encryption.New(passphrase, encryption.WithAlgorithm(encryption.AlgorithmChaCha20))
//	sealed, err := enc.Encrypt(transcript)
//	transcript, err = enc.Decrypt(sealed)
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Encryptor encrypts and decrypts text values.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Algorithm names a supported AEAD cipher.
type Algorithm string

const (
	AlgorithmAESGCM   Algorithm = "aes-256-gcm"
	AlgorithmChaCha20 Algorithm = "chacha20-poly1305"
)

// MinKeyLength is the shortest accepted passphrase.
const MinKeyLength = 16

// ErrCiphertextTooShort is returned for input shorter than a nonce.
var ErrCiphertextTooShort = errors.New("encryption: ciphertext too short")

// Option configures New.
type Option func(*options)

type options struct {
	algorithm Algorithm
}

// WithAlgorithm selects the cipher. The default is AES-256-GCM.
func WithAlgorithm(alg Algorithm) Option {
	return func(o *options) {
		if alg != "" {
			o.algorithm = alg
		}
	}
}

// AEAD implements Encryptor over a cipher.AEAD.
type AEAD struct {
	alg  Algorithm
	aead cipher.AEAD
}

var _ Encryptor = (*AEAD)(nil)

// New derives a 256-bit key from passphrase with SHA-256 and builds the
// selected cipher.
func New(passphrase string, opts ...Option) (*AEAD, error) {
	o := options{algorithm: AlgorithmAESGCM}
	for _, opt := range opts {
		opt(&o)
	}
	if len(passphrase) < MinKeyLength {
		return nil, fmt.Errorf("encryption: key must be at least %d bytes", MinKeyLength)
	}
	key := sha256.Sum256([]byte(passphrase))

	var (
		aead cipher.AEAD
		err  error
	)
	switch o.algorithm {
	case AlgorithmAESGCM:
		var block cipher.Block
		if block, err = aes.NewCipher(key[:]); err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case AlgorithmChaCha20:
		aead, err = chacha20poly1305.New(key[:])
	default:
		return nil, fmt.Errorf("encryption: unsupported algorithm %q", o.algorithm)
	}
	if err != nil {
		return nil, fmt.Errorf("encryption: create %s: %w", o.algorithm, err)
	}
	return &AEAD{alg: o.algorithm, aead: aead}, nil
}

// Algorithm returns the cipher in use.
func (a *AEAD) Algorithm() Algorithm { return a.alg }

// Encrypt seals plaintext under a fresh random nonce.
func (a *AEAD) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, a.aead.NonceSize(), a.aead.NonceSize()+len(plaintext)+a.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("encryption: generate nonce: %w", err)
	}
	sealed := a.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt under the same key and algorithm.
func (a *AEAD) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("encryption: decode: %w", err)
	}
	n := a.aead.NonceSize()
	if len(data) < n+a.aead.Overhead() {
		return "", ErrCiphertextTooShort
	}
	plaintext, err := a.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", fmt.Errorf("encryption: open: %w", err)
	}
	return string(plaintext), nil
}
