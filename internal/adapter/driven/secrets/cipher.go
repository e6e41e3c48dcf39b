// Package secrets implements the SecretCipher port with XChaCha20-Poly1305
// and manages the process-wide key material.
package secrets

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/ericfisherdev/wpgateway/internal/domain/port/driven"
)

// KeySize is the required master key length in bytes.
const KeySize = 32

// tokenPrefix versions the token format. It is authenticated as associated
// data, so a token cannot be replayed under a different format version.
const tokenPrefix = "v1."

// hkdfInfo separates the secret-field subkey from any other use of the master key.
var hkdfInfo = []byte("wpgateway.connection-secret.v1")

// tokenEncoding rejects non-canonical trailing bits so every character of a
// token is covered by the authentication check.
var tokenEncoding = base64.RawURLEncoding.Strict()

// Compile-time interface satisfaction check.
var _ driven.SecretCipher = (*Cipher)(nil)

// Cipher seals secret strings into printable, self-describing tokens:
//
//	"v1." + base64url(nonce(24) || ciphertext || tag(16))
//
// A Cipher is immutable after construction and safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the field-encryption subkey from a 32-byte master key.
func NewCipher(masterKey []byte) (*Cipher, error) {
	if len(masterKey) != KeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", KeySize, len(masterKey))
	}

	subkey := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, nil, hkdfInfo), subkey); err != nil {
		return nil, fmt.Errorf("derive subkey: %w", err)
	}

	aead, err := chacha20poly1305.NewX(subkey)
	if err != nil {
		return nil, fmt.Errorf("chacha20poly1305.NewX: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext. The empty string is returned unchanged.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends to nonce, producing: nonce || ciphertext || tag.
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), []byte(tokenPrefix))
	return tokenPrefix + tokenEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt. The empty string is returned
// unchanged. Every failure wraps driven.ErrDecryption.
func (c *Cipher) Decrypt(token string) (string, error) {
	if token == "" {
		return "", nil
	}

	encoded, ok := strings.CutPrefix(token, tokenPrefix)
	if !ok {
		return "", fmt.Errorf("%w: unknown token format", driven.ErrDecryption)
	}

	data, err := tokenEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode: %v", driven.ErrDecryption, err)
	}

	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize+c.aead.Overhead() {
		return "", fmt.Errorf("%w: token too short", driven.ErrDecryption)
	}

	plaintext, err := c.aead.Open(nil, data[:nonceSize], data[nonceSize:], []byte(tokenPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: invalid key or corrupted data", driven.ErrDecryption)
	}
	return string(plaintext), nil
}
