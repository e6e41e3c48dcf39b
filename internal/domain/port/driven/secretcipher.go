package driven

import "errors"

// ErrDecryption is returned when a stored secret cannot be decrypted: the token
// is malformed, was sealed under a different key, or was tampered with.
var ErrDecryption = errors.New("decrypt secret")

// SecretCipher seals and opens secret field values. The empty string is a
// sentinel for "no secret set" and passes through both directions unchanged.
type SecretCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(token string) (string, error)
}
