// Package cryptox implements the message codec used for encryption at rest:
// AES-256-GCM with a random nonce per call, plus argon2id master-key
// derivation and raw sealing used to wrap conversation keys.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"

	"github.com/mindspace/gotcha/internal/common"
	"golang.org/x/crypto/argon2"
)

// KeySize is the length of a conversation key in bytes (AES-256).
const KeySize = 32

// DecryptionPlaceholder is rendered in place of a message that cannot be
// decrypted. It must never look like real content.
const DecryptionPlaceholder = "⚠️ message unavailable"

// GenerateKey returns KeySize bytes from the system CSPRNG.
func GenerateKey() ([]byte, error) {
	return common.RandBytes(KeySize)
}

// DeriveMasterKey stretches a passphrase into a 32-byte key with argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with AES-GCM and returns nonce || ciphertext.
//
// The key must be 16, 24 or 32 bytes long. A fresh nonce is drawn for every
// call, so sealing the same plaintext twice yields different output.
func Seal(plaintext, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := common.RandBytes(aesgcm.NonceSize())
	if err != nil {
		return nil, err
	}

	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal. Any failure, including a wrong key or a truncated
// input, is reported as common.ErrDecryptionFailed.
func Open(sealed, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}

	ns := aesgcm.NonceSize()
	if len(sealed) < ns+aesgcm.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", common.ErrDecryptionFailed)
	}

	plaintext, err := aesgcm.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// Encrypt seals a UTF-8 message and encodes the result as standard base64,
// the form stored in the conversation document.
//
// Example:
//
//	key, _ := GenerateKey()
//	ct, err := Encrypt("see you at 5", key)
//	if err != nil {
//	    return err
//	}
//	pt, err := Decrypt(ct, key) // "see you at 5"
func Encrypt(plaintext string, key []byte) (string, error) {
	sealed, err := Seal([]byte(plaintext), key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt decodes and opens a value produced by Encrypt. Malformed input and
// key mismatches both return common.ErrDecryptionFailed; callers show
// DecryptionPlaceholder instead of the error.
func Decrypt(ciphertext string, key []byte) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}

	plaintext, err := Open(sealed, key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
