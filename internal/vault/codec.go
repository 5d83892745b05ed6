// Package vault implements the encrypted-at-rest portfolio store: a
// password-derived-key AEAD codec, a single-file store with explicit
// session semantics, and a watcher that guards the single-writer
// assumption.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/chrisjgf/portfolio/internal/apperr"
)

// Blob layout: salt(16) ‖ nonce(12) ‖ tag(16) ‖ ciphertext. There is no
// magic number or version field, so any change to the key derivation or
// framing breaks existing files.
const (
	saltSize   = 16
	nonceSize  = 12
	tagSize    = 16
	headerSize = saltSize + nonceSize + tagSize

	kdfIterations = 100_000
	keySize       = 32
)

// deriveKey stretches a password into an AES-256 key. PBKDF2-SHA256 with a
// fixed iteration count, deterministic for a given password and salt.
func deriveKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, kdfIterations, keySize, sha256.New)
}

// Encrypt seals plaintext under a key derived from password. A fresh salt
// and nonce are drawn on every call, never reused even for an identical
// password and payload.
func Encrypt(plaintext, password []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("vault: salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("vault: nonce: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil) // ciphertext ‖ tag
	ct := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	blob := make([]byte, 0, headerSize+len(ct))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ct...)
	return blob, nil
}

// Decrypt opens a blob produced by Encrypt. Every failure mode — wrong
// password, flipped byte, truncated blob — surfaces as
// apperr.ErrAuthentication, so callers cannot distinguish a bad password
// from a corrupt file. Nothing is returned on failure: decryption is
// all-or-nothing.
func Decrypt(blob, password []byte) ([]byte, error) {
	if len(blob) < headerSize {
		return nil, apperr.ErrAuthentication
	}
	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	tag := blob[saltSize+nonceSize : headerSize]
	ct := blob[headerSize:]

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	// GCM wants ciphertext ‖ tag; the blob stores the tag up front.
	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, apperr.ErrAuthentication
	}
	return plaintext, nil
}

func newGCM(password, salt []byte) (cipher.AEAD, error) {
	key := deriveKey(password, salt)
	block, err := aes.NewCipher(key)
	zeroBytes(key)
	if err != nil {
		return nil, fmt.Errorf("vault: cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: gcm: %w", err)
	}
	return gcm, nil
}

// zeroBytes overwrites b so key material does not linger on the heap.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
