package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

func sealEncrypted(secret string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := gcm.Seal(nil, nonce, []byte(secret), nil)

	return fmt.Sprintf(
		"%s%s$%s",
		tagEncrypted,
		base64.RawStdEncoding.EncodeToString(nonce),
		base64.RawStdEncoding.EncodeToString(ct),
	), nil
}

func verifyEncrypted(presented, stored string, key []byte) (bool, error) {
	parts := strings.Split(strings.TrimPrefix(stored, tagEncrypted), "$")
	if len(parts) != 2 {
		return false, ErrSealedInvalid
	}

	nonce, err := base64.RawStdEncoding.DecodeString(parts[0])
	if err != nil {
		return false, ErrSealedInvalid
	}
	ct, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false, ErrSealedInvalid
	}

	gcm, err := newGCM(key)
	if err != nil {
		return false, err
	}
	if len(nonce) != gcm.NonceSize() {
		return false, ErrSealedInvalid
	}

	plain, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		// Wrong key or corrupt ciphertext. Hard error by contract: the
		// stored record is unreadable, which is not the same as "the user
		// typed the wrong password".
		return false, ErrSealedInvalid
	}

	return subtle.ConstantTimeCompare(plain, []byte(presented)) == 1, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
