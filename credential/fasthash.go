package credential

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

func sealFastHash(secret string) string {
	digest := sha256.Sum256([]byte(secret))
	return tagFastHash + hex.EncodeToString(digest[:])
}

func verifyFastHash(presented, stored string) bool {
	computed := sha256.Sum256([]byte(presented))
	raw, err := hex.DecodeString(strings.TrimPrefix(stored, tagFastHash))
	if err != nil || len(raw) != sha256.Size {
		return false
	}
	return subtle.ConstantTimeCompare(computed[:], raw) == 1
}
