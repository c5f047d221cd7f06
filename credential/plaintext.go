package credential

import (
	"crypto/subtle"
	"strings"
)

func sealPlaintext(secret string) string {
	return tagPlaintext + secret
}

func verifyPlaintext(presented, stored string) bool {
	raw := strings.TrimPrefix(stored, tagPlaintext)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(raw)) == 1
}
