package spam

import (
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/unicode/norm"
)

// FingerprintSize is the digest length in bytes.
const FingerprintSize = 16

// Fingerprint returns the hex-encoded one-way digest of text after normalization.
// Texts that differ only in case, Unicode compatibility forms, or whitespace share a fingerprint.
func Fingerprint(text string) string {
	h, err := blake2b.New(FingerprintSize, nil)
	if err != nil {
		// Only reachable with an invalid size or key.
		panic(err)
	}
	_, _ = h.Write([]byte(normalize(text)))
	return hex.EncodeToString(h.Sum(nil))
}

func normalize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
