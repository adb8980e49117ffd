package strings

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// SuppySuffix appends suffix to text unless text already ends with it.
func SuppySuffix(text, suffix string) string {
	if strings.HasSuffix(text, suffix) {
		return text
	}
	return text + suffix
}

// RandomHex returns l random characters drawn from [0-9a-f].
func RandomHex(l uint) (string, error) {
	if l == 0 {
		return "", nil
	}

	// hex doubles the byte length; the extra byte covers odd l.
	buffer := make([]byte, l/2+1)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return hex.EncodeToString(buffer)[:l], nil
}

// SplitIfNotEmpty is strings.Split, except "" splits to an empty slice.
func SplitIfNotEmpty(s string, sep string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, sep)
}
