package utils

import (
	"net/http"
)

// CloneBytes returns a copy of b (safe for use after the source buffer is released).
func CloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// ContentType sniffs a MIME type from the first 512 bytes of data.  It is
// only used for display; codec selection never depends on it.
func ContentType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return http.DetectContentType(data)
}
