// Package uid generates the random identifiers used for multipart upload
// ids.
package uid

import (
	"crypto/rand"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Alphanumeric returns a random alphanumeric string of the given length,
// drawn from a cryptographically strong source.
func Alphanumeric(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = alphanumeric[int(b)%len(alphanumeric)]
	}
	return string(out)
}

// UploadID returns a fresh multipart upload id of the form
// "upload_<10 random alphanumeric characters>".
func UploadID() string {
	return "upload_" + Alphanumeric(10)
}
