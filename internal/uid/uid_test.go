package uid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadIDShape(t *testing.T) {
	id := UploadID()
	assert.True(t, strings.HasPrefix(id, "upload_"))
	assert.Len(t, strings.TrimPrefix(id, "upload_"), 10)
}

func TestUploadIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := UploadID()
		assert.False(t, seen[id], "collision: %s", id)
		seen[id] = true
	}
}

func TestAlphanumericCharset(t *testing.T) {
	s := Alphanumeric(500)
	for _, r := range s {
		assert.True(t, (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}
}
