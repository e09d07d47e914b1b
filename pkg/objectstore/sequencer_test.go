package objectstore

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceNextIsUnique(t *testing.T) {
	var seq Sequence
	seen := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token := seq.Next()
			mu.Lock()
			defer mu.Unlock()
			seen[token] = true
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 200)
}

func TestSequenceNextShape(t *testing.T) {
	var seq Sequence
	token := seq.Next()
	parts := strings.Split(token, "_")
	assert.Len(t, parts, 2)
	assert.NotEmpty(t, parts[0])
	assert.Equal(t, "0", parts[1])

	token2 := seq.Next()
	assert.Equal(t, "1", strings.Split(token2, "_")[1])
}
