package s3server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeleteKeysPlain(t *testing.T) {
	body := `<Delete><Object><Key>a.txt</Key></Object><Object><Key>b.txt</Key></Object></Delete>`
	keys := ParseDeleteKeys(body)
	require.Len(t, keys, 2)
	assert.Equal(t, "a.txt", keys[0].Key)
	assert.Equal(t, "", keys[0].VersionID)
	assert.Equal(t, "b.txt", keys[1].Key)
}

func TestParseDeleteKeysWithVersion(t *testing.T) {
	body := `<Delete><Object><Key>a.txt</Key><VersionId>v1</VersionId></Object></Delete>`
	keys := ParseDeleteKeys(body)
	require.Len(t, keys, 1)
	assert.Equal(t, "a.txt", keys[0].Key)
	assert.Equal(t, "v1", keys[0].VersionID)
}

func TestParseDeleteKeysStripsNewlines(t *testing.T) {
	body := "<Delete>\r\n<Object>\r\n<Key>a.txt</Key>\r\n</Object>\r\n</Delete>"
	keys := ParseDeleteKeys(body)
	require.Len(t, keys, 1)
	assert.Equal(t, "a.txt", keys[0].Key)
}

func TestParseDeleteKeysEmpty(t *testing.T) {
	assert.Empty(t, ParseDeleteKeys("<Delete></Delete>"))
}
