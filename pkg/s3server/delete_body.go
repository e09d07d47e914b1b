package s3server

import (
	"regexp"
	"strings"
)

// deleteKeyPattern matches a single <Object><Key>...</Key>[<VersionId>...</VersionId>]?</Object>
// element in a bulk-delete request body. Versioning is unsupported; the
// VersionId group is captured only so it can be echoed back in the
// response and logged.
var deleteKeyPattern = regexp.MustCompile(`<Object>\s*<Key>(\S+?)</Key>\s*(<VersionId>\s*(\S+?)\s*</VersionId>)?\s*</Object>`)

// DeleteKeyRequest is one (key, versionId) pair extracted from a bulk
// delete request body. VersionID is empty when the element had none.
type DeleteKeyRequest struct {
	Key       string
	VersionID string
}

// ParseDeleteKeys extracts every object key (and optional version id) from
// a bulk-delete request body.
func ParseDeleteKeys(body string) []DeleteKeyRequest {
	body = strings.ReplaceAll(body, "\r", "")
	body = strings.ReplaceAll(body, "\n", "")

	matches := deleteKeyPattern.FindAllStringSubmatch(body, -1)
	result := make([]DeleteKeyRequest, 0, len(matches))
	for _, m := range matches {
		result = append(result, DeleteKeyRequest{Key: m[1], VersionID: m[3]})
	}
	return result
}
