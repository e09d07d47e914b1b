// Package s3server implements the HTTP surface of the object store: request
// classification, range parsing, XML/response shaping, and the route
// handlers that tie them to pkg/objectstore.
package s3server

import (
	"net/url"
	"strings"
)

// Operation identifies one of the thirteen S3 operations this server
// understands.
type Operation int

const (
	OpUnmatched Operation = iota
	OpListAllBuckets
	OpGetBucketLocation
	OpListObjectsV2
	OpListObjects
	OpCreateBucket
	OpAbortMultipartUpload
	OpDeleteObjectsBulk
	OpCreateMultipartUpload
	OpCompleteMultipartUpload
	OpPutObjectPart
	OpPutObject
	OpGetObject
	OpDeleteObject
)

func (op Operation) String() string {
	switch op {
	case OpListAllBuckets:
		return "ListAllBuckets"
	case OpGetBucketLocation:
		return "GetBucketLocation"
	case OpListObjectsV2:
		return "ListObjectsV2"
	case OpListObjects:
		return "ListObjects"
	case OpCreateBucket:
		return "CreateBucket"
	case OpAbortMultipartUpload:
		return "AbortMultipartUpload"
	case OpDeleteObjectsBulk:
		return "DeleteObjectsBulk"
	case OpCreateMultipartUpload:
		return "CreateMultipartUpload"
	case OpCompleteMultipartUpload:
		return "CompleteMultipartUpload"
	case OpPutObjectPart:
		return "PutObjectPart"
	case OpPutObject:
		return "PutObject"
	case OpGetObject:
		return "GetObject"
	case OpDeleteObject:
		return "DeleteObject"
	default:
		return "Unmatched"
	}
}

type segmentTest func(n int) bool

func segEq(n int) segmentTest    { return func(actual int) bool { return actual == n } }
func segGE(n int) segmentTest    { return func(actual int) bool { return actual >= n } }
func segAtMost(n int) segmentTest { return func(actual int) bool { return actual <= n } }

type queryTest func(q url.Values) bool

func always(url.Values) bool { return true }

func hasQuery(key string) queryTest {
	return func(q url.Values) bool { return q.Has(key) }
}

type rule struct {
	op      Operation
	method  string
	segment segmentTest
	query   queryTest
}

// classifierTable is evaluated in order; the first matching rule wins. The
// order encodes the same disambiguation the underlying protocol needs
// (e.g. a request with `list-type=2` must be checked before the bare
// ListObjects fallback).
var classifierTable = []rule{
	{OpListAllBuckets, "GET", segEq(0), always},
	{OpGetBucketLocation, "GET", segEq(1), hasQuery("location")},
	{OpListObjectsV2, "GET", segEq(1), func(q url.Values) bool { return q.Get("list-type") == "2" }},
	{OpListObjects, "GET", segEq(1), func(q url.Values) bool { return !q.Has("location") && !q.Has("list-type") }},
	{OpCreateBucket, "PUT", segEq(1), always},
	{OpAbortMultipartUpload, "DELETE", segEq(1), hasQuery("uploadId")},
	{OpDeleteObjectsBulk, "POST", segAtMost(2), hasQuery("delete")},
	{OpCreateMultipartUpload, "POST", segGE(2), hasQuery("uploads")},
	{OpCompleteMultipartUpload, "POST", segGE(2), hasQuery("uploadId")},
	{OpPutObjectPart, "PUT", segGE(2), func(q url.Values) bool { return q.Has("partNumber") && q.Has("uploadId") }},
	{OpPutObject, "PUT", segGE(2), func(q url.Values) bool { return !q.Has("partNumber") && !q.Has("uploadId") }},
	{OpGetObject, "GET", segGE(2), func(q url.Values) bool { return !q.Has("location") }},
	{OpDeleteObject, "DELETE", segGE(2), always},
}

// Classify determines which operation a request represents from its
// method, path segment count, and query parameters.
func Classify(method string, segments int, query url.Values) Operation {
	for _, r := range classifierTable {
		if r.method == method && r.segment(segments) && r.query(query) {
			return r.op
		}
	}
	return OpUnmatched
}

// SplitPath splits a request path into its bucket name and object key. The
// bucket is the first non-empty path segment; the key is every segment
// after it, rejoined with "/". Segments is the number of "/"-separated
// segments once leading and trailing slashes are trimmed, used by Classify.
func SplitPath(path string) (bucket, key string, segments int) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "", "", 0
	}
	parts := strings.Split(trimmed, "/")
	bucket = parts[0]
	if len(parts) > 1 {
		key = strings.Join(parts[1:], "/")
	}
	return bucket, key, len(parts)
}
