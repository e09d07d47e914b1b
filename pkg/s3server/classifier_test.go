package s3server

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func q(pairs ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return v
}

func TestClassifyListAllBuckets(t *testing.T) {
	assert.Equal(t, OpListAllBuckets, Classify("GET", 0, q()))
}

func TestClassifyGetBucketLocation(t *testing.T) {
	assert.Equal(t, OpGetBucketLocation, Classify("GET", 1, q("location", "")))
}

func TestClassifyListObjectsV2(t *testing.T) {
	assert.Equal(t, OpListObjectsV2, Classify("GET", 1, q("list-type", "2")))
}

func TestClassifyListObjects(t *testing.T) {
	assert.Equal(t, OpListObjects, Classify("GET", 1, q()))
	assert.Equal(t, OpListObjects, Classify("GET", 1, q("prefix", "a")))
}

func TestClassifyCreateBucket(t *testing.T) {
	assert.Equal(t, OpCreateBucket, Classify("PUT", 1, q()))
}

func TestClassifyAbortMultipartUpload(t *testing.T) {
	assert.Equal(t, OpAbortMultipartUpload, Classify("DELETE", 1, q("uploadId", "u1")))
}

func TestClassifyDeleteObjectsBulk(t *testing.T) {
	assert.Equal(t, OpDeleteObjectsBulk, Classify("POST", 1, q("delete", "")))
	assert.Equal(t, OpDeleteObjectsBulk, Classify("POST", 2, q("delete", "")))
}

func TestClassifyCreateMultipartUpload(t *testing.T) {
	assert.Equal(t, OpCreateMultipartUpload, Classify("POST", 2, q("uploads", "")))
}

func TestClassifyCompleteMultipartUpload(t *testing.T) {
	assert.Equal(t, OpCompleteMultipartUpload, Classify("POST", 2, q("uploadId", "u1")))
}

func TestClassifyPutObjectPart(t *testing.T) {
	assert.Equal(t, OpPutObjectPart, Classify("PUT", 2, q("partNumber", "1", "uploadId", "u1")))
}

func TestClassifyPutObject(t *testing.T) {
	assert.Equal(t, OpPutObject, Classify("PUT", 2, q()))
	assert.Equal(t, OpPutObject, Classify("PUT", 3, q()))
}

func TestClassifyGetObject(t *testing.T) {
	assert.Equal(t, OpGetObject, Classify("GET", 2, q()))
	assert.Equal(t, OpGetObject, Classify("GET", 4, q()))
}

func TestClassifyDeleteObject(t *testing.T) {
	assert.Equal(t, OpDeleteObject, Classify("DELETE", 2, q()))
}

func TestClassifyUnmatched(t *testing.T) {
	assert.Equal(t, OpUnmatched, Classify("PATCH", 1, q()))
}

func TestSplitPathRoot(t *testing.T) {
	bucket, key, segments := SplitPath("/")
	assert.Equal(t, "", bucket)
	assert.Equal(t, "", key)
	assert.Equal(t, 0, segments)
}

func TestSplitPathBucketOnly(t *testing.T) {
	bucket, key, segments := SplitPath("/photos")
	assert.Equal(t, "photos", bucket)
	assert.Equal(t, "", key)
	assert.Equal(t, 1, segments)
}

func TestSplitPathBucketAndNestedKey(t *testing.T) {
	bucket, key, segments := SplitPath("/photos/2024/a.jpg")
	assert.Equal(t, "photos", bucket)
	assert.Equal(t, "2024/a.jpg", key)
	assert.Equal(t, 3, segments)
}
