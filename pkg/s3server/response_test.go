package s3server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPResponseWriteTo(t *testing.T) {
	rec := httptest.NewRecorder()
	resp := HTTPResponse{StatusCode: 200, Body: "hello", Header: HTTPHeader{"ETag": "abc"}}
	resp.writeTo(rec)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, "abc", rec.Header().Get("ETag"))
	assert.Equal(t, "5", rec.Header().Get("Content-Length"))
}

func TestHTTPResponseMergeWith(t *testing.T) {
	base := HTTPResponse{StatusCode: 200, Header: HTTPHeader{"A": "1"}}
	override := HTTPResponse{StatusCode: 404, Header: HTTPHeader{"B": "2"}}

	merged := base.MergeWith(override)
	assert.Equal(t, 404, merged.StatusCode)
	assert.Equal(t, "1", merged.Header["A"])
	assert.Equal(t, "2", merged.Header["B"])
}

func TestRenderListObjectsV2Truncated(t *testing.T) {
	xml := renderListObjectsV2("b1", "dir/", "", 100, "/", []listBucketEntry{`<CommonPrefixes><Prefix>dir/sub/</Prefix></CommonPrefixes>`}, "dir/sub/", true)
	assert.Contains(t, xml, "<Name>b1</Name>")
	assert.Contains(t, xml, "<KeyCount>1</KeyCount>")
	assert.Contains(t, xml, "<NextContinuationToken>dir/sub/</NextContinuationToken>")
	assert.Contains(t, xml, "<IsTruncated>true</IsTruncated>")
}

func TestRenderListObjectsV1NotTruncated(t *testing.T) {
	xml := renderListObjectsV1("b1", "", "", 100, "", nil, "", false)
	assert.Contains(t, xml, "<IsTruncated>false</IsTruncated>")
	assert.NotContains(t, xml, "NextMarker")
}

func TestRenderBucketLocation(t *testing.T) {
	xml := renderBucketLocation()
	assert.Contains(t, xml, "ap-southeast-1")
}

func TestRenderInitiateMultipartUpload(t *testing.T) {
	xml := renderInitiateMultipartUpload("b1", "k1", "upload_abc123")
	assert.Contains(t, xml, "<UploadId>upload_abc123</UploadId>")
	assert.Contains(t, xml, "<Key>k1</Key>")
}

func TestRenderCompleteMultipartUpload(t *testing.T) {
	xml := renderCompleteMultipartUpload("http://127.0.0.1:8000", "b1", "k1", "deadbeef")
	assert.Contains(t, xml, `<Location>http://127.0.0.1:8000/b1/k1</Location>`)
	assert.Contains(t, xml, `<ETag>"deadbeef"</ETag>`)
}

func TestRenderDeletedEntryWithAndWithoutVersion(t *testing.T) {
	plain := renderDeletedEntry("a.txt", "")
	assert.NotContains(t, plain, "VersionId")

	versioned := renderDeletedEntry("a.txt", "v1")
	assert.Contains(t, versioned, "<VersionId>v1</VersionId>")
}

func TestRenderListAllBuckets(t *testing.T) {
	xml := renderListAllBuckets([]bucketSummary{{Name: "a", CreationDate: "2024-01-01T00:00:00.000+00:00"}})
	assert.Contains(t, xml, "<Name>a</Name>")
	assert.Contains(t, xml, "ListAllMyBucketsResult")
}
