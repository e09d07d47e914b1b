package s3server

import (
	"fmt"
	"maps"
	"net/http"
	"strconv"
	"strings"
)

// HTTPHeader is a simple outgoing header set, following the convention this
// codebase uses for response shaping rather than writing to the wire inline.
type HTTPHeader map[string]string

// HTTPResponse contains everything needed to write an HTTP response.
type HTTPResponse struct {
	StatusCode int
	Body       string
	Header     HTTPHeader
}

// writeTo writes the response into w.
func (resp HTTPResponse) writeTo(w http.ResponseWriter) {
	headers := w.Header()
	for key, value := range resp.Header {
		headers.Set(key, value)
	}

	if len(resp.Body) > 0 {
		headers.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if len(resp.Body) > 0 {
		w.Write([]byte(resp.Body))
	}
}

// MergeWith returns a copy of resp1 with non-default values from resp2
// overwriting resp1's.
func (resp1 HTTPResponse) MergeWith(resp2 HTTPResponse) HTTPResponse {
	merged := resp1

	if resp2.StatusCode != 0 {
		merged.StatusCode = resp2.StatusCode
	}
	if len(resp2.Body) > 0 {
		merged.Body = resp2.Body
	}

	merged.Header = make(HTTPHeader, len(resp1.Header)+len(resp2.Header))
	maps.Copy(merged.Header, resp1.Header)
	maps.Copy(merged.Header, resp2.Header)

	return merged
}

func ok(body string) HTTPResponse {
	return HTTPResponse{StatusCode: http.StatusOK, Body: body}
}

func notFound() HTTPResponse {
	return HTTPResponse{StatusCode: http.StatusNotFound}
}

func badRequest(msg string) HTTPResponse {
	return HTTPResponse{StatusCode: http.StatusBadRequest, Body: msg}
}

func serverError(msg string) HTTPResponse {
	return HTTPResponse{StatusCode: http.StatusInternalServerError, Body: msg}
}

func forbidden(msg string) HTTPResponse {
	return HTTPResponse{StatusCode: http.StatusForbidden, Body: msg}
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>`

// listBucketEntry is a single listing row, already formatted as its
// <Contents>...</Contents> or <CommonPrefixes>...</CommonPrefixes> element.
type listBucketEntry = string

// renderListObjectsV2 builds a ListBucketResult in the v2 shape.
func renderListObjectsV2(bucketName, prefix, continuationToken string, maxKeys int, delimiter string, entries []listBucketEntry, nextContinuationToken string, isTruncated bool) string {
	var nextCT string
	if isTruncated {
		nextCT = fmt.Sprintf("<NextContinuationToken>%s</NextContinuationToken>", nextContinuationToken)
	}
	var body strings.Builder
	for _, e := range entries {
		body.WriteString(e)
	}
	return fmt.Sprintf(`%s
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>%s</Name>
  <Prefix>%s</Prefix>
  <KeyCount>%d</KeyCount>
  <ContinuationToken>%s</ContinuationToken>
  %s
  <MaxKeys>%d</MaxKeys>
  <Delimiter>%s</Delimiter>
  <IsTruncated>%t</IsTruncated>
    %s
  <EncodingType>url</EncodingType>
</ListBucketResult>
`, xmlHeader, bucketName, prefix, len(entries), continuationToken, nextCT, maxKeys, delimiter, isTruncated, body.String())
}

// renderListObjectsV1 builds a ListBucketResult in the legacy v1 shape.
func renderListObjectsV1(bucketName, prefix, marker string, maxKeys int, delimiter string, entries []listBucketEntry, nextMarker string, isTruncated bool) string {
	var nextMarkerElem string
	if isTruncated {
		nextMarkerElem = fmt.Sprintf("<NextMarker>%s</NextMarker>", nextMarker)
	}
	var body strings.Builder
	for _, e := range entries {
		body.WriteString(e)
	}
	return fmt.Sprintf(`%s
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>%s</Name>
  <Prefix>%s</Prefix>
  <Marker>%s</Marker>
  %s
  <MaxKeys>%d</MaxKeys>
  <Delimiter>%s</Delimiter>
  <IsTruncated>%t</IsTruncated>
    %s
  <EncodingType>url</EncodingType>
</ListBucketResult>
`, xmlHeader, bucketName, prefix, marker, nextMarkerElem, maxKeys, delimiter, isTruncated, body.String())
}

// bucketLocationRegion is hardcoded: this deployment never spans regions.
const bucketLocationRegion = "ap-southeast-1"

func renderBucketLocation() string {
	return fmt.Sprintf(`%s
<LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">%s</LocationConstraint>
`, xmlHeader, bucketLocationRegion)
}

func renderInitiateMultipartUpload(bucket, key, uploadID string) string {
	return fmt.Sprintf(`%s
<InitiateMultipartUploadResult>
   <Bucket>%s</Bucket>
   <Key>%s</Key>
   <UploadId>%s</UploadId>
</InitiateMultipartUploadResult>`, xmlHeader, bucket, key, uploadID)
}

func renderCompleteMultipartUpload(hostAndScheme, bucket, key, etag string) string {
	return fmt.Sprintf(`%s
<CompleteMultipartUploadResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
 <Location>%s/%s/%s</Location>
 <Bucket>%s</Bucket>
 <Key>%s</Key>
 <ETag>"%s"</ETag>
</CompleteMultipartUploadResult>`, xmlHeader, hostAndScheme, bucket, key, bucket, key, etag)
}

// renderDeletedEntry builds one <Deleted>...</Deleted> fragment of a bulk-delete
// response; versionID is empty when the caller did not request a
// version-scoped delete.
func renderDeletedEntry(key, versionID string) string {
	if versionID == "" {
		return fmt.Sprintf(`<Deleted>
    <Key>%s</Key>
  </Deleted>`, key)
	}
	return fmt.Sprintf(`<Deleted>
    <DeleteMarker>false</DeleteMarker>
    <Key>%s</Key>
    <VersionId>%s</VersionId>
  </Deleted>`, key, versionID)
}

func renderDeleteResult(entries []string) string {
	var body strings.Builder
	for _, e := range entries {
		body.WriteString(e)
	}
	return fmt.Sprintf(`%s
<DeleteResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
 %s
</DeleteResult>`, xmlHeader, body.String())
}

func renderListAllBuckets(buckets []bucketSummary) string {
	var body strings.Builder
	for _, b := range buckets {
		body.WriteString(fmt.Sprintf(`
    <Bucket>
        <CreationDate>%s</CreationDate>
        <Name>%s</Name>
    </Bucket>`, b.CreationDate, b.Name))
	}
	return fmt.Sprintf(`%s
<ListAllMyBucketsResult><Buckets>%s</Buckets></ListAllMyBucketsResult>`, xmlHeader, body.String())
}

// bucketSummary is the minimal data renderListAllBuckets needs about a
// bucket; kept separate from objectstore types so this package does not
// need to import it just to format a timestamp.
type bucketSummary struct {
	Name         string
	CreationDate string
}
