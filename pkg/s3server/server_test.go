package s3server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wushilin/rust-s3-server/pkg/objectstore"
)

func newTestServer(t *testing.T) (*Server, *objectstore.RootStore) {
	t.Helper()
	dir := t.TempDir()
	root := objectstore.NewRootStore(dir)
	require.NoError(t, root.Initialize())
	server := NewServer(root, Config{DebugAPIKey: "super-secret"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return server, root
}

func doRequest(t *testing.T, server *Server, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func doRequestWithHeader(t *testing.T, server *Server, method, target, headerName, headerValue, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(headerName, headerValue)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerCreateAndListBuckets(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodPut, "/photos", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Name>photos</Name>")
}

func TestServerPutAndGetObject(t *testing.T) {
	server, _ := newTestServer(t)
	doRequest(t, server, http.MethodPut, "/b1", "")

	rec := doRequest(t, server, http.MethodPut, "/b1/hello.txt", "hello world")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("ETag"))

	rec = doRequest(t, server, http.MethodGet, "/b1/hello.txt", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello world", rec.Body.String())
	assert.Equal(t, "11", rec.Header().Get("Content-Length"))
}

func TestServerGetObjectRange(t *testing.T) {
	server, _ := newTestServer(t)
	doRequest(t, server, http.MethodPut, "/b1", "")
	doRequest(t, server, http.MethodPut, "/b1/hello.txt", "hello world")

	req := httptest.NewRequest(http.MethodGet, "/b1/hello.txt", nil)
	req.Header.Set("Range", "bytes=6-10")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "world", rec.Body.String())
}

func TestServerGetObjectNotFound(t *testing.T) {
	server, _ := newTestServer(t)
	doRequest(t, server, http.MethodPut, "/b1", "")

	rec := doRequest(t, server, http.MethodGet, "/b1/missing.txt", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerDeleteObject(t *testing.T) {
	server, _ := newTestServer(t)
	doRequest(t, server, http.MethodPut, "/b1", "")
	doRequest(t, server, http.MethodPut, "/b1/hello.txt", "hi")

	rec := doRequest(t, server, http.MethodDelete, "/b1/hello.txt", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/b1/hello.txt", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerBulkDelete(t *testing.T) {
	server, _ := newTestServer(t)
	doRequest(t, server, http.MethodPut, "/b1", "")
	doRequest(t, server, http.MethodPut, "/b1/a.txt", "a")
	doRequest(t, server, http.MethodPut, "/b1/b.txt", "b")

	body := `<Delete><Object><Key>a.txt</Key></Object><Object><Key>b.txt</Key></Object></Delete>`
	rec := doRequest(t, server, http.MethodPost, "/b1?delete", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Key>a.txt</Key>")
	assert.Contains(t, rec.Body.String(), "<Key>b.txt</Key>")

	rec = doRequest(t, server, http.MethodGet, "/b1/a.txt", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerMultipartUploadFlow(t *testing.T) {
	server, _ := newTestServer(t)
	doRequest(t, server, http.MethodPut, "/b1", "")

	rec := doRequest(t, server, http.MethodPost, "/b1/big.bin?uploads", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<UploadId>")

	start := strings.Index(rec.Body.String(), "<UploadId>") + len("<UploadId>")
	end := strings.Index(rec.Body.String(), "</UploadId>")
	uploadID := rec.Body.String()[start:end]

	rec = doRequest(t, server, http.MethodPut, "/b1/big.bin?partNumber=1&uploadId="+uploadID, "hello, ")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, server, http.MethodPut, "/b1/big.bin?partNumber=2&uploadId="+uploadID, "world")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/b1/big.bin?uploadId="+uploadID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CompleteMultipartUploadResult")

	rec = doRequest(t, server, http.MethodGet, "/b1/big.bin", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello, world", rec.Body.String())
}

func TestServerAbortMultipartUpload(t *testing.T) {
	server, _ := newTestServer(t)
	doRequest(t, server, http.MethodPut, "/b1", "")
	rec := doRequest(t, server, http.MethodDelete, "/b1?uploadId=upload_whatever", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServerGetBucketLocation(t *testing.T) {
	server, _ := newTestServer(t)
	doRequest(t, server, http.MethodPut, "/b1", "")
	rec := doRequest(t, server, http.MethodGet, "/b1?location", "")
	assert.Contains(t, rec.Body.String(), "ap-southeast-1")
}

func TestServerBackdoorRequiresKey(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequestWithHeader(t, server, http.MethodGet, "/backdoor", "x-api-key", "wrong", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequestWithHeader(t, server, http.MethodGet, "/backdoor", "x-api-key", "super-secret", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Secret Revealed")
}

func TestServerBackdoorDisabledWithoutKey(t *testing.T) {
	dir := t.TempDir()
	root := objectstore.NewRootStore(dir)
	require.NoError(t, root.Initialize())
	server := NewServer(root, Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := doRequestWithHeader(t, server, http.MethodGet, "/backdoor", "x-api-key", "anything", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
