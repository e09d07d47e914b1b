package s3server

import (
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"

	"github.com/wushilin/rust-s3-server/pkg/chunkedbody"
	"github.com/wushilin/rust-s3-server/pkg/objectstore"
)

// Config controls how a Server behaves.
type Config struct {
	// PublicBaseURL is the scheme+host used to build the <Location> element
	// of a CompleteMultipartUpload response, e.g. "http://127.0.0.1:8000".
	PublicBaseURL string
	// DebugAPIKey, if non-empty, gates the debug endpoint. An empty key
	// disables the endpoint entirely.
	DebugAPIKey string
	// DefaultMaxKeys bounds a listing page when the request omits max-keys.
	DefaultMaxKeys int
	// MaxRequestBytes caps the size of an incoming object body.
	MaxRequestBytes int64

	// OnBytesWritten, OnBytesRead, and OnPartMerged are optional hooks a
	// caller can use to observe traffic (e.g. to feed Prometheus counters)
	// without this package importing any metrics library itself. Left nil,
	// they are no-ops.
	OnBytesWritten func(n int64)
	OnBytesRead    func(n int64)
	OnPartMerged   func()
}

func (c Config) withDefaults() Config {
	if c.DefaultMaxKeys <= 0 {
		c.DefaultMaxKeys = 100
	}
	if c.MaxRequestBytes <= 0 {
		c.MaxRequestBytes = 5 << 30 // 5 GiB, matching the upstream part-size ceiling
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = "http://127.0.0.1:8000"
	}
	if c.OnBytesWritten == nil {
		c.OnBytesWritten = func(int64) {}
	}
	if c.OnBytesRead == nil {
		c.OnBytesRead = func(int64) {}
	}
	if c.OnPartMerged == nil {
		c.OnPartMerged = func() {}
	}
	return c
}

// Server dispatches classified S3 requests against a root store.
type Server struct {
	root   *objectstore.RootStore
	config Config
	logger *slog.Logger
}

// NewServer constructs a Server backed by root.
func NewServer(root *objectstore.RootStore, config Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{root: root, config: config.withDefaults(), logger: logger}
}

// Handler returns the http.Handler that serves every route this server
// understands.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/backdoor", s.handleBackdoor)
	mux.HandleFunc("/", s.handleRequest)
	return mux
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	bucket, key, segments := SplitPath(r.URL.Path)
	query := r.URL.Query()
	op := Classify(r.Method, segments, query)

	log := s.logger.With("method", r.Method, "path", r.URL.Path, "op", op.String())

	var resp HTTPResponse
	switch op {
	case OpListAllBuckets:
		resp = s.listAllBuckets(log)
	case OpGetBucketLocation:
		resp = s.getBucketLocation(log, bucket)
	case OpListObjectsV2:
		resp = s.listObjectsV2(log, bucket, query)
	case OpListObjects:
		resp = s.listObjects(log, bucket, query)
	case OpCreateBucket:
		resp = s.createBucket(log, bucket)
	case OpAbortMultipartUpload:
		resp = s.abortMultipartUpload(log, bucket, query.Get("uploadId"))
	case OpDeleteObjectsBulk:
		resp = s.deleteObjectsBulk(log, bucket, r)
	case OpCreateMultipartUpload:
		resp = s.createMultipartUpload(log, bucket, key)
	case OpCompleteMultipartUpload:
		resp = s.completeMultipartUpload(log, bucket, key, query.Get("uploadId"))
	case OpPutObjectPart:
		resp = s.putObjectPart(log, bucket, key, query, r)
	case OpPutObject:
		resp = s.putObject(log, bucket, key, r)
	case OpGetObject:
		s.getObject(w, log, bucket, key, r)
		return
	case OpDeleteObject:
		resp = s.deleteObject(log, bucket, key)
	default:
		resp = badRequest("unrecognized request shape")
	}

	resp.writeTo(w)
}

func (s *Server) handleBackdoor(w http.ResponseWriter, r *http.Request) {
	if s.config.DebugAPIKey == "" {
		notFound().writeTo(w)
		return
	}
	provided := r.Header.Get("x-api-key")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(s.config.DebugAPIKey)) != 1 {
		forbidden("invalid x-api-key").writeTo(w)
		return
	}
	s.logger.Info("backdoor accessed", "x-api-key", provided)
	ok(fmt.Sprintf("Secret Revealed: %s", provided)).writeTo(w)
}

func (s *Server) listAllBuckets(log *slog.Logger) HTTPResponse {
	buckets := s.root.GetAllBuckets()
	summaries := make([]bucketSummary, 0, len(buckets))
	for name, bucket := range buckets {
		created, err := bucket.GetCreationTime()
		if err != nil {
			log.Error("reading bucket creation time failed", "bucket", name, "error", err)
			continue
		}
		summaries = append(summaries, bucketSummary{Name: name, CreationDate: created})
	}
	log.Info("listed buckets", "count", len(summaries))
	return ok(renderListAllBuckets(summaries))
}

func (s *Server) getBucketLocation(log *slog.Logger, bucketName string) HTTPResponse {
	log.Info("returning hardcoded bucket location", "bucket", bucketName)
	return ok(renderBucketLocation())
}

func (s *Server) createBucket(log *slog.Logger, bucketName string) HTTPResponse {
	_, err := s.root.MakeBucket(bucketName)
	if err != nil {
		// Matches the upstream behavior of logging a failed creation (most
		// often "already exists") without surfacing it as a client error.
		log.Error("creating bucket failed", "bucket", bucketName, "error", err)
	} else {
		log.Info("created bucket", "bucket", bucketName)
	}
	return ok("")
}

type listQuery struct {
	delimiter         string
	prefix            string
	marker            string
	continuationToken string
	maxKeys           int
}

func parseListQuery(q url.Values, defaultMaxKeys int) listQuery {
	maxKeys := defaultMaxKeys
	if raw := q.Get("max-keys"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			maxKeys = n
		}
	}
	return listQuery{
		delimiter:         q.Get("delimiter"),
		prefix:            q.Get("prefix"),
		marker:            q.Get("marker"),
		continuationToken: q.Get("continuation-token"),
		maxKeys:           maxKeys,
	}
}

// listBucket dispatches to the delimited or plain listing depending on
// whether a delimiter was requested.
func listBucket(bucket *objectstore.Bucket, prefix, delimiter, after string, limit int) []*objectstore.Object {
	if delimiter != "" {
		return bucket.ListObjectsShort(prefix, after, limit)
	}
	return bucket.ListObjects(prefix, after, limit)
}

func (s *Server) listObjectsV2(log *slog.Logger, bucketName string, query url.Values) HTTPResponse {
	bucket, found := s.root.GetBucket(bucketName)
	if !found {
		return notFound()
	}
	lq := parseListQuery(query, s.config.DefaultMaxKeys)
	after := lq.continuationToken

	objects := listBucket(bucket, lq.prefix, lq.delimiter, after, lq.maxKeys)
	entries := make([]listBucketEntry, 0, len(objects))
	for _, obj := range objects {
		entries = append(entries, obj.Format())
	}

	// A full page is reported as truncated even when it happens to hold the
	// last entries; the client then fetches one extra, empty page.
	var nextCT string
	truncated := false
	if len(objects) > 0 && len(objects) == lq.maxKeys {
		nextCT = objects[len(objects)-1].ObjectKey()
		truncated = true
	}

	log.Info("listed objects (v2)", "bucket", bucketName, "count", len(objects))
	return ok(renderListObjectsV2(bucketName, lq.prefix, lq.continuationToken, lq.maxKeys, lq.delimiter, entries, nextCT, truncated))
}

func (s *Server) listObjects(log *slog.Logger, bucketName string, query url.Values) HTTPResponse {
	bucket, found := s.root.GetBucket(bucketName)
	if !found {
		return notFound()
	}
	lq := parseListQuery(query, s.config.DefaultMaxKeys)
	after := lq.marker

	objects := listBucket(bucket, lq.prefix, lq.delimiter, after, lq.maxKeys)
	entries := make([]listBucketEntry, 0, len(objects))
	for _, obj := range objects {
		entries = append(entries, obj.Format())
	}

	// A full page is reported as truncated even when it happens to hold the
	// last entries; the client then fetches one extra, empty page.
	var nextMarker string
	truncated := false
	if len(objects) > 0 && len(objects) == lq.maxKeys {
		nextMarker = objects[len(objects)-1].ObjectKey()
		truncated = true
	}

	log.Info("listed objects (v1)", "bucket", bucketName, "count", len(objects))
	return ok(renderListObjectsV1(bucketName, lq.prefix, lq.marker, lq.maxKeys, lq.delimiter, entries, nextMarker, truncated))
}

func (s *Server) abortMultipartUpload(log *slog.Logger, bucketName, uploadID string) HTTPResponse {
	bucket, found := s.root.GetBucket(bucketName)
	if !found {
		return notFound()
	}
	bucket.CleanupUploadID(uploadID)
	log.Info("aborted multipart upload", "bucket", bucketName, "uploadId", uploadID)
	return ok("")
}

func (s *Server) createMultipartUpload(log *slog.Logger, bucketName, key string) HTTPResponse {
	bucket, found := s.root.GetBucket(bucketName)
	if !found {
		return notFound()
	}
	uploadID := bucket.GenUploadID()
	log.Info("created multipart upload", "bucket", bucketName, "key", key, "uploadId", uploadID)
	return ok(renderInitiateMultipartUpload(bucketName, key, uploadID))
}

func (s *Server) completeMultipartUpload(log *slog.Logger, bucketName, key, uploadID string) HTTPResponse {
	bucket, found := s.root.GetBucket(bucketName)
	if !found {
		return notFound()
	}
	size, hash, err := bucket.MergePart(key, uploadID)
	if err != nil {
		log.Error("completing multipart upload failed", "bucket", bucketName, "key", key, "uploadId", uploadID, "error", err)
		return responseForError(err)
	}
	s.config.OnPartMerged()
	log.Info("completed multipart upload", "bucket", bucketName, "key", key, "uploadId", uploadID, "size", size)
	return ok(renderCompleteMultipartUpload(s.config.PublicBaseURL, bucketName, key, hash))
}

func (s *Server) putObjectPart(log *slog.Logger, bucketName, key string, query url.Values, r *http.Request) HTTPResponse {
	bucket, found := s.root.GetBucket(bucketName)
	if !found {
		return notFound()
	}
	partNumber, err := strconv.ParseUint(query.Get("partNumber"), 10, 32)
	if err != nil {
		return badRequest("partNumber must be a positive integer")
	}
	uploadID := query.Get("uploadId")
	chunked := chunkedbody.Mode(r.Header.Get("Transfer-Encoding"), r.ContentLength, decodedContentLength(r))

	body := http.MaxBytesReader(nil, r.Body, s.config.MaxRequestBytes)
	size, etag, err := bucket.SaveObjectPart(uploadID, uint32(partNumber), body, chunked)
	if err != nil {
		log.Error("writing object part failed", "bucket", bucketName, "key", key, "uploadId", uploadID, "partNumber", partNumber, "error", err)
		return responseForError(err)
	}
	s.config.OnBytesWritten(size)
	log.Info("wrote object part", "bucket", bucketName, "key", key, "uploadId", uploadID, "partNumber", partNumber, "size", size)
	return HTTPResponse{StatusCode: http.StatusOK, Header: HTTPHeader{"ETag": etag}}
}

func (s *Server) putObject(log *slog.Logger, bucketName, key string, r *http.Request) HTTPResponse {
	bucket, found := s.root.GetBucket(bucketName)
	if !found {
		return notFound()
	}
	chunked := chunkedbody.Mode(r.Header.Get("Transfer-Encoding"), r.ContentLength, decodedContentLength(r))

	body := http.MaxBytesReader(nil, r.Body, s.config.MaxRequestBytes)
	size, etag, err := bucket.SaveObject(key, body, chunked)
	if err != nil {
		log.Error("writing object failed", "bucket", bucketName, "key", key, "error", err)
		return responseForError(err)
	}
	s.config.OnBytesWritten(size)
	log.Info("wrote object", "bucket", bucketName, "key", key, "size", size)
	return HTTPResponse{StatusCode: http.StatusOK, Header: HTTPHeader{"ETag": etag}}
}

func (s *Server) deleteObject(log *slog.Logger, bucketName, key string) HTTPResponse {
	bucket, found := s.root.GetBucket(bucketName)
	if !found {
		return notFound()
	}
	if bucket.DeleteObject(key) {
		log.Info("deleted object", "bucket", bucketName, "key", key)
		return ok("")
	}
	log.Warn("delete object rejected", "bucket", bucketName, "key", key)
	return notFound()
}

func (s *Server) deleteObjectsBulk(log *slog.Logger, bucketName string, r *http.Request) HTTPResponse {
	bucket, found := s.root.GetBucket(bucketName)
	if !found {
		return notFound()
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil {
		log.Warn("reading bulk delete body failed", "bucket", bucketName, "error", err)
		return badRequest("could not read request body")
	}

	keys := ParseDeleteKeys(string(data))
	entries := make([]string, 0, len(keys))
	for _, k := range keys {
		if k.VersionID != "" {
			log.Warn("versioned delete requested but versioning is unsupported", "bucket", bucketName, "key", k.Key, "versionId", k.VersionID)
		}
		bucket.DeleteObject(k.Key)
		entries = append(entries, renderDeletedEntry(k.Key, k.VersionID))
	}
	log.Info("bulk deleted objects", "bucket", bucketName, "count", len(keys))
	return ok(renderDeleteResult(entries))
}

// decodedContentLength reads the x-amz-decoded-content-length header used
// by SigV4 streaming uploads. chunkedbody.Mode treats a non-negative value
// as "header present", so a missing or malformed header must yield -1, not
// 0 — otherwise an identity upload's real Content-Length would always look
// larger than the "decoded" length and get misclassified as chunked.
func decodedContentLength(r *http.Request) int64 {
	raw := r.Header.Get("x-amz-decoded-content-length")
	if raw == "" {
		return -1
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func (s *Server) getObject(w http.ResponseWriter, log *slog.Logger, bucketName, key string, r *http.Request) {
	bucket, found := s.root.GetBucket(bucketName)
	if !found {
		notFound().writeTo(w)
		return
	}
	obj, found := bucket.GetObjectByKey(key)
	if !found || !obj.HasMeta() {
		log.Warn("object not found", "bucket", bucketName, "key", key)
		notFound().writeTo(w)
		return
	}

	f, err := os.Open(obj.Path())
	if err != nil {
		log.Error("opening object failed", "bucket", bucketName, "key", key, "error", err)
		serverError("could not open object").writeTo(w)
		return
	}
	defer f.Close()

	etag, err := obj.Checksum()
	if err != nil {
		log.Error("reading object checksum failed", "bucket", bucketName, "key", key, "error", err)
		serverError("could not read object metadata").writeTo(w)
		return
	}
	lastModified, err := obj.LastModified()
	if err != nil {
		log.Error("reading object mtime failed", "bucket", bucketName, "key", key, "error", err)
		serverError("could not stat object").writeTo(w)
		return
	}
	fileSize, err := obj.Len()
	if err != nil {
		log.Error("reading object size failed", "bucket", bucketName, "key", key, "error", err)
		serverError("could not stat object").writeTo(w)
		return
	}

	byteRange := ParseRange(r.Header.Get("Range"))
	contentLength := fileSize
	status := http.StatusOK
	if byteRange.Valid {
		if _, err := f.Seek(byteRange.Start, io.SeekStart); err != nil {
			log.Error("seeking for range request failed", "bucket", bucketName, "key", key, "error", err)
			serverError("could not seek object").writeTo(w)
			return
		}
		contentLength = byteRange.ContentLength(fileSize)
		status = http.StatusPartialContent
	}

	header := w.Header()
	header.Set("ETag", etag)
	header.Set("Last-Modified", lastModified.UTC().Format(http.TimeFormat))
	header.Set("Cache-Control", "max-age=86400")
	header.Set("Content-Type", "application-octetstream")
	header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, path.Base(key)))
	header.Set("Content-Length", strconv.FormatInt(contentLength, 10))
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return
	}
	written, err := io.CopyN(w, f, contentLength)
	s.config.OnBytesRead(written)
	if err != nil && err != io.EOF {
		log.Error("streaming object body failed", "bucket", bucketName, "key", key, "error", err)
	}
}
