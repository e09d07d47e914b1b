package s3server

import (
	"errors"
	"net/http"

	"github.com/wushilin/rust-s3-server/pkg/objectstore"
)

// statusForError maps a storage error to the HTTP status it should produce.
// Validation failures are 400, missing resources are 404, everything else
// (I/O, merge failures, malformed metadata) is 500.
func statusForError(err error) int {
	var storeErr *objectstore.Error
	if !errors.As(err, &storeErr) {
		return http.StatusInternalServerError
	}

	switch storeErr.Kind {
	case objectstore.ErrInvalidBucketName, objectstore.ErrInvalidObjectKey, objectstore.ErrObjectTooLarge:
		return http.StatusBadRequest
	case objectstore.ErrBucketNotFound, objectstore.ErrKeyNotFound:
		return http.StatusNotFound
	case objectstore.ErrBucketAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func responseForError(err error) HTTPResponse {
	status := statusForError(err)
	return HTTPResponse{StatusCode: status, Body: err.Error()}
}
