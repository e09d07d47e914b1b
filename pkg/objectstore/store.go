// Package objectstore is the filesystem-backed storage engine: a root
// directory holding one subdirectory per bucket, a sidecar metadata file
// next to every object's data file, and a shared staging directory used to
// build new objects and multipart parts before they are published.
package objectstore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MetaSuffix is appended to an object's data-file path to form the path of
// its sidecar metadata file. An object is visible only once both files
// exist.
const MetaSuffix = "@@META@@"

const stagingDirName = "_staging"

var (
	defaultDirPerm  = os.FileMode(0754)
	defaultFilePerm = os.FileMode(0664)
)

var bucketNamePattern = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{1,255}$`)

// ValidBucketName reports whether name is an acceptable bucket name. The
// staging directory's own name is reserved so a bucket can never shadow it.
func ValidBucketName(name string) bool {
	if name == stagingDirName {
		return false
	}
	return bucketNamePattern.MatchString(name)
}

var invalidKeyCharPattern = regexp.MustCompile(`[\\><|:&$]`)

// ValidKey reports whether key is an acceptable object key.
func ValidKey(key string) bool {
	if invalidKeyCharPattern.MatchString(key) {
		return false
	}
	if strings.Contains(key, "/./") || strings.Contains(key, "/../") || strings.Contains(key, "//") {
		return false
	}
	if strings.HasPrefix(key, "/") {
		return false
	}
	if strings.HasSuffix(key, MetaSuffix) {
		return false
	}
	return true
}

// RootStore owns the base directory that contains every bucket and the
// shared staging directory, plus the sequence generator used to name
// staged files.
type RootStore struct {
	base       string
	stagingDir string
	seq        *Sequence
}

// NewRootStore creates a RootStore rooted at base. Initialize must be
// called once before use to ensure the staging directory exists.
func NewRootStore(base string) *RootStore {
	return &RootStore{
		base:       base,
		stagingDir: filepath.Join(base, stagingDirName),
		seq:        &Sequence{},
	}
}

// Initialize ensures the staging directory exists.
func (r *RootStore) Initialize() error {
	return os.MkdirAll(r.stagingDir, defaultDirPerm)
}

// StagingDir returns the shared staging directory path.
func (r *RootStore) StagingDir() string {
	return r.stagingDir
}

// MakeBucket creates a new bucket directory and returns a handle to it.
func (r *RootStore) MakeBucket(name string) (*Bucket, error) {
	if !ValidBucketName(name) {
		return nil, newError(ErrInvalidBucketName, name)
	}
	if _, ok := r.GetBucket(name); ok {
		return nil, newError(ErrBucketAlreadyExists, name)
	}

	path := filepath.Join(r.base, name)
	if err := os.MkdirAll(path, defaultDirPerm); err != nil {
		return nil, wrapError(ErrInputOutput, fmt.Sprintf("creating bucket %q", name), err)
	}

	bucket, ok := r.GetBucket(name)
	if !ok {
		return nil, newError(ErrInputOutput, "bucket did not exist after creation")
	}
	return bucket, nil
}

// GetBucket returns a handle to an existing bucket, or false if it does not
// exist or name is not a valid bucket name.
func (r *RootStore) GetBucket(name string) (*Bucket, bool) {
	if !ValidBucketName(name) {
		return nil, false
	}
	path := filepath.Join(r.base, name)
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, false
	}
	return newBucket(path, r.stagingDir, r.seq), true
}

// GetAllBuckets returns every bucket directly under the root, keyed by
// name.
func (r *RootStore) GetAllBuckets() map[string]*Bucket {
	result := make(map[string]*Bucket)
	_ = os.MkdirAll(r.stagingDir, defaultDirPerm)

	entries, err := os.ReadDir(r.base)
	if err != nil {
		return result
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !ValidBucketName(name) {
			continue
		}
		result[name] = newBucket(filepath.Join(r.base, name), r.stagingDir, r.seq)
	}
	return result
}
