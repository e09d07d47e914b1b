package objectstore

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wushilin/rust-s3-server/internal/uid"
	"github.com/wushilin/rust-s3-server/pkg/chunkedbody"
)

// FileMeta is the sidecar metadata record stored next to every object's
// data file, and next to every multipart part while it is staged.
type FileMeta struct {
	ETag string `json:"etag"`
	Size int64  `json:"size"`
}

// Bucket is a handle to one bucket directory. It is cheap to construct and
// holds no open file descriptors.
type Bucket struct {
	base    string
	staging string
	seq     *Sequence
}

func newBucket(base, staging string, seq *Sequence) *Bucket {
	return &Bucket{base: base, staging: staging, seq: seq}
}

// Base returns the bucket's directory path.
func (b *Bucket) Base() string { return b.base }

func (b *Bucket) fileForKey(key string) *Object {
	target := filepath.Join(b.base, key)
	return &Object{bucket: b, target: target, kind: typeForPath(target), key: key}
}

func (b *Bucket) metaFileForKey(key string) *Object {
	target := filepath.Join(b.base, key) + MetaSuffix
	return &Object{bucket: b, target: target, kind: typeForPath(target), key: key}
}

// GetObjectByKey returns a handle to an existing data file at key, or false
// if nothing exists there (or it is not a regular file).
func (b *Bucket) GetObjectByKey(key string) (*Object, bool) {
	obj := b.fileForKey(key)
	if !obj.IsFile() {
		return nil, false
	}
	return obj, true
}

// getChildren lists the immediate children of a directory object, sorted
// by target path, skipping sidecar files.
func (b *Bucket) getChildren(parent *Object) []*Object {
	entries, err := os.ReadDir(parent.target)
	if err != nil {
		return nil
	}

	result := make([]*Object, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." || strings.HasSuffix(name, MetaSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		childKey := name
		if parent.key != "" {
			childKey = parent.key + "/" + name
		}
		childPath := filepath.Join(parent.target, name)

		switch {
		case info.IsDir():
			result = append(result, &Object{bucket: b, target: childPath, kind: TypeDirectory, key: childKey})
		case info.Mode().IsRegular():
			result = append(result, &Object{bucket: b, target: childPath, kind: TypeFile, key: childKey})
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].target < result[j].target })
	return result
}

// getSibling returns every entry in obj's parent directory (obj itself is
// not assumed to exist; only its key/path shape is used to locate the
// parent).
func (b *Bucket) getSibling(obj *Object) []*Object {
	parentPath := filepath.Dir(obj.target)
	parentKey := obj.key
	parentKey = strings.TrimSuffix(parentKey, "/")
	if idx := strings.LastIndex(parentKey, "/"); idx >= 0 {
		parentKey = parentKey[:idx]
	} else {
		parentKey = ""
	}

	parent := &Object{bucket: b, target: parentPath, kind: TypeDirectory, key: parentKey}
	return b.getChildren(parent)
}

// collectChildren walks obj's subtree depth-first, pre-order, appending
// every entry it encounters to result.
func (b *Bucket) collectChildren(obj *Object, result *[]*Object) {
	for _, child := range b.getChildren(obj) {
		*result = append(*result, child)
		if child.kind == TypeDirectory {
			b.collectChildren(child, result)
		}
	}
}

// ListObjects implements the plain (non-delimited) listing: when prefix
// names a directory, every file anywhere under it; otherwise every file
// among its siblings whose name starts with the last path segment of
// prefix. Only visible files (kind File with a sidecar) past the after
// cursor are returned, in key order, capped at limit.
func (b *Bucket) ListObjects(prefix, after string, limit int) []*Object {
	if !ValidKey(prefix) {
		return nil
	}

	target := b.fileForKey(prefix)
	fileName := target.ShortName()

	var collected []*Object
	if target.IsDir() {
		collected = append(collected, target)
		b.collectChildren(target, &collected)
	} else {
		for _, sibling := range b.getSibling(target) {
			if !strings.HasPrefix(sibling.ShortName(), fileName) {
				continue
			}
			if sibling.kind == TypeDirectory {
				b.collectChildren(sibling, &collected)
			} else {
				collected = append(collected, sibling)
			}
		}
	}

	result := make([]*Object, 0, len(collected))
	for _, obj := range collected {
		if obj.kind != TypeFile || !obj.HasMeta() {
			continue
		}
		if obj.ObjectKey() <= after {
			continue
		}
		result = append(result, obj)
		if len(result) >= limit {
			break
		}
	}
	return result
}

// ListObjectsShort implements the delimited (one-level) listing: when
// prefix names a directory, the directory entry itself followed by its
// immediate children; otherwise every sibling whose name starts with the
// last path segment of prefix. Both files (with a sidecar) and directories
// (reported as common prefixes by the caller) are returned.
func (b *Bucket) ListObjectsShort(prefix, after string, limit int) []*Object {
	if !ValidKey(prefix) {
		return nil
	}

	target := b.fileForKey(prefix)
	fileName := target.ShortName()

	var collected []*Object
	if target.IsDir() {
		collected = append(collected, target)
		collected = append(collected, b.getChildren(target)...)
	} else {
		for _, sibling := range b.getSibling(target) {
			if strings.HasPrefix(sibling.ShortName(), fileName) {
				collected = append(collected, sibling)
			}
		}
	}

	result := make([]*Object, 0, len(collected))
	for _, obj := range collected {
		if !(obj.kind == TypeDirectory || (obj.kind == TypeFile && obj.HasMeta())) {
			continue
		}
		if obj.ObjectKey() <= after {
			continue
		}
		result = append(result, obj)
		if len(result) >= limit {
			break
		}
	}
	return result
}

// ListAllObjects walks the entire bucket and returns every visible data
// file, ignoring any prefix/delimiter. Intended for debug/administrative
// use, not the request-serving listing path.
func (b *Bucket) ListAllObjects() []*Object {
	var result []*Object
	_ = filepath.WalkDir(b.base, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, MetaSuffix) {
			return nil
		}
		rel, err := filepath.Rel(b.base, path)
		if err != nil {
			return nil
		}
		key := filepath.ToSlash(rel)
		obj := &Object{bucket: b, target: path, kind: TypeFile, key: key}
		if !obj.HasMeta() {
			return nil
		}
		result = append(result, obj)
		return nil
	})
	return result
}

// GenUploadID returns a fresh multipart upload id.
func (b *Bucket) GenUploadID() string {
	return uid.UploadID()
}

// GetCreationTime returns the bucket directory's creation timestamp,
// formatted the same way as an object's LastModified. Go's standard
// library does not portably expose filesystem birth-time, so the
// directory's modification time is used instead; bucket directories are
// never modified again after creation, so the two coincide in practice.
func (b *Bucket) GetCreationTime() (string, error) {
	info, err := os.Stat(b.base)
	if err != nil {
		return "", wrapError(ErrInputOutput, b.base, err)
	}
	return formatTimestamp(info.ModTime()), nil
}

// CleanupUploadID removes every staged part (and sidecar) for an upload id
// that was aborted rather than completed.
func (b *Bucket) CleanupUploadID(id string) {
	counter := 0
	missing := 0
	for {
		counter++
		filePath := filepath.Join(b.staging, fmt.Sprintf("%s_%d", id, counter))
		metaPath := filepath.Join(b.staging, fmt.Sprintf("%s_%d%s", id, counter, MetaSuffix))

		_ = os.Remove(metaPath)
		if _, err := os.Stat(filePath); err == nil {
			_ = os.Remove(filePath)
			missing = 0
		} else {
			missing++
			if missing >= 10 {
				break
			}
		}
		if counter > 1000 {
			break
		}
	}
}

// DeleteObject removes an object's data file and sidecar, and, for a nested
// key, its immediate parent directory if that is now empty (ancestors above
// it are left in place). It returns false only when key fails
// validation; a missing object is treated as a successful no-op delete,
// matching S3's own idempotent-delete semantics.
func (b *Bucket) DeleteObject(key string) bool {
	if !ValidKey(key) {
		return false
	}
	target := filepath.Join(b.base, key)
	metaTarget := target + MetaSuffix

	_ = os.Remove(target)
	_ = os.Remove(metaTarget)
	_ = os.Remove(target) // best-effort: if target was itself an empty directory marker

	if strings.Contains(key, "/") {
		_ = os.Remove(filepath.Dir(target))
	}
	return true
}

// ReadObject opens an object's data file for reading.
func (b *Bucket) ReadObject(key string) (*os.File, error) {
	if !ValidKey(key) {
		return nil, newError(ErrInvalidObjectKey, key)
	}
	f, err := os.Open(filepath.Join(b.base, key))
	if err != nil {
		return nil, wrapError(ErrInputOutput, key, err)
	}
	return f, nil
}

// GetObjectMeta reads and parses an object's sidecar metadata file.
func (b *Bucket) GetObjectMeta(key string) (FileMeta, error) {
	if !ValidKey(key) {
		return FileMeta{}, newError(ErrInvalidObjectKey, key)
	}
	data, err := os.ReadFile(b.metaFileForKey(key).target)
	if err != nil {
		return FileMeta{}, wrapError(ErrKeyNotFound, key, err)
	}
	var meta FileMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return FileMeta{}, wrapError(ErrInvalidMeta, key, err)
	}
	return meta, nil
}

func saveMeta(path string, meta FileMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, defaultFilePerm)
}

// MergePart concatenates every staged part for uploadID, in part-number
// order, into the object at key, and writes its sidecar. Parts are
// discovered by probing staging/<uploadID>_1, _2, ... until the first gap;
// this mirrors how SaveObjectPart names them.
func (b *Bucket) MergePart(key, uploadID string) (int64, string, error) {
	dest := b.fileForKey(key)
	if err := dest.EnsureParent(); err != nil {
		return 0, "", wrapError(ErrInputOutput, key, err)
	}

	destFile, err := os.Create(dest.target)
	if err != nil {
		return 0, "", wrapError(ErrInputOutput, key, err)
	}
	defer destFile.Close()

	hasher := md5.New()
	var total int64

	for counter := 1; ; counter++ {
		partPath := filepath.Join(b.staging, fmt.Sprintf("%s_%d", uploadID, counter))
		metaPath := filepath.Join(b.staging, fmt.Sprintf("%s_%d%s", uploadID, counter, MetaSuffix))

		partFile, err := os.Open(partPath)
		if err != nil {
			break
		}

		copied, err := io.Copy(io.MultiWriter(destFile, hasher), partFile)
		partFile.Close()
		if err != nil {
			return 0, "", wrapError(ErrIncompleteWrite, key, err)
		}
		total += copied

		_ = os.Remove(partPath)
		_ = os.Remove(metaPath)
	}

	hash := hex.EncodeToString(hasher.Sum(nil))
	if err := saveMeta(b.metaFileForKey(key).target, FileMeta{ETag: hash, Size: total}); err != nil {
		return 0, "", wrapError(ErrInputOutput, key, err)
	}
	return total, hash, nil
}

// SaveObjectPart decodes reader (raw or chunked) into a staged part file
// for uploadID/partNumber, writing its sidecar alongside it.
func (b *Bucket) SaveObjectPart(uploadID string, partNumber uint32, reader io.Reader, chunked bool) (int64, string, error) {
	partPath := filepath.Join(b.staging, fmt.Sprintf("%s_%d", uploadID, partNumber))
	metaPath := filepath.Join(b.staging, fmt.Sprintf("%s_%d%s", uploadID, partNumber, MetaSuffix))

	partFile, err := os.Create(partPath)
	if err != nil {
		return 0, "", wrapError(ErrInputOutput, uploadID, err)
	}
	defer partFile.Close()

	copied, etag, err := chunkedbody.Decode(reader, partFile, chunked)
	if err != nil {
		return 0, "", wrapError(ErrIncompleteWrite, uploadID, err)
	}

	if err := saveMeta(metaPath, FileMeta{ETag: etag, Size: copied}); err != nil {
		return 0, "", wrapError(ErrInputOutput, uploadID, err)
	}
	return copied, etag, nil
}

// SaveObject decodes reader (raw or chunked) into key, staging it under a
// fresh sequence token in the shared staging directory and publishing it
// with a rename into the bucket directory (both live under the same root)
// only once the full write and sidecar are complete: data file first, then
// sidecar, so a crash between the two renames leaves the object invisible
// (data present, no sidecar) rather than visible-but-truncated.
func (b *Bucket) SaveObject(key string, reader io.Reader, chunked bool) (int64, string, error) {
	if !ValidKey(key) {
		return 0, "", newError(ErrInvalidObjectKey, key)
	}

	dest := b.fileForKey(key)
	destMeta := b.metaFileForKey(key)

	token := b.seq.Next()
	tmpPath := filepath.Join(b.staging, token)
	tmpMetaPath := filepath.Join(b.staging, token+MetaSuffix)

	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return 0, "", wrapError(ErrInputOutput, key, err)
	}

	if err := dest.EnsureParent(); err != nil {
		tmpFile.Close()
		return 0, "", wrapError(ErrInputOutput, key, err)
	}

	copied, etag, err := chunkedbody.Decode(reader, tmpFile, chunked)
	tmpFile.Close()
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, "", wrapError(ErrIncompleteWrite, key, err)
	}

	if err := saveMeta(tmpMetaPath, FileMeta{ETag: etag, Size: copied}); err != nil {
		_ = os.Remove(tmpPath)
		return 0, "", wrapError(ErrInputOutput, key, err)
	}

	if err := os.Rename(tmpPath, dest.target); err != nil {
		return 0, "", wrapError(ErrInputOutput, key, err)
	}
	if err := os.Rename(tmpMetaPath, destMeta.target); err != nil {
		return 0, "", wrapError(ErrInputOutput, key, err)
	}

	return copied, etag, nil
}
