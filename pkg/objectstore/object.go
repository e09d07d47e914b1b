package objectstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileType classifies what an Object's target path currently is on disk.
type FileType int

const (
	TypeUninitialized FileType = iota
	TypeFile
	TypeDirectory
)

func typeForPath(path string) FileType {
	info, err := os.Stat(path)
	if err != nil {
		return TypeUninitialized
	}
	if info.IsDir() {
		return TypeDirectory
	}
	return TypeFile
}

// Object is a handle to a path under a bucket: either an object's data
// file or a directory standing in for a common prefix. Apart from the kind
// recorded at construction (see Kind), it does not cache filesystem state —
// every other query re-stats the target path.
type Object struct {
	bucket *Bucket
	target string
	kind   FileType
	key    string
}

// Bucket returns the bucket this object belongs to.
func (o *Object) Bucket() *Bucket { return o.bucket }

// Path returns the object's absolute path on disk.
func (o *Object) Path() string { return o.target }

// ObjectKey returns the object's key within its bucket.
func (o *Object) ObjectKey() string { return o.key }

// Kind returns the object's filesystem kind as of construction time (a
// directory listing snapshot). Use IsDir/IsFile for a live check.
func (o *Object) Kind() FileType { return o.kind }

// ShortName returns the last path segment of the object's target.
func (o *Object) ShortName() string { return filepath.Base(o.target) }

func (o *Object) stat() (os.FileInfo, error) { return os.Stat(o.target) }

// IsDir reports whether the target currently exists and is a directory.
func (o *Object) IsDir() bool {
	info, err := o.stat()
	return err == nil && info.IsDir()
}

// IsFile reports whether the target currently exists and is a regular file.
func (o *Object) IsFile() bool {
	info, err := o.stat()
	return err == nil && info.Mode().IsRegular()
}

// Exists reports whether the target currently exists.
func (o *Object) Exists() bool {
	_, err := o.stat()
	return err == nil
}

// Len returns the target's current size in bytes.
func (o *Object) Len() (int64, error) {
	info, err := o.stat()
	if err != nil {
		return 0, wrapError(ErrInputOutput, o.key, err)
	}
	return info.Size(), nil
}

// LastModified returns the target's current modification time.
func (o *Object) LastModified() (time.Time, error) {
	info, err := o.stat()
	if err != nil {
		return time.Time{}, wrapError(ErrInputOutput, o.key, err)
	}
	return info.ModTime(), nil
}

// EnsureParent creates the object's parent directory if necessary.
func (o *Object) EnsureParent() error {
	return os.MkdirAll(filepath.Dir(o.target), defaultDirPerm)
}

// metafile returns the sidecar Object for this object's data file.
func (o *Object) metafile() *Object {
	return o.bucket.metaFileForKey(o.key)
}

// HasMeta reports whether this object's sidecar metadata file exists as a
// regular file. Per the visibility invariant, an object without a sidecar
// is not considered present in listings even if its data file exists.
func (o *Object) HasMeta() bool {
	return o.metafile().IsFile()
}

// Checksum returns the object's etag, read from its sidecar metadata file.
func (o *Object) Checksum() (string, error) {
	meta, err := o.bucket.GetObjectMeta(o.key)
	if err != nil {
		return "", err
	}
	return meta.ETag, nil
}

// Format renders this object as the XML fragment used inside a listing
// response: <CommonPrefixes> for a directory, <Contents> for a file.
func (o *Object) Format() string {
	if o.kind == TypeDirectory {
		key := o.key
		if len(key) == 0 || key[len(key)-1] != '/' {
			key += "/"
		}
		return fmt.Sprintf("<CommonPrefixes><Prefix>%s</Prefix></CommonPrefixes>", key)
	}

	lastModified, err := o.LastModified()
	var lastModifiedStr string
	if err == nil {
		lastModifiedStr = formatTimestamp(lastModified)
	}
	etag, err := o.Checksum()
	if err != nil {
		etag = ""
	}
	size, err := o.Len()
	if err != nil {
		size = 0
	}

	return fmt.Sprintf(`<Contents>
        <Key>%s</Key>
        <LastModified>%s</LastModified>
        <ETag>"%s"</ETag>
        <Size>%d</Size>
        <StorageClass>STANDARD</StorageClass>
      </Contents>`, o.key, lastModifiedStr, etag, size)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000") + "+00:00"
}
