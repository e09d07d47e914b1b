package s3server

import (
	"strconv"
	"strings"
)

// ByteRange is a parsed HTTP Range header of the form "bytes=N-" or
// "bytes=N-M". Start is always present when Valid is true; End is present
// only for the closed form.
type ByteRange struct {
	Start    int64
	End      int64
	HasEnd   bool
	Valid    bool
}

// ParseRange parses an HTTP Range header value. Any header that does not
// match "bytes=N-" or "bytes=N-M" (including an empty string, malformed
// numbers, or other range units) results in a zero-value ByteRange with
// Valid == false.
func ParseRange(header string) ByteRange {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return ByteRange{}
	}
	spec := strings.TrimPrefix(header, prefix)
	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return ByteRange{}
	}
	startPart, endPart := spec[:dash], spec[dash+1:]
	start, err := strconv.ParseInt(startPart, 10, 64)
	if err != nil || start < 0 {
		return ByteRange{}
	}
	if endPart == "" {
		return ByteRange{Start: start, Valid: true}
	}
	end, err := strconv.ParseInt(endPart, 10, 64)
	if err != nil || end < start {
		return ByteRange{}
	}
	return ByteRange{Start: start, End: end, HasEnd: true, Valid: true}
}

// ContentLength computes the byte count of the range against an object of
// the given total size. A closed range whose end lies past the object's
// last byte is clamped to that last byte.
func (r ByteRange) ContentLength(totalSize int64) int64 {
	if !r.Valid {
		return totalSize
	}
	if r.HasEnd {
		end := r.End
		if end >= totalSize {
			end = totalSize - 1
		}
		return end - r.Start + 1
	}
	return totalSize - r.Start
}
