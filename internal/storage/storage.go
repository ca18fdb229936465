package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"
)

// Uploader stores an object and returns a reference to it.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (ref string, err error)
}

// Signer turns a stored reference into a short-lived URL a browser can fetch.
type Signer interface {
	SignedGetURL(ctx context.Context, ref string, ttl time.Duration) (string, error)
}

// ParseRef splits a gs://bucket/object reference.
func ParseRef(ref string) (bucket, object string, ok bool) {
	rest, found := strings.CutPrefix(ref, "gs://")
	if !found {
		return "", "", false
	}
	bucket, object, _ = strings.Cut(rest, "/")
	if bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}

// ExtensionFor returns a file extension for a recorder or image mime type.
// Unknown types get ".bin".
func ExtensionFor(mimeType string) string {
	base, _, _ := strings.Cut(strings.ToLower(mimeType), ";")
	switch strings.TrimSpace(base) {
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/mp4":
		return ".m4a"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	default:
		return ".bin"
	}
}

// ObjectName joins a namespaced object path, ex: voice/<user>/<id>.webm.
func ObjectName(prefix, owner, id, mimeType string) string {
	return path.Join(prefix, owner, id+ExtensionFor(mimeType))
}
