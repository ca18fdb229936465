package audio

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"github.com/yoockh/yoohealth/internal/utils"
)

// Blob is the finalized recording.
type Blob struct {
	data     []byte
	mimeType string
}

func NewBlob(data []byte, mimeType string) *Blob {
	cp := make([]byte, len(data))
	copy(cp, data)
	return &Blob{data: cp, mimeType: mimeType}
}

func (b *Blob) Size() int        { return len(b.data) }
func (b *Blob) MimeType() string { return b.mimeType }

// Reader returns a fresh reader over the blob contents.
func (b *Blob) Reader() io.Reader { return bytes.NewReader(b.data) }

// Bytes returns a copy of the blob contents.
func (b *Blob) Bytes() []byte {
	cp := make([]byte, len(b.data))
	copy(cp, b.data)
	return cp
}

// ConvertToPortableText reads r to the end and returns its standard base64
// encoding, without any data-URL prefix.
func ConvertToPortableText(r io.Reader) (string, error) {
	const op = "audio.ConvertToPortableText"

	data, err := io.ReadAll(r)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to read audio", errors.Join(ErrRead, err))
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// StripDataURLPrefix removes a "data:<mime>;base64," scheme prefix if present.
func StripDataURLPrefix(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}

// DecodePortableText reverses ConvertToPortableText. A data-URL prefix is
// accepted and ignored.
func DecodePortableText(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(StripDataURLPrefix(s))
}
