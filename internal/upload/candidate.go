package upload

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// CandidateFile is a user-selected file before (and after) validation.
type CandidateFile struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mime_type,omitempty"`

	// Open yields the file content for upload. It may be called more than once.
	Open func() (io.ReadCloser, error) `json:"-"`
}

// FromBytes wraps in-memory content, e.g. a browser upload.
func FromBytes(name, mimeType string, data []byte) CandidateFile {
	return CandidateFile{
		Name:     name,
		Size:     int64(len(data)),
		MIMEType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FromPath describes a local file. The MIME hint is sniffed from content;
// sniffing failures leave the hint empty since it is advisory only.
func FromPath(path string) (CandidateFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return CandidateFile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return CandidateFile{}, fmt.Errorf("%s: %w", path, ErrIsDirectory)
	}
	hint := ""
	if mt, err := mimetype.DetectFile(path); err == nil {
		hint = mt.String()
	}
	return CandidateFile{
		Name:     filepath.Base(path),
		Size:     info.Size(),
		MIMEType: hint,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path) //nolint:gosec // path chosen by the user
		},
	}, nil
}
