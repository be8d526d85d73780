package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"examcompress/internal/compress"
	"examcompress/internal/upload"
)

// MaxUploadBytes caps one file-add request.
const MaxUploadBytes = 64 << 20

var ErrNoFiles = errors.New("no files in request")

// ReadCandidates buffers every part of the multipart field "files" from the
// request into candidate files, keeping their order.
func ReadCandidates(c *gin.Context) ([]upload.CandidateFile, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("read multipart form: %w", err)
	}
	headers := form.File[compress.FormField]
	if len(headers) == 0 {
		return nil, ErrNoFiles
	}
	out := make([]upload.CandidateFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", fh.Filename, err)
		}
		out = append(out, upload.FromBytes(fh.Filename, fh.Header.Get("Content-Type"), data))
	}
	return out, nil
}
