package mockservice

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"

	"examcompress/internal/compress"
	fileutil "examcompress/internal/file"
)

// gzip level per exam; stricter exams squeeze harder.
var examLevels = map[string]int{
	"upsc":    7,
	"gate":    8,
	"cat":     7,
	"neet":    7,
	"jee":     8,
	"bank":    9,
	"ssc":     8,
	"defence": 7,
}

const defaultLevel = 8

type storedFile struct {
	name     string
	mimeType string
	path     string
}

type response struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Files   compress.ResultSet `json:"files"`
}

// Service is a local stand-in for the compression service. It keeps every
// upload as-is and reports the gzip size of the payload as the compressed
// size.
type Service struct {
	dir string

	mu    sync.RWMutex
	files map[string]storedFile
}

// New creates a service storing uploads under dataDir.
func New(dataDir string) (*Service, error) {
	dir := filepath.Join(dataDir, "compressed")
	if err := fileutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("mock service: %w", err)
	}
	return &Service{dir: dir, files: make(map[string]storedFile)}, nil
}

// RegisterRoutes mounts /api/compress and /api/download/:id.
func (s *Service) RegisterRoutes(router gin.IRouter) {
	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/compress", s.Compress)
		apiGroup.GET("/download/:id", s.Download)
	}
}

// Compress stores each "files" part and reports its outcome
func (s *Service) Compress(c *gin.Context) {
	examType := c.Query("exam_type")
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid multipart body"})
		return
	}
	level, ok := examLevels[examType]
	if !ok {
		level = defaultLevel
	}

	results := make(compress.ResultSet, 0, len(form.File[compress.FormField]))
	for _, fh := range form.File[compress.FormField] {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "read upload failed"})
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "read upload failed"})
			return
		}

		out, err := s.store(fh.Filename, data, level)
		if err != nil {
			log.Error().Str("file", fh.Filename).Err(err).Msg("store upload failed")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "store upload failed"})
			return
		}
		results = append(results, out)
	}

	log.Info().Str("exam", examType).Int("files", len(results)).Msg("files processed")
	c.JSON(http.StatusOK, response{
		Success: true,
		Message: fmt.Sprintf("Files processed for %s exam", examType),
		Files:   results,
	})
}

// Download serves a stored file as an attachment under its original name
func (s *Service) Download(c *gin.Context) {
	s.mu.RLock()
	f, ok := s.files[c.Param("id")]
	s.mu.RUnlock()
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("Content-Type", f.mimeType)
	c.FileAttachment(f.path, f.name)
}

func (s *Service) store(name string, data []byte, level int) (compress.Outcome, error) {
	id := uuid.NewString()
	path := filepath.Join(s.dir, id)
	if _, err := fileutil.CopyAtomic(path, bytes.NewReader(data)); err != nil {
		return compress.Outcome{}, err
	}
	size, err := gzipSize(data, level)
	if err != nil {
		return compress.Outcome{}, err
	}
	original := int64(len(data))
	if size > original {
		size = original
	}
	mimeType := mimetype.Detect(data).String()

	s.mu.Lock()
	s.files[id] = storedFile{name: name, mimeType: mimeType, path: path}
	s.mu.Unlock()

	return compress.Outcome{
		ID:             id,
		OriginalName:   name,
		OriginalSize:   original,
		CompressedSize: size,
		FileType:       mimeType,
		DownloadURL:    "/api/download/" + id,
	}, nil
}

func gzipSize(data []byte, level int) (int64, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return 0, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		return 0, fmt.Errorf("gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("gzip close: %w", err)
	}
	return int64(buf.Len()), nil
}
