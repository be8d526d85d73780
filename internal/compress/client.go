package compress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"examcompress/internal/upload"
)

const (
	// FormField is the multipart field every file part is sent under.
	FormField = "files"

	defaultTimeout     = 60 * time.Second
	maxResponseBytes   = 4 << 20
	defaultContentType = "application/octet-stream"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. http://localhost:8080/api.
	BaseURL string
	// HTTPClient defaults to a plain http.Client.
	HTTPClient *http.Client
	// Timeout bounds one Submit round trip. Zero selects the default,
	// negative disables the bound.
	Timeout time.Duration
}

// Client talks to the remote compression service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

type compressResponse struct {
	Success *bool      `json:"success,omitempty"`
	Message string     `json:"message,omitempty"`
	Files   *ResultSet `json:"files"`
}

// NewClient validates opts and builds a Client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid service url %q", opts.BaseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{baseURL: base, httpClient: httpClient, timeout: timeout}, nil
}

// CompressURL is the endpoint a batch for examID is posted to.
func (c *Client) CompressURL(examID string) string {
	return c.baseURL + "/compress?" + url.Values{"exam_type": {examID}}.Encode()
}

// DownloadURL is the retrieval endpoint for a compressed file.
func (c *Client) DownloadURL(id string) string {
	return c.baseURL + "/download/" + url.PathEscape(id)
}

// Submit sends the whole batch in one multipart POST and returns the
// outcomes reported by the service. The batch is atomic: either every
// outcome is returned or an error is.
func (c *Client) Submit(ctx context.Context, files []upload.CandidateFile, examID string) (ResultSet, error) {
	if len(files) == 0 {
		return nil, ErrEmptyBatch
	}

	body, contentType, err := encodeBatch(files)
	if err != nil {
		return nil, &ServiceError{Err: err}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, c.timeout, ErrTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.CompressURL(examID), body)
	if err != nil {
		return nil, &ServiceError{Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	log.Info().Str("exam", examID).Int("files", len(files)).Int("bytes", body.Len()).Msg("submitting batch for compression")
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// only our own bound is a timeout; a caller's deadline is a plain failure
		if errors.Is(context.Cause(ctx), ErrTimeout) {
			log.Warn().Str("exam", examID).Dur("elapsed", time.Since(start)).Msg("compression request timed out")
			return nil, &ServiceError{Err: fmt.Errorf("%w: %w", ErrTimeout, err)}
		}
		log.Warn().Str("exam", examID).Err(err).Msg("compression request failed")
		return nil, &ServiceError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		log.Warn().Str("exam", examID).Int("status", resp.StatusCode).Msg("compression service returned error status")
		return nil, &ServiceError{StatusCode: resp.StatusCode, Reason: reasonPhrase(resp)}
	}

	results, err := decodeResults(resp.Body)
	if err != nil {
		log.Warn().Str("exam", examID).Err(err).Msg("unusable compression response")
		return nil, &ServiceError{StatusCode: resp.StatusCode, Reason: reasonPhrase(resp), Err: err}
	}

	log.Info().Str("exam", examID).Int("outcomes", len(results)).Dur("elapsed", time.Since(start)).Msg("batch compressed")
	return results, nil
}

func encodeBatch(files []upload.CandidateFile) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range files {
		if err := writePart(writer, f); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func writePart(writer *multipart.Writer, f upload.CandidateFile) error {
	if f.Open == nil {
		return fmt.Errorf("file %q has no content", f.Name)
	}
	contentType := f.MIMEType
	if contentType == "" {
		contentType = defaultContentType
	}
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, FormField, f.Name)},
		"Content-Type":        []string{contentType},
	})
	if err != nil {
		return fmt.Errorf("create part %q: %w", f.Name, err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %q: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()
	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("read %q: %w", f.Name, err)
	}
	return nil
}

func decodeResults(r io.Reader) (ResultSet, error) {
	var payload compressResponse
	if err := json.NewDecoder(io.LimitReader(r, maxResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.Files == nil {
		return nil, errors.New("response has no files field")
	}
	return *payload.Files, nil
}

func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}
