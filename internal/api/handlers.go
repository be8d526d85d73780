package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"examcompress/internal/compress"
	"examcompress/internal/exam"
	"examcompress/internal/session"
	"examcompress/internal/upload"
	"examcompress/internal/workflow"
)

type fileView struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mime_type,omitempty"`
	Kind     string `json:"kind"`
}

type outcomeView struct {
	compress.Outcome
	SavedPercent int    `json:"saved_percent"`
	Kind         string `json:"kind"`
	Download     string `json:"download"`
}

type stateResponse struct {
	SessionID string           `json:"session_id"`
	Stage     workflow.Stage   `json:"stage"`
	Phase     workflow.Phase   `json:"phase"`
	ExamID    string           `json:"exam_id,omitempty"`
	Config    *exam.Config     `json:"config,omitempty"`
	Files     []fileView       `json:"files"`
	Error     string           `json:"error,omitempty"`
	Notice    *workflow.Notice `json:"notice,omitempty"`
	Results   []outcomeView    `json:"results"`
	Skipped   []string         `json:"skipped,omitempty"`
}

type API struct {
	sessions *session.Manager
}

func NewAPI(sessions *session.Manager) *API {
	return &API{sessions: sessions}
}

// RegisterRoutes registers API routes on the provided gin engine
func (a *API) RegisterRoutes(router *gin.Engine) {
	// file ids are opaque and may carry escaped slashes
	router.UseRawPath = true
	router.UnescapePathValues = true

	api := router.Group("/api/v1")
	{
		api.GET("/exams", a.ListExams)
		api.GET("/exams/:id", a.GetExam)

		sess := api.Group("", Sessions(a.sessions))
		sess.POST("/sessions/:exam", a.SelectExam)
		sess.GET("/session", a.GetState)
		sess.POST("/session/files", a.AddFiles)
		sess.DELETE("/session/files/:index", a.RemoveFile)
		sess.POST("/session/submit", a.Submit)
		sess.DELETE("/session/error", a.DismissError)
		sess.DELETE("/session/notice", a.DismissNotice)
		sess.GET("/session/bundle", a.Bundle)
		sess.GET("/download/:id", a.Download)
	}
}

// ListExams returns the catalog in display order
func (a *API) ListExams(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"exams": a.sessions.Catalog().All()})
}

// GetExam returns one exam config; unknown ids are 404 rather than the lookup fallback
func (a *API) GetExam(c *gin.Context) {
	id := c.Param("id")
	cat := a.sessions.Catalog()
	if !cat.Known(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown exam", "redirect": "/"})
		return
	}
	c.JSON(http.StatusOK, cat.Lookup(id))
}

// SelectExam enters the upload workflow for an exam
func (a *API) SelectExam(c *gin.Context) {
	s := SessionFrom(c)
	id := c.Param("exam")
	if err := s.Controller.SelectExam(id); err != nil {
		if errors.Is(err, workflow.ErrUnknownExam) {
			log.Warn().Str("session_id", s.ID).Str("exam", id).Msg("unknown exam requested")
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown exam", "redirect": "/"})
			return
		}
		a.fail(c, s, err)
		return
	}
	log.Info().Str("session_id", s.ID).Str("exam", id).Msg("exam selected")
	c.JSON(http.StatusOK, a.toStateResponse(s, nil))
}

// GetState returns the session's workflow state
func (a *API) GetState(c *gin.Context) {
	s := SessionFrom(c)
	c.JSON(http.StatusOK, a.toStateResponse(s, nil))
}

// AddFiles validates uploaded files against the active exam
func (a *API) AddFiles(c *gin.Context) {
	s := SessionFrom(c)
	candidates, err := ReadCandidates(c)
	if err != nil {
		log.Warn().Str("session_id", s.ID).Err(err).Msg("invalid add files request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	accepted, rejected, err := s.Controller.AddFiles(candidates)
	if err != nil {
		a.fail(c, s, err)
		return
	}
	log.Info().Str("session_id", s.ID).Int("accepted", len(accepted)).Int("rejected", len(rejected)).Msg("files added to selection")
	c.JSON(http.StatusOK, a.toStateResponse(s, rejected))
}

// RemoveFile drops a selected file by its displayed index
func (a *API) RemoveFile(c *gin.Context) {
	s := SessionFrom(c)
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}
	if err := s.Controller.RemoveFile(index); err != nil {
		a.fail(c, s, err)
		return
	}
	c.JSON(http.StatusOK, a.toStateResponse(s, nil))
}

// Submit sends the selection to the compression service and waits for the outcome.
// A client that goes away does not cancel a submission already in flight.
func (a *API) Submit(c *gin.Context) {
	s := SessionFrom(c)
	if err := s.Controller.Submit(context.WithoutCancel(c.Request.Context())); err != nil {
		a.fail(c, s, err)
		return
	}
	c.JSON(http.StatusOK, a.toStateResponse(s, nil))
}

// DismissError clears the last submission error
func (a *API) DismissError(c *gin.Context) {
	s := SessionFrom(c)
	s.Controller.DismissError()
	c.JSON(http.StatusOK, a.toStateResponse(s, nil))
}

// DismissNotice clears the pending notice
func (a *API) DismissNotice(c *gin.Context) {
	s := SessionFrom(c)
	s.Controller.DismissNotice()
	c.JSON(http.StatusOK, a.toStateResponse(s, nil))
}

// Download redirects the client to the service's retrieval endpoint
func (a *API) Download(c *gin.Context) {
	s := SessionFrom(c)
	id := c.Param("id")
	log.Info().Str("session_id", s.ID).Str("file_id", id).Msg("redirecting to download")
	c.Redirect(http.StatusFound, s.Controller.DownloadURL(id))
}

func (a *API) fail(c *gin.Context, s *session.Session, err error) {
	status := StatusFor(err)
	body := a.toStateResponse(s, nil)
	log.Warn().Str("session_id", s.ID).Int("status", status).Err(err).Msg("workflow operation rejected")
	c.JSON(status, gin.H{"error": errorText(err, body.Error), "state": body})
}

// StatusFor maps workflow errors to HTTP statuses.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrUnknownExam):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrNoExam), errors.Is(err, workflow.ErrSubmitInProgress):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrEmptyBatch), errors.Is(err, upload.ErrIndexOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, compress.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, compress.ErrService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorText never exposes service internals; submission failures use the
// controller's generic message.
func errorText(err error, stateErr string) string {
	switch {
	case errors.Is(err, compress.ErrService):
		return stateErr
	case errors.Is(err, workflow.ErrEmptyBatch):
		return workflow.MsgSelectAtLeastOne
	default:
		return err.Error()
	}
}

func (a *API) toStateResponse(s *session.Session, skipped []upload.CandidateFile) stateResponse {
	st := s.Controller.State()
	resp := stateResponse{
		SessionID: s.ID,
		Stage:     st.Stage,
		Phase:     st.Phase,
		ExamID:    st.ExamID,
		Config:    st.Config,
		Error:     st.Error,
		Notice:    st.Notice,
		Files:     make([]fileView, 0, len(st.Files)),
		Results:   make([]outcomeView, 0, len(st.Results)),
	}
	for _, f := range st.Files {
		resp.Files = append(resp.Files, fileView{Name: f.Name, Size: f.Size, MIMEType: f.MIMEType, Kind: compress.KindOf(f.MIMEType)})
	}
	for _, o := range st.Results {
		resp.Results = append(resp.Results, outcomeView{
			Outcome:      o,
			SavedPercent: o.SavedPercent(),
			Kind:         o.Kind(),
			Download:     "/api/v1/download/" + url.PathEscape(o.ID),
		})
	}
	for _, f := range skipped {
		resp.Skipped = append(resp.Skipped, f.Name)
	}
	return resp
}
