package ui

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"examcompress/internal/api"
	"examcompress/internal/exam"
	"examcompress/internal/session"
	"examcompress/internal/upload"
	"examcompress/internal/workflow"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templatesFS, "templates/*.tmpl"))
}

type fileRow struct {
	Index int
	Name  string
	Size  string
}

type resultRow struct {
	Link       string
	Name       string
	Kind       string
	Original   string
	Compressed string
	Saved      int
}

type uploadPage struct {
	Title      string
	Refresh    bool
	Exam       exam.Config
	State      workflow.State
	Notice     *workflow.Notice
	Submitting bool
	Files      []fileRow
	Results    []resultRow
}

// UI serves the no-JS front end: an exam grid and one upload page per exam.
type UI struct {
	sessions *session.Manager
}

func New(sessions *session.Manager) *UI {
	return &UI{sessions: sessions}
}

// RegisterRoutes installs the templates and page routes.
func (u *UI) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(Templates())
	router.UseRawPath = true
	router.UnescapePathValues = true
	router.GET("/", u.Home)

	pages := router.Group("", api.Sessions(u.sessions))
	pages.GET("/upload/:exam", u.Upload)
	pages.POST("/upload/:exam/files", u.AddFiles)
	pages.POST("/upload/:exam/files/:index/delete", u.RemoveFile)
	pages.POST("/upload/:exam/submit", u.Submit)
	pages.POST("/upload/:exam/dismiss", u.Dismiss)
	pages.GET("/upload/:exam/bundle", u.Bundle)
	pages.GET("/download/:id", u.Download)
}

// Home renders the exam selection grid
func (u *UI) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "home", gin.H{
		"Title": "Exam Compress",
		"Exams": u.sessions.Catalog().All(),
	})
}

// Upload renders the upload page for an exam. The pending notice is shown
// once and then cleared.
func (u *UI) Upload(c *gin.Context) {
	s, ok := u.enter(c)
	if !ok {
		return
	}
	st := s.Controller.State()
	if st.Notice != nil {
		s.Controller.DismissNotice()
	}
	c.HTML(http.StatusOK, "upload", newUploadPage(st))
}

// AddFiles validates the posted files and returns to the upload page
func (u *UI) AddFiles(c *gin.Context) {
	s, ok := u.enter(c)
	if !ok {
		return
	}
	candidates, err := api.ReadCandidates(c)
	if err != nil {
		if !errors.Is(err, api.ErrNoFiles) {
			log.Warn().Str("session_id", s.ID).Err(err).Msg("read uploaded files failed")
		}
		u.back(c)
		return
	}
	if _, _, err := s.Controller.AddFiles(candidates); err != nil {
		log.Warn().Str("session_id", s.ID).Err(err).Msg("add files rejected")
	}
	u.back(c)
}

// RemoveFile drops one selected file
func (u *UI) RemoveFile(c *gin.Context) {
	s, ok := u.enter(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err == nil {
		err = s.Controller.RemoveFile(index)
	}
	if err != nil {
		log.Warn().Str("session_id", s.ID).Str("index", c.Param("index")).Err(err).Msg("remove file rejected")
	}
	u.back(c)
}

// Submit runs the compression round trip; the outcome lands in the
// session state shown after the redirect, even if the browser left.
func (u *UI) Submit(c *gin.Context) {
	s, ok := u.enter(c)
	if !ok {
		return
	}
	if err := s.Controller.Submit(context.WithoutCancel(c.Request.Context())); err != nil {
		log.Debug().Str("session_id", s.ID).Err(err).Msg("submit finished with error")
	}
	u.back(c)
}

// Dismiss clears the submission error
func (u *UI) Dismiss(c *gin.Context) {
	s, ok := u.enter(c)
	if !ok {
		return
	}
	s.Controller.DismissError()
	u.back(c)
}

// Bundle downloads all compressed files as one zip
func (u *UI) Bundle(c *gin.Context) {
	s, ok := u.enter(c)
	if !ok {
		return
	}
	if len(s.Controller.State().Results) == 0 {
		c.Redirect(http.StatusFound, "/upload/"+c.Param("exam"))
		return
	}
	api.WriteBundle(c, s)
}

// Download sends the browser to the service's retrieval endpoint
func (u *UI) Download(c *gin.Context) {
	s := api.SessionFrom(c)
	c.Redirect(http.StatusFound, s.Controller.DownloadURL(c.Param("id")))
}

// enter makes sure the session is on the requested exam. Unknown exams
// redirect to the selection page.
func (u *UI) enter(c *gin.Context) (*session.Session, bool) {
	s := api.SessionFrom(c)
	id := c.Param("exam")
	st := s.Controller.State()
	if st.Stage == workflow.StageReady && st.ExamID == id {
		return s, true
	}
	err := s.Controller.SelectExam(id)
	switch {
	case err == nil:
		return s, true
	case errors.Is(err, workflow.ErrSubmitInProgress):
		// stay on the exam that is still compressing
		c.Redirect(http.StatusSeeOther, "/upload/"+st.ExamID)
	default:
		log.Info().Str("session_id", s.ID).Str("exam", id).Msg("unknown exam, redirecting home")
		c.Redirect(http.StatusFound, "/")
	}
	return nil, false
}

func (u *UI) back(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/upload/"+c.Param("exam"))
}

func newUploadPage(st workflow.State) uploadPage {
	p := uploadPage{
		Title:      "Exam Compress",
		State:      st,
		Notice:     st.Notice,
		Submitting: st.Phase == workflow.PhaseSubmitting,
	}
	p.Refresh = p.Submitting
	if st.Config != nil {
		p.Exam = *st.Config
		p.Title = st.Config.Name + " | Exam Compress"
	}
	for i, f := range st.Files {
		p.Files = append(p.Files, fileRow{Index: i, Name: f.Name, Size: upload.FormatSize(f.Size)})
	}
	for _, o := range st.Results {
		p.Results = append(p.Results, resultRow{
			Link:       "/download/" + url.PathEscape(o.ID),
			Name:       o.OriginalName,
			Kind:       o.Kind(),
			Original:   upload.FormatSize(o.OriginalSize),
			Compressed: upload.FormatSize(o.CompressedSize),
			Saved:      o.SavedPercent(),
		})
	}
	return p
}
