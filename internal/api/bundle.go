package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"examcompress/internal/archive"
	"examcompress/internal/session"
)

// Bundle streams every compressed file of the session as one zip
func (a *API) Bundle(c *gin.Context) {
	s := SessionFrom(c)
	if len(s.Controller.State().Results) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no compressed files"})
		return
	}
	WriteBundle(c, s)
}

// WriteBundle fetches the session's results from the service and writes
// them to the response as a zip attachment. Files the service no longer
// has are left out.
func WriteBundle(c *gin.Context, s *session.Session) {
	st := s.Controller.State()
	entries := archive.Entries(st.Results, s.Controller.DownloadURL)

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-compressed.zip"`, st.ExamID))
	c.Status(http.StatusOK)

	results, err := archive.Write(c.Request.Context(), c.Writer, nil, entries)
	if err != nil {
		log.Error().Str("session_id", s.ID).Err(err).Msg("write bundle failed")
		return
	}
	failed := 0
	for _, r := range results {
		if r.Err != "" {
			failed++
		}
	}
	log.Info().Str("session_id", s.ID).Int("files", len(results)).Int("failed", failed).Msg("bundle written")
}
