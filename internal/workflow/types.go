package workflow

import (
	"context"

	"examcompress/internal/compress"
	"examcompress/internal/exam"
	"examcompress/internal/upload"
)

// Stage is the controller's position in the page lifecycle.
type Stage string

const (
	StageSelectingExam Stage = "selecting_exam"
	StageLoadingConfig Stage = "loading_config"
	StageReady         Stage = "ready"
	StageRedirected    Stage = "redirected"
)

// Phase is the submission lifecycle inside StageReady.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
)

// NoticeKind separates alerts that interrupt the user from passive ones.
type NoticeKind string

const (
	NoticeNone        NoticeKind = ""
	NoticeBlocking    NoticeKind = "blocking"
	NoticeNonBlocking NoticeKind = "non_blocking"
)

// Notice is a message the presentation layer should surface once.
type Notice struct {
	Kind NoticeKind `json:"kind"`
	Text string     `json:"text"`
}

// User-facing texts.
const (
	MsgSelectAtLeastOne = "Please select at least one file to compress."
	MsgSubmitFailed     = "Failed to compress files. Please try again or contact support if the issue persists."
)

// State is a read-only projection of the controller.
type State struct {
	// Version grows with every mutation.
	Version  uint64                 `json:"-"`
	Stage    Stage                  `json:"stage"`
	Phase    Phase                  `json:"phase"`
	ExamID   string                 `json:"exam_id,omitempty"`
	Config   *exam.Config           `json:"config,omitempty"`
	Files    []upload.CandidateFile `json:"files"`
	Error    string                 `json:"error,omitempty"`
	Results  compress.ResultSet     `json:"results"`
	Notice   *Notice                `json:"notice,omitempty"`
	Redirect bool                   `json:"redirect,omitempty"`
}

// HasError reports whether a submission failure is waiting to be dismissed.
func (s State) HasError() bool { return s.Error != "" }

// Submitter performs the network round trip for a batch.
type Submitter interface {
	Submit(ctx context.Context, files []upload.CandidateFile, examID string) (compress.ResultSet, error)
	DownloadURL(id string) string
}

// Navigator hands a download URL to whatever performs the transfer. It is
// fire-and-forget and reports nothing back.
type Navigator interface {
	Navigate(url string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(url string)

func (f NavigatorFunc) Navigate(url string) { f(url) }
