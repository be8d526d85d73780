package session

import (
	"time"

	"examcompress/internal/compress"
	"examcompress/internal/exam"
	"examcompress/internal/workflow"
)

// Snapshot is the persisted part of a session. Selected files are never
// persisted; they live only as long as the process.
type Snapshot struct {
	ID        string             `json:"id"`
	ExamID    string             `json:"exam_id,omitempty"`
	Stage     workflow.Stage     `json:"stage"`
	Phase     workflow.Phase     `json:"phase"`
	Error     string             `json:"error,omitempty"`
	Results   compress.ResultSet `json:"results,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Session binds a browser session to its workflow controller.
type Session struct {
	ID         string
	CreatedAt  time.Time
	Controller *workflow.Controller

	lastSeen time.Time
	// persisted is the last saved State.Version, guarded by Manager.persistMu.
	persisted uint64
}

// Options configures a Manager.
type Options struct {
	DataDir   string
	TTL       time.Duration
	Catalog   exam.Catalog
	Submitter workflow.Submitter
	// Store overrides the file store rooted at DataDir.
	Store Store
}

const defaultTTL = 24 * time.Hour
