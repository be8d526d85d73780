package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"examcompress/internal/compress"
	"examcompress/internal/exam"
	"examcompress/internal/upload"
)

// Options wires a Controller to its collaborators.
type Options struct {
	Catalog   exam.Catalog
	Submitter Submitter
	// Navigator receives download URLs. Nil makes Download a no-op.
	Navigator Navigator
	// OnChange, when set, is called with a fresh State after every mutation,
	// outside the controller lock. Calls may arrive out of order; compare
	// State.Version to drop stale ones.
	OnChange func(State)
}

// Controller is the upload workflow state machine for one session. All
// operations are safe to call from multiple goroutines; only one
// submission is ever in flight.
type Controller struct {
	catalog   exam.Catalog
	submitter Submitter
	navigator Navigator
	onChange  func(State)

	mu        sync.Mutex
	stage     Stage
	phase     Phase
	examID    string
	config    *exam.Config
	selection upload.Selection
	lastErr   string
	results   compress.ResultSet
	notice    *Notice
	version   uint64
}

// New returns a controller in StageSelectingExam.
func New(opts Options) *Controller {
	return &Controller{
		catalog:   opts.Catalog,
		submitter: opts.Submitter,
		navigator: opts.Navigator,
		onChange:  opts.OnChange,
		stage:     StageSelectingExam,
		phase:     PhaseIdle,
	}
}

// SelectExam enters the upload page for id. Unknown identifiers move the
// controller to StageRedirected and return ErrUnknownExam; the catalog's
// lookup fallback is deliberately not used here.
func (c *Controller) SelectExam(id string) error {
	c.mu.Lock()
	if c.phase == PhaseSubmitting {
		c.mu.Unlock()
		return ErrSubmitInProgress
	}
	c.stage = StageLoadingConfig
	c.examID = id
	c.config = nil
	c.selection.Clear()
	c.results = nil
	c.lastErr = ""
	c.notice = nil

	if !c.catalog.Known(id) {
		c.stage = StageRedirected
		state := c.changedLocked()
		c.mu.Unlock()
		log.Info().Str("exam", id).Msg("unknown exam, redirecting to selection")
		c.notify(state)
		return fmt.Errorf("%w: %q", ErrUnknownExam, id)
	}

	cfg := c.catalog.Lookup(id)
	c.config = &cfg
	c.stage = StageReady
	state := c.changedLocked()
	c.mu.Unlock()
	log.Debug().Str("exam", id).Msg("exam config loaded")
	c.notify(state)
	return nil
}

// AddFiles validates candidates against the active exam and appends the
// accepted ones. Rejections raise a non-blocking notice.
func (c *Controller) AddFiles(candidates []upload.CandidateFile) (accepted, rejected []upload.CandidateFile, err error) {
	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return nil, nil, err
	}
	accepted, rejected = upload.Partition(candidates, *c.config)
	c.selection.Add(accepted...)
	if len(rejected) > 0 {
		c.notice = &Notice{Kind: NoticeNonBlocking, Text: skippedText(len(rejected))}
	}
	state := c.changedLocked()
	c.mu.Unlock()

	log.Debug().Str("exam", state.ExamID).Int("accepted", len(accepted)).Int("rejected", len(rejected)).Msg("files added")
	c.notify(state)
	return accepted, rejected, nil
}

// RemoveFile drops the selected file at index.
func (c *Controller) RemoveFile(index int) error {
	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.selection.RemoveAt(index); err != nil {
		c.mu.Unlock()
		return err //nolint:wrapcheck
	}
	state := c.changedLocked()
	c.mu.Unlock()
	c.notify(state)
	return nil
}

// Submit sends the current selection. A submit while another is in flight
// is a no-op returning ErrSubmitInProgress. An empty selection raises a
// blocking notice and returns ErrEmptyBatch without any network call.
// Failures keep the selection so the user can retry.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.stage != StageReady {
		c.mu.Unlock()
		return ErrNoExam
	}
	if c.phase == PhaseSubmitting {
		c.mu.Unlock()
		log.Debug().Msg("duplicate submit ignored")
		return ErrSubmitInProgress
	}
	if c.selection.Len() == 0 {
		c.notice = &Notice{Kind: NoticeBlocking, Text: MsgSelectAtLeastOne}
		state := c.changedLocked()
		c.mu.Unlock()
		c.notify(state)
		return ErrEmptyBatch
	}
	c.phase = PhaseSubmitting
	c.lastErr = ""
	files := c.selection.Files()
	examID := c.examID
	state := c.changedLocked()
	c.mu.Unlock()
	c.notify(state)

	results, err := c.submitter.Submit(ctx, files, examID)

	c.mu.Lock()
	c.phase = PhaseIdle
	if err != nil {
		c.lastErr = MsgSubmitFailed
	} else {
		c.results = results
		c.selection.Clear()
		c.lastErr = ""
	}
	state = c.changedLocked()
	c.mu.Unlock()
	c.notify(state)

	if err != nil {
		log.Warn().Str("exam", examID).Int("files", len(files)).Err(err).Msg("submission failed")
		return fmt.Errorf("submit: %w", err)
	}
	log.Info().Str("exam", examID).Int("files", len(files)).Int("outcomes", len(results)).Msg("submission succeeded")
	return nil
}

// DismissError clears the last submission error; files and results stay.
func (c *Controller) DismissError() {
	c.mu.Lock()
	if c.lastErr == "" {
		c.mu.Unlock()
		return
	}
	c.lastErr = ""
	state := c.changedLocked()
	c.mu.Unlock()
	c.notify(state)
}

// DismissNotice clears the pending notice.
func (c *Controller) DismissNotice() {
	c.mu.Lock()
	if c.notice == nil {
		c.mu.Unlock()
		return
	}
	c.notice = nil
	state := c.changedLocked()
	c.mu.Unlock()
	c.notify(state)
}

// Download hands the retrieval URL for id to the navigator. Best effort:
// nothing is reported back and no state changes.
func (c *Controller) Download(id string) {
	if c.navigator == nil {
		return
	}
	c.navigator.Navigate(c.DownloadURL(id))
}

// DownloadURL is the retrieval endpoint for id.
func (c *Controller) DownloadURL(id string) string {
	return c.submitter.DownloadURL(id)
}

// Restore re-enters examID and reinstates results and error text from a
// saved snapshot. The selection always starts empty.
func (c *Controller) Restore(examID string, results compress.ResultSet, errMsg string) error {
	if err := c.SelectExam(examID); err != nil {
		return err
	}
	c.mu.Lock()
	c.results = append(compress.ResultSet(nil), results...)
	c.lastErr = errMsg
	state := c.changedLocked()
	c.mu.Unlock()
	c.notify(state)
	return nil
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) editableLocked() error {
	if c.stage != StageReady || c.config == nil {
		return ErrNoExam
	}
	if c.phase == PhaseSubmitting {
		return ErrSubmitInProgress
	}
	return nil
}

// changedLocked records a mutation and returns the state to publish.
func (c *Controller) changedLocked() State {
	c.version++
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	s := State{
		Version:  c.version,
		Stage:    c.stage,
		Phase:    c.phase,
		ExamID:   c.examID,
		Files:    c.selection.Files(),
		Error:    c.lastErr,
		Results:  append(compress.ResultSet{}, c.results...),
		Redirect: c.stage == StageRedirected,
	}
	if c.config != nil {
		cfg := *c.config
		cfg.AcceptedFormats = append([]string(nil), cfg.AcceptedFormats...)
		s.Config = &cfg
	}
	if c.notice != nil {
		n := *c.notice
		s.Notice = &n
	}
	return s
}

func (c *Controller) notify(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

func skippedText(n int) string {
	if n == 1 {
		return "1 file was not added because it is not supported for this exam type."
	}
	return fmt.Sprintf("%d files were not added because they are not supported for this exam type.", n)
}
