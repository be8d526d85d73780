package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"examcompress/internal/compress"
	"examcompress/internal/exam"
	"examcompress/internal/upload"
	"examcompress/internal/workflow"
)

type stubSubmitter struct {
	results compress.ResultSet
	err     error
}

func (s stubSubmitter) Submit(context.Context, []upload.CandidateFile, string) (compress.ResultSet, error) {
	return s.results, s.err
}

func (stubSubmitter) DownloadURL(id string) string { return "http://svc/api/download/" + id }

func newTestManager(t *testing.T, dataDir string, sub workflow.Submitter) *Manager {
	t.Helper()
	return NewManager(Options{DataDir: dataDir, Catalog: exam.Default(), Submitter: sub})
}

func TestCreateAndGet(t *testing.T) {
	m := newTestManager(t, t.TempDir(), stubSubmitter{})
	s := m.Create()
	require.NotEmpty(t, s.ID)

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	require.Same(t, s, got)

	_, ok = m.Get("missing")
	require.False(t, ok)

	again, created := m.GetOrCreate(s.ID)
	require.False(t, created)
	require.Same(t, s, again)

	other, created := m.GetOrCreate("")
	require.True(t, created)
	require.NotEqual(t, s.ID, other.ID)
	require.Equal(t, 2, m.Len())
}

func TestPersistAndLoadFromDisk(t *testing.T) {
	dataDir := t.TempDir()
	results := compress.ResultSet{{ID: "x1", OriginalName: "p.pdf", OriginalSize: 100, CompressedSize: 25, FileType: "application/pdf"}}
	m := newTestManager(t, dataDir, stubSubmitter{results: results})

	s := m.Create()
	require.NoError(t, s.Controller.SelectExam("gate"))
	_, _, err := s.Controller.AddFiles([]upload.CandidateFile{upload.FromBytes("p.pdf", "", []byte("x"))})
	require.NoError(t, err)
	require.NoError(t, s.Controller.Submit(context.Background()))

	redirected := m.Create()
	require.Error(t, redirected.Controller.SelectExam("nope"))

	require.FileExists(t, filepath.Join(dataDir, "sessions", s.ID+".json"))

	m2 := newTestManager(t, dataDir, stubSubmitter{})
	require.NoError(t, m2.LoadFromDisk())
	require.Equal(t, 2, m2.Len())

	restored, ok := m2.Get(s.ID)
	require.True(t, ok)
	st := restored.Controller.State()
	require.Equal(t, workflow.StageReady, st.Stage)
	require.Equal(t, "gate", st.ExamID)
	require.Equal(t, results, st.Results)
	require.Empty(t, st.Files)

	r2, ok := m2.Get(redirected.ID)
	require.True(t, ok)
	require.Equal(t, workflow.StageSelectingExam, r2.Controller.State().Stage)
}

func TestLoadMarksInterruptedSubmissionFailed(t *testing.T) {
	dataDir := t.TempDir()
	store := NewFileStore(dataDir)
	require.NoError(t, store.SaveSnapshot(context.Background(), Snapshot{
		ID: "s1", ExamID: "cat", Stage: workflow.StageReady, Phase: workflow.PhaseSubmitting, CreatedAt: time.Now(),
	}))

	m := newTestManager(t, dataDir, stubSubmitter{})
	require.NoError(t, m.LoadFromDisk())
	s, ok := m.Get("s1")
	require.True(t, ok)
	st := s.Controller.State()
	require.Equal(t, workflow.PhaseIdle, st.Phase)
	require.Equal(t, workflow.MsgSubmitFailed, st.Error)
}

func TestPersistDropsStaleSnapshots(t *testing.T) {
	dataDir := t.TempDir()
	m := newTestManager(t, dataDir, stubSubmitter{err: &compress.ServiceError{StatusCode: 500}})
	s := m.Create()
	require.NoError(t, s.Controller.SelectExam("bank"))
	_, _, err := s.Controller.AddFiles([]upload.CandidateFile{upload.FromBytes("a.pdf", "", []byte("x"))})
	require.NoError(t, err)
	require.Error(t, s.Controller.Submit(context.Background()))
	failed := s.Controller.State()
	require.Equal(t, workflow.MsgSubmitFailed, failed.Error)

	s.Controller.DismissError()
	// a late delivery of the failure must not bring the error back
	m.persist(s, failed)

	snaps, err := NewFileStore(dataDir).LoadSnapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	require.Empty(t, snaps[0].Error)
}

func TestLoadSkipsGarbage(t *testing.T) {
	dataDir := t.TempDir()
	root := filepath.Join(dataDir, "sessions")
	require.NoError(t, os.MkdirAll(root, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.json"), []byte("{"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hi"), 0o600))

	m := newTestManager(t, dataDir, stubSubmitter{})
	require.NoError(t, m.LoadFromDisk())
	require.Zero(t, m.Len())

	require.NoError(t, newTestManager(t, filepath.Join(dataDir, "missing"), stubSubmitter{}).LoadFromDisk())
}

func TestPruneDropsIdleSessions(t *testing.T) {
	dataDir := t.TempDir()
	m := NewManager(Options{DataDir: dataDir, TTL: time.Hour, Catalog: exam.Default(), Submitter: stubSubmitter{}})
	now := time.Now()
	m.now = func() time.Time { return now }

	old := m.Create()
	require.NoError(t, old.Controller.SelectExam("ssc"))
	now = now.Add(2 * time.Hour)
	fresh := m.Create()

	require.Equal(t, 1, m.Prune())
	_, ok := m.Get(old.ID)
	require.False(t, ok)
	_, ok = m.Get(fresh.ID)
	require.True(t, ok)
	require.NoFileExists(t, filepath.Join(dataDir, "sessions", old.ID+".json"))
}

func TestStoreRejectsUnsafeIDs(t *testing.T) {
	store := NewFileStore(t.TempDir())
	require.Error(t, store.SaveSnapshot(context.Background(), Snapshot{ID: "../x"}))
	require.Error(t, store.DeleteSnapshot(context.Background(), ""))
	require.NoError(t, store.DeleteSnapshot(context.Background(), "absent"))
}
