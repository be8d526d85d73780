package workflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"examcompress/internal/compress"
	"examcompress/internal/exam"
	"examcompress/internal/upload"
)

type fakeSubmitter struct {
	calls atomic.Int32
	fn    func(ctx context.Context, files []upload.CandidateFile, examID string) (compress.ResultSet, error)
}

func (f *fakeSubmitter) Submit(ctx context.Context, files []upload.CandidateFile, examID string) (compress.ResultSet, error) {
	f.calls.Add(1)
	return f.fn(ctx, files, examID)
}

func (f *fakeSubmitter) DownloadURL(id string) string { return "http://svc/api/download/" + id }

func echoSubmitter() *fakeSubmitter {
	return &fakeSubmitter{fn: func(_ context.Context, files []upload.CandidateFile, _ string) (compress.ResultSet, error) {
		out := make(compress.ResultSet, 0, len(files))
		for i, f := range files {
			out = append(out, compress.Outcome{ID: string(rune('a' + i)), OriginalName: f.Name, OriginalSize: f.Size, CompressedSize: f.Size / 2})
		}
		return out, nil
	}}
}

func newController(t *testing.T, sub *fakeSubmitter) *Controller {
	t.Helper()
	return New(Options{Catalog: exam.Default(), Submitter: sub})
}

func file(name string) upload.CandidateFile {
	return upload.FromBytes(name, "", []byte(name))
}

func fileNames(files []upload.CandidateFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func TestInitialState(t *testing.T) {
	s := newController(t, echoSubmitter()).State()
	require.Equal(t, StageSelectingExam, s.Stage)
	require.Equal(t, PhaseIdle, s.Phase)
	require.Nil(t, s.Config)
}

func TestSelectKnownExam(t *testing.T) {
	c := newController(t, echoSubmitter())
	require.NoError(t, c.SelectExam("gate"))

	s := c.State()
	require.Equal(t, StageReady, s.Stage)
	require.Equal(t, PhaseIdle, s.Phase)
	require.Equal(t, "GATE", s.Config.Name)
	require.Empty(t, s.Files)
	require.Empty(t, s.Results)
	require.False(t, s.Redirect)
}

func TestUnknownExamRedirectsDespiteCatalogFallback(t *testing.T) {
	cat := exam.Default()
	for _, id := range []string{"", "xyz", "GATE"} {
		require.Equal(t, "upsc", cat.Lookup(id).ID)

		c := newController(t, echoSubmitter())
		err := c.SelectExam(id)
		require.ErrorIs(t, err, ErrUnknownExam)
		s := c.State()
		require.Equal(t, StageRedirected, s.Stage)
		require.True(t, s.Redirect)
		require.Nil(t, s.Config)

		_, _, err = c.AddFiles([]upload.CandidateFile{file("a.pdf")})
		require.ErrorIs(t, err, ErrNoExam)
		require.ErrorIs(t, c.Submit(context.Background()), ErrNoExam)
	}
}

func TestScenarioASkippedFiles(t *testing.T) {
	c := newController(t, echoSubmitter())
	require.NoError(t, c.SelectExam("gate"))

	accepted, rejected, err := c.AddFiles([]upload.CandidateFile{file("a.pdf"), file("b.docx")})
	require.NoError(t, err)
	require.Equal(t, []string{"a.pdf"}, fileNames(accepted))
	require.Equal(t, []string{"b.docx"}, fileNames(rejected))

	s := c.State()
	require.Equal(t, []string{"a.pdf"}, fileNames(s.Files))
	require.NotNil(t, s.Notice)
	require.Equal(t, NoticeNonBlocking, s.Notice.Kind)
	require.Contains(t, s.Notice.Text, "1 file")
	require.Equal(t, PhaseIdle, s.Phase)

	c.DismissNotice()
	require.Nil(t, c.State().Notice)
}

func TestAllAcceptedRaisesNoNotice(t *testing.T) {
	c := newController(t, echoSubmitter())
	require.NoError(t, c.SelectExam("upsc"))
	_, _, err := c.AddFiles([]upload.CandidateFile{file("a.DOCX"), file("b.png")})
	require.NoError(t, err)
	require.Nil(t, c.State().Notice)
}

func TestScenarioBEmptySubmit(t *testing.T) {
	sub := echoSubmitter()
	c := newController(t, sub)
	require.NoError(t, c.SelectExam("gate"))

	err := c.Submit(context.Background())
	require.ErrorIs(t, err, ErrEmptyBatch)
	require.Zero(t, sub.calls.Load())

	s := c.State()
	require.Equal(t, StageReady, s.Stage)
	require.Equal(t, PhaseIdle, s.Phase)
	require.Equal(t, &Notice{Kind: NoticeBlocking, Text: MsgSelectAtLeastOne}, s.Notice)
	require.Empty(t, s.Error)
}

func TestScenarioCServiceFailureKeepsFiles(t *testing.T) {
	sub := &fakeSubmitter{fn: func(context.Context, []upload.CandidateFile, string) (compress.ResultSet, error) {
		return nil, &compress.ServiceError{StatusCode: 500, Reason: "Internal Server Error"}
	}}
	c := newController(t, sub)
	require.NoError(t, c.SelectExam("gate"))
	_, _, err := c.AddFiles([]upload.CandidateFile{file("a.pdf")})
	require.NoError(t, err)

	err = c.Submit(context.Background())
	require.ErrorIs(t, err, compress.ErrService)

	s := c.State()
	require.Equal(t, PhaseIdle, s.Phase)
	require.Equal(t, MsgSubmitFailed, s.Error)
	require.True(t, s.HasError())
	require.Equal(t, []string{"a.pdf"}, fileNames(s.Files))
	require.Empty(t, s.Results)

	c.DismissError()
	s = c.State()
	require.False(t, s.HasError())
	require.Equal(t, []string{"a.pdf"}, fileNames(s.Files))
}

func TestScenarioDSuccessClearsSelection(t *testing.T) {
	sub := &fakeSubmitter{fn: func(_ context.Context, files []upload.CandidateFile, examID string) (compress.ResultSet, error) {
		if len(files) != 2 || examID != "gate" {
			return nil, errors.New("unexpected batch")
		}
		return compress.ResultSet{
			{ID: "x1", OriginalName: "p.pdf", OriginalSize: 204800, CompressedSize: 51200, FileType: "application/pdf"},
			{ID: "x2", OriginalName: "q.jpg", OriginalSize: 102400, CompressedSize: 20480, FileType: "image/jpeg"},
		}, nil
	}}
	c := newController(t, sub)
	require.NoError(t, c.SelectExam("gate"))
	_, _, err := c.AddFiles([]upload.CandidateFile{file("p.pdf"), file("q.jpg")})
	require.NoError(t, err)

	require.NoError(t, c.Submit(context.Background()))

	s := c.State()
	require.Empty(t, s.Files)
	require.Len(t, s.Results, 2)
	require.Equal(t, 75, s.Results[0].SavedPercent())
	require.Equal(t, 80, s.Results[1].SavedPercent())
	require.Empty(t, s.Error)
}

func TestFailureThenRetrySucceeds(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	ok := echoSubmitter()
	sub := &fakeSubmitter{fn: func(ctx context.Context, files []upload.CandidateFile, examID string) (compress.ResultSet, error) {
		if fail.Load() {
			return nil, compress.ErrTimeout
		}
		return ok.fn(ctx, files, examID)
	}}
	c := newController(t, sub)
	require.NoError(t, c.SelectExam("cat"))
	_, _, _ = c.AddFiles([]upload.CandidateFile{file("a.pdf"), file("b.png")})

	require.Error(t, c.Submit(context.Background()))
	require.NotEmpty(t, c.State().Error)

	fail.Store(false)
	require.NoError(t, c.Submit(context.Background()))
	s := c.State()
	require.Empty(t, s.Error)
	require.Empty(t, s.Files)
	require.Len(t, s.Results, 2)
}

func TestRemoveFileKeepsOrder(t *testing.T) {
	c := newController(t, echoSubmitter())
	require.NoError(t, c.SelectExam("upsc"))
	_, _, _ = c.AddFiles([]upload.CandidateFile{file("a.pdf"), file("b.pdf"), file("c.pdf"), file("d.pdf")})

	require.NoError(t, c.RemoveFile(1))
	require.Equal(t, []string{"a.pdf", "c.pdf", "d.pdf"}, fileNames(c.State().Files))
	require.ErrorIs(t, c.RemoveFile(3), upload.ErrIndexOutOfRange)
	require.Len(t, c.State().Files, 3)
}

func TestDuplicateSubmitWhileInFlightIsIgnored(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	sub := &fakeSubmitter{fn: func(_ context.Context, files []upload.CandidateFile, _ string) (compress.ResultSet, error) {
		close(entered)
		<-release
		return compress.ResultSet{{ID: "r1", OriginalName: files[0].Name}}, nil
	}}
	c := newController(t, sub)
	require.NoError(t, c.SelectExam("jee"))
	_, _, _ = c.AddFiles([]upload.CandidateFile{file("a.pdf")})

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstErr = c.Submit(context.Background())
	}()
	<-entered

	s := c.State()
	require.Equal(t, PhaseSubmitting, s.Phase)
	require.ErrorIs(t, c.Submit(context.Background()), ErrSubmitInProgress)
	_, _, err := c.AddFiles([]upload.CandidateFile{file("late.pdf")})
	require.ErrorIs(t, err, ErrSubmitInProgress)
	require.ErrorIs(t, c.RemoveFile(0), ErrSubmitInProgress)
	require.ErrorIs(t, c.SelectExam("gate"), ErrSubmitInProgress)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	require.EqualValues(t, 1, sub.calls.Load())
	require.Len(t, c.State().Results, 1)
}

func TestSubmitHonoursContextTimeout(t *testing.T) {
	sub := &fakeSubmitter{fn: func(ctx context.Context, _ []upload.CandidateFile, _ string) (compress.ResultSet, error) {
		<-ctx.Done()
		return nil, &compress.ServiceError{Err: compress.ErrTimeout}
	}}
	c := newController(t, sub)
	require.NoError(t, c.SelectExam("ssc"))
	_, _, _ = c.AddFiles([]upload.CandidateFile{file("a.pdf")})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.Submit(ctx), compress.ErrTimeout)
	s := c.State()
	require.Equal(t, PhaseIdle, s.Phase)
	require.Equal(t, MsgSubmitFailed, s.Error)
	require.Len(t, s.Files, 1)
}

func TestDownloadNavigatesWithoutStateChange(t *testing.T) {
	var got []string
	c := New(Options{
		Catalog:   exam.Default(),
		Submitter: echoSubmitter(),
		Navigator: NavigatorFunc(func(u string) { got = append(got, u) }),
	})
	require.NoError(t, c.SelectExam("bank"))
	before := c.State()
	c.Download("x1")
	require.Equal(t, []string{"http://svc/api/download/x1"}, got)
	require.Equal(t, before, c.State())

	New(Options{Catalog: exam.Default(), Submitter: echoSubmitter()}).Download("ignored")
}

func TestOnChangeObservesTransitions(t *testing.T) {
	var phases []Phase
	c := New(Options{
		Catalog:   exam.Default(),
		Submitter: echoSubmitter(),
		OnChange:  func(s State) { phases = append(phases, s.Phase) },
	})
	require.NoError(t, c.SelectExam("neet"))
	_, _, _ = c.AddFiles([]upload.CandidateFile{file("a.pdf")})
	require.NoError(t, c.Submit(context.Background()))
	require.Equal(t, []Phase{PhaseIdle, PhaseIdle, PhaseSubmitting, PhaseIdle}, phases)
}

func TestOnChangeVersionsIncrease(t *testing.T) {
	var versions []uint64
	c := New(Options{
		Catalog:   exam.Default(),
		Submitter: echoSubmitter(),
		OnChange:  func(s State) { versions = append(versions, s.Version) },
	})
	require.NoError(t, c.SelectExam("neet"))
	_, _, _ = c.AddFiles([]upload.CandidateFile{file("a.pdf")})
	require.NoError(t, c.Submit(context.Background()))
	c.DismissError()

	require.Equal(t, []uint64{1, 2, 3, 4}, versions)
	require.Equal(t, uint64(4), c.State().Version)
}

func TestRestore(t *testing.T) {
	c := newController(t, echoSubmitter())
	results := compress.ResultSet{{ID: "x1", OriginalName: "a.pdf"}}
	require.NoError(t, c.Restore("defence", results, MsgSubmitFailed))
	s := c.State()
	require.Equal(t, StageReady, s.Stage)
	require.Equal(t, results, s.Results)
	require.Equal(t, MsgSubmitFailed, s.Error)

	require.ErrorIs(t, c.Restore("nope", results, ""), ErrUnknownExam)
}

func TestStateIsACopy(t *testing.T) {
	c := newController(t, echoSubmitter())
	require.NoError(t, c.SelectExam("gate"))
	s := c.State()
	s.Config.AcceptedFormats[0] = ".exe"
	require.Equal(t, ".jpg", c.State().Config.AcceptedFormats[0])
}
