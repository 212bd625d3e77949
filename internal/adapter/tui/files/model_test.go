package files

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnexus/internal/domain"
	"docnexus/internal/usecase/ingest"
)

type fakeFiles struct {
	mu       sync.Mutex
	listed   []domain.FileRecord
	listErr  error
	uploaded []domain.FileRecord
	upErr    error
	chunks   map[string][]domain.Chunk
	staged   int
}

func (f *fakeFiles) Upload(_ context.Context, staged *ingest.Staging, progress func(int)) ([]domain.FileRecord, error) {
	f.mu.Lock()
	f.staged = staged.Len()
	f.mu.Unlock()
	progress(40)
	progress(100)
	if f.upErr != nil {
		return nil, f.upErr
	}
	staged.Clear()
	return f.uploaded, nil
}

func (f *fakeFiles) ListFiles(context.Context) ([]domain.FileRecord, error) {
	return f.listed, f.listErr
}

func (f *fakeFiles) Chunks(_ context.Context, id string) ([]domain.Chunk, error) {
	return f.chunks[id], nil
}

type fakeWatcher struct {
	updates []domain.TaskStatus
	result  *ingest.WatchResult
	err     error
	names   []string
}

func (w *fakeWatcher) Watch(_ context.Context, _ string, names []string, onUpdate func(domain.TaskStatus)) (*ingest.WatchResult, error) {
	w.names = names
	for _, u := range w.updates {
		onUpdate(u)
	}
	return w.result, w.err
}

type collector struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (c *collector) emit(msg tea.Msg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func newModel(t *testing.T, svc *fakeFiles, w *fakeWatcher, c *collector) Model {
	t.Helper()
	deps := Deps{Service: svc, Staging: ingest.NewStaging(0), Emit: c.emit}
	if w != nil {
		deps.Watcher = w
	}
	m := New(deps)
	t.Cleanup(m.Close)
	m.SetSize(100, 40)
	return m
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

// runBatch executes cmd, expanding batches, and returns the produced messages.
func runBatch(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runBatch(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRefreshLoadsFiles(t *testing.T) {
	svc := &fakeFiles{listed: []domain.FileRecord{
		{ID: "f1", Name: "a.pdf", Size: 2048, Status: domain.FileCompleted, Existing: true},
	}}
	m := newModel(t, svc, nil, &collector{})

	m, cmd := m.Refresh()
	msgs := runBatch(cmd)
	require.Len(t, msgs, 1)
	m, _ = m.Update(msgs[0])

	require.Len(t, m.Files(), 1)
	view := m.View()
	assert.Contains(t, view, "a.pdf")
	assert.Contains(t, view, "2 KB")
	assert.Contains(t, view, "ready")
}

func TestRefreshErrorIsShown(t *testing.T) {
	svc := &fakeFiles{listErr: domain.NewDomainError("files.list", domain.ErrNotAuthenticated, "")}
	m := newModel(t, svc, nil, &collector{})

	m, cmd := m.Refresh()
	m, _ = m.Update(cmd())
	assert.Contains(t, m.View(), "Not Logged In")
}

func TestUploadWithoutStagedFiles(t *testing.T) {
	m := newModel(t, &fakeFiles{}, nil, &collector{})
	m, cmd := m.StartUpload()
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "No Files Staged")
}

func TestStageReportsBadPaths(t *testing.T) {
	m := newModel(t, &fakeFiles{}, nil, &collector{})
	good := writeFile(t, "q3.pdf", "pdf")

	m, errs := m.Stage([]string{good, filepath.Join(t.TempDir(), "missing.pdf")})
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], domain.ErrNotFound))
	assert.Contains(t, m.View(), "q3.pdf")
}

func TestUploadWatchAndComplete(t *testing.T) {
	svc := &fakeFiles{uploaded: []domain.FileRecord{
		{ID: "f9", Name: "q3.pdf", Size: 3, Status: domain.FileProcessing, TaskID: "task-1"},
	}}
	meta := &domain.FileMetadata{ID: "f9", Name: "q3.pdf", Status: domain.FileCompleted, Stage: domain.StageVectorization,
		JobStats: domain.StageStats{"chunking": {"chunks_created": []byte("12")}}}
	w := &fakeWatcher{
		updates: []domain.TaskStatus{{State: domain.TaskProgress, CurrentStage: domain.StageChunking}},
		result: &ingest.WatchResult{
			Status:   domain.TaskStatus{State: domain.TaskSuccess},
			Metadata: map[string]*domain.FileMetadata{"q3.pdf": meta},
		},
	}
	c := &collector{}
	m := newModel(t, svc, w, c)

	m, errs := m.Stage([]string{writeFile(t, "q3.pdf", "pdf")})
	require.Empty(t, errs)

	m, cmd := m.StartUpload()
	require.NotNil(t, cmd)
	assert.True(t, m.Uploading())

	done := cmd()
	for _, msg := range c.msgs {
		m, _ = m.Update(msg)
	}
	assert.Equal(t, 100, m.percent)
	assert.Equal(t, 1, svc.staged)

	m, cmd = m.Update(done)
	assert.False(t, m.Uploading())
	require.Len(t, m.Files(), 1)
	assert.Equal(t, domain.FileProcessing, m.Files()[0].Status)

	c.msgs = nil
	msgs := runBatch(cmd)
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"q3.pdf"}, w.names)

	for _, msg := range c.msgs {
		m, _ = m.Update(msg)
	}
	require.NotNil(t, m.tasks["task-1"])
	assert.Equal(t, domain.StageChunking, m.tasks["task-1"].CurrentStage)

	m, _ = m.Update(msgs[0])
	f := m.Files()[0]
	assert.Equal(t, domain.FileCompleted, f.Status)
	assert.Equal(t, "12", f.JobStats.Stat(domain.StageChunking, "chunks_created"))
	assert.Contains(t, m.View(), "chunks created 12")
}

func TestTaskFailureMarksFile(t *testing.T) {
	svc := &fakeFiles{uploaded: []domain.FileRecord{
		{ID: "f1", Name: "bad.pdf", Status: domain.FileProcessing, TaskID: "t"},
	}}
	w := &fakeWatcher{
		result: &ingest.WatchResult{Status: domain.TaskStatus{State: domain.TaskFailure, CurrentStage: domain.StagePartitioning, Status: "corrupt"}},
		err:    domain.NewDomainError("ingest.poll", domain.ErrTaskFailed, "corrupt"),
	}
	m := newModel(t, svc, w, &collector{})
	m, _ = m.Stage([]string{writeFile(t, "bad.pdf", "x")})
	m, cmd := m.StartUpload()
	m, cmd = m.Update(cmd())
	for _, msg := range runBatch(cmd) {
		m, _ = m.Update(msg)
	}

	assert.Equal(t, domain.FileFailed, m.Files()[0].Status)
	view := m.View()
	assert.Contains(t, view, "failed")
	assert.Contains(t, view, "Processing Failed: corrupt")
}

func TestChunkBrowserFiltersByTypeAndText(t *testing.T) {
	page := 2
	svc := &fakeFiles{
		listed: []domain.FileRecord{{ID: "f1", Name: "a.pdf", Status: domain.FileCompleted, Existing: true}},
		chunks: map[string][]domain.Chunk{"f1": {
			{Type: "NarrativeText", Content: "Revenue grew", Chars: 12, Page: &page},
			{Type: "Table", Content: "EPS 4.20", Chars: 8},
			{Type: "NarrativeText", Content: "Board of directors", Chars: 18},
		}},
	}
	m := newModel(t, svc, nil, &collector{})
	m, cmd := m.Refresh()
	m, _ = m.Update(cmd())

	m, cmd = m.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, modeChunks, m.mode)
	m, _ = m.Update(cmd())
	assert.Len(t, m.visible, 3)
	assert.Contains(t, m.View(), "[2] Table")

	m, _ = m.Update(key("2"))
	require.Len(t, m.visible, 1)
	assert.Equal(t, "EPS 4.20", m.visible[0].Content)

	m, _ = m.Update(key("0"))
	m, _ = m.Update(key("/"))
	for _, r := range "board" {
		m, _ = m.Update(key(string(r)))
	}
	require.Len(t, m.visible, 1)
	assert.Equal(t, "Board of directors", m.visible[0].Content)

	m, _ = m.Update(key("enter"))
	m, _ = m.Update(key("enter"))
	assert.True(t, m.detail.Visible)
	assert.True(t, strings.HasPrefix(m.detail.Title, "NarrativeText chunk 1/1"))

	m, _ = m.Update(key("esc"))
	assert.False(t, m.detail.Visible)
	m, _ = m.Update(key("esc"))
	m, _ = m.Update(key("esc"))
	assert.Equal(t, modeList, m.mode)
}

func TestChunksUnavailableWhileProcessing(t *testing.T) {
	svc := &fakeFiles{uploaded: []domain.FileRecord{{ID: "f1", Name: "a.pdf", Status: domain.FileProcessing, TaskID: "t"}}}
	m := newModel(t, svc, nil, &collector{})
	m, _ = m.Stage([]string{writeFile(t, "a.pdf", "x")})
	m, cmd := m.StartUpload()
	m, _ = m.Update(cmd())

	m, cmd = m.Update(key("enter"))
	assert.Nil(t, cmd)
	assert.Equal(t, modeList, m.mode)
	assert.Contains(t, m.View(), "once processing completes")
}

func TestEscClosesView(t *testing.T) {
	m := newModel(t, &fakeFiles{}, nil, &collector{})
	_, cmd := m.Update(key("esc"))
	require.NotNil(t, cmd)
	assert.IsType(t, CloseMsg{}, cmd())
}

func TestMergeFilesKeepsFreshUploads(t *testing.T) {
	current := []domain.FileRecord{
		{ID: "new", Name: "new.pdf", TaskID: "t"},
		{ID: "old", Name: "old.pdf", Existing: true},
	}
	loaded := []domain.FileRecord{
		{ID: "new", Name: "new.pdf", Existing: true},
		{ID: "old", Name: "old.pdf", Existing: true},
		{ID: "other", Name: "other.pdf", Existing: true},
	}
	got := mergeFiles(current, loaded)
	require.Len(t, got, 3)
	assert.Equal(t, "t", got[0].TaskID)
	assert.Equal(t, "old", got[1].ID)
	assert.Equal(t, "other", got[2].ID)
}

func TestRenderPipeline(t *testing.T) {
	f := domain.FileRecord{Name: "a.pdf", Status: domain.FileProcessing, TaskID: "t"}
	task := &domain.TaskStatus{State: domain.TaskProgress, CurrentStage: domain.StagePartitioning,
		FilesStats: map[string]domain.StageStats{"a.pdf": {"partitioning": {"tables": []byte("3")}}}}

	out := RenderPipeline(f, task, nil)
	for _, stage := range domain.StageOrder {
		assert.Contains(t, out, domain.StageLabels[stage])
	}
	assert.Contains(t, out, "tables 3")
	assert.NotContains(t, out, domain.StageLabels[domain.StageViewChunks])
}
