// Package files is the document view of the TUI: staged and uploaded files,
// the ingestion pipeline of each, and a chunk browser.
package files

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docnexus/internal/adapter/tui/components"
	"docnexus/internal/adapter/tui/theme"
	"docnexus/internal/adapter/tui/uxerror"
	"docnexus/internal/domain"
	"docnexus/internal/usecase/ingest"
)

// FileService is the part of ingest.Service the view needs.
type FileService interface {
	Upload(ctx context.Context, staged *ingest.Staging, progress func(percent int)) ([]domain.FileRecord, error)
	ListFiles(ctx context.Context) ([]domain.FileRecord, error)
	Chunks(ctx context.Context, fileID string) ([]domain.Chunk, error)
}

// TaskWatcher follows an ingestion task; *ingest.Poller implements it.
type TaskWatcher interface {
	Watch(ctx context.Context, taskID string, names []string, onUpdate func(domain.TaskStatus)) (*ingest.WatchResult, error)
}

var (
	_ FileService = (*ingest.Service)(nil)
	_ TaskWatcher = (*ingest.Poller)(nil)
)

// Deps are dependencies injected into the files view.
type Deps struct {
	Service FileService
	Watcher TaskWatcher
	Staging *ingest.Staging
	// Emit injects messages from background work into the program.
	Emit   func(tea.Msg)
	Logger *slog.Logger
}

type mode int

const (
	modeList mode = iota
	modeChunks
)

// Model is the files view.
type Model struct {
	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc

	mode   mode
	files  []domain.FileRecord
	tasks  map[string]*domain.TaskStatus
	meta   map[string]*domain.FileMetadata
	cursor int

	loading   bool
	uploading bool
	percent   int
	notice    string
	err       error

	// Chunk browser state.
	chunkFile   domain.FileRecord
	chunks      []domain.Chunk
	visible     []domain.Chunk
	chunkCursor int
	filter      components.FilterBarModel
	search      components.SearchBarModel
	detail      components.DetailModel

	width  int
	height int
}

// New creates the files view. Background work stops when Close is called.
func New(deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Staging == nil {
		deps.Staging = ingest.NewStaging(0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(map[string]*domain.TaskStatus),
		meta:   make(map[string]*domain.FileMetadata),
		filter: components.NewFilterBar(nil),
		search: components.NewSearchBar("Search chunk text..."),
		detail: components.NewDetail(),
	}
}

// Close cancels uploads and watches still running.
func (m Model) Close() {
	m.cancel()
}

// Refresh reloads the server's file list.
func (m Model) Refresh() (Model, tea.Cmd) {
	m.loading = true
	return m, loadFilesCmd(m.ctx, m.deps.Service)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.filter.SetWidth(w)
	m.search.SetWidth(w)
	m.detail.SetSize(w, h)
}

// Files returns the listed files, newest uploads first.
func (m Model) Files() []domain.FileRecord {
	return m.files
}

// Uploading reports whether an upload request is in flight.
func (m Model) Uploading() bool {
	return m.uploading
}

// Stage adds local paths to the staging area. Paths that cannot be staged
// are reported; the rest are kept.
func (m Model) Stage(paths []string) (Model, []error) {
	var errs []error
	for _, p := range paths {
		if _, err := m.deps.Staging.Add(p); err != nil {
			errs = append(errs, err)
		}
	}
	m.err = nil
	m.notice = fmt.Sprintf("%d file(s) staged", m.deps.Staging.Len())
	return m, errs
}

// StartUpload uploads everything staged.
func (m Model) StartUpload() (Model, tea.Cmd) {
	if m.uploading {
		return m, nil
	}
	if m.deps.Staging.Len() == 0 {
		m.err = domain.NewDomainError("files.upload", domain.ErrNoFiles, "")
		return m, nil
	}
	m.uploading = true
	m.percent = 0
	m.err = nil
	m.notice = ""
	return m, uploadCmd(m.ctx, m.deps.Service, m.deps.Staging, m.deps.Emit)
}

// Update handles files-view messages and keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case FilesLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.files = mergeFiles(m.files, msg.Files)
		m.clampCursor()
		return m, nil

	case UploadProgressMsg:
		if m.uploading {
			m.percent = msg.Percent
		}
		return m, nil

	case UploadDoneMsg:
		m.uploading = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.files = append(append([]domain.FileRecord(nil), msg.Records...), m.files...)
		m.cursor = 0
		m.notice = fmt.Sprintf("%s %d file(s) uploaded, processing...", theme.SymbolSuccess, len(msg.Records))
		return m, m.watchNew(msg.Records)

	case TaskUpdateMsg:
		st := msg.Status
		m.tasks[msg.TaskID] = &st
		return m, nil

	case TaskDoneMsg:
		return m.finishTask(msg), nil

	case ChunksLoadedMsg:
		if m.mode != modeChunks || msg.FileID != m.chunkFile.ID {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.chunks = msg.Chunks
		m.filter.SetOptions(components.OptionsFor(ingest.ChunkTypes(msg.Chunks)))
		m.applyChunkFilter()
		return m, nil

	case tea.KeyMsg:
		if m.detail.Visible {
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}
		if m.mode == modeChunks {
			return m.handleChunkKey(msg)
		}
		return m.handleListKey(msg)
	}
	return m, nil
}

// watchNew starts one watch per task id among records.
func (m Model) watchNew(records []domain.FileRecord) tea.Cmd {
	if m.deps.Watcher == nil {
		return nil
	}
	names := make(map[string][]string)
	var order []string
	for _, r := range records {
		if !r.ActiveTask() {
			continue
		}
		if _, ok := names[r.TaskID]; !ok {
			order = append(order, r.TaskID)
		}
		names[r.TaskID] = append(names[r.TaskID], r.Name)
	}
	var cmds []tea.Cmd
	for _, id := range order {
		cmds = append(cmds, watchCmd(m.ctx, m.deps.Watcher, id, names[id], m.deps.Emit))
	}
	return tea.Batch(cmds...)
}

func (m Model) finishTask(msg TaskDoneMsg) Model {
	if msg.Result != nil {
		st := msg.Result.Status
		m.tasks[msg.TaskID] = &st
		for name, meta := range msg.Result.Metadata {
			m.meta[name] = meta
		}
	}
	if msg.Err != nil && m.ctx.Err() != nil {
		return m
	}

	status := domain.FileCompleted
	if msg.Err != nil {
		status = domain.FileFailed
		m.err = msg.Err
	}
	files := make([]domain.FileRecord, len(m.files))
	copy(files, m.files)
	for i := range files {
		if files[i].TaskID != msg.TaskID {
			continue
		}
		// A poll error leaves the outcome unknown; only a reported failure marks the file.
		if msg.Err != nil && msg.Result == nil {
			continue
		}
		files[i].Status = status
		if meta := m.meta[files[i].Name]; meta != nil {
			files[i].ID = firstNonEmpty(meta.ID, files[i].ID)
			files[i].Stage = meta.Stage
			files[i].JobStats = meta.JobStats
		}
	}
	m.files = files
	if msg.Err == nil {
		m.notice = theme.SymbolSuccess + " Processing complete"
	}
	return m
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		return m, func() tea.Msg { return CloseMsg{} }
	case "j", "down":
		m.cursor++
		m.clampCursor()
	case "k", "up":
		m.cursor--
		m.clampCursor()
	case "r":
		return m.Refresh()
	case "u":
		return m.StartUpload()
	case "c":
		m.deps.Staging.Clear()
		m.notice = "Staging cleared"
	case "enter":
		if len(m.files) == 0 {
			return m, nil
		}
		f := m.files[m.cursor]
		if !f.Done() || f.ID == "" {
			m.notice = "Chunks are available once processing completes"
			return m, nil
		}
		return m.openChunks(f)
	}
	return m, nil
}

func (m Model) openChunks(f domain.FileRecord) (Model, tea.Cmd) {
	m.mode = modeChunks
	m.chunkFile = f
	m.chunks = nil
	m.visible = nil
	m.chunkCursor = 0
	m.filter = components.NewFilterBar(nil)
	m.filter.SetWidth(m.width)
	m.search.Deactivate()
	m.loading = true
	m.err = nil
	return m, chunksCmd(m.ctx, m.deps.Service, f.ID)
}

func (m Model) handleChunkKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.search.Mode == components.SearchInput {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.applyChunkFilter()
		return m, cmd
	}

	key := msg.String()
	switch key {
	case "esc", "q":
		if m.search.Mode != components.SearchInactive {
			m.search.Deactivate()
			m.applyChunkFilter()
			return m, nil
		}
		m.mode = modeList
		m.loading = false
		return m, nil
	case "/":
		m.search.Activate()
		return m, nil
	case "j", "down":
		if m.chunkCursor < len(m.visible)-1 {
			m.chunkCursor++
		}
		return m, nil
	case "k", "up":
		if m.chunkCursor > 0 {
			m.chunkCursor--
		}
		return m, nil
	case "enter":
		if m.chunkCursor < len(m.visible) {
			c := m.visible[m.chunkCursor]
			m.detail.SetSize(m.width, m.height)
			m.detail.OpenChunk(c, m.chunkCursor+1, len(m.visible))
		}
		return m, nil
	}
	if m.filter.HandleShortcut(key) {
		m.applyChunkFilter()
	}
	return m, nil
}

func (m *Model) applyChunkFilter() {
	m.visible = ingest.FilterChunks(m.chunks, m.filter.Active, m.search.Live())
	m.filter.SetCounts(len(m.chunks), len(m.visible))
	if m.chunkCursor >= len(m.visible) {
		m.chunkCursor = 0
	}
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.files) {
		m.cursor = len(m.files) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// mergeFiles keeps fresh uploads in front and replaces the rest with the
// server's list. A loaded file that matches a fresh upload is dropped.
func mergeFiles(current, loaded []domain.FileRecord) []domain.FileRecord {
	var out []domain.FileRecord
	seen := make(map[string]bool)
	for _, f := range current {
		if f.Existing {
			continue
		}
		out = append(out, f)
		seen[f.ID] = true
	}
	for _, f := range loaded {
		if f.ID != "" && seen[f.ID] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// View renders the files view.
func (m Model) View() string {
	if m.detail.Visible {
		return m.detail.View()
	}
	var body string
	if m.mode == modeChunks {
		body = m.chunksView()
	} else {
		body = m.listView()
	}

	var footer []string
	if m.err != nil {
		footer = append(footer, theme.TextError.Render(uxerror.Humanize(m.err).Short()))
	} else if m.notice != "" {
		footer = append(footer, theme.TextMuted.Render(m.notice))
	}
	footer = append(footer, theme.Dim.Render(m.hints()))
	return lipgloss.JoinVertical(lipgloss.Left, body, strings.Join(footer, "\n"))
}

func (m Model) hints() string {
	if m.mode == modeChunks {
		return "  j/k: move  Enter: read  /: search  0-9: type  Esc: back"
	}
	return "  j/k: move  Enter: chunks  u: upload staged  c: clear staged  r: refresh  Esc: chat"
}

func (m Model) listView() string {
	var sb strings.Builder
	sb.WriteString(theme.Title.Render(" Documents") + "\n\n")

	if staged := m.deps.Staging.List(); len(staged) > 0 {
		sb.WriteString(theme.Bold.Render("  Staged") + "\n")
		for _, f := range staged {
			sb.WriteString(fmt.Sprintf("    %s %s  %s\n", theme.SymbolBullet, f.Name,
				theme.TextMuted.Render(ingest.FormatFileSize(f.Size))))
		}
		sb.WriteString("\n")
	}
	if m.uploading {
		sb.WriteString("  " + progressBar(m.percent, 30) + fmt.Sprintf(" %d%%\n\n", m.percent))
	}

	if len(m.files) == 0 {
		if m.loading {
			sb.WriteString(theme.TextMuted.Render("  Loading files" + theme.SymbolEllipsis))
		} else {
			sb.WriteString(theme.TextMuted.Render("  No documents yet. Use /upload <path> to add some."))
		}
		return sb.String()
	}

	for i, f := range m.files {
		task := m.tasks[f.TaskID]
		marker := "  "
		name := f.Name
		if i == m.cursor {
			marker = theme.TextInfo.Render(theme.SymbolArrowR + " ")
			name = theme.Bold.Render(name)
		}
		sb.WriteString(fmt.Sprintf("%s%s  %s  %s\n", marker, name,
			theme.TextMuted.Render(ingest.FormatFileSize(f.Size)), statusLabel(f)))
		if i == m.cursor || f.ActiveTask() {
			sb.WriteString(RenderPipeline(f, task, m.meta[f.Name]))
		}
	}
	return sb.String()
}

func statusLabel(f domain.FileRecord) string {
	switch {
	case f.Status == domain.FileFailed:
		return theme.TextError.Render(theme.SymbolError + " failed")
	case f.Done():
		return theme.TextSuccess.Render(theme.SymbolSuccess + " ready")
	default:
		return theme.TextWarning.Render(theme.SymbolActive + " processing")
	}
}

// RenderPipeline renders the stage list of one file with the counters of
// the stages that report any.
func RenderPipeline(f domain.FileRecord, task *domain.TaskStatus, meta *domain.FileMetadata) string {
	stats := ingest.StageStatsFor(f, task, meta)
	var sb strings.Builder
	for _, stage := range domain.StageOrder {
		st := ingest.StageStatusFor(stage, f, task)
		style, sym := theme.StageStyle(st)
		if f.Status == domain.FileFailed && task != nil && stage == task.CurrentStage {
			style, sym = theme.TextError, theme.SymbolError
		}
		line := fmt.Sprintf("      %s %s", style.Render(sym), domain.StageLabels[stage])
		if s := statsLine(stats, stage); s != "" {
			line += "  " + theme.TextMuted.Render(s)
		}
		sb.WriteString(line + "\n")
	}
	if f.Done() && f.Status != domain.FileFailed {
		sb.WriteString(fmt.Sprintf("      %s %s\n", theme.TextInfo.Render(theme.SymbolArrowR),
			domain.StageLabels[domain.StageViewChunks]))
	}
	return sb.String()
}

func statsLine(stats domain.StageStats, stage domain.Stage) string {
	var parts []string
	for _, key := range domain.StatKeys[stage] {
		if v := stats.Stat(stage, key); v != "" {
			parts = append(parts, strings.ReplaceAll(key, "_", " ")+" "+v)
		}
	}
	return strings.Join(parts, " "+theme.SymbolBullet+" ")
}

func (m Model) chunksView() string {
	var sb strings.Builder
	sb.WriteString(theme.Title.Render(" "+m.chunkFile.Name) + theme.TextMuted.Render("  chunks") + "\n")
	sb.WriteString(m.filter.View() + "\n")
	if v := m.search.View(); v != "" {
		sb.WriteString(v + "\n")
	}
	sb.WriteString("\n")

	if m.loading {
		sb.WriteString(theme.TextMuted.Render("  Loading chunks" + theme.SymbolEllipsis))
		return sb.String()
	}
	if len(m.visible) == 0 {
		sb.WriteString(theme.TextMuted.Render("  No chunks match"))
		return sb.String()
	}

	width := components.ContentWidth(m.width) - 4
	rows := m.height - 8
	if rows < 3 {
		rows = 3
	}
	start := 0
	if m.chunkCursor >= rows {
		start = m.chunkCursor - rows + 1
	}
	for i := start; i < len(m.visible) && i < start+rows; i++ {
		c := m.visible[i]
		marker := "  "
		if i == m.chunkCursor {
			marker = theme.TextInfo.Render(theme.SymbolArrowR + " ")
		}
		preview := strings.Join(strings.Fields(c.Content), " ")
		if r := []rune(preview); len(r) > width-30 && width > 40 {
			preview = string(r[:width-31]) + theme.SymbolEllipsis
		}
		sb.WriteString(fmt.Sprintf("%s%-14s %s %s\n", marker, c.Type, theme.TextMuted.Render(chunkMeta(c)), preview))
	}
	return sb.String()
}

func chunkMeta(c domain.Chunk) string {
	page := "p.-"
	if c.Page != nil {
		page = fmt.Sprintf("p.%d", *c.Page)
	}
	return fmt.Sprintf("%s %d chars", page, c.Chars)
}

func progressBar(pct, width int) string {
	pct = theme.Clamp(pct, 0, 100)
	filled := pct * width / 100
	return theme.TextInfo.Render(strings.Repeat("█", filled)) +
		theme.Dim.Render(strings.Repeat("░", width-filled))
}
