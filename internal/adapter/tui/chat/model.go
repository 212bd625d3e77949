package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docnexus/internal/adapter/tui/components"
	"docnexus/internal/adapter/tui/files"
	"docnexus/internal/adapter/tui/theme"
	"docnexus/internal/adapter/tui/uxerror"
	"docnexus/internal/domain"
	chatuc "docnexus/internal/usecase/chat"
	"docnexus/internal/usecase/stream"
)

// maxTabs bounds how many recent threads the tab bar shows.
const maxTabs = 8

// ChatService is the part of the chat use case the screen drives;
// *chatuc.Service implements it.
type ChatService interface {
	Send(ctx context.Context, text, threadID string, sink func(stream.Snapshot)) (*domain.Message, error)
	Display(threadID string)
	Displayed() string
	NewChat() string
	LoadThread(ctx context.Context, threadID string) ([]domain.Message, error)
}

// ThreadSource supplies the history list; *chatuc.ThreadList implements it.
type ThreadSource interface {
	Load(ctx context.Context) error
	Items() []domain.ThreadSummary
}

var (
	_ ChatService  = (*chatuc.Service)(nil)
	_ ThreadSource = (*chatuc.ThreadList)(nil)
)

// ChatModelDeps are dependencies injected into the chat model.
type ChatModelDeps struct {
	Chat    ChatService
	Threads ThreadSource
	Files   files.Deps
	// Emit injects messages from background work into the program.
	Emit func(tea.Msg)
	// OnThreadOpen is told which thread is on screen ("" for a new chat).
	OnThreadOpen func(threadID string)
	// BreakerState reports the API circuit breaker state, e.g. "closed".
	BreakerState  func() string
	Logger        *slog.Logger
	Username      string
	InitialThread string
	Markdown      bool
}

type screen int

const (
	screenChat screen = iota
	screenFiles
)

type rightPane int

const (
	paneTools rightPane = iota
	paneActivity
)

// ChatModel is the root Bubble Tea model for the chat TUI.
type ChatModel struct {
	deps ChatModelDeps

	// Sub-models
	chatView  components.ChatViewModel
	input     components.InputAreaModel
	statusBar components.StatusBarModel
	tabBar    components.TabBarModel
	toolPane  components.ToolOutputModel
	activity  components.EventStreamModel
	sidebar   components.SidebarModel
	spinner   spinner.Model
	searchBar components.SearchBarModel
	detail    components.DetailModel
	files     files.Model

	// State
	screen   screen
	right    rightPane
	threadID string
	threads  []domain.ThreadSummary
	waiting  bool
	width    int
	height   int
	quitting bool
	vimMode  bool // true when input is blurred and vim keys are active

	// Request lifecycle: gen is incremented on every new request and on
	// every thread switch. Stale SnapshotMsg / DoneMsg are discarded.
	gen      uint64
	cancelFn context.CancelFunc
}

// NewChatModel creates the root chat model. With an InitialThread the
// thread is displayed and its history loaded by Init; otherwise a new chat
// is started.
func NewChatModel(deps ChatModelDeps) ChatModel {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Files.Emit == nil {
		deps.Files.Emit = deps.Emit
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorInfo)

	sb := components.NewStatusBar()
	sb.User = deps.Username
	sb.Hints = defaultHints()

	chatView := components.NewChatView()
	chatView.SetMaxMessages(1000)
	chatView.SetMarkdown(deps.Markdown)

	inputArea := components.NewInputArea()
	inputArea.Autocomplete = components.NewAutocomplete(slashCommands)

	m := ChatModel{
		deps:      deps,
		chatView:  chatView,
		input:     inputArea,
		statusBar: sb,
		tabBar:    components.NewTabBar(nil),
		toolPane:  components.NewToolOutput(),
		activity:  components.NewEventStream(),
		sidebar:   components.NewSidebar(),
		spinner:   s,
		searchBar: components.NewSearchBar("Search..."),
		detail:    components.NewDetail(),
		files:     files.New(deps.Files),
	}

	if deps.InitialThread != "" {
		m.threadID = deps.InitialThread
		deps.Chat.Display(m.threadID)
	} else {
		m.threadID = deps.Chat.NewChat()
	}
	m.statusBar.ThreadID = m.threadID
	m.tabBar.SelectID(m.threadID)
	return m
}

var slashCommands = []components.CommandDef{
	{Name: "/help", Description: "Show available commands"},
	{Name: "/new", Description: "Start a new chat"},
	{Name: "/open", Args: "<id|n>", Description: "Open a thread from history"},
	{Name: "/threads", Description: "List recent threads"},
	{Name: "/files", Description: "Show uploaded documents"},
	{Name: "/upload", Args: "<path...>", Description: "Upload documents"},
	{Name: "/cancel", Description: "Cancel the active request"},
	{Name: "/clear", Description: "Clear the screen"},
	{Name: "/example", Args: "<n>", Description: "Ask an example question"},
	{Name: "/quit", Description: "Exit docnexus"},
}

// ThreadID returns the thread on screen.
func (m ChatModel) ThreadID() string {
	return m.threadID
}

// Init loads the thread list and, when resuming, the thread's history.
func (m ChatModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, loadThreadsCmd(context.Background(), m.deps.Threads)}
	if m.deps.InitialThread != "" {
		cmds = append(cmds, loadThreadCmd(context.Background(), m.deps.Chat, m.threadID))
	}
	return tea.Batch(cmds...)
}

// Update handles all incoming messages.
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.detail.SetSize(m.width, m.height)
		return m, nil

	case tea.KeyMsg:
		if m.screen == screenFiles {
			var cmd tea.Cmd
			m.files, cmd = m.files.Update(msg)
			return m, cmd
		}
		return m.handleKey(msg)

	case components.InputSubmitMsg:
		return m.handleSubmit(msg.Value)

	case SnapshotMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		m.applySnapshot(msg.Snapshot)
		return m, nil

	case DoneMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		m.finishTurn(msg)
		return m, nil

	case ThreadCreatedMsg:
		if msg.Thread.ID == m.threadID && m.deps.OnThreadOpen != nil {
			m.deps.OnThreadOpen(m.threadID)
		}
		return m, nil

	case ThreadsMsg:
		if msg.Err != nil && len(msg.Items) == 0 {
			m.deps.Logger.Warn("load thread list", "error", msg.Err)
			m.statusBar.Extra = uxerror.Humanize(msg.Err).Title
		}
		if msg.Items != nil || msg.Err == nil {
			m.setThreads(msg.Items)
		}
		return m, nil

	case ThreadLoadedMsg:
		if msg.ThreadID != m.threadID {
			return m, nil
		}
		if msg.Err != nil {
			m.addError(msg.Err)
			return m, nil
		}
		loaded := make([]components.ChatMessage, len(msg.Messages))
		for i, dm := range msg.Messages {
			loaded[i] = components.FromDomain(dm)
		}
		m.chatView.SetMessages(loaded)
		return m, nil

	case ActivityMsg:
		m.activity.AddEvent(msg.Event)
		return m, nil

	case files.CloseMsg:
		m.screen = screenChat
		return m, nil

	case files.UploadDoneMsg, files.TaskDoneMsg:
		m.noteFilesOutcome(msg)
		var cmd tea.Cmd
		m.files, cmd = m.files.Update(msg)
		return m, cmd

	case files.FilesLoadedMsg, files.UploadProgressMsg, files.TaskUpdateMsg, files.ChunksLoadedMsg:
		var cmd tea.Cmd
		m.files, cmd = m.files.Update(msg)
		return m, cmd

	case QuitMsg:
		m.quitting = true
		m.files.Close()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshBreaker()
		cmds = append(cmds, cmd)
	}

	if m.screen == screenFiles {
		return m, tea.Batch(cmds...)
	}

	if !m.waiting {
		if _, isMouse := msg.(tea.MouseMsg); !isMouse {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.chatView, cmd = m.chatView.Update(msg)
	cmds = append(cmds, cmd)

	if m.sidebar.SidebarFocused() {
		if m.right == paneTools {
			m.toolPane, cmd = m.toolPane.Update(msg)
		} else {
			m.activity, cmd = m.activity.Update(msg)
		}
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *ChatModel) applySnapshot(s stream.Snapshot) {
	m.chatView.SetStreaming(components.ChatMessage{
		Role:      components.RoleBot,
		Content:   s.Content,
		Reasoning: s.Reasoning,
		ToolCalls: s.ToolCalls,
	})
	m.toolPane.SetCalls(s.ToolCalls)

	status := "Thinking..."
	for i := len(s.ToolCalls) - 1; i >= 0; i-- {
		if s.ToolCalls[i].Status == domain.ToolCalling {
			status = "Calling " + s.ToolCalls[i].Name + "..."
			break
		}
	}
	if status == "Thinking..." && s.Content != "" {
		status = "Answering..."
	}
	m.statusBar.Extra = theme.SymbolSpinner + " " + status
}

func (m *ChatModel) finishTurn(msg DoneMsg) {
	m.cancelFn = nil
	m.resetInput()
	m.refreshBreaker()

	switch {
	case msg.Err != nil:
		m.chatView.FinishStreaming(nil)
		if !errors.Is(msg.Err, context.Canceled) {
			m.addError(msg.Err)
		}
	case msg.Message == nil:
		m.chatView.FinishStreaming(nil)
	default:
		final := components.FromDomain(*msg.Message)
		m.chatView.FinishStreaming(&final)
		m.toolPane.SetCalls(msg.Message.ToolCalls)
	}
}

func (m *ChatModel) noteFilesOutcome(msg tea.Msg) {
	switch msg := msg.(type) {
	case files.UploadDoneMsg:
		if msg.Err == nil {
			m.addSystem(fmt.Sprintf("%s Uploaded %d file(s); processing started. See /files.", theme.SymbolSuccess, len(msg.Records)))
		} else {
			m.addError(msg.Err)
		}
	case files.TaskDoneMsg:
		if msg.Err == nil {
			m.addSystem(theme.SymbolSuccess + " Document processing complete. Your files are ready to query.")
		} else if !errors.Is(msg.Err, context.Canceled) {
			m.addError(msg.Err)
		}
	}
}

func (m *ChatModel) setThreads(items []domain.ThreadSummary) {
	m.threads = items
	n := len(items)
	if n > maxTabs {
		n = maxTabs
	}
	tabs := make([]components.Tab, n)
	for i := 0; i < n; i++ {
		tabs[i] = components.Tab{ID: items[i].ID, Label: items[i].Title}
	}
	m.tabBar.SetTabs(tabs, m.threadID)
}

func (m *ChatModel) refreshBreaker() {
	if m.deps.BreakerState == nil {
		return
	}
	if st := m.deps.BreakerState(); st != "" && st != "closed" {
		m.statusBar.Degraded = "API " + st
	} else {
		m.statusBar.Degraded = ""
	}
}

// View renders the entire chat UI.
func (m ChatModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if m.width == 0 {
		return "  Initializing..."
	}
	if m.detail.Visible {
		return m.detail.View()
	}
	if m.screen == screenFiles {
		return lipgloss.JoinVertical(lipgloss.Left, m.files.View(), m.statusBar.View())
	}

	chatContent := m.chatView.View()
	if m.showWelcome() {
		chatContent = lipgloss.NewStyle().Height(m.sidebar.Height()).Render(m.welcomeView())
	}

	mainContent := chatContent
	if m.sidebar.Open {
		var rightContent string
		if m.right == paneTools {
			rightContent = m.toolPane.View()
		} else {
			rightContent = m.activity.View()
		}
		mainContent = m.sidebar.Render(chatContent, rightContent)
	}

	inputView := m.input.View()
	if m.waiting {
		inputView = lipgloss.NewStyle().Faint(true).Render("> waiting for response... (Ctrl+C to cancel)") +
			"\n" + m.spinner.View() + " " + m.statusBar.Extra
	}

	parts := []string{m.tabBar.View(), mainContent}
	if sv := m.searchBar.View(); sv != "" {
		parts = append(parts, sv)
	}
	parts = append(parts, components.Divider(m.width), inputView, m.statusBar.View())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m ChatModel) showWelcome() bool {
	return len(m.chatView.Messages.Messages) == 0 && !m.waiting
}

func (m ChatModel) welcomeView() string {
	var sb strings.Builder
	sb.WriteString("\n" + theme.Title.Render("  Welcome to DocNexus") + "\n")
	sb.WriteString(theme.TextMuted.Render("  Ask a question about your documents, or pick an example:") + "\n\n")
	w := components.ContentWidth(m.sidebar.MainWidth()) - 4
	for _, q := range chatuc.ExampleQuestions() {
		card := theme.Card.Width(w).Render(fmt.Sprintf("%s  %s %s", theme.StatusKey.Render(strconv.Itoa(q.ID)), q.Icon, q.Question))
		sb.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(card) + "\n")
	}
	sb.WriteString("\n" + theme.Dim.Render("  Press 1-3 to ask, /upload <path> to add documents, /help for commands"))
	return sb.String()
}

// layout recalculates sizes for all sub-models.
func (m *ChatModel) layout() {
	tabBarH := 1
	inputH := 3
	statusH := 1
	dividerH := 1
	searchBarH := 0
	if m.searchBar.Mode != components.SearchInactive {
		searchBarH = 1
	}
	contentH := m.height - tabBarH - inputH - statusH - dividerH - searchBarH
	if contentH < 5 {
		contentH = 5
	}

	m.tabBar.SetWidth(m.width)
	m.statusBar.SetWidth(m.width)
	m.sidebar.SetSize(m.width, contentH)

	m.chatView.SetSize(m.sidebar.MainWidth(), contentH)
	m.input.SetWidth(m.width)
	m.files.SetSize(m.width, m.height-statusH)

	if m.sidebar.Open {
		m.toolPane.SetSize(m.sidebar.SideWidth(), contentH-1)
		m.activity.SetSize(m.sidebar.SideWidth(), contentH-1)
	}
}

// isMouseEscapeLeak detects mouse escape sequences that leaked through
// as key input instead of tea.MouseMsg: SGR (<65;38;21M), X11 ([M) and
// URXVT ([65;38;21M) forms seen during rapid trackpad scrolling.
func isMouseEscapeLeak(s string) bool {
	digits := func(body string) bool {
		for _, r := range body {
			if r != ';' && (r < '0' || r > '9') {
				return false
			}
		}
		return true
	}
	n := len(s)
	switch {
	case n >= 5 && s[0] == '<' && (s[n-1] == 'M' || s[n-1] == 'm'):
		return digits(s[1 : n-1])
	case n >= 2 && s[0] == '[' && (s[1] == 'M' || s[1] == 'm'):
		return true
	case n >= 5 && s[0] == '[' && s[n-1] == 'M':
		return digits(s[1 : n-1])
	}
	return false
}

// handleKey processes keyboard input.
func (m ChatModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if isMouseEscapeLeak(msg.String()) {
		return m, nil
	}

	if m.detail.Visible {
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}

	if m.searchBar.Mode == components.SearchInput {
		var cmd tea.Cmd
		m.searchBar, cmd = m.searchBar.Update(msg)
		switch m.searchBar.Mode {
		case components.SearchActive:
			m.searchBar.Search(m.chatView.RenderedLines())
			if line := m.searchBar.Current(); line >= 0 {
				m.chatView.Viewport.SetYOffset(line)
			}
		case components.SearchInactive:
			m.layout()
		}
		return m, cmd
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.waiting {
			m.cancelRequest("Request cancelled.")
			return m, nil
		}
		m.quitting = true
		m.files.Close()
		return m, tea.Quit

	case tea.KeyCtrlT:
		return m.togglePane(paneTools), nil

	case tea.KeyCtrlE:
		return m.togglePane(paneActivity), nil

	case tea.KeyTab:
		if m.sidebar.Open {
			m.sidebar.ToggleFocus()
			if m.sidebar.SidebarFocused() {
				m.statusBar.Hints = []components.KeyHint{
					{Key: "Tab", Desc: "Switch"},
					{Key: "j/k", Desc: "Scroll"},
					{Key: "Enter", Desc: "Full output"},
				}
			} else {
				m.statusBar.Hints = defaultHints()
			}
			return m, nil
		}

	case tea.KeyCtrlN, tea.KeyCtrlP:
		if len(m.tabBar.Tabs) == 0 {
			return m, nil
		}
		if msg.Type == tea.KeyCtrlN {
			m.tabBar.Next()
		} else {
			m.tabBar.Prev()
		}
		return m.openThread(m.tabBar.ActiveID())

	case tea.KeyCtrlL:
		return m.handleSlashCommand("/clear", nil)

	case tea.KeyEsc:
		if m.searchBar.Mode != components.SearchInactive {
			m.searchBar.Deactivate()
			m.layout()
			return m, nil
		}
		if !m.vimMode && !m.waiting {
			m.vimMode = true
			m.input.SetEnabled(false)
			m.statusBar.Hints = vimHints()
			return m, nil
		}

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		return m, cmd
	}

	// Welcome panel shortcuts.
	if !m.vimMode && m.showWelcome() && m.input.Value() == "" {
		if n, err := strconv.Atoi(msg.String()); err == nil {
			if q, ok := chatuc.ExampleQuestionAt(n); ok {
				return m.handleSubmit(q.Question)
			}
		}
	}

	if m.vimMode {
		return m.handleVimKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m ChatModel) togglePane(p rightPane) ChatModel {
	if m.sidebar.Open && m.right != p {
		m.right = p
		return m
	}
	m.right = p
	m.sidebar.Toggle()
	m.layout()
	return m
}

// handleVimKey: j/k scroll, / search, n/N navigate, i to exit, Enter to
// expand the latest tool output.
func (m ChatModel) handleVimKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.chatView.Viewport.LineDown(3)
	case "k", "up":
		m.chatView.Viewport.LineUp(3)
	case "/":
		m.searchBar.SetWidth(m.width)
		m.searchBar.Activate()
		m.layout()
	case "n":
		if m.searchBar.Mode == components.SearchActive {
			if line := m.searchBar.Step(1); line >= 0 {
				m.chatView.Viewport.SetYOffset(line)
			}
		}
	case "N":
		if m.searchBar.Mode == components.SearchActive {
			if line := m.searchBar.Step(-1); line >= 0 {
				m.chatView.Viewport.SetYOffset(line)
			}
		}
	case "enter":
		if tc, ok := m.toolPane.Call(m.toolPane.LastCompletedIdx()); ok {
			m.detail.SetSize(m.width, m.height)
			m.detail.OpenToolCall(tc)
		}
	case "i":
		if !m.waiting {
			m.vimMode = false
			m.input.SetEnabled(true)
			m.statusBar.Hints = defaultHints()
		}
	case "g":
		m.chatView.Viewport.GotoTop()
	case "G":
		m.chatView.Viewport.GotoBottom()
	}
	return m, nil
}

func vimHints() []components.KeyHint {
	return []components.KeyHint{
		{Key: "j/k", Desc: "Scroll"},
		{Key: "/", Desc: "Search"},
		{Key: "n/N", Desc: "Next/prev"},
		{Key: "Enter", Desc: "Tool output"},
		{Key: "i", Desc: "Input"},
	}
}

// handleSubmit processes user input submission.
func (m ChatModel) handleSubmit(value string) (tea.Model, tea.Cmd) {
	if cmd, args, ok := components.ParseSlashCommand(value); ok {
		return m.handleSlashCommand(cmd, args)
	}

	if m.cancelFn != nil {
		m.cancelFn()
	}

	m.chatView.AddMessage(components.ChatMessage{
		Role:      components.RoleUser,
		Content:   value,
		Timestamp: time.Now(),
	})
	m.toolPane.Clear()

	m.gen++
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelFn = cancel

	m.waiting = true
	m.vimMode = true
	m.input.SetEnabled(false)
	m.statusBar.Extra = theme.SymbolSpinner + " Thinking..."
	if m.deps.OnThreadOpen != nil {
		m.deps.OnThreadOpen(m.threadID)
	}

	return m, sendMessageCmd(ctx, m.deps.Chat, value, m.threadID, m.gen, m.deps.Emit)
}

// openThread displays threadID and loads its history. An in-flight turn for
// the previous thread is cancelled after the display changes, so the service
// drops it silently.
func (m ChatModel) openThread(threadID string) (tea.Model, tea.Cmd) {
	if threadID == "" {
		return m, nil
	}
	m.deps.Chat.Display(threadID)
	m.switchTo(threadID)
	if m.deps.OnThreadOpen != nil {
		m.deps.OnThreadOpen(threadID)
	}
	return m, loadThreadCmd(context.Background(), m.deps.Chat, threadID)
}

// switchTo cancels any in-flight turn and shows an empty threadID. The
// caller must have displayed threadID first.
func (m *ChatModel) switchTo(threadID string) {
	m.gen++
	if m.cancelFn != nil {
		m.cancelFn()
		m.cancelFn = nil
	}
	m.threadID = threadID
	m.chatView.SetMessages(nil)
	m.toolPane.Clear()
	m.tabBar.SelectID(threadID)
	m.statusBar.ThreadID = threadID
	m.resetInput()
}

func (m *ChatModel) resetInput() {
	m.waiting = false
	m.vimMode = false
	m.input.SetEnabled(true)
	m.statusBar.Extra = ""
	m.statusBar.Hints = defaultHints()
}

// handleSlashCommand processes a slash command.
func (m ChatModel) handleSlashCommand(cmd string, args []string) (tea.Model, tea.Cmd) {
	switch cmd {
	case "/help":
		m.addSystem(helpText)
		return m, nil

	case "/quit", "/exit":
		m.quitting = true
		m.files.Close()
		return m, tea.Quit

	case "/new":
		m.switchTo(m.deps.Chat.NewChat())
		if m.deps.OnThreadOpen != nil {
			m.deps.OnThreadOpen("")
		}
		return m, nil

	case "/open":
		if len(args) == 0 {
			m.addSystem("Usage: /open <thread-id> or /open <n> (see /threads)")
			return m, nil
		}
		id := args[0]
		if n, err := strconv.Atoi(id); err == nil && n >= 1 && n <= len(m.threads) {
			id = m.threads[n-1].ID
		}
		return m.openThread(id)

	case "/threads":
		m.addSystem(m.threadsText())
		return m, nil

	case "/files":
		m.screen = screenFiles
		var c tea.Cmd
		m.files, c = m.files.Refresh()
		return m, c

	case "/upload":
		if len(args) == 0 {
			m.addSystem("Usage: /upload <path> [path...]")
			return m, nil
		}
		var errs []error
		m.files, errs = m.files.Stage(args)
		for _, err := range errs {
			m.addError(err)
		}
		var c tea.Cmd
		m.files, c = m.files.StartUpload()
		if c != nil {
			m.screen = screenFiles
		}
		return m, c

	case "/cancel":
		if m.waiting {
			m.cancelRequest("Request cancelled.")
		} else {
			m.addSystem("No active request to cancel.")
		}
		return m, nil

	case "/clear":
		m.chatView.Clear()
		m.toolPane.Clear()
		return m, nil

	case "/example":
		n := 0
		if len(args) > 0 {
			n, _ = strconv.Atoi(args[0])
		}
		q, ok := chatuc.ExampleQuestionAt(n)
		if !ok {
			m.addSystem(fmt.Sprintf("Usage: /example <1-%d>", len(chatuc.ExampleQuestions())))
			return m, nil
		}
		return m.handleSubmit(q.Question)

	default:
		m.addSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
		return m, nil
	}
}

const helpText = `Available commands:
  /help            - Show this help
  /new             - Start a new chat
  /open <id|n>     - Open a thread (n from /threads)
  /threads         - List recent threads
  /files           - Show uploaded documents
  /upload <path..> - Upload documents
  /cancel          - Cancel active request
  /clear           - Clear the screen
  /example <n>     - Ask example question n
  /quit            - Exit docnexus

Keybindings:
  Enter      - Send message
  Alt+Enter  - New line
  Up/Down    - Recall earlier input
  Ctrl+T     - Toggle tool pane
  Ctrl+E     - Toggle activity pane
  Tab        - Switch pane focus
  Ctrl+N/P   - Next/prev thread
  Esc        - Scroll mode (j/k, / search)
  Ctrl+C     - Cancel/Quit`

func (m ChatModel) threadsText() string {
	if len(m.threads) == 0 {
		return "No threads yet."
	}
	var sb strings.Builder
	sb.WriteString("Recent threads:")
	for i, t := range m.threads {
		marker := " "
		if t.ID == m.threadID {
			marker = theme.SymbolArrowR
		}
		sb.WriteString(fmt.Sprintf("\n%s %2d. %s  %s", marker, i+1, t.Title, theme.TextMuted.Render(t.ID)))
	}
	return sb.String()
}

func (m *ChatModel) addSystem(text string) {
	m.chatView.AddMessage(components.ChatMessage{Role: components.RoleSystem, Content: text})
}

// addError renders err once as a friendly message.
func (m *ChatModel) addError(err error) {
	m.chatView.AddMessage(components.ChatMessage{
		Role:    components.RoleError,
		Content: uxerror.Humanize(err).Render(),
	})
}

// cancelRequest cancels the in-flight turn, bumps the generation counter so
// any stale messages are discarded, and resets the UI state.
func (m *ChatModel) cancelRequest(reason string) {
	if m.cancelFn != nil {
		m.cancelFn()
		m.cancelFn = nil
	}
	m.gen++
	m.chatView.FinishStreaming(nil)
	m.resetInput()
	m.addSystem(reason)
}

func defaultHints() []components.KeyHint {
	return []components.KeyHint{
		{Key: "Enter", Desc: "Send"},
		{Key: "Ctrl+T", Desc: "Tools"},
		{Key: "Ctrl+E", Desc: "Activity"},
		{Key: "/help", Desc: "Commands"},
		{Key: "Ctrl+C", Desc: "Quit"},
	}
}
