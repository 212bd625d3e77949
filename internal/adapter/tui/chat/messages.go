// Package chat implements the Bubble Tea chat screen of the DocNexus TUI.
package chat

import (
	"docnexus/internal/domain"
	"docnexus/internal/usecase/stream"
)

// SnapshotMsg carries the projected state of an in-flight answer.
// Gen identifies the request generation so stale snapshots can be discarded.
type SnapshotMsg struct {
	Gen      uint64
	Snapshot stream.Snapshot
}

// DoneMsg signals that a send finished. Message is nil when the turn failed
// or was cut off because another thread was opened.
type DoneMsg struct {
	Gen      uint64
	ThreadID string
	Message  *domain.Message
	Err      error
}

// ThreadCreatedMsg announces a thread that received its first answer.
type ThreadCreatedMsg struct {
	Thread domain.ThreadSummary
}

// ThreadsMsg carries the current thread list.
type ThreadsMsg struct {
	Items []domain.ThreadSummary
	Err   error
}

// ThreadLoadedMsg carries the history of an opened thread.
type ThreadLoadedMsg struct {
	ThreadID string
	Messages []domain.Message
	Err      error
}

// ActivityMsg forwards a bus event to the activity pane.
type ActivityMsg struct {
	Event domain.Event
}

// QuitMsg signals the program to exit.
type QuitMsg struct{}
