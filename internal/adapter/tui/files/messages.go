package files

import (
	"docnexus/internal/domain"
	"docnexus/internal/usecase/ingest"
)

// FilesLoadedMsg carries the server's file list.
type FilesLoadedMsg struct {
	Files []domain.FileRecord
	Err   error
}

// UploadProgressMsg reports the shared upload percentage.
type UploadProgressMsg struct {
	Percent int
}

// UploadDoneMsg ends an upload request.
type UploadDoneMsg struct {
	Records []domain.FileRecord
	Err     error
}

// TaskUpdateMsg carries one polled task status.
type TaskUpdateMsg struct {
	TaskID string
	Status domain.TaskStatus
}

// TaskDoneMsg ends a task watch.
type TaskDoneMsg struct {
	TaskID string
	Result *ingest.WatchResult
	Err    error
}

// ChunksLoadedMsg carries the chunks of one file.
type ChunksLoadedMsg struct {
	FileID string
	Chunks []domain.Chunk
	Err    error
}

// CloseMsg asks the parent to leave the files view.
type CloseMsg struct{}
