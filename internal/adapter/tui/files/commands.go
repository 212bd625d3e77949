package files

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"docnexus/internal/domain"
	"docnexus/internal/usecase/ingest"
)

func loadFilesCmd(ctx context.Context, svc FileService) tea.Cmd {
	return func() tea.Msg {
		files, err := svc.ListFiles(ctx)
		return FilesLoadedMsg{Files: files, Err: err}
	}
}

// uploadCmd runs the upload in the background. Progress is pushed through
// emit because a Cmd can only return one message.
func uploadCmd(ctx context.Context, svc FileService, staged *ingest.Staging, emit func(tea.Msg)) tea.Cmd {
	return func() tea.Msg {
		records, err := svc.Upload(ctx, staged, func(pct int) {
			if emit != nil {
				emit(UploadProgressMsg{Percent: pct})
			}
		})
		return UploadDoneMsg{Records: records, Err: err}
	}
}

func watchCmd(ctx context.Context, w TaskWatcher, taskID string, names []string, emit func(tea.Msg)) tea.Cmd {
	return func() tea.Msg {
		res, err := w.Watch(ctx, taskID, names, func(st domain.TaskStatus) {
			if emit != nil {
				emit(TaskUpdateMsg{TaskID: taskID, Status: st})
			}
		})
		return TaskDoneMsg{TaskID: taskID, Result: res, Err: err}
	}
}

func chunksCmd(ctx context.Context, svc FileService, fileID string) tea.Cmd {
	return func() tea.Msg {
		chunks, err := svc.Chunks(ctx, fileID)
		return ChunksLoadedMsg{FileID: fileID, Chunks: chunks, Err: err}
	}
}
