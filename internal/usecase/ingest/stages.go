// Package ingest stages local documents, uploads them, and follows the
// server-side ingestion pipeline until each file is indexed.
package ingest

import (
	"math"
	"strconv"
	"strings"

	"docnexus/internal/domain"
)

// StageStatusFor derives the display state of one pipeline stage for a file.
// task is the latest polled status and may be nil.
//
// Stages that are not part of the pipeline (such as the chunk browser) sort
// before every known stage, so they read as completed once a task reports
// any stage.
func StageStatusFor(stage domain.Stage, file domain.FileRecord, task *domain.TaskStatus) domain.StageStatus {
	if file.Done() {
		return domain.StageCompleted
	}
	if task == nil {
		return domain.StagePending
	}
	if task.State == domain.TaskSuccess {
		return domain.StageCompleted
	}
	current := domain.StageIndex(task.CurrentStage)
	target := domain.StageIndex(stage)
	switch {
	case target < current:
		return domain.StageCompleted
	case target == current:
		return domain.StageProcessing
	default:
		return domain.StagePending
	}
}

// StageStatsFor picks the counters to show for a file. While the file has an
// active task the task's per-file stats are used; afterwards the stored job
// stats from metadata. The result is never nil.
func StageStatsFor(file domain.FileRecord, task *domain.TaskStatus, meta *domain.FileMetadata) domain.StageStats {
	if file.ActiveTask() && task != nil && task.FilesStats != nil {
		if s := task.FilesStats[file.Name]; s != nil {
			return s
		}
		return domain.StageStats{}
	}
	if meta != nil && meta.JobStats != nil {
		return meta.JobStats
	}
	if file.JobStats != nil {
		return file.JobStats
	}
	return domain.StageStats{}
}

// FilterChunks returns the chunks of the given type whose content contains
// query, case-insensitively. kind "all" or "" disables the type filter; an
// empty query matches everything.
func FilterChunks(chunks []domain.Chunk, kind, query string) []domain.Chunk {
	q := strings.ToLower(query)
	var out []domain.Chunk
	for _, c := range chunks {
		if kind != "" && kind != "all" && c.Type != kind {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.Content), q) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ChunkTypes lists the distinct chunk types in first-seen order.
func ChunkTypes(chunks []domain.Chunk) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range chunks {
		if c.Type == "" || seen[c.Type] {
			continue
		}
		seen[c.Type] = true
		out = append(out, c.Type)
	}
	return out
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders a byte count with base-1024 units, rounded to two
// decimals without trailing zeros: 1536 -> "1.5 KB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	v := float64(bytes)
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}
