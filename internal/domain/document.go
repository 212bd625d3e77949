package domain

import (
	"encoding/json"
	"time"
)

// Stage is one step of the server-side ingestion pipeline.
type Stage string

const (
	StageUpload        Stage = "upload"
	StageQueued        Stage = "queued"
	StagePartitioning  Stage = "partitioning"
	StageChunking      Stage = "chunking"
	StageVectorization Stage = "vectorization"
	// StageViewChunks is not a pipeline step; it names the chunk browser.
	StageViewChunks Stage = "view_chunks"
)

// StageOrder lists pipeline stages in execution order.
var StageOrder = []Stage{
	StageUpload,
	StageQueued,
	StagePartitioning,
	StageChunking,
	StageVectorization,
}

// StageLabels are the display names of each stage.
var StageLabels = map[Stage]string{
	StageUpload:        "Upload to S3",
	StageQueued:        "Queued",
	StagePartitioning:  "Partitioning",
	StageChunking:      "Chunking",
	StageVectorization: "Vectorization & Storage",
	StageViewChunks:    "View Chunks",
}

// StageIndex returns the position of s in StageOrder, or -1.
func StageIndex(s Stage) int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// StageStatus is the display state of a stage for one file.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageProcessing StageStatus = "processing"
	StageCompleted  StageStatus = "completed"
)

// FileStatus is the server's coarse status of an uploaded file.
type FileStatus string

const (
	FileProcessing FileStatus = "processing"
	FileCompleted  FileStatus = "completed"
	FileFailed     FileStatus = "failed"
)

// StageStats holds per-stage counters keyed by stage name, e.g.
// {"partitioning": {"tables": 3}, "chunking": {"chunks_created": 40}}.
type StageStats map[string]map[string]json.RawMessage

// Stat returns a single counter rendered as text, or "" when absent.
func (s StageStats) Stat(stage Stage, key string) string {
	if s == nil {
		return ""
	}
	raw, ok := s[string(stage)][key]
	if !ok {
		return ""
	}
	return ContentText(raw)
}

// Has reports whether any counters were recorded for stage.
func (s StageStats) Has(stage Stage) bool {
	return len(s[string(stage)]) > 0
}

// StatKeys lists the counters shown for each stage, in display order.
var StatKeys = map[Stage][]string{
	StagePartitioning: {"text_sections", "tables", "images_total", "images_with_desc", "other", "page_count"},
	StageChunking:     {"atomic_elements", "chunks_created", "avg_chunk_size"},
}

// FileRecord is an uploaded document as known to the client.
type FileRecord struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Size       int64      `json:"size"`
	UploadedAt time.Time  `json:"uploaded_at"`
	Status     FileStatus `json:"status"`
	Stage      Stage      `json:"stage"`
	JobStats   StageStats `json:"job_stats,omitempty"`
	TaskID     string     `json:"task_id,omitempty"`
	// Existing is true for files listed from the server rather than just uploaded.
	Existing bool `json:"-"`
}

// ActiveTask reports whether the file has a processing task worth polling.
func (f FileRecord) ActiveTask() bool {
	return f.TaskID != "" && f.Status == FileProcessing
}

// Done reports whether the file finished processing.
func (f FileRecord) Done() bool {
	return f.Status == FileCompleted || f.Existing
}

// UploadedFile is one entry of the upload response.
type UploadedFile struct {
	ID       string     `json:"id"`
	Filename string     `json:"filename"`
	Status   FileStatus `json:"status"`
	Stage    Stage      `json:"stage"`
}

// UploadResult is the response to POST /files/upload/.
type UploadResult struct {
	Files  []UploadedFile `json:"files"`
	TaskID string         `json:"task_id"`
}

// TaskState is the state reported by the task status endpoint.
type TaskState string

const (
	TaskPending  TaskState = "PENDING"
	TaskProgress TaskState = "PROGRESS"
	TaskSuccess  TaskState = "SUCCESS"
	TaskFailure  TaskState = "FAILURE"
)

// Terminal reports whether polling should stop.
func (s TaskState) Terminal() bool {
	return s == TaskSuccess || s == TaskFailure
}

// TaskStatus is the response to GET /files/task/{id}.
type TaskStatus struct {
	State        TaskState             `json:"state"`
	CurrentStage Stage                 `json:"current_stage"`
	Status       string                `json:"status"`
	FilesStats   map[string]StageStats `json:"files_stats,omitempty"`
}

// FileMetadata is the response to GET /files/{name}/metadata.
type FileMetadata struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Status   FileStatus `json:"status"`
	Stage    Stage      `json:"stage"`
	JobStats StageStats `json:"job_stats,omitempty"`
}

// Chunk is one processed piece of a document.
type Chunk struct {
	Type    string `json:"type"`
	Page    *int   `json:"page,omitempty"`
	Chars   int    `json:"chars"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// UploadSource is a local file handed to the upload endpoint.
type UploadSource struct {
	Name string
	Path string
	Size int64
}

// TaskUpdatePayload is the payload for EventTaskUpdated and EventTaskFinished.
type TaskUpdatePayload struct {
	TaskID string     `json:"task_id"`
	Status TaskStatus `json:"status"`
}

// UploadProgressPayload is the payload for EventUploadProgress.
type UploadProgressPayload struct {
	Percent int `json:"percent"`
	Files   int `json:"files"`
}
