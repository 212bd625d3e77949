package ingest

import (
	"context"
	"log/slog"
	"time"

	"docnexus/internal/domain"
)

// Service uploads staged files and reads back ingestion results.
type Service struct {
	api    domain.FileAPI
	bus    domain.EventBus
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates an ingest service. bus may be nil.
func NewService(api domain.FileAPI, bus domain.EventBus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, bus: bus, logger: logger.With("component", "ingest"), now: time.Now}
}

// Upload sends every staged file in one request. progress receives a single
// percentage shared by all files and may be nil. On success the staging area
// is cleared and one record per accepted file is returned, each carrying the
// task id to poll.
func (s *Service) Upload(ctx context.Context, staged *Staging, progress func(percent int)) ([]domain.FileRecord, error) {
	sources := staged.sources()
	if len(sources) == 0 {
		return nil, domain.NewDomainError("ingest.upload", domain.ErrNoFiles, "")
	}

	last := -1
	report := func(pct int) {
		if pct == last {
			return
		}
		last = pct
		if progress != nil {
			progress(pct)
		}
		s.publish(ctx, domain.EventUploadProgress, domain.UploadProgressPayload{Percent: pct, Files: len(sources)})
	}

	s.logger.Info("uploading files", "count", len(sources))
	res, err := s.api.Upload(ctx, sources, report)
	if err != nil {
		s.logger.Warn("upload failed", "error", err)
		return nil, domain.WrapOp("ingest.upload", err)
	}

	uploadedAt := s.now()
	records := make([]domain.FileRecord, 0, len(res.Files))
	for _, f := range res.Files {
		records = append(records, domain.FileRecord{
			ID:         f.ID,
			Name:       f.Filename,
			Size:       staged.SizeOf(f.Filename),
			UploadedAt: uploadedAt,
			Status:     f.Status,
			Stage:      f.Stage,
			TaskID:     res.TaskID,
		})
	}
	staged.Clear()
	s.logger.Info("upload accepted", "task_id", res.TaskID, "files", len(records))
	return records, nil
}

// ListFiles returns the user's previously uploaded files.
func (s *Service) ListFiles(ctx context.Context) ([]domain.FileRecord, error) {
	files, err := s.api.ListFiles(ctx)
	if err != nil {
		return nil, domain.WrapOp("ingest.list", err)
	}
	for i := range files {
		files[i].Existing = true
	}
	return files, nil
}

// Chunks returns the processed chunks of a file.
func (s *Service) Chunks(ctx context.Context, fileID string) ([]domain.Chunk, error) {
	chunks, err := s.api.Chunks(ctx, fileID)
	if err != nil {
		return nil, domain.WrapOp("ingest.chunks", err)
	}
	return chunks, nil
}

// Metadata returns the stored processing record of a file by name.
func (s *Service) Metadata(ctx context.Context, name string) (*domain.FileMetadata, error) {
	meta, err := s.api.Metadata(ctx, name)
	if err != nil {
		return nil, domain.WrapOp("ingest.metadata", err)
	}
	return meta, nil
}

func (s *Service) publish(ctx context.Context, t domain.EventType, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, domain.NewEvent(t, "", payload))
}
