package ingest

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"docnexus/internal/domain"
)

// StagedFile is a local file waiting to be uploaded.
type StagedFile struct {
	ID      string
	Name    string
	Path    string
	Size    int64
	AddedAt time.Time
}

// Staging holds files selected for the next upload. It is safe for
// concurrent use.
type Staging struct {
	mu       sync.Mutex
	files    []StagedFile
	maxBytes int64
	entropy  *ulid.MonotonicEntropy
}

// NewStaging creates an empty staging area. maxBytes <= 0 disables the size
// limit.
func NewStaging(maxBytes int64) *Staging {
	return &Staging{
		maxBytes: maxBytes,
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// Add stats path and stages it under a fresh id.
func (s *Staging) Add(path string) (StagedFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return StagedFile{}, domain.NewDomainError("ingest.stage", domain.ErrInvalidInput, err.Error())
	}
	info, err := os.Stat(abs)
	if err != nil {
		return StagedFile{}, domain.NewDomainError("ingest.stage", domain.ErrNotFound, err.Error())
	}
	if info.IsDir() {
		return StagedFile{}, domain.NewDomainError("ingest.stage", domain.ErrInvalidInput,
			fmt.Sprintf("%s is a directory", path))
	}
	if s.maxBytes > 0 && info.Size() > s.maxBytes {
		return StagedFile{}, domain.NewDomainError("ingest.stage", domain.ErrPayloadTooLarge,
			fmt.Sprintf("%s is %s, limit is %s", info.Name(), FormatFileSize(info.Size()), FormatFileSize(s.maxBytes)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	f := StagedFile{
		ID:      ulid.MustNew(ulid.Timestamp(now), s.entropy).String(),
		Name:    info.Name(),
		Path:    abs,
		Size:    info.Size(),
		AddedAt: now,
	}
	s.files = append(s.files, f)
	return f, nil
}

// Remove unstages the file with the given id and reports whether it was found.
func (s *Staging) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.files {
		if f.ID == id {
			s.files = append(s.files[:i:i], s.files[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the staged files in the order they were added.
func (s *Staging) List() []StagedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StagedFile, len(s.files))
	copy(out, s.files)
	return out
}

// Len returns the number of staged files.
func (s *Staging) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Clear unstages everything.
func (s *Staging) Clear() {
	s.mu.Lock()
	s.files = nil
	s.mu.Unlock()
}

// SizeOf returns the size of the first staged file named name, or 0.
func (s *Staging) SizeOf(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f.Name == name {
			return f.Size
		}
	}
	return 0
}

func (s *Staging) sources() []domain.UploadSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UploadSource, len(s.files))
	for i, f := range s.files {
		out[i] = domain.UploadSource{Name: f.Name, Path: f.Path, Size: f.Size}
	}
	return out
}
