package api

import (
	"context"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"time"

	"docnexus/internal/domain"
)

// uploadField is the multipart field every file is sent under.
const uploadField = "files"

// Upload sends files in one multipart request. The body is streamed from
// disk; progress, if set, receives round(sent*100/total) whenever it
// changes. No request deadline applies.
func (c *Client) Upload(ctx context.Context, files []domain.UploadSource, progress func(percent int)) (*domain.UploadResult, error) {
	if len(files) == 0 {
		return nil, domain.NewDomainError("files.upload", domain.ErrNoFiles, "")
	}
	layout, err := planMultipart(files)
	if err != nil {
		return nil, domain.NewDomainError("files.upload", domain.ErrInvalidInput, err.Error())
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(layout.write(pw, files))
	}()
	defer pr.Close()

	var body io.Reader = pr
	if progress != nil {
		body = &progressReader{r: pr, total: layout.total, last: -1, report: progress}
	}

	resp, err := c.send(ctx, "files.upload", request{
		method:        http.MethodPost,
		path:          "files/upload/",
		body:          body,
		contentType:   layout.contentType(),
		contentLength: layout.total,
	})
	if err != nil {
		return nil, err
	}

	var out domain.UploadResult
	if err := decodeBody(ctx, "files.upload", resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type fileWire struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Size       int64             `json:"size"`
	UploadedAt float64           `json:"uploaded_at"` // unix seconds
	Status     domain.FileStatus `json:"status"`
	Stage      domain.Stage      `json:"stage"`
	JobStats   domain.StageStats `json:"job_stats"`
}

func (w fileWire) record() domain.FileRecord {
	sec, frac := math.Modf(w.UploadedAt)
	var at time.Time
	if w.UploadedAt > 0 {
		at = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
	return domain.FileRecord{
		ID:         w.ID,
		Name:       w.Name,
		Size:       w.Size,
		UploadedAt: at,
		Status:     w.Status,
		Stage:      w.Stage,
		JobStats:   w.JobStats,
	}
}

// ListFiles returns the user's uploaded files.
func (c *Client) ListFiles(ctx context.Context) ([]domain.FileRecord, error) {
	var out struct {
		Files []fileWire `json:"files"`
	}
	if err := c.getJSON(ctx, "files.list", "files/", &out); err != nil {
		return nil, err
	}
	records := make([]domain.FileRecord, len(out.Files))
	for i, f := range out.Files {
		records[i] = f.record()
	}
	return records, nil
}

// Chunks returns the processed chunks of a file.
func (c *Client) Chunks(ctx context.Context, fileID string) ([]domain.Chunk, error) {
	var out struct {
		Chunks []domain.Chunk `json:"chunks"`
	}
	if err := c.getJSON(ctx, "files.chunks", "files/"+url.PathEscape(fileID)+"/chunks", &out); err != nil {
		return nil, err
	}
	return out.Chunks, nil
}

// Metadata returns the stored processing record of a file by name.
func (c *Client) Metadata(ctx context.Context, filename string) (*domain.FileMetadata, error) {
	var out domain.FileMetadata
	if err := c.getJSON(ctx, "files.metadata", "files/"+url.PathEscape(filename)+"/metadata", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TaskStatus returns the state of an ingestion task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*domain.TaskStatus, error) {
	var out domain.TaskStatus
	if err := c.getJSON(ctx, "files.task", "files/task/"+url.PathEscape(taskID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// multipartLayout fixes the boundary and file sizes so the body length is
// known before streaming starts.
type multipartLayout struct {
	boundary string
	sizes    []int64
	total    int64
}

func (l multipartLayout) contentType() string {
	return "multipart/form-data; boundary=" + l.boundary
}

type countingWriter struct{ n int64 }

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

func planMultipart(files []domain.UploadSource) (multipartLayout, error) {
	var cw countingWriter
	mw := multipart.NewWriter(&cw)
	layout := multipartLayout{boundary: mw.Boundary(), sizes: make([]int64, len(files))}

	var content int64
	for i, f := range files {
		info, err := os.Stat(f.Path)
		if err != nil {
			return multipartLayout{}, err
		}
		if info.IsDir() {
			return multipartLayout{}, fmt.Errorf("%s is a directory", f.Path)
		}
		if _, err := mw.CreateFormFile(uploadField, f.Name); err != nil {
			return multipartLayout{}, err
		}
		layout.sizes[i] = info.Size()
		content += info.Size()
	}
	if err := mw.Close(); err != nil {
		return multipartLayout{}, err
	}
	layout.total = cw.n + content
	return layout, nil
}

func (l multipartLayout) write(w io.Writer, files []domain.UploadSource) error {
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(l.boundary); err != nil {
		return err
	}
	for i, f := range files {
		part, err := mw.CreateFormFile(uploadField, f.Name)
		if err != nil {
			return err
		}
		if err := copyFile(part, f.Path, l.sizes[i]); err != nil {
			return err
		}
	}
	return mw.Close()
}

func copyFile(dst io.Writer, path string, size int64) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()
	n, err := io.Copy(dst, io.LimitReader(fh, size))
	if err != nil {
		return err
	}
	if n != size {
		return fmt.Errorf("%s changed size during upload", path)
	}
	return nil
}

// progressReader reports the share of the body consumed by the transport.
type progressReader struct {
	r      io.Reader
	total  int64
	sent   int64
	last   int
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		p.sent += int64(n)
		pct := int(math.Round(float64(p.sent) * 100 / float64(p.total)))
		if pct != p.last {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}
