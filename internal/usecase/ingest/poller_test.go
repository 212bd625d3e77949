package ingest_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"docnexus/internal/domain"
	"docnexus/internal/usecase/eventbus"
	"docnexus/internal/usecase/ingest"
)

// scriptedFiles answers TaskStatus from a fixed script; the last entry
// repeats once the script runs out.
type scriptedFiles struct {
	mu       sync.Mutex
	script   []statusOrErr
	polls    int
	meta     map[string]*domain.FileMetadata
	metaErr  map[string]error
	metaSeen []string
}

type statusOrErr struct {
	status *domain.TaskStatus
	err    error
}

func (f *scriptedFiles) Upload(context.Context, []domain.UploadSource, func(int)) (*domain.UploadResult, error) {
	return nil, errors.New("not used")
}

func (f *scriptedFiles) ListFiles(context.Context) ([]domain.FileRecord, error) { return nil, nil }

func (f *scriptedFiles) Chunks(context.Context, string) ([]domain.Chunk, error) { return nil, nil }

func (f *scriptedFiles) Metadata(_ context.Context, name string) (*domain.FileMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metaSeen = append(f.metaSeen, name)
	if err := f.metaErr[name]; err != nil {
		return nil, err
	}
	return f.meta[name], nil
}

func (f *scriptedFiles) TaskStatus(context.Context, string) (*domain.TaskStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.polls
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	f.polls++
	step := f.script[i]
	if step.err != nil {
		return nil, step.err
	}
	s := *step.status
	return &s, nil
}

func (f *scriptedFiles) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func progress(stage domain.Stage) statusOrErr {
	return statusOrErr{status: &domain.TaskStatus{State: domain.TaskProgress, CurrentStage: stage}}
}

var _ = Describe("Poller", func() {
	var (
		api    *scriptedFiles
		bus    *eventbus.Bus
		poller *ingest.Poller
		events []domain.Event
		evMu   sync.Mutex
	)

	BeforeEach(func() {
		api = &scriptedFiles{
			meta: map[string]*domain.FileMetadata{
				"report.pdf": {Name: "report.pdf", Status: domain.FileCompleted},
			},
		}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		bus = eventbus.New(logger)
		events = nil
		bus.SubscribeAll(func(_ context.Context, e domain.Event) {
			evMu.Lock()
			events = append(events, e)
			evMu.Unlock()
		})
		poller = ingest.NewPoller(api, bus, ingest.PollOptions{Interval: 5 * time.Millisecond}, logger)
	})

	countEvents := func(t domain.EventType) int {
		bus.Close()
		evMu.Lock()
		defer evMu.Unlock()
		n := 0
		for _, e := range events {
			if e.Type == t {
				n++
			}
		}
		return n
	}

	Context("when the task succeeds", func() {
		BeforeEach(func() {
			api.script = []statusOrErr{
				progress(domain.StageQueued),
				progress(domain.StagePartitioning),
				{status: &domain.TaskStatus{State: domain.TaskSuccess, CurrentStage: domain.StageVectorization}},
			}
		})

		It("reports every status and fetches metadata", func() {
			var seen []domain.Stage
			res, err := poller.Watch(context.Background(), "task-1", []string{"report.pdf"}, func(s domain.TaskStatus) {
				seen = append(seen, s.CurrentStage)
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status.State).To(Equal(domain.TaskSuccess))
			Expect(seen).To(Equal([]domain.Stage{domain.StageQueued, domain.StagePartitioning, domain.StageVectorization}))
			Expect(res.Metadata).To(HaveKey("report.pdf"))
			Expect(api.pollCount()).To(Equal(3))
		})

		It("publishes task.updated per poll and one task.finished", func() {
			_, err := poller.Watch(context.Background(), "task-1", nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(countEvents(domain.EventTaskUpdated)).To(Equal(3))
			Expect(countEvents(domain.EventTaskFinished)).To(Equal(1))
		})

		It("skips files whose metadata cannot be fetched", func() {
			api.metaErr = map[string]error{"missing.pdf": domain.ErrNotFound}
			res, err := poller.Watch(context.Background(), "task-1", []string{"report.pdf", "missing.pdf"}, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Metadata).To(HaveLen(1))
			Expect(api.metaSeen).To(ConsistOf("report.pdf", "missing.pdf"))
		})
	})

	Context("when the task fails", func() {
		BeforeEach(func() {
			api.script = []statusOrErr{
				progress(domain.StageChunking),
				{status: &domain.TaskStatus{State: domain.TaskFailure, Status: "unsupported file type"}},
			}
		})

		It("returns the server status as a task failure", func() {
			res, err := poller.Watch(context.Background(), "task-2", []string{"report.pdf"}, nil)

			Expect(err).To(MatchError(domain.ErrTaskFailed))
			Expect(err.Error()).To(ContainSubstring("unsupported file type"))
			Expect(res).NotTo(BeNil())
			Expect(res.Status.State).To(Equal(domain.TaskFailure))
			Expect(api.metaSeen).To(BeEmpty())
		})
	})

	Context("when a poll errors", func() {
		BeforeEach(func() {
			api.script = []statusOrErr{
				progress(domain.StageQueued),
				{err: domain.ErrServerFailure},
				progress(domain.StageChunking),
			}
		})

		It("stops without retrying", func() {
			_, err := poller.Watch(context.Background(), "task-3", nil, nil)

			Expect(err).To(MatchError(domain.ErrServerFailure))
			Expect(api.pollCount()).To(Equal(2))
		})
	})

	Context("when the context is cancelled", func() {
		BeforeEach(func() {
			api.script = []statusOrErr{progress(domain.StageQueued)}
		})

		It("returns the context error", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() {
				_, err := poller.Watch(ctx, "task-4", nil, nil)
				done <- err
			}()

			Eventually(api.pollCount).Should(BeNumerically(">=", 1))
			cancel()
			Eventually(done).Should(Receive(MatchError(context.Canceled)))
		})
	})

	It("waits one interval before the first poll", func() {
		api.script = []statusOrErr{{status: &domain.TaskStatus{State: domain.TaskSuccess}}}
		slow := ingest.NewPoller(api, nil, ingest.PollOptions{Interval: 50 * time.Millisecond}, nil)

		start := time.Now()
		_, err := slow.Watch(context.Background(), "task-5", nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically(">=", 40*time.Millisecond))
	})
})
