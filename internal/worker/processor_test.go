package worker

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/brieflyhq/briefly-back/internal/ai"
	"github.com/brieflyhq/briefly-back/internal/domain"
	"github.com/brieflyhq/briefly-back/internal/extract"
	"github.com/brieflyhq/briefly-back/internal/notify"
	"github.com/brieflyhq/briefly-back/internal/repository"
	"github.com/brieflyhq/briefly-back/internal/summarizer"
)

type stubStorage struct {
	objects map[string]string
}

func (s *stubStorage) Put(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.objects[key] = string(data)
	return nil
}

func (s *stubStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("missing object")
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func (s *stubStorage) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Transcribe(context.Context, string, io.Reader) (string, error) {
	return s.text, s.err
}

type stubGenerator struct {
	response string
	err      error
}

func (s *stubGenerator) Generate(context.Context, ai.GenerateRequest) (ai.GenerateResult, error) {
	if s.err != nil {
		return ai.GenerateResult{}, s.err
	}
	return ai.GenerateResult{Text: s.response}, nil
}

func (s *stubGenerator) Available() bool { return true }

type fixture struct {
	processor *Processor
	jobs      *repository.MemorySummaryJobsRepository
	notifier  *notify.LocalNotifier
	message   domain.QueueMessage
}

func newFixture(t *testing.T, fileType string, generator ai.TextGenerator, transcriber ai.Transcriber) *fixture {
	t.Helper()

	jobs := repository.NewMemorySummaryJobsRepository()
	store := &stubStorage{objects: map[string]string{"user-1/1-talk.mp3": "audio-bytes"}}
	notifier := notify.NewLocalNotifier()

	job := &domain.SummaryJob{
		ID:        "job-1",
		OwnerID:   "user-1",
		FileName:  "talk.mp3",
		FileType:  fileType,
		FilePath:  "user-1/1-talk.mp3",
		Status:    domain.StatusProcessing,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := jobs.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	processor := NewProcessor(
		nil,
		jobs,
		store,
		extract.NewExtractor(transcriber),
		summarizer.NewSummarizer(generator, summarizer.Config{Model: "gpt-4o"}, nil),
		notifier,
		nil,
	)

	return &fixture{
		processor: processor,
		jobs:      jobs,
		notifier:  notifier,
		message: domain.QueueMessage{
			JobID:    job.ID,
			OwnerID:  job.OwnerID,
			FileType: job.FileType,
			FilePath: job.FilePath,
		},
	}
}

func drainStatuses(subscription notify.Subscription) []domain.Status {
	var statuses []domain.Status
	for {
		select {
		case job := <-subscription.Updates():
			statuses = append(statuses, job.Status)
		default:
			return statuses
		}
	}
}

func TestProcessMessageCompletesJob(t *testing.T) {
	generator := &stubGenerator{response: `{"summary":"A talk about roadmaps","key_points":["one"],"action_items":["follow up"]}`}
	f := newFixture(t, "audio/mpeg", generator, &stubTranscriber{text: "spoken content"})

	subscription, err := f.notifier.Subscribe(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer subscription.Close()

	if err := f.processor.processMessage(context.Background(), f.message); err != nil {
		t.Fatalf("process: %v", err)
	}

	job, err := f.jobs.GetJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", job.Status, job.StatusDetail)
	}
	if job.Summary != "A talk about roadmaps" {
		t.Fatalf("unexpected summary %q", job.Summary)
	}

	statuses := drainStatuses(subscription)
	want := []domain.Status{domain.StatusExtractingText, domain.StatusSummarizing, domain.StatusCompleted}
	if len(statuses) != len(want) {
		t.Fatalf("expected %d updates, got %v", len(want), statuses)
	}
	for i, status := range want {
		if statuses[i] != status {
			t.Fatalf("update %d: expected %s, got %s", i, status, statuses[i])
		}
	}
}

func TestProcessMessageDuplicateDeliveryIsNoOp(t *testing.T) {
	generator := &stubGenerator{response: `{"summary":"s","key_points":[],"action_items":[]}`}
	f := newFixture(t, "audio/mpeg", generator, &stubTranscriber{text: "spoken content"})

	if err := f.processor.processMessage(context.Background(), f.message); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	before, _ := f.jobs.GetJob(context.Background(), "job-1")

	if err := f.processor.processMessage(context.Background(), f.message); err != nil {
		t.Fatalf("duplicate delivery must be acknowledged cleanly, got %v", err)
	}
	after, _ := f.jobs.GetJob(context.Background(), "job-1")
	if after.Status != before.Status || after.Summary != before.Summary {
		t.Fatalf("duplicate delivery mutated the record")
	}
}

func TestProcessMessageExtractionFailureMarksFailed(t *testing.T) {
	generator := &stubGenerator{response: `{"summary":"s","key_points":[],"action_items":[]}`}
	f := newFixture(t, "application/zip", generator, nil)

	if err := f.processor.processMessage(context.Background(), f.message); err != nil {
		t.Fatalf("handler must not error on a failed job: %v", err)
	}

	job, _ := f.jobs.GetJob(context.Background(), "job-1")
	if job.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if !strings.Contains(job.StatusDetail, "extraction") {
		t.Fatalf("detail should mention extraction, got %q", job.StatusDetail)
	}
}

func TestProcessMessageEmptyTranscriptMarksFailed(t *testing.T) {
	generator := &stubGenerator{response: `{"summary":"s","key_points":[],"action_items":[]}`}
	f := newFixture(t, "audio/mpeg", generator, &stubTranscriber{text: "   "})

	if err := f.processor.processMessage(context.Background(), f.message); err != nil {
		t.Fatalf("process: %v", err)
	}
	job, _ := f.jobs.GetJob(context.Background(), "job-1")
	if job.Status != domain.StatusFailed {
		t.Fatalf("expected failed for empty content, got %s", job.Status)
	}
}

func TestProcessMessageSummarizerErrorMarksFailed(t *testing.T) {
	generator := &stubGenerator{err: errors.New("model unavailable")}
	f := newFixture(t, "audio/mpeg", generator, &stubTranscriber{text: "spoken content"})

	subscription, _ := f.notifier.Subscribe(context.Background(), "job-1")
	defer subscription.Close()

	if err := f.processor.processMessage(context.Background(), f.message); err != nil {
		t.Fatalf("process: %v", err)
	}

	job, _ := f.jobs.GetJob(context.Background(), "job-1")
	if job.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if !strings.Contains(job.StatusDetail, "summarization") {
		t.Fatalf("detail should mention summarization, got %q", job.StatusDetail)
	}

	statuses := drainStatuses(subscription)
	if len(statuses) == 0 || statuses[len(statuses)-1] != domain.StatusFailed {
		t.Fatalf("expected a final failed update, got %v", statuses)
	}
}
