package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/brieflyhq/briefly-back/internal/domain"
	"github.com/brieflyhq/briefly-back/internal/extract"
	"github.com/brieflyhq/briefly-back/internal/notify"
	"github.com/brieflyhq/briefly-back/internal/queue"
	"github.com/brieflyhq/briefly-back/internal/repository"
	"github.com/brieflyhq/briefly-back/internal/storage"
	"github.com/brieflyhq/briefly-back/internal/summarizer"
)

// Processor consumes job triggers and runs the extraction pipeline:
// claim, extract, summarize, finish. Every persisted transition is also
// published so observers see progress without polling.
type Processor struct {
	consumer   queue.Consumer
	jobs       repository.SummaryJobsRepository
	store      storage.ObjectStorage
	extractor  *extract.Extractor
	summarizer *summarizer.Summarizer
	notifier   notify.Notifier
	logger     *log.Logger
}

func NewProcessor(
	consumer queue.Consumer,
	jobs repository.SummaryJobsRepository,
	store storage.ObjectStorage,
	extractor *extract.Extractor,
	summarizer *summarizer.Summarizer,
	notifier notify.Notifier,
	logger *log.Logger,
) *Processor {
	if logger == nil {
		logger = log.Default()
	}
	return &Processor{
		consumer:   consumer,
		jobs:       jobs,
		store:      store,
		extractor:  extractor,
		summarizer: summarizer,
		notifier:   notifier,
		logger:     logger,
	}
}

func (p *Processor) Start(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := p.consumer.Consume(ctx, p.processMessage)
		if err == nil || ctx.Err() != nil {
			return
		}
		p.logger.Printf("worker consume loop error: %v", err)

		timer := time.NewTimer(2 * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (p *Processor) processMessage(ctx context.Context, message domain.QueueMessage) error {
	// The claim transition doubles as the mutual-exclusion lock: a
	// second delivery of the same message finds the job past processing
	// and stops here without touching anything.
	job, err := p.jobs.AdvanceStatus(ctx, message.JobID, domain.StatusProcessing, domain.StatusExtractingText)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			p.logger.Printf("job %s already claimed, skipping", message.JobID)
			return nil
		}
		return fmt.Errorf("claim job %s: %w", message.JobID, err)
	}
	p.publish(ctx, job)

	text, err := p.extractText(ctx, job)
	if err != nil {
		p.fail(ctx, job.ID, fmt.Sprintf("text extraction failed: %v", err))
		return nil
	}

	job, err = p.jobs.AdvanceStatus(ctx, job.ID, domain.StatusExtractingText, domain.StatusSummarizing)
	if err != nil {
		return fmt.Errorf("advance job %s to summarizing: %w", job.ID, err)
	}
	p.publish(ctx, job)

	result, err := p.summarizer.Summarize(ctx, job.FileName, text)
	if err != nil {
		p.fail(ctx, job.ID, fmt.Sprintf("summarization failed: %v", err))
		return nil
	}

	job, err = p.jobs.MarkCompleted(ctx, job.ID, result)
	if err != nil {
		return fmt.Errorf("complete job %s: %w", job.ID, err)
	}
	p.publish(ctx, job)

	p.logger.Printf("job %s completed (%s)", job.ID, job.FileName)
	return nil
}

func (p *Processor) extractText(ctx context.Context, job *domain.SummaryJob) (string, error) {
	object, err := p.store.Get(ctx, job.FilePath)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", job.FilePath, err)
	}
	defer object.Close()

	return p.extractor.Extract(ctx, job.FileName, job.FileType, object)
}

// fail is best-effort: a job that cannot even be marked failed is
// logged and left to the observer timeout.
func (p *Processor) fail(ctx context.Context, jobID, detail string) {
	job, err := p.jobs.MarkFailed(ctx, jobID, detail)
	if err != nil {
		p.logger.Printf("mark job %s failed: %v", jobID, err)
		return
	}
	p.publish(ctx, job)
	p.logger.Printf("job %s failed: %s", jobID, detail)
}

func (p *Processor) publish(ctx context.Context, job *domain.SummaryJob) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Publish(ctx, job); err != nil {
		p.logger.Printf("publish update for job %s: %v", job.ID, err)
	}
}
