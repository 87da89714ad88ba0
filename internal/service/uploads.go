package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brieflyhq/briefly-back/internal/domain"
	"github.com/brieflyhq/briefly-back/internal/queue"
	"github.com/brieflyhq/briefly-back/internal/repository"
	"github.com/brieflyhq/briefly-back/internal/storage"
)

var (
	ErrNoFile          = errors.New("no file provided")
	ErrInvalidFileType = errors.New("file type not allowed")
	ErrFileTooLarge    = errors.New("file exceeds the size limit")
	ErrQuotaExceeded   = errors.New("free tier record limit reached")
)

type UploadRequest struct {
	OwnerID  string
	FileName string
	FileType string
	Size     int64
	Content  io.Reader
}

type UploadsConfig struct {
	MaxUploadBytes   int64
	AllowedFileTypes []string
	FreeTierJobLimit int
}

// UploadsService validates an incoming file, stores its bytes, creates
// the tracking record and hands the job to the queue. The record is the
// client's only handle on the work from here on.
type UploadsService struct {
	jobs     repository.SummaryJobsRepository
	store    storage.ObjectStorage
	producer queue.Producer
	logger   *log.Logger

	maxUploadBytes int64
	allowedTypes   map[string]struct{}
	freeTierLimit  int
	now            func() time.Time
}

func NewUploadsService(
	jobs repository.SummaryJobsRepository,
	store storage.ObjectStorage,
	producer queue.Producer,
	config UploadsConfig,
	logger *log.Logger,
) *UploadsService {
	if logger == nil {
		logger = log.Default()
	}

	allowed := make(map[string]struct{}, len(config.AllowedFileTypes))
	for _, fileType := range config.AllowedFileTypes {
		allowed[strings.ToLower(strings.TrimSpace(fileType))] = struct{}{}
	}

	return &UploadsService{
		jobs:           jobs,
		store:          store,
		producer:       producer,
		logger:         logger,
		maxUploadBytes: config.MaxUploadBytes,
		allowedTypes:   allowed,
		freeTierLimit:  config.FreeTierJobLimit,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Upload runs the intake pipeline: validate, quota, store bytes, create
// the record in processing, enqueue. If the record cannot be created the
// stored object is removed again; if enqueueing fails the record is
// marked failed so the client is never left watching a record nobody
// will ever advance.
func (s *UploadsService) Upload(ctx context.Context, request UploadRequest) (*domain.SummaryJob, error) {
	if request.Content == nil || strings.TrimSpace(request.FileName) == "" {
		return nil, ErrNoFile
	}
	fileType := strings.ToLower(strings.TrimSpace(request.FileType))
	if _, ok := s.allowedTypes[fileType]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFileType, request.FileType)
	}
	if request.Size <= 0 {
		return nil, ErrNoFile
	}
	if request.Size > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, request.Size)
	}

	ownerID := strings.TrimSpace(request.OwnerID)
	if ownerID != "" && s.freeTierLimit > 0 {
		count, err := s.jobs.CountJobsByOwner(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("count owner jobs: %w", err)
		}
		if count >= s.freeTierLimit {
			return nil, ErrQuotaExceeded
		}
	}

	now := s.now()
	key := storage.BuildKey(ownerID, request.FileName, now)
	if err := s.store.Put(ctx, key, request.Content, request.Size, fileType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	job := &domain.SummaryJob{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		FileName:  request.FileName,
		FileType:  fileType,
		FilePath:  key,
		Status:    domain.StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		if deleteErr := s.store.Delete(ctx, key); deleteErr != nil {
			s.logger.Printf("orphaned object %s after failed record create: %v", key, deleteErr)
		}
		return nil, fmt.Errorf("create job record: %w", err)
	}

	message := domain.QueueMessage{
		JobID:       job.ID,
		OwnerID:     job.OwnerID,
		FileType:    job.FileType,
		FilePath:    job.FilePath,
		RequestedAt: now,
	}
	if err := s.producer.Enqueue(ctx, message); err != nil {
		if _, failErr := s.jobs.MarkFailed(ctx, job.ID, "could not queue file for processing"); failErr != nil {
			s.logger.Printf("mark job %s failed after enqueue error: %v", job.ID, failErr)
		}
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	s.logger.Printf("accepted upload %s (%s, %d bytes) as job %s", job.FileName, job.FileType, request.Size, job.ID)
	return job, nil
}
