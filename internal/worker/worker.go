package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/estetica-academy/presenciales/internal/models"
	"github.com/estetica-academy/presenciales/internal/presenciales"
	"github.com/estetica-academy/presenciales/pkg/queue"
	"github.com/estetica-academy/presenciales/pkg/storage"
)

// PollSource is the read/write side of the poll store the exporter needs.
type PollSource interface {
	GetPoll(ctx context.Context, id uuid.UUID) (*models.Poll, error)
	ListVotes(ctx context.Context, pollID uuid.UUID) ([]models.Vote, error)
	SaveExport(ctx context.Context, e models.PollExport) error
}

// Uploader stores rendered exports.
type Uploader interface {
	UploadExport(ctx context.Context, key string, body io.Reader) error
}

// JobQueue is the queue surface the worker loop uses.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// ExportProcessor renders closed poll results to CSV and uploads them.
type ExportProcessor struct {
	polls   PollSource
	store   Uploader
	queue   JobQueue
	logger  *zap.Logger
	backoff time.Duration
	now     func() time.Time
}

// NewExportProcessor creates a results export processor.
func NewExportProcessor(polls PollSource, store Uploader, q JobQueue, logger *zap.Logger) *ExportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportProcessor{polls: polls, store: store, queue: q, logger: logger, backoff: queue.RetryBackoff, now: time.Now}
}

// Process executes one export job.
func (p *ExportProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypePollExport {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.PollExportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	poll, err := p.polls.GetPoll(ctx, payload.PollID)
	if errors.Is(err, presenciales.ErrNotFound) {
		p.logger.Warn("export skipped: poll not found", zap.String("poll_id", payload.PollID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("get poll: %w", err)
	}
	if poll.IsOpen() {
		p.logger.Warn("export skipped: poll still open", zap.String("poll_id", poll.ID.String()))
		return nil
	}
	votes, err := p.polls.ListVotes(ctx, poll.ID)
	if err != nil {
		return fmt.Errorf("list votes: %w", err)
	}

	var buf bytes.Buffer
	if err := presenciales.WriteResultsCSV(&buf, poll, votes); err != nil {
		return fmt.Errorf("render csv: %w", err)
	}
	key := storage.ExportKey(poll.ID.String())
	if err := p.store.UploadExport(ctx, key, &buf); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	if err := p.polls.SaveExport(ctx, models.PollExport{PollID: poll.ID, S3Key: key, ExportedAt: p.now()}); err != nil {
		return fmt.Errorf("save export: %w", err)
	}

	p.logger.Info("poll export completed", zap.String("poll_id", poll.ID.String()), zap.String("s3_key", key), zap.Int("votes", len(votes)))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ExportProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("export worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *ExportProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
