package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/agenda-platform/internal/observability/metrics"
	"github.com/wolfman30/agenda-platform/pkg/logging"
)

// Responder turns one chat message into a reply.
type Responder interface {
	Handle(ctx context.Context, channelID, text string) (string, error)
}

// Worker consumes inbound chat messages from the queue and answers them.
type Worker struct {
	responder Responder
	queue     queueClient
	sender    ReplySender
	metrics   *metrics.ConversationMetrics
	logger    *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	sender           ReplySender
	metrics          *metrics.ConversationMetrics
}

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
	replyTimeout         = 10 * time.Second
)

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// WithReplySender replaces the log sink.
func WithReplySender(sender ReplySender) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.sender = sender
	}
}

func WithWorkerMetrics(m *metrics.ConversationMetrics) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.metrics = m
	}
}

// NewWorker constructs a queue consumer around responder.
func NewWorker(responder Responder, queue queueClient, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if responder == nil {
		panic("conversation: responder cannot be nil")
	}
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	sender := cfg.sender
	if sender == nil {
		sender = NewLogReplySender(logger)
	}

	return &Worker{
		responder: responder,
		queue:     queue,
		sender:    sender,
		metrics:   cfg.metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start launches worker goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("conversation worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("conversation worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			w.logger.Error("failed to receive chat messages", "error", err, "worker_id", workerID)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	started := time.Now()
	defer w.deleteMessage(context.Background(), msg.ReceiptHandle)

	var in InboundMessage
	if err := json.Unmarshal([]byte(msg.Body), &in); err != nil || in.ChannelID == "" {
		w.logger.Error("failed to decode chat message", "error", err, "msg_id", msg.ID)
		w.metrics.ObserveJob("invalid", time.Since(started).Seconds())
		return
	}

	reply, err := w.responder.Handle(ctx, in.ChannelID, in.Message)
	status := "completed"
	if err != nil {
		// The responder still returns a retry prompt for the user.
		status = "failed"
		w.logger.Error("chat message failed", "error", err, "job_id", in.ID, "channel_id", in.ChannelID)
	}
	if reply != "" {
		sendCtx, cancel := context.WithTimeout(ctx, replyTimeout)
		sendErr := w.sender.SendReply(sendCtx, OutboundReply{
			ChannelID: in.ChannelID,
			Channel:   in.Channel,
			InReplyTo: in.MessageID,
			Body:      reply,
		})
		cancel()
		if sendErr != nil {
			status = "failed"
			w.logger.Error("failed to send chat reply", "error", sendErr, "job_id", in.ID, "channel_id", in.ChannelID)
		}
	}
	w.metrics.ObserveJob(status, time.Since(started).Seconds())
	w.logger.Debug("chat message processed", "job_id", in.ID, "status", status)
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}

	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete chat message", "error", err)
	}
}
