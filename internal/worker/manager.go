package worker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"forumhub/internal/logger"
	"forumhub/internal/queue"
)

const (
	DefaultWorkerCount  = 2
	DefaultBatchSize    = 10
	DefaultBlockTimeout = 5 * time.Second
)

// EventHandler is satisfied by *Handler.
type EventHandler interface {
	HandleEvent(ctx context.Context, event queue.Event) error
}

// Manager runs a pool of goroutines reading the discussions stream as one
// consumer group.
type Manager struct {
	consumer    queue.Consumer
	handler     EventHandler
	workerCount int
	batchSize   int64
	blockTime   time.Duration
	namePrefix  string

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

type ManagerConfig struct {
	WorkerCount  int
	BatchSize    int64
	BlockTimeout time.Duration
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WorkerCount:  DefaultWorkerCount,
		BatchSize:    DefaultBatchSize,
		BlockTimeout: DefaultBlockTimeout,
	}
}

func NewManager(consumer queue.Consumer, handler EventHandler, cfg ManagerConfig) *Manager {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}

	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}

	return &Manager{
		consumer:    consumer,
		handler:     handler,
		workerCount: cfg.WorkerCount,
		batchSize:   cfg.BatchSize,
		blockTime:   cfg.BlockTimeout,
		namePrefix:  host,
	}
}

// Start returns once the consumer group exists and the workers are running.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(m.ctx, queue.StreamDiscussions, queue.ConsumerGroupFeed); err != nil {
		m.cancel()
		return err
	}

	for i := 1; i <= m.workerCount; i++ {
		m.wg.Add(1)
		go m.runWorker(i, m.consumerName(i))
	}

	logger.Info.Printf("[Manager] started %d workers on %s", m.workerCount, queue.StreamDiscussions)
	return nil
}

// Stop cancels the workers and waits for in-flight batches to finish.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	logger.Info.Println("[Manager] all workers stopped")
}

func (m *Manager) runWorker(workerID int, consumerName string) {
	defer m.wg.Done()

	m.processPending(workerID, consumerName)

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
			m.processMessages(workerID, consumerName)
		}
	}
}

// processPending replays whatever this consumer left unacked before a restart.
func (m *Manager) processPending(workerID int, consumerName string) {
	for {
		messages, err := m.consumer.ReadPending(m.ctx, queue.StreamDiscussions, queue.ConsumerGroupFeed, consumerName, m.batchSize)
		if err != nil {
			if m.ctx.Err() == nil {
				logger.Warn.Printf("[Worker-%d] read pending: %v", workerID, err)
			}
			return
		}
		if len(messages) == 0 {
			return
		}

		logger.Info.Printf("[Worker-%d] replaying %d pending messages", workerID, len(messages))
		m.handleMessages(workerID, messages)
	}
}

func (m *Manager) processMessages(workerID int, consumerName string) {
	messages, err := m.consumer.Read(m.ctx, queue.StreamDiscussions, queue.ConsumerGroupFeed, consumerName, m.batchSize, m.blockTime)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		logger.Warn.Printf("[Worker-%d] read: %v", workerID, err)
		select {
		case <-m.ctx.Done():
		case <-time.After(time.Second):
		}
		return
	}

	m.handleMessages(workerID, messages)
}

// handleMessages acks every message, including failed ones, so a poison
// event cannot wedge the group.
func (m *Manager) handleMessages(workerID int, messages []queue.Message) {
	for _, msg := range messages {
		if err := m.handler.HandleEvent(m.ctx, msg.Event); err != nil {
			logger.Error.Printf("[Worker-%d] msgID=%s: %v", workerID, msg.ID, err)
		}

		if err := m.consumer.Ack(m.ctx, queue.StreamDiscussions, queue.ConsumerGroupFeed, msg.ID); err != nil {
			logger.Warn.Printf("[Worker-%d] ack msgID=%s: %v", workerID, msg.ID, err)
		}
	}
}

func (m *Manager) consumerName(workerID int) string {
	return fmt.Sprintf("%s-worker-%d", m.namePrefix, workerID)
}
