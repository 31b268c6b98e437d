package conversation

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultMemoryShards = 16

// MemoryQueue is an in-process queueClient. Messages are sharded by group id
// and a shard with messages in flight is not handed to another receiver until
// they are deleted, so one worker owns each channel's order.
type MemoryQueue struct {
	mu       sync.Mutex
	shards   [][]queueMessage
	busy     []int
	receipts map[string]int
	capacity int
	pending  int
	notify   chan struct{}
}

// NewMemoryQueue creates a MemoryQueue holding up to buffer pending messages.
func NewMemoryQueue(buffer int) *MemoryQueue {
	return NewShardedMemoryQueue(buffer, defaultMemoryShards)
}

func NewShardedMemoryQueue(buffer, shards int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 128
	}
	if shards <= 0 {
		shards = defaultMemoryShards
	}
	return &MemoryQueue{
		shards:   make([][]queueMessage, shards),
		busy:     make([]int, shards),
		receipts: make(map[string]int),
		capacity: buffer,
		notify:   make(chan struct{}, 1),
	}
}

func (q *MemoryQueue) shardFor(groupID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(groupID))
	return int(h.Sum32() % uint32(len(q.shards)))
}

func (q *MemoryQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Send enqueues body, blocking while the queue is full until ctx is done.
func (q *MemoryQueue) Send(ctx context.Context, groupID, body string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	msg := queueMessage{ID: uuid.NewString(), Body: body}
	shard := q.shardFor(groupID)
	for {
		q.mu.Lock()
		if q.pending < q.capacity {
			q.shards[shard] = append(q.shards[shard], msg)
			q.pending++
			q.mu.Unlock()
			q.wake()
			return nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Receive returns messages from one idle shard, waiting up to waitSeconds
// (forever when zero or less) for one to become available.
func (q *MemoryQueue) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if maxMessages <= 0 {
		maxMessages = 1
	}

	var timeout <-chan time.Time
	if waitSeconds > 0 {
		timer := time.NewTimer(time.Duration(waitSeconds) * time.Second)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		if msgs := q.claim(maxMessages); len(msgs) > 0 {
			return msgs, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, nil
		case <-q.notify:
		}
	}
}

func (q *MemoryQueue) claim(max int) []queueMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, pending := range q.shards {
		if len(pending) == 0 || q.busy[i] > 0 {
			continue
		}
		n := min(max, len(pending))
		out := make([]queueMessage, n)
		for j := 0; j < n; j++ {
			msg := pending[j]
			msg.ReceiptHandle = uuid.NewString()
			q.receipts[msg.ReceiptHandle] = i
			out[j] = msg
		}
		q.shards[i] = pending[n:]
		q.busy[i] += n
		q.pending -= n
		if q.pending > 0 {
			q.wake()
		}
		return out
	}
	return nil
}

// Delete acknowledges a received message and frees its shard once every
// in-flight message of that shard is acknowledged.
func (q *MemoryQueue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	shard, ok := q.receipts[receiptHandle]
	if ok {
		delete(q.receipts, receiptHandle)
		q.busy[shard]--
	}
	q.mu.Unlock()
	if ok {
		q.wake()
	}
	return nil
}

// Len is the number of messages not yet received.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}
