// internal/queue/queue.go
package queue

import (
	"fmt"
	"sync"

	"github.com/callforge/dialer-backend/internal/model"
)

// Queue is the dispatcher's handoff point. Delivery is at-least-once;
// consumers must tolerate duplicates.
type Queue interface {
	Publish(topic string, task model.DialTask) error
}

// InMemoryQueue buffers tasks per topic. Used by tests and single-process
// dev runs where RabbitMQ is not available.
type InMemoryQueue struct {
	mu     sync.Mutex
	topics map[string][]model.DialTask
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{topics: make(map[string][]model.DialTask)}
}

func (q *InMemoryQueue) Publish(topic string, task model.DialTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.topics[topic] = append(q.topics[topic], task)
	return nil
}

// Drain removes and returns everything queued on a topic.
func (q *InMemoryQueue) Drain(topic string) []model.DialTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	tasks := q.topics[topic]
	q.topics[topic] = nil
	return tasks
}

// Len reports the number of queued tasks on a topic.
func (q *InMemoryQueue) Len(topic string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.topics[topic])
}

// FailingQueue rejects every publish. Test helper for the
// claim-then-publish failure path.
type FailingQueue struct{}

func (FailingQueue) Publish(topic string, task model.DialTask) error {
	return fmt.Errorf("publish to %s failed", topic)
}
