// This file implements the ordered, drain-on-read queue that carries job
// progress from the background worker to the polling client.

package events

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/vrsandeep/qa-harvest/internal/models"
)

// Bus is a FIFO of progress messages. Publish and Drain each hold the lock
// only for the duration of a slice append or swap, so neither side waits on
// the other's work.
type Bus struct {
	mu    sync.Mutex
	queue []models.ProgressMessage
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Publish appends msg to the queue.
func (b *Bus) Publish(msg models.ProgressMessage) {
	b.mu.Lock()
	b.queue = append(b.queue, msg)
	b.mu.Unlock()
}

// Drain returns every queued message in emission order and empties the
// queue. Messages returned once are never returned again.
func (b *Bus) Drain() []models.ProgressMessage {
	b.mu.Lock()
	out := b.queue
	b.queue = nil
	b.mu.Unlock()

	if out == nil {
		return []models.ProgressMessage{}
	}
	return out
}

// Len reports how many messages are waiting.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Reset discards anything still queued.
func (b *Bus) Reset() {
	b.mu.Lock()
	b.queue = nil
	b.mu.Unlock()
}

// Logf publishes a log message and mirrors it to the application log.
func (b *Bus) Logf(level, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	switch level {
	case models.LevelError:
		log.Error().Msg(text)
	case models.LevelWarn:
		log.Warn().Msg(text)
	default:
		log.Info().Msg(text)
	}
	b.Publish(models.LogMessage(level, text))
}

// Statusf publishes a phase description.
func (b *Bus) Statusf(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	log.Debug().Msg(text)
	b.Publish(models.StatusMessage(text))
}
