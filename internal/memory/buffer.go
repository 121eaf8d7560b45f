// Package memory keeps the orchestrator's conversation history.
package memory

import (
	"sync"
	"time"

	"company-intel/internal/models"
)

// Buffer is an append-only list of conversation turns, safe for concurrent use.
type Buffer struct {
	mu       sync.RWMutex
	messages []models.MemoryMessage
	now      func() time.Time
}

func NewBuffer() *Buffer {
	return &Buffer{now: time.Now}
}

// SaveContext records one exchange as a human turn followed by an AI turn.
func (b *Buffer) SaveContext(input, output string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ts := b.now().UTC()
	b.messages = append(b.messages,
		models.MemoryMessage{Role: models.RoleHuman, Content: input, CreatedAt: ts},
		models.MemoryMessage{Role: models.RoleAI, Content: output, CreatedAt: ts},
	)
}

// Snapshot returns a copy of the history.
func (b *Buffer) Snapshot() []models.MemoryMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.MemoryMessage, len(b.messages))
	copy(out, b.messages)
	return out
}

// Len is the number of stored messages.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.messages)
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = nil
}
