package delivery

import (
	"context"
	"fmt"
	"sync"
)

// MemoryClient implements Client by recording envelopes in memory, for
// tests or local demos.
type MemoryClient struct {
	mu        sync.RWMutex
	envelopes []Envelope
	err       error
}

// NewMemoryClient builds an empty recorder.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// FailWith makes subsequent deliveries return err. A nil err restores
// normal behaviour.
func (c *MemoryClient) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Deliver records the envelope.
func (c *MemoryClient) Deliver(_ context.Context, envelope Envelope) (Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return Receipt{}, c.err
	}
	c.envelopes = append(c.envelopes, envelope)
	return Receipt{ID: fmt.Sprintf("mem-%d", len(c.envelopes)), Status: "accepted"}, nil
}

// Envelopes returns the recorded envelopes in delivery order.
func (c *MemoryClient) Envelopes() []Envelope {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Envelope(nil), c.envelopes...)
}
