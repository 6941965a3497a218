package mqtt

import (
	"context"
	"fmt"
	"sync"

	"github.com/kdarko/wastedispatch/core/model"
)

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	mu        sync.Mutex
	Published []model.Notification
	FailTypes map[string]bool
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{FailTypes: make(map[string]bool)}
}

// Publish records the notification or returns an error if configured to fail.
func (m *MockPublisher) Publish(_ context.Context, n model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTypes[n.Type] {
		return fmt.Errorf("publish failed")
	}
	m.Published = append(m.Published, n)
	return nil
}

// ByRole returns the published notifications for a role.
func (m *MockPublisher) ByRole(role model.Role) []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.Published {
		if n.ForRole == role {
			out = append(out, n)
		}
	}
	return out
}
