package forecast

import "context"

// MockEngine returns canned hints for tests.
type MockEngine struct {
	Hints map[string]Hint
	Err   error
}

// ZoneLoad returns the configured hint or error.
func (m *MockEngine) ZoneLoad(_ context.Context, zone string) (Hint, error) {
	if m.Err != nil {
		return Hint{}, m.Err
	}
	return m.Hints[zone], nil
}
