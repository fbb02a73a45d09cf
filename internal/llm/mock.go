package llm

import "context"

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response   string
	Err        error
	Calls      int
	LastSystem string
	LastUser   string
}

func (m *MockClient) Generate(ctx context.Context, system, user string) (string, error) {
	m.Calls++
	m.LastSystem = system
	m.LastUser = user
	return m.Response, m.Err
}
