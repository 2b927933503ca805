package provider

import (
	"context"
	"sync"
	"time"
)

// MockProvider is a mock AI provider for testing.
type MockProvider struct {
	Lines map[string]string // Map of term to answer line
	Err   error             // Returned by every call when set
	Delay time.Duration     // Simulated latency per call

	mu          sync.Mutex
	callCount   int
	lastRequest *Request
}

// NewMockProvider creates a new mock provider with default answers.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Lines: map[string]string{
			"갓생":  "갓생: 완벽한 일상을 추구하는 생활 태도.",
			"고양이": "고양이: 사랑스러운 반려동물.",
			"킹받네": "킹받네: 몹시 화가 나거나 짜증 난다는 뜻.",
			"중꺾마": "중꺾마: 중요한 건 꺾이지 않는 마음의 줄임말.",
		},
	}
}

// Interpret returns the configured line, or an unknown-term answer.
func (m *MockProvider) Interpret(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastRequest = &req
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.Delay):
		}
	}

	if m.Err != nil {
		return "", m.Err
	}

	if line, ok := m.Lines[req.Term]; ok {
		return line, nil
	}
	return req.Term + ": 정확한 해석을 찾지 못했습니다.", nil
}

// CallCount returns the number of times Interpret was called.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastRequest returns the last request received.
func (m *MockProvider) LastRequest() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

// Reset resets the call count and last request.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastRequest = nil
}

// Verify MockProvider implements AIProvider
var _ AIProvider = (*MockProvider)(nil)
