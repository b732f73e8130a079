package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// Mock is an in-memory Completer for tests. Responses are returned in
// order; when the queue runs dry the last response repeats.
type Mock struct {
	mu        sync.Mutex
	responses []mockResponse
	// Requests records every request received, in order.
	Requests []Request
}

type mockResponse struct {
	content string
	err     error
}

// NewMock creates a mock that replies with the given contents.
func NewMock(contents ...string) *Mock {
	m := &Mock{}
	for _, c := range contents {
		m.Enqueue(c)
	}
	return m
}

// Enqueue appends a successful response.
func (m *Mock) Enqueue(content string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResponse{content: content})
	return m
}

// EnqueueJSON appends a successful response marshaled from v.
func (m *Mock) EnqueueJSON(v any) *Mock {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return m.Enqueue(string(data))
}

// EnqueueError appends a failing response.
func (m *Mock) EnqueueError(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResponse{err: err})
	return m
}

// Complete implements Completer.
func (m *Mock) Complete(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	if len(m.responses) == 0 {
		return "{}", nil
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp.content, resp.err
}

// CallCount reports how many requests the mock has served.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// LastRequest returns the most recent request, or nil.
func (m *Mock) LastRequest() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil
	}
	req := m.Requests[len(m.Requests)-1]
	return &req
}
