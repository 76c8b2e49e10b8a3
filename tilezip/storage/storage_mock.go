package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// RangeRequest records one ReadRange call made against MockStorage.
type RangeRequest struct {
	URL    string
	Offset int64
	Length int64
}

// End returns the inclusive last byte of the request.
func (r RangeRequest) End() int64 {
	return r.Offset + r.Length - 1
}

// MockStorage is a simple in-memory Storage implementation for tests.
type MockStorage struct {
	mu       sync.RWMutex
	objects  map[string][]byte
	failures map[string]error
	requests []RangeRequest
}

var _ Storage = (*MockStorage)(nil)

// NewMockStorage constructs an empty MockStorage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		objects:  make(map[string][]byte),
		failures: make(map[string]error),
	}
}

// AddObject stores content under url.
func (m *MockStorage) AddObject(url string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[url] = append([]byte(nil), data...)
}

// FailURL makes every read of url fail with err.
func (m *MockStorage) FailURL(url string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[url] = err
}

// Requests returns the ranged reads made so far, in order.
func (m *MockStorage) Requests() []RangeRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RangeRequest(nil), m.requests...)
}

// Get returns the whole object.
func (m *MockStorage) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failures[url]; err != nil {
		return nil, err
	}
	data, ok := m.objects[url]
	if !ok {
		return nil, fmt.Errorf("mock storage: object not found: %s", url)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// ReadRange returns a reader over the requested byte range. Like a real
// server, a range that runs past the end is cut short.
func (m *MockStorage) ReadRange(ctx context.Context, url string, offset int64, length int64) (io.ReadCloser, error) {
	m.mu.Lock()
	m.requests = append(m.requests, RangeRequest{URL: url, Offset: offset, Length: length})
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failures[url]; err != nil {
		return nil, err
	}
	data, ok := m.objects[url]
	if !ok {
		return nil, fmt.Errorf("mock storage: object not found: %s", url)
	}
	if offset < 0 || offset >= int64(len(data)) {
		return nil, fmt.Errorf("mock storage: range not satisfiable: offset %d for %s", offset, url)
	}

	end := int64(len(data))
	if length > 0 && offset+length < end {
		end = offset + length
	}
	return io.NopCloser(bytes.NewReader(data[offset:end])), nil
}
