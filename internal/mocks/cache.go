package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// MockCache is an in-memory implementation of the Cache port. Behavior
// can be overridden per call through the Func fields.
type MockCache struct {
	data       map[string]string
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNXFunc  func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	DeleteFunc func(ctx context.Context, keys ...string) error
	PingFunc   func() error
	CloseFunc  func() error

	SetCalls    []string
	DeleteCalls []string
}

func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string]string),
	}
}

func encodeValue(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("mock cache: marshal: %w", err)
		}
		return string(b), nil
	}
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	if val, ok := m.data[key]; ok {
		return val, nil
	}
	return "", nil
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.SetCalls = append(m.SetCalls, key)
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}
	m.data[key] = encoded
	return nil
}

func (m *MockCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if m.SetNXFunc != nil {
		return m.SetNXFunc(ctx, key, value, expiration)
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	encoded, err := encodeValue(value)
	if err != nil {
		return false, err
	}
	m.data[key] = encoded
	return true, nil
}

func (m *MockCache) Delete(ctx context.Context, keys ...string) error {
	m.DeleteCalls = append(m.DeleteCalls, keys...)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, keys...)
	}
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *MockCache) Ping() error {
	if m.PingFunc != nil {
		return m.PingFunc()
	}
	return nil
}

func (m *MockCache) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Contains reports whether the key currently holds a value.
func (m *MockCache) Contains(key string) bool {
	_, ok := m.data[key]
	return ok
}

// Value returns the raw stored value for assertions.
func (m *MockCache) Value(key string) string {
	return m.data[key]
}
