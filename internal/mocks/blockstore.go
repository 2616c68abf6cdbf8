package mocks

import (
	"github.com/brettbedarf/minifs/storage"
	"github.com/stretchr/testify/mock"
)

// MockBlockAllocator implements filesystem.BlockAllocator for testing across packages
type MockBlockAllocator struct {
	mock.Mock
}

func (m *MockBlockAllocator) BlockSize() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockBlockAllocator) Reallocate(owned []storage.BlockIndex, n int) ([]storage.BlockIndex, error) {
	args := m.Called(owned, n)

	// Handle function return types (for complex tests)
	if fn, ok := args.Get(0).(func([]storage.BlockIndex, int) []storage.BlockIndex); ok {
		return fn(owned, n), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.BlockIndex), args.Error(1)
}

func (m *MockBlockAllocator) Release(owned []storage.BlockIndex) {
	m.Called(owned)
}

func (m *MockBlockAllocator) Write(idx storage.BlockIndex, p []byte, off int, pad bool) (int, error) {
	args := m.Called(idx, p, off, pad)
	return args.Int(0), args.Error(1)
}

func (m *MockBlockAllocator) Read(idx storage.BlockIndex) ([]byte, error) {
	args := m.Called(idx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockBlockAllocator) Stats() storage.Stats {
	args := m.Called()
	return args.Get(0).(storage.Stats)
}
