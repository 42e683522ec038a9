package suirpc

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockBalanceReader implements interfaces.BalanceReader for testing.
type MockBalanceReader struct {
	mock.Mock
}

// Balance implements the BalanceReader interface for testing.
// The behavior is determined by how the mock is configured in tests.
func (m *MockBalanceReader) Balance(ctx context.Context, address string) (uint64, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(uint64), args.Error(1)
}
