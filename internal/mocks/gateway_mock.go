package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/waste-reporter/pkg/gateway"
)

// MockGateway is a mock implementation of the report Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Submit(ctx context.Context, sub gateway.Submission) (gateway.Response, error) {
	args := m.Called(ctx, sub)
	return args.Get(0).(gateway.Response), args.Error(1)
}
