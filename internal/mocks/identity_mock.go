package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/waste-reporter/pkg/identity"
)

// MockReporterInfo is a mock implementation of the ReporterInfoInterface
type MockReporterInfo struct {
	mock.Mock
}

func (m *MockReporterInfo) LoadReporterInfo() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockReporterInfo) GetReporterID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockReporterInfo) GetReporterIdentity() identity.Identity {
	args := m.Called()
	return args.Get(0).(identity.Identity)
}
