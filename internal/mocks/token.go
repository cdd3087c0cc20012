package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"
)

// MockToken stands in for the mqtt.Token returned by connect and publish.
type MockToken struct {
	mock.Mock
}

// SettledToken returns a token that completes at once with err.
func SettledToken(err error) *MockToken {
	token := new(MockToken)
	token.On("Wait").Return(true).Maybe()
	token.On("WaitTimeout", mock.Anything).Return(true).Maybe()
	token.On("Error").Return(err).Maybe()
	return token
}

func (m *MockToken) Error() error {
	return m.Called().Error(0)
}

func (m *MockToken) Wait() bool {
	return m.Called().Bool(0)
}

func (m *MockToken) WaitTimeout(timeout time.Duration) bool {
	return m.Called(timeout).Bool(0)
}

func (m *MockToken) Done() <-chan struct{} {
	done, _ := m.Called().Get(0).(<-chan struct{})
	return done
}
