package mocks

import (
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/mock"
)

// MockMQTTClient stands in for pkg/mqtt.MQTTClient in outcome event tests.
// A call stubbed without a token returns a settled one.
type MockMQTTClient struct {
	mock.Mock
}

func (m *MockMQTTClient) Connect() mqtt.Token {
	return tokenOf(m.Called())
}

func (m *MockMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return tokenOf(m.Called(topic, qos, retained, payload))
}

func (m *MockMQTTClient) Disconnect(quiesce uint) {
	m.Called(quiesce)
}

func tokenOf(args mock.Arguments) mqtt.Token {
	if len(args) > 0 {
		if token, ok := args.Get(0).(mqtt.Token); ok && token != nil {
			return token
		}
	}
	return SettledToken(nil)
}
