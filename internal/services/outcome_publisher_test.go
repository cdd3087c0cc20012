package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/waste-reporter/internal/mocks"
	"github.com/benmeehan/waste-reporter/internal/models"
	"github.com/benmeehan/waste-reporter/internal/services"
)

func TestOutcomePublisher_OnOutcome_Publishes(t *testing.T) {
	reporter := new(mocks.MockReporterInfo)
	reporter.On("GetReporterID").Return("reporter-7")

	token := new(mocks.MockToken)
	token.On("WaitTimeout", time.Second).Return(true)
	token.On("Error").Return(nil)

	var published []byte
	client := new(mocks.MockMQTTClient)
	client.On("Publish", "reports/outcomes", byte(1), false, mock.Anything).
		Run(func(args mock.Arguments) {
			published = args.Get(3).([]byte)
		}).
		Return(token)

	publisher := services.NewOutcomePublisher("reports/outcomes", 1, reporter, client, time.Second, zerolog.Nop())
	publisher.OnOutcome(context.Background(), models.OutcomeEvent{
		Succeeded: false,
		Message:   "File too large",
		Source:    models.SourceDevice,
		Origin:    models.OriginCamera,
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(published, &event))
	assert.Equal(t, "reporter-7", event["reporter_id"])
	assert.Equal(t, false, event["succeeded"])
	assert.Equal(t, "File too large", event["message"])
	assert.Equal(t, "device", event["location_source"])
	assert.Equal(t, "camera", event["image_origin"])
	client.AssertExpectations(t)
	token.AssertExpectations(t)
}

func TestOutcomePublisher_OnOutcome_PublishFailureIsSwallowed(t *testing.T) {
	token := mocks.SettledToken(errors.New("not connected"))

	client := new(mocks.MockMQTTClient)
	client.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(token)

	publisher := services.NewOutcomePublisher("reports/outcomes", 0, nil, client, time.Second, zerolog.Nop())

	assert.NotPanics(t, func() {
		publisher.OnOutcome(context.Background(), models.OutcomeEvent{Succeeded: true, Message: "ok"})
	})
	client.AssertNumberOfCalls(t, "Publish", 1)
}

func TestOutcomePublisher_OnOutcome_Timeout(t *testing.T) {
	token := new(mocks.MockToken)
	token.On("WaitTimeout", mock.Anything).Return(false)

	client := new(mocks.MockMQTTClient)
	client.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(token)

	publisher := services.NewOutcomePublisher("reports/outcomes", 0, nil, client, 10*time.Millisecond, zerolog.Nop())
	publisher.OnOutcome(context.Background(), models.OutcomeEvent{Succeeded: true})

	token.AssertNotCalled(t, "Error")
}
