package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/waste-reporter/internal/models"
	"github.com/benmeehan/waste-reporter/pkg/identity"
	"github.com/benmeehan/waste-reporter/pkg/mqtt"
)

// OutcomePublisher publishes submission outcomes to an MQTT topic.
type OutcomePublisher struct {
	PubTopic     string
	QOS          int
	ReporterInfo identity.ReporterInfoInterface
	MqttClient   mqtt.MQTTClient
	Timeout      time.Duration
	Logger       zerolog.Logger
}

var _ OutcomeListener = (*OutcomePublisher)(nil)

// NewOutcomePublisher initializes a new OutcomePublisher.
func NewOutcomePublisher(pubTopic string, qos int, reporterInfo identity.ReporterInfoInterface,
	mqttClient mqtt.MQTTClient, timeout time.Duration, logger zerolog.Logger) *OutcomePublisher {

	return &OutcomePublisher{
		PubTopic:     pubTopic,
		QOS:          qos,
		ReporterInfo: reporterInfo,
		MqttClient:   mqttClient,
		Timeout:      timeout,
		Logger:       logger,
	}
}

// OnOutcome publishes event. Publish failures are logged, never returned:
// the submission result stands regardless.
func (o *OutcomePublisher) OnOutcome(_ context.Context, event models.OutcomeEvent) {
	if o.ReporterInfo != nil {
		event.ReporterID = o.ReporterInfo.GetReporterID()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		o.Logger.Error().Err(err).Msg("Failed to serialize outcome event")
		return
	}

	token := o.MqttClient.Publish(o.PubTopic, byte(o.QOS), false, payload)
	if !token.WaitTimeout(o.Timeout) {
		o.Logger.Warn().Str("topic", o.PubTopic).Dur("timeout", o.Timeout).Msg("Timed out publishing outcome event")
		return
	}
	if err := token.Error(); err != nil {
		o.Logger.Error().Err(err).Str("topic", o.PubTopic).Msg("Failed to publish outcome event")
		return
	}
	o.Logger.Debug().Str("topic", o.PubTopic).Bool("succeeded", event.Succeeded).Msg("Outcome event published")
}
