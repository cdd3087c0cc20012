package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/waste-reporter/internal/constants"
	"github.com/benmeehan/waste-reporter/internal/models"
	"github.com/benmeehan/waste-reporter/internal/state_managers"
	"github.com/benmeehan/waste-reporter/pkg/gateway"
)

const resourceSubmission = "submission"

// OutcomeListener is told about every attempt that reached the gateway.
type OutcomeListener interface {
	OnOutcome(ctx context.Context, event models.OutcomeEvent)
}

var submissionTransitions = map[constants.SubmissionState][]constants.SubmissionState{
	constants.SubmissionEditing:    {constants.SubmissionValidating},
	constants.SubmissionValidating: {constants.SubmissionEditing, constants.SubmissionSubmitting},
	constants.SubmissionSubmitting: {constants.SubmissionSucceeded, constants.SubmissionEditing},
	constants.SubmissionSucceeded:  {constants.SubmissionValidating, constants.SubmissionEditing},
}

// SubmissionPipeline validates a draft and sends it with exactly one gateway
// call. It never retries.
type SubmissionPipeline struct {
	gateway gateway.Gateway
	timeout time.Duration
	machine *state_managers.StateMachine[constants.SubmissionState]
	logger  zerolog.Logger

	mu        sync.Mutex
	listeners []OutcomeListener
	last      *models.SubmissionOutcome
}

// NewSubmissionPipeline creates a pipeline in the Editing state.
func NewSubmissionPipeline(gw gateway.Gateway, timeout time.Duration, logger zerolog.Logger) *SubmissionPipeline {
	if timeout <= 0 {
		timeout = constants.DefaultSubmitTimeout
	}
	return &SubmissionPipeline{
		gateway: gw,
		timeout: timeout,
		machine: state_managers.NewStateMachine("submission", constants.SubmissionEditing, submissionTransitions, logger),
		logger:  logger,
	}
}

// AddListener registers l for outcome events.
func (p *SubmissionPipeline) AddListener(l OutcomeListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

// Submit sends draft. Missing fields keep the pipeline in Editing and return
// one *models.ValidationError per field. A gateway failure returns to Editing
// with the draft untouched and a *models.NetworkError. On success the draft
// is reset.
func (p *SubmissionPipeline) Submit(ctx context.Context, draft *ReportDraft) (models.SubmissionOutcome, error) {
	ok, err := p.machine.TransitionFrom(constants.SubmissionValidating, constants.SubmissionEditing, constants.SubmissionSucceeded)
	if err != nil {
		return models.SubmissionOutcome{}, err
	}
	if !ok {
		return models.SubmissionOutcome{}, &models.ConflictError{Resource: resourceSubmission}
	}

	// Whatever happens below, the pipeline must not stay in flight.
	defer func() {
		switch p.machine.Current() {
		case constants.SubmissionValidating, constants.SubmissionSubmitting:
			_ = p.machine.Transition(constants.SubmissionEditing)
		}
	}()

	snapshot, err := draft.Freeze()
	if err != nil {
		_ = p.machine.Transition(constants.SubmissionEditing)
		outcome := p.record(false, missingFieldsMessage(err))
		p.logger.Info().Strs("missing", models.ValidationFields(err)).Msg("Report is incomplete")
		return outcome, err
	}

	if err := p.machine.Transition(constants.SubmissionSubmitting); err != nil {
		return models.SubmissionOutcome{}, err
	}

	sub := gateway.Submission{
		Description: snapshot.Description,
		Latitude:    snapshot.Location.LatitudeText(),
		Longitude:   snapshot.Location.LongitudeText(),
		FileName:    snapshot.Image.FileName,
		MIMEType:    snapshot.Image.MIMEType,
		File:        snapshot.Image.Data,
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	start := time.Now()
	resp, err := p.gateway.Submit(reqCtx, sub)
	cancel()

	if err != nil {
		netErr := toNetworkError(err)
		message := netErr.Message
		if message == "" {
			message = constants.GenericSubmitFailure
		}
		_ = p.machine.Transition(constants.SubmissionEditing)
		outcome := p.record(false, message)
		p.logger.Error().
			Err(err).
			Int("status", netErr.StatusCode).
			Dur("elapsed", time.Since(start)).
			Msg("Report submission failed")
		p.notify(ctx, snapshot, outcome)
		return outcome, netErr
	}

	message := resp.Message
	if message == "" {
		message = constants.GenericSubmitSuccess
	}
	_ = p.machine.Transition(constants.SubmissionSucceeded)
	draft.Reset()
	outcome := p.record(true, message)
	p.logger.Info().
		Int("status", resp.StatusCode).
		Str("source", string(snapshot.Source)).
		Str("origin", string(snapshot.Image.Origin)).
		Dur("elapsed", time.Since(start)).
		Msg("Report submitted")
	p.notify(ctx, snapshot, outcome)
	return outcome, nil
}

// State returns the pipeline state.
func (p *SubmissionPipeline) State() constants.SubmissionState {
	return p.machine.Current()
}

// CanSubmit is false while a submission is in flight.
func (p *SubmissionPipeline) CanSubmit() bool {
	switch p.machine.Current() {
	case constants.SubmissionEditing, constants.SubmissionSucceeded:
		return true
	}
	return false
}

// LastOutcome returns the outcome of the latest attempt.
func (p *SubmissionPipeline) LastOutcome() (models.SubmissionOutcome, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return models.SubmissionOutcome{}, false
	}
	return *p.last, true
}

// ClearOutcome dismisses the latest outcome.
func (p *SubmissionPipeline) ClearOutcome() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = nil
}

func (p *SubmissionPipeline) record(succeeded bool, message string) models.SubmissionOutcome {
	outcome := models.SubmissionOutcome{Succeeded: succeeded, Message: message}
	p.mu.Lock()
	p.last = &outcome
	p.mu.Unlock()
	return outcome
}

func (p *SubmissionPipeline) notify(ctx context.Context, snapshot models.DraftSnapshot, outcome models.SubmissionOutcome) {
	p.mu.Lock()
	listeners := append([]OutcomeListener(nil), p.listeners...)
	p.mu.Unlock()

	event := models.OutcomeEvent{
		Succeeded: outcome.Succeeded,
		Message:   outcome.Message,
		Source:    snapshot.Source,
		Origin:    snapshot.Image.Origin,
		Timestamp: time.Now().UTC(),
	}
	for _, l := range listeners {
		l.OnOutcome(ctx, event)
	}
}

func toNetworkError(err error) *models.NetworkError {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return &models.NetworkError{StatusCode: gwErr.StatusCode, Message: gwErr.Message, Err: err}
	}
	return &models.NetworkError{Err: err}
}

func missingFieldsMessage(err error) string {
	var reasons []string
	var walk func(error)
	walk = func(e error) {
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		var ve *models.ValidationError
		if errors.As(e, &ve) {
			reasons = append(reasons, ve.Reason)
		}
	}
	walk(err)
	if len(reasons) == 0 {
		return err.Error()
	}
	return strings.Join(reasons, ", ")
}
