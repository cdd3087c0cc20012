package models

import "time"

// DraftSnapshot is an immutable copy of a submit-eligible draft.
type DraftSnapshot struct {
	Description string
	Location    Coordinate
	Source      SourceKind
	Image       ImageAsset
}

// SubmissionOutcome is produced once per submission attempt.
type SubmissionOutcome struct {
	Succeeded bool   `json:"succeeded"`
	Message   string `json:"message"`
}

// OutcomeEvent is the message published after each submission attempt.
type OutcomeEvent struct {
	ReporterID string      `json:"reporter_id,omitempty"`
	Succeeded  bool        `json:"succeeded"`
	Message    string      `json:"message"`
	Source     SourceKind  `json:"location_source"`
	Origin     ImageOrigin `json:"image_origin"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Notice is a dismissible message shown next to the control that raised it.
type Notice struct {
	Control string `json:"control"`
	Message string `json:"message"`
}
