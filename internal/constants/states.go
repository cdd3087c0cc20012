package constants

// LocationState is a state of the location resolver.
type LocationState string

const (
	LocationIdle        LocationState = "idle"
	LocationProbing     LocationState = "probing"
	LocationResolved    LocationState = "resolved"
	LocationFailed      LocationState = "failed"
	LocationManualEntry LocationState = "manual_entry"
	LocationMapSelected LocationState = "map_selected"
)

// SubmissionState is a state of the submission pipeline.
type SubmissionState string

const (
	SubmissionEditing    SubmissionState = "editing"
	SubmissionValidating SubmissionState = "validating"
	SubmissionSubmitting SubmissionState = "submitting"
	SubmissionSucceeded  SubmissionState = "succeeded"
)
