package models

// These structs define the JSON payloads exchanged with the invoking
// platform: the trigger event that starts a run and the result the workflow
// returns on success.

// WorkflowRequest is the trigger payload for one workflow run. It is
// immutable once accepted; an absent or unrecognized plan is treated as
// "free".
type WorkflowRequest struct {
	ProjectID string `json:"projectId"`
	FileURL   string `json:"fileUrl"`
	Plan      string `json:"plan,omitempty"`
}

// WorkflowResult is returned to the invoking platform when a run reaches its
// terminal success state.
type WorkflowResult struct {
	Success   bool   `json:"success"`
	ProjectID string `json:"projectId"`
	Plan      string `json:"plan"`
}
