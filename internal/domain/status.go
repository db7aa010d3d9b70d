package domain

type UpdateOutcome string

const (
	UpdateUnset     UpdateOutcome = ""
	UpdateSucceeded UpdateOutcome = "succeeded"
	UpdateFailed    UpdateOutcome = "failed"
)

const (
	MessageUpdateSucceeded = "Settings updated successfully!"
	MessageUpdateFailed    = "Failed to update settings. Please try again."
)

// UpdateStatus reports the outcome of the most recent update attempt.
// The zero value is the unset state.
type UpdateStatus struct {
	Outcome UpdateOutcome
	Message string
}

func UpdateSuccess() UpdateStatus {
	return UpdateStatus{Outcome: UpdateSucceeded, Message: MessageUpdateSucceeded}
}

func UpdateFailure() UpdateStatus {
	return UpdateStatus{Outcome: UpdateFailed, Message: MessageUpdateFailed}
}

func (s UpdateStatus) IsSet() bool {
	return s.Outcome != UpdateUnset
}
