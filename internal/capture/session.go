// Package capture drives one capture attempt from photo to stored item.
//
// The state machine is a pure reducer: Transition takes a Session and an
// Event and returns the next Session plus the side effects the caller must
// run. Workflow is the driver that owns a Session and runs those effects.
package capture

import (
	"github.com/vbonduro/wastecapture/internal/domain"
	"github.com/vbonduro/wastecapture/internal/vision"
)

type State int

const (
	StateIdle State = iota
	StatePendingConfirmation
	StateClassifying
	StateAwaitingVerification
	StateManualEntry
	StateVolumeEntry
	StatePersisting
	StateSubmitted
	StateSubmitFailed
)

var stateNames = [...]string{
	StateIdle:                 "Idle",
	StatePendingConfirmation:  "PendingConfirmation",
	StateClassifying:          "Classifying",
	StateAwaitingVerification: "AwaitingVerification",
	StateManualEntry:          "ManualEntry",
	StateVolumeEntry:          "VolumeEntry",
	StatePersisting:           "Persisting",
	StateSubmitted:            "Submitted",
	StateSubmitFailed:         "SubmitFailed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

type Permission int

const (
	PermissionUnknown Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Session is the transient progress of one capture attempt. It is a value:
// Transition never mutates the Session it is given.
type Session struct {
	State State
	// Generation advances whenever the photo is discarded. Async results
	// tagged with an older generation are dropped.
	Generation uint64
	Permission Permission

	PendingPhoto   string
	ConfirmedPhoto string
	Classification *vision.Result

	// Form is set in ManualEntry, VolumeEntry, Persisting and SubmitFailed.
	Form Form
	// Draft is the record being saved while Persisting.
	Draft *domain.CapturedItem

	Submitted     *domain.CapturedItem
	SubmittedKind FormKind

	LastError error
}

// NewSession returns an idle session at generation 0.
func NewSession() Session {
	return Session{State: StateIdle}
}

// reset returns a cleared session one generation ahead of s.
func (s Session) reset() Session {
	return Session{State: StateIdle, Generation: s.Generation + 1}
}
