package capture

import (
	"time"

	"github.com/vbonduro/wastecapture/internal/domain"
	"github.com/vbonduro/wastecapture/internal/vision"
)

// Event is an input to Transition.
type Event interface {
	eventName() string
}

// CameraPermission records the camera permission answer for this session.
type CameraPermission struct{ Granted bool }

// PhotoCaptured carries the camera result. Err is set when the camera failed.
type PhotoCaptured struct {
	PhotoRef string
	Err      error
}

type (
	Retake        struct{}
	Confirm       struct{}
	MarkCorrect   struct{}
	MarkIncorrect struct{}
	Cancel        struct{}
	Reset         struct{}
	SaveSucceeded struct{}
)

type ClassificationCompleted struct {
	Generation uint64
	Result     *vision.Result
}

type ClassificationFailed struct {
	Generation uint64
	Err        error
}

type FieldChanged struct {
	Field string
	Value string
}

// Submit assembles the record. The driver supplies the id, clock reading,
// operator and whatever location has resolved so far.
type Submit struct {
	ID         string
	At         time.Time
	CapturedBy string
	Location   *domain.Location
}

type SaveFailed struct{ Err error }

func (CameraPermission) eventName() string        { return "CameraPermission" }
func (PhotoCaptured) eventName() string           { return "PhotoCaptured" }
func (Retake) eventName() string                  { return "Retake" }
func (Confirm) eventName() string                 { return "Confirm" }
func (ClassificationCompleted) eventName() string { return "ClassificationCompleted" }
func (ClassificationFailed) eventName() string    { return "ClassificationFailed" }
func (MarkCorrect) eventName() string             { return "MarkCorrect" }
func (MarkIncorrect) eventName() string           { return "MarkIncorrect" }
func (Cancel) eventName() string                  { return "Cancel" }
func (FieldChanged) eventName() string            { return "FieldChanged" }
func (Submit) eventName() string                  { return "Submit" }
func (SaveSucceeded) eventName() string           { return "SaveSucceeded" }
func (SaveFailed) eventName() string              { return "SaveFailed" }
func (Reset) eventName() string                   { return "Reset" }

// Effect is work Transition asks the driver to perform.
type Effect interface {
	effect()
}

// StartLookup begins location enrichment for the given generation.
type StartLookup struct{ Generation uint64 }

// StartClassification invokes the classifier on the confirmed photo.
type StartClassification struct {
	Generation uint64
	PhotoRef   string
}

// SaveItem writes the assembled record to the repository. The driver
// reports the outcome with SaveSucceeded or SaveFailed.
type SaveItem struct{ Item domain.CapturedItem }

type (
	CancelLookup         struct{}
	CancelClassification struct{}
)

func (StartLookup) effect()          {}
func (CancelLookup) effect()         {}
func (StartClassification) effect()  {}
func (CancelClassification) effect() {}
func (SaveItem) effect()             {}
