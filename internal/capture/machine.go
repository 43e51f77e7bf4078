package capture

import (
	"fmt"
	"strings"

	"github.com/vbonduro/wastecapture/internal/vision"
)

// Transition applies ev to s. On ErrInvalidTransition and on validation
// failures the returned Session equals s and no effects are produced.
// Classification events from an older generation are ignored without error.
func Transition(s Session, ev Event) (Session, []Effect, error) {
	if _, ok := ev.(Reset); ok {
		return s.reset(), []Effect{CancelClassification{}, CancelLookup{}}, nil
	}

	switch ev := ev.(type) {
	case ClassificationCompleted:
		if ev.Generation != s.Generation {
			return s, nil, nil
		}
	case ClassificationFailed:
		if ev.Generation != s.Generation {
			return s, nil, nil
		}
	}

	switch s.State {
	case StateIdle:
		return idle(s, ev)
	case StatePendingConfirmation:
		return pendingConfirmation(s, ev)
	case StateClassifying:
		return classifying(s, ev)
	case StateAwaitingVerification:
		return awaitingVerification(s, ev)
	case StateManualEntry, StateVolumeEntry:
		return editing(s, ev)
	case StatePersisting:
		return persisting(s, ev)
	case StateSubmitFailed:
		return submitFailed(s, ev)
	}
	return invalid(s, ev)
}

func invalid(s Session, ev Event) (Session, []Effect, error) {
	return s, nil, fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, ev.eventName(), s.State)
}

func idle(s Session, ev Event) (Session, []Effect, error) {
	switch ev := ev.(type) {
	case CameraPermission:
		s.Permission = PermissionDenied
		if ev.Granted {
			s.Permission = PermissionGranted
		}
		return s, nil, nil

	case PhotoCaptured:
		var err error
		switch {
		case s.Permission == PermissionDenied:
			err = ErrCameraDenied
		case ev.Err != nil:
			err = fmt.Errorf("%w: %v", ErrCaptureFailed, ev.Err)
		case strings.TrimSpace(ev.PhotoRef) == "":
			err = fmt.Errorf("%w: no image returned", ErrCaptureFailed)
		}
		if err != nil {
			s.LastError = err
			return s, nil, err
		}
		s.PendingPhoto = ev.PhotoRef
		s.LastError = nil
		s.State = StatePendingConfirmation
		return s, []Effect{StartLookup{Generation: s.Generation}}, nil
	}
	return invalid(s, ev)
}

func pendingConfirmation(s Session, ev Event) (Session, []Effect, error) {
	switch ev.(type) {
	case Retake:
		next := Session{
			State:      StateIdle,
			Generation: s.Generation + 1,
			Permission: s.Permission,
		}
		return next, []Effect{CancelLookup{}}, nil

	case Confirm:
		s.ConfirmedPhoto = s.PendingPhoto
		s.PendingPhoto = ""
		s.LastError = nil
		s.State = StateClassifying
		return s, []Effect{StartClassification{Generation: s.Generation, PhotoRef: s.ConfirmedPhoto}}, nil
	}
	return invalid(s, ev)
}

func classifying(s Session, ev Event) (Session, []Effect, error) {
	switch ev := ev.(type) {
	case ClassificationCompleted:
		if ev.Result == nil || strings.TrimSpace(ev.Result.Label) == "" {
			return classificationFailed(s, fmt.Errorf("%w: empty result", vision.ErrClassificationFailed))
		}
		s.Classification = ev.Result
		s.State = StateAwaitingVerification
		return s, nil, nil

	case ClassificationFailed:
		err := ev.Err
		if err == nil {
			err = vision.ErrClassificationFailed
		}
		return classificationFailed(s, err)
	}
	return invalid(s, ev)
}

// classificationFailed hands the confirmed photo back for re-confirmation.
func classificationFailed(s Session, err error) (Session, []Effect, error) {
	s.PendingPhoto = s.ConfirmedPhoto
	s.ConfirmedPhoto = ""
	s.LastError = err
	s.State = StatePendingConfirmation
	return s, nil, nil
}

func awaitingVerification(s Session, ev Event) (Session, []Effect, error) {
	switch ev.(type) {
	case MarkCorrect:
		s.Form = VolumeForm{}
		s.State = StateVolumeEntry
		return s, nil, nil
	case MarkIncorrect:
		s.Form = ManualForm{}
		s.State = StateManualEntry
		return s, nil, nil
	}
	return invalid(s, ev)
}

func editing(s Session, ev Event) (Session, []Effect, error) {
	switch ev := ev.(type) {
	case Cancel:
		return backToVerification(s), nil, nil

	case FieldChanged:
		form, err := s.Form.Set(ev.Field, ev.Value)
		if err != nil {
			return s, nil, err
		}
		s.Form = form
		return s, nil, nil

	case Submit:
		return submit(s, ev)
	}
	return invalid(s, ev)
}

func submitFailed(s Session, ev Event) (Session, []Effect, error) {
	switch ev := ev.(type) {
	case Cancel:
		return backToVerification(s), nil, nil
	case Submit:
		return submit(s, ev)
	}
	return invalid(s, ev)
}

func backToVerification(s Session) Session {
	s.Form = nil
	s.Draft = nil
	s.LastError = nil
	s.State = StateAwaitingVerification
	return s
}

func submit(s Session, ev Submit) (Session, []Effect, error) {
	if s.Form == nil {
		return invalid(s, ev)
	}
	if err := s.Form.Validate(); err != nil {
		return s, nil, err
	}

	label := ""
	if s.Classification != nil {
		label = s.Classification.Label
	}
	item := newItem(s.ConfirmedPhoto, ev)
	s.Form.apply(&item, label)

	s.Draft = &item
	s.LastError = nil
	s.State = StatePersisting
	return s, []Effect{SaveItem{Item: item}}, nil
}

func persisting(s Session, ev Event) (Session, []Effect, error) {
	switch ev := ev.(type) {
	case SaveSucceeded:
		next := Session{
			State:         StateSubmitted,
			Generation:    s.Generation,
			Permission:    s.Permission,
			Submitted:     s.Draft,
			SubmittedKind: s.Form.Kind(),
		}
		return next, []Effect{CancelLookup{}}, nil

	case SaveFailed:
		s.Draft = nil
		s.LastError = ErrPersistence
		if ev.Err != nil {
			s.LastError = fmt.Errorf("%w: %v", ErrPersistence, ev.Err)
		}
		s.State = StateSubmitFailed
		return s, nil, nil
	}
	return invalid(s, ev)
}
