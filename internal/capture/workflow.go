package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/wastecapture/internal/domain"
	"github.com/vbonduro/wastecapture/internal/location"
	"github.com/vbonduro/wastecapture/internal/vision"
)

// DefaultClassifyTimeout bounds a single classification call.
const DefaultClassifyTimeout = 30 * time.Second

// itemRepository is the subset of the item stores that Workflow requires.
type itemRepository interface {
	Save(ctx context.Context, item domain.CapturedItem) error
}

// Locator resolves the current location. A nil result means no location.
type Locator interface {
	Resolve(ctx context.Context) *domain.Location
}

// Workflow owns one capture session and runs the effects its transitions
// request: location lookups, classification calls and repository saves.
// It is safe for concurrent use.
type Workflow struct {
	classifier vision.Classifier
	items      itemRepository
	locator    Locator
	logger     *slog.Logger
	now        func() time.Time
	newID      func() (string, error)
	timeout    time.Duration

	mu             sync.Mutex
	session        Session
	lookup         *location.Lookup
	cancelClassify context.CancelFunc
	classifyDone   chan struct{}
}

type WorkflowOption func(*Workflow)

// WithLocator enables location enrichment. Without it items never carry a
// location.
func WithLocator(l Locator) WorkflowOption { return func(w *Workflow) { w.locator = l } }

func WithClock(now func() time.Time) WorkflowOption { return func(w *Workflow) { w.now = now } }

func WithIDGenerator(f func() (string, error)) WorkflowOption {
	return func(w *Workflow) { w.newID = f }
}

// WithClassifyTimeout overrides DefaultClassifyTimeout. Zero disables the
// timeout.
func WithClassifyTimeout(d time.Duration) WorkflowOption { return func(w *Workflow) { w.timeout = d } }

func NewWorkflow(classifier vision.Classifier, items itemRepository, logger *slog.Logger, opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		items:   items,
		logger:  logger,
		now:     time.Now,
		newID:   newUUID,
		timeout: DefaultClassifyTimeout,
		session: NewSession(),
	}
	for _, o := range opts {
		o(w)
	}
	w.classifier = vision.WithTimeout(classifier, w.timeout)
	return w
}

func newUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate item id: %w", err)
	}
	return id.String(), nil
}

// Snapshot returns the current session.
func (w *Workflow) Snapshot() Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

// Summary returns the summary of the last submitted item, or nil when the
// session has not reached Submitted.
func (w *Workflow) Summary() []SummaryField {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session.State != StateSubmitted || w.session.Submitted == nil {
		return nil
	}
	return Summary(*w.session.Submitted, w.session.SubmittedKind)
}

// Location returns what the current capture's lookup has resolved so far.
func (w *Workflow) Location() *domain.Location {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentLocation()
}

// Dispatch applies ev and runs the resulting effects. A Submit event with
// zero-valued fields is completed from the clock, the id generator and the
// current location. Submit returns only after the repository write; a failed
// write returns an error wrapping ErrPersistence and leaves the session in
// SubmitFailed.
func (w *Workflow) Dispatch(ctx context.Context, ev Event) (Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if sub, ok := ev.(Submit); ok {
		var err error
		if ev, err = w.completeSubmit(sub); err != nil {
			return w.session, err
		}
	}
	if err := w.apply(ctx, ev); err != nil {
		return w.session, err
	}
	return w.session, nil
}

// Submit dispatches a Submit event recorded as captured by operator.
func (w *Workflow) Submit(ctx context.Context, operator domain.Operator) (Session, error) {
	return w.Dispatch(ctx, Submit{CapturedBy: operator.Name})
}

// Close cancels any in-flight lookup or classification and waits for the
// classification goroutine to return.
func (w *Workflow) Close() {
	w.mu.Lock()
	w.stopLookup()
	done := w.stopClassification()
	w.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (w *Workflow) completeSubmit(sub Submit) (Submit, error) {
	if sub.ID == "" {
		id, err := w.newID()
		if err != nil {
			return sub, err
		}
		sub.ID = id
	}
	if sub.At.IsZero() {
		sub.At = w.now().UTC()
	}
	if sub.Location == nil {
		sub.Location = w.currentLocation()
	}
	return sub, nil
}

// apply must be called with w.mu held.
func (w *Workflow) apply(ctx context.Context, ev Event) error {
	from := w.session.State
	next, effects, err := Transition(w.session, ev)
	if err != nil {
		if !errors.Is(err, ErrInvalidTransition) && !errors.Is(err, ErrValidation) {
			w.session = next
		}
		return err
	}
	w.session = next
	if from != next.State {
		w.logger.Debug("capture state changed", "event", ev.eventName(), "from", from.String(), "to", next.State.String(), "generation", next.Generation)
	}

	for _, eff := range effects {
		if err := w.run(ctx, eff); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workflow) run(ctx context.Context, eff Effect) error {
	switch eff := eff.(type) {
	case StartLookup:
		w.startLookup(eff.Generation)
	case CancelLookup:
		w.stopLookup()
	case StartClassification:
		w.startClassification(eff.Generation, eff.PhotoRef)
	case CancelClassification:
		w.stopClassification()
	case SaveItem:
		return w.save(ctx, eff.Item)
	}
	return nil
}

func (w *Workflow) startLookup(generation uint64) {
	w.stopLookup()
	if w.locator == nil {
		return
	}
	w.lookup = location.Start(generation, w.locator.Resolve)
}

func (w *Workflow) stopLookup() {
	if w.lookup != nil {
		w.lookup.Cancel()
		w.lookup = nil
	}
}

// currentLocation must be called with w.mu held.
func (w *Workflow) currentLocation() *domain.Location {
	if w.lookup == nil || w.lookup.Generation() != w.session.Generation {
		return nil
	}
	return w.lookup.Result()
}

func (w *Workflow) startClassification(generation uint64, photoRef string) {
	w.stopClassification()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w.cancelClassify = cancel
	w.classifyDone = done

	w.logger.Info("classification started", "generation", generation, "photo", photoRef)
	go func() {
		defer close(done)
		res, err := w.classifier.Classify(ctx, photoRef)
		if ctx.Err() != nil {
			return
		}

		var ev Event
		if err != nil {
			w.logger.Warn("classification failed", "generation", generation, "error", err)
			ev = ClassificationFailed{Generation: generation, Err: err}
		} else {
			w.logger.Info("classification complete", "generation", generation, "label", res.Label)
			ev = ClassificationCompleted{Generation: generation, Result: res}
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		// Cancelled while waiting for the lock.
		if ctx.Err() != nil {
			return
		}
		if err := w.apply(context.Background(), ev); err != nil {
			w.logger.Error("failed to apply classification result", "error", err)
		}
	}()
}

// stopClassification cancels the in-flight call, if any, and returns a
// channel closed when its goroutine exits.
func (w *Workflow) stopClassification() chan struct{} {
	done := w.classifyDone
	if w.cancelClassify != nil {
		w.cancelClassify()
	}
	w.cancelClassify = nil
	w.classifyDone = nil
	return done
}

func (w *Workflow) save(ctx context.Context, item domain.CapturedItem) error {
	if err := w.items.Save(ctx, item); err != nil {
		w.logger.Error("failed to save captured item", "id", item.ID, "error", err)
		if aerr := w.apply(ctx, SaveFailed{Err: err}); aerr != nil {
			return aerr
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	w.logger.Info("captured item saved", "id", item.ID, "waste_type", item.WasteType, "has_location", item.Location != nil)
	return w.apply(ctx, SaveSucceeded{})
}
