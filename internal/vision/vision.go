package vision

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ClassificationPrompt is the shared prompt used by all model-backed classifiers.
const ClassificationPrompt = `Classify the waste item in this photo for a collection crew.
Choose a short category label such as "Bulk Items (Furniture, appliances)",
"Electronics", "Green Waste", "Construction Debris" or "General Waste".
Respond with exactly one line, format: label | confidence
where confidence is a number between 0 and 1.`

var (
	ErrClassificationFailed  = errors.New("classification failed")
	ErrClassificationTimeout = errors.New("classification timed out")
)

// Classifier labels a captured photo. Implementations must honour ctx and
// deliver exactly one result or error per call.
type Classifier interface {
	Classify(ctx context.Context, photoRef string) (*Result, error)
}

type Result struct {
	Label string
	// Confidence is nil when the provider does not report one.
	Confidence  *float64
	RawResponse string
}

type timeoutClassifier struct {
	next    Classifier
	timeout time.Duration
}

// WithTimeout bounds every Classify call on c. A call that exceeds timeout
// fails with ErrClassificationTimeout. A zero timeout returns c unchanged.
func WithTimeout(c Classifier, timeout time.Duration) Classifier {
	if timeout <= 0 {
		return c
	}
	return &timeoutClassifier{next: c, timeout: timeout}
}

func (t *timeoutClassifier) Classify(ctx context.Context, photoRef string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	res, err := t.next.Classify(ctx, photoRef)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %v", ErrClassificationTimeout, t.timeout, err)
		}
		return nil, err
	}
	return res, nil
}
