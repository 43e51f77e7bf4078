// Package simulated provides the reference classifier used until a real model
// is configured: it waits a fixed delay and always returns the same label.
package simulated

import (
	"context"
	"time"

	"github.com/vbonduro/wastecapture/internal/vision"
)

const (
	DefaultLabel = "Bulk Items (Furniture, appliances)"
	DefaultDelay = 5 * time.Second
)

type Classifier struct {
	label string
	delay time.Duration
}

func NewClassifier(label string, delay time.Duration) *Classifier {
	if label == "" {
		label = DefaultLabel
	}
	return &Classifier{label: label, delay: delay}
}

func (c *Classifier) Classify(ctx context.Context, _ string) (*vision.Result, error) {
	if c.delay > 0 {
		timer := time.NewTimer(c.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &vision.Result{Label: c.label, RawResponse: c.label}, nil
}
