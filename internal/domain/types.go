package domain

import (
	"strings"
	"time"
)

// CapturedItem is the record persisted once a capture session is submitted.
type CapturedItem struct {
	ID          string      `json:"id"`
	PhotoURI    string      `json:"photoUri"`
	WasteType   string      `json:"wasteType"`
	Description string      `json:"description,omitempty"`
	Volume      Volume      `json:"volume,omitempty"`
	Weight      string      `json:"weight,omitempty"`
	Dimensions  *Dimensions `json:"dimensions,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	Location    *Location   `json:"location,omitempty"`
	CapturedAt  time.Time   `json:"capturedAt"`
	CapturedBy  string      `json:"capturedBy"`
}

type Dimensions struct {
	Height  string `json:"height"`
	Width   string `json:"width"`
	Breadth string `json:"breadth"`
}

// NewDimensions returns nil unless at least one part is non-empty, so an
// all-blank triple is never serialized as an empty object.
func NewDimensions(height, width, breadth string) *Dimensions {
	height, width, breadth = strings.TrimSpace(height), strings.TrimSpace(width), strings.TrimSpace(breadth)
	if height == "" && width == "" && breadth == "" {
		return nil
	}
	return &Dimensions{Height: height, Width: width, Breadth: breadth}
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Operator is the signed-in field operator.
type Operator struct {
	Name    string `json:"name"`
	License string `json:"license"`
}
