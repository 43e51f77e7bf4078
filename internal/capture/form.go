package capture

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vbonduro/wastecapture/internal/domain"
)

// Form field names accepted by FieldChanged.
const (
	FieldWasteType   = "wasteType"
	FieldDescription = "description"
	FieldVolume      = "volume"
	FieldWeight      = "weight"
	FieldHeight      = "height"
	FieldWidth       = "width"
	FieldBreadth     = "breadth"
	FieldNotes       = "notes"
)

type FormKind int

const (
	FormNone FormKind = iota
	// FormManual overrides the classification with a typed waste type.
	FormManual
	// FormVolume accepts the classification and estimates volume and weight.
	FormVolume
)

func (k FormKind) String() string {
	switch k {
	case FormManual:
		return "manual"
	case FormVolume:
		return "volume"
	default:
		return "none"
	}
}

// SubmissionType is the label shown on the submission summary.
func (k FormKind) SubmissionType() string {
	switch k {
	case FormManual:
		return "Manual Verification"
	case FormVolume:
		return "Volume & Weight Estimation"
	default:
		return ""
	}
}

// Form is the correction form attached to a session. It is either a
// ManualForm or a VolumeForm. Implementations are values: Set returns a new
// form and never mutates the receiver.
type Form interface {
	Kind() FormKind
	Set(field, value string) (Form, error)
	Validate() error
	// Values returns the current field values keyed by field name.
	Values() map[string]string
	apply(item *domain.CapturedItem, classification string)
}

// Measurements are the fields both forms share.
type Measurements struct {
	Volume  string
	Weight  string
	Height  string
	Width   string
	Breadth string
	Notes   string
}

// set updates one shared field. Changing the volume to a known value always
// overwrites the weight with that volume's suggested weight.
func (m Measurements) set(field, value string) (Measurements, bool) {
	switch field {
	case FieldVolume:
		m.Volume = value
		if v, ok := domain.ParseVolume(value); ok {
			m.Volume = string(v)
			m.Weight, _ = v.SuggestedWeight()
		}
	case FieldWeight:
		m.Weight = value
	case FieldHeight:
		m.Height = value
	case FieldWidth:
		m.Width = value
	case FieldBreadth:
		m.Breadth = value
	case FieldNotes:
		m.Notes = value
	default:
		return m, false
	}
	return m, true
}

func (m Measurements) validate(verr *ValidationError, volumeRequired bool) {
	if strings.TrimSpace(m.Volume) == "" {
		if volumeRequired {
			verr.add(FieldVolume, "is required")
		}
	} else if _, ok := domain.ParseVolume(m.Volume); !ok {
		verr.add(FieldVolume, fmt.Sprintf("must be one of small, medium, large, extra-large; got %q", m.Volume))
	}

	if volumeRequired && strings.TrimSpace(m.Weight) == "" {
		verr.add(FieldWeight, "is required")
	}

	for _, f := range []struct{ name, value string }{
		{FieldWeight, m.Weight},
		{FieldHeight, m.Height},
		{FieldWidth, m.Width},
		{FieldBreadth, m.Breadth},
	} {
		if !validNumber(f.value) {
			verr.add(f.name, "must be a non-negative number")
		}
	}
}

func (m Measurements) values(out map[string]string) {
	out[FieldVolume] = m.Volume
	out[FieldWeight] = m.Weight
	out[FieldHeight] = m.Height
	out[FieldWidth] = m.Width
	out[FieldBreadth] = m.Breadth
	out[FieldNotes] = m.Notes
}

func (m Measurements) apply(item *domain.CapturedItem) {
	if v, ok := domain.ParseVolume(m.Volume); ok {
		item.Volume = v
	}
	item.Weight = strings.TrimSpace(m.Weight)
	item.Dimensions = domain.NewDimensions(m.Height, m.Width, m.Breadth)
	item.Notes = strings.TrimSpace(m.Notes)
}

// validNumber accepts an empty value or a finite non-negative decimal.
func validNumber(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	n, err := strconv.ParseFloat(s, 64)
	return err == nil && n >= 0 && !math.IsInf(n, 0) && !math.IsNaN(n)
}

// ManualForm replaces the classification with operator-entered details.
type ManualForm struct {
	WasteType   string
	Description string
	Measurements
}

func (ManualForm) Kind() FormKind { return FormManual }

func (f ManualForm) Set(field, value string) (Form, error) {
	switch field {
	case FieldWasteType:
		f.WasteType = value
		return f, nil
	case FieldDescription:
		f.Description = value
		return f, nil
	}
	m, ok := f.Measurements.set(field, value)
	if !ok {
		return f, unknownField(field, FormManual)
	}
	f.Measurements = m
	return f, nil
}

func (f ManualForm) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(f.WasteType) == "" {
		verr.add(FieldWasteType, "is required")
	}
	f.Measurements.validate(verr, false)
	return verr.orNil()
}

func (f ManualForm) Values() map[string]string {
	out := map[string]string{
		FieldWasteType:   f.WasteType,
		FieldDescription: f.Description,
	}
	f.Measurements.values(out)
	return out
}

func (f ManualForm) apply(item *domain.CapturedItem, _ string) {
	item.WasteType = strings.TrimSpace(f.WasteType)
	item.Description = strings.TrimSpace(f.Description)
	f.Measurements.apply(item)
}

// VolumeForm accepts the classification label and records its size.
type VolumeForm struct {
	Measurements
}

func (VolumeForm) Kind() FormKind { return FormVolume }

func (f VolumeForm) Set(field, value string) (Form, error) {
	m, ok := f.Measurements.set(field, value)
	if !ok {
		return f, unknownField(field, FormVolume)
	}
	f.Measurements = m
	return f, nil
}

func (f VolumeForm) Validate() error {
	verr := &ValidationError{}
	f.Measurements.validate(verr, true)
	return verr.orNil()
}

func (f VolumeForm) Values() map[string]string {
	out := make(map[string]string, 6)
	f.Measurements.values(out)
	return out
}

func (f VolumeForm) apply(item *domain.CapturedItem, classification string) {
	item.WasteType = classification
	f.Measurements.apply(item)
}

func unknownField(field string, kind FormKind) error {
	verr := &ValidationError{}
	verr.add(field, fmt.Sprintf("is not a field of the %s form", kind))
	return verr
}
