package domain

import "strings"

type Volume string

const (
	VolumeSmall      Volume = "small"
	VolumeMedium     Volume = "medium"
	VolumeLarge      Volume = "large"
	VolumeExtraLarge Volume = "extra-large"
)

// VolumeOption pairs a volume with its display label and suggested weight in kg.
type VolumeOption struct {
	Value  Volume
	Label  string
	Weight string
}

// VolumeOptions is the fixed lookup table used for weight auto-suggestion.
var VolumeOptions = []VolumeOption{
	{Value: VolumeSmall, Label: "Small (Bag/Box)", Weight: "5"},
	{Value: VolumeMedium, Label: "Medium (Cart/Chair)", Weight: "15"},
	{Value: VolumeLarge, Label: "Large (Sofa/Fridge)", Weight: "40"},
	{Value: VolumeExtraLarge, Label: "Extra Large (Bulk)", Weight: "80"},
}

// ParseVolume normalizes s to a known Volume. "xlarge" is accepted as an
// alias for extra-large.
func ParseVolume(s string) (Volume, bool) {
	v := Volume(strings.ToLower(strings.TrimSpace(s)))
	if v == "xlarge" {
		v = VolumeExtraLarge
	}
	if _, ok := v.Option(); ok {
		return v, true
	}
	return "", false
}

func (v Volume) Option() (VolumeOption, bool) {
	for _, opt := range VolumeOptions {
		if opt.Value == v {
			return opt, true
		}
	}
	return VolumeOption{}, false
}

// Label returns the display label, or the raw value for unknown volumes.
func (v Volume) Label() string {
	if opt, ok := v.Option(); ok {
		return opt.Label
	}
	return string(v)
}

// SuggestedWeight returns the default weight for v.
func (v Volume) SuggestedWeight() (string, bool) {
	opt, ok := v.Option()
	return opt.Weight, ok
}
