package capture

import (
	"github.com/vbonduro/wastecapture/internal/domain"
	"github.com/vbonduro/wastecapture/internal/location"
)

func newItem(photo string, ev Submit) domain.CapturedItem {
	item := domain.CapturedItem{
		ID:         ev.ID,
		PhotoURI:   photo,
		CapturedAt: ev.At,
		CapturedBy: ev.CapturedBy,
	}
	if ev.Location != nil {
		loc := *ev.Location
		item.Location = &loc
	}
	return item
}

// SummaryField is one labelled row of the submission summary.
type SummaryField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Summary lists the submitted item's details in display order. Empty values
// are left out.
func Summary(item domain.CapturedItem, kind FormKind) []SummaryField {
	var dims domain.Dimensions
	if item.Dimensions != nil {
		dims = *item.Dimensions
	}
	loc := ""
	if item.Location != nil {
		loc = location.FormatLocation(*item.Location)
	}
	volume := ""
	if item.Volume != "" {
		volume = item.Volume.Label()
	}

	rows := []SummaryField{
		{"Submission Type", kind.SubmissionType()},
		{"Waste Type", item.WasteType},
		{"Description", item.Description},
		{"Volume", volume},
		{"Weight (kg)", item.Weight},
		{"Height (cm)", dims.Height},
		{"Width (cm)", dims.Width},
		{"Breadth (cm)", dims.Breadth},
		{"Notes", item.Notes},
		{"Location", loc},
	}
	out := rows[:0]
	for _, r := range rows {
		if r.Value != "" {
			out = append(out, r)
		}
	}
	return out
}
