package domain

// ItemUpdate is a partial edit of a stored item. Nil fields are left as-is.
type ItemUpdate struct {
	WasteType   *string
	Description *string
	Volume      *Volume
	Weight      *string
	Dimensions  *Dimensions
	Notes       *string
	Location    *Location
}

// Apply returns a copy of item with the non-nil fields of u merged in. The
// id, photo, and capture metadata never change.
func (u ItemUpdate) Apply(item CapturedItem) CapturedItem {
	if u.WasteType != nil {
		item.WasteType = *u.WasteType
	}
	if u.Description != nil {
		item.Description = *u.Description
	}
	if u.Volume != nil {
		item.Volume = *u.Volume
	}
	if u.Weight != nil {
		item.Weight = *u.Weight
	}
	if u.Dimensions != nil {
		item.Dimensions = NewDimensions(u.Dimensions.Height, u.Dimensions.Width, u.Dimensions.Breadth)
	}
	if u.Notes != nil {
		item.Notes = *u.Notes
	}
	if u.Location != nil {
		loc := *u.Location
		item.Location = &loc
	}
	return item
}
