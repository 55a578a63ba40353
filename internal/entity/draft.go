package entity

// Field is a candidate value plus the flag saying a human still has to confirm it.
// The flag never reaches the output sheet.
type Field struct {
	Value       string
	NeedsReview bool
}

// Accepted builds a confirmed field.
func Accepted(v string) Field { return Field{Value: v} }

// Flagged builds a field that needs a human look.
func Flagged(v string) Field { return Field{Value: v, NeedsReview: true} }

// Draft holds the per-field state of one item while it moves through the pipeline.
type Draft struct {
	FileName string

	Country       Field
	State         Field
	Location      Field
	LocationShort Field
	RegionCode    Field
	RecordedDate  Field
	Scale         Field
	Latitude      Field
	Longitude     Field
	MicrofilmName Field
	Images        Field
	Comments      Field
}

// NeedsReview reports whether any field is flagged or a required value is missing.
func (d *Draft) NeedsReview() bool {
	for _, f := range []Field{d.Country, d.State, d.Location, d.LocationShort, d.RegionCode} {
		if f.NeedsReview {
			return true
		}
	}
	return d.RecordedDate.Value == "" || d.Scale.Value == ""
}

// Record drops the review flags and returns the output row.
func (d *Draft) Record() Record {
	return Record{
		FileName:      d.FileName,
		Country:       d.Country.Value,
		State:         d.State.Value,
		Location:      d.Location.Value,
		LocationShort: d.LocationShort.Value,
		RegionCode:    d.RegionCode.Value,
		RecordedDate:  d.RecordedDate.Value,
		Latitude:      d.Latitude.Value,
		Longitude:     d.Longitude.Value,
		Images:        d.Images.Value,
		Scale:         d.Scale.Value,
		MicrofilmName: d.MicrofilmName.Value,
		Comments:      d.Comments.Value,
	}
}
