package entity

import "github.com/joseph-ayodele/marigram-tracker/constants"

// Record is one output row per processed marigram image.
type Record struct {
	FileName      string `json:"file_name"`
	Country       string `json:"country"`
	State         string `json:"state"`
	Location      string `json:"location"`
	LocationShort string `json:"location_short"`
	RegionCode    string `json:"region_code"`
	StartRecord   string `json:"start_record"`
	EndRecord     string `json:"end_record"`
	TsEventID     string `json:"tsevent_id"`
	TsRunupID     string `json:"tsrunup_id"`
	RecordedDate  string `json:"recorded_date"`
	Latitude      string `json:"latitude"`
	Longitude     string `json:"longitude"`
	Images        string `json:"images"`
	Scale         string `json:"scale"`
	MicrofilmName string `json:"microfilm_name"`
	Comments      string `json:"comments"`
}

// Values returns the record laid out in constants.Columns order.
func (r Record) Values() []string {
	out := make([]string, 0, len(constants.Columns))
	for _, c := range constants.Columns {
		out = append(out, r.Get(c))
	}
	return out
}

// Get returns the value stored under column c, or "" for an unknown column.
func (r Record) Get(c constants.Column) string {
	switch c {
	case constants.ColFileName:
		return r.FileName
	case constants.ColCountry:
		return r.Country
	case constants.ColState:
		return r.State
	case constants.ColLocation:
		return r.Location
	case constants.ColLocationShort:
		return r.LocationShort
	case constants.ColRegionCode:
		return r.RegionCode
	case constants.ColStartRecord:
		return r.StartRecord
	case constants.ColEndRecord:
		return r.EndRecord
	case constants.ColTsEventID:
		return r.TsEventID
	case constants.ColTsRunupID:
		return r.TsRunupID
	case constants.ColRecordedDate:
		return r.RecordedDate
	case constants.ColLatitude:
		return r.Latitude
	case constants.ColLongitude:
		return r.Longitude
	case constants.ColImages:
		return r.Images
	case constants.ColScale:
		return r.Scale
	case constants.ColMicrofilmName:
		return r.MicrofilmName
	case constants.ColComments:
		return r.Comments
	}
	return ""
}
