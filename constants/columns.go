package constants

// Column is one header of the output sheet.
type Column string

const (
	ColFileName      Column = "FILE_NAME"
	ColCountry       Column = "COUNTRY"
	ColState         Column = "STATE"
	ColLocation      Column = "LOCATION"
	ColLocationShort Column = "LOCATION_SHORT"
	ColRegionCode    Column = "REGION_CODE"
	ColStartRecord   Column = "START_RECORD"
	ColEndRecord     Column = "END_RECORD"
	ColTsEventID     Column = "TSEVENT_ID"
	ColTsRunupID     Column = "TSRUNUP_ID"
	ColRecordedDate  Column = "RECORDED_DATE"
	ColLatitude      Column = "LATITUDE"
	ColLongitude     Column = "LONGITUDE"
	ColImages        Column = "IMAGES"
	ColScale         Column = "SCALE"
	ColMicrofilmName Column = "MICROFILM_NAME"
	ColComments      Column = "COMMENTS"
)

// Columns is the fixed output schema, in sheet order.
var Columns = []Column{
	ColFileName,
	ColCountry,
	ColState,
	ColLocation,
	ColLocationShort,
	ColRegionCode,
	ColStartRecord,
	ColEndRecord,
	ColTsEventID,
	ColTsRunupID,
	ColRecordedDate,
	ColLatitude,
	ColLongitude,
	ColImages,
	ColScale,
	ColMicrofilmName,
	ColComments,
}

// Headers returns the column names as plain strings.
func Headers() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = string(c)
	}
	return out
}

// UnknownMicrofilm is written when no microfilm name is configured or derivable.
const UnknownMicrofilm = "UNKNOWN"
