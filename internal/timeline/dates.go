package timeline

import "time"

// trackerTimeLayout matches the tracker's timestamp rendering: ISO-8601 with
// a numeric zone offset, e.g. "2024-03-05T10:15:30.000000+0000". time.Parse
// accepts fractional seconds of any width even though the layout omits them.
const trackerTimeLayout = "2006-01-02T15:04:05-0700"

// displayDateLayout is the operator-facing date format.
const displayDateLayout = "02-01-2006"

// FormatDate re-renders a tracker timestamp as DD-MM-YYYY. Strings that do
// not parse (date-only due dates, "N/A", garbage) are returned unchanged;
// parse failure never propagates as an error.
func FormatDate(raw string) string {
	t, err := time.Parse(trackerTimeLayout, raw)
	if err != nil {
		return raw
	}
	return t.Format(displayDateLayout)
}
