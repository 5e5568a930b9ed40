package roster

import (
	"strings"
)

// AvailabilityPrompt starts every availability question in the sign-up form.
const AvailabilityPrompt = "Tell us about your availability!"

// NoAvailability is written when a leader left every day blank.
const NoAvailability = "No availability specified"

var weekdays = map[string]bool{
	"mon": true, "monday": true,
	"tue": true, "tues": true, "tuesday": true,
	"wed": true, "weds": true, "wednesday": true,
	"thu": true, "thur": true, "thurs": true, "thursday": true,
	"fri": true, "friday": true,
	"sat": true, "saturday": true,
	"sun": true, "sunday": true,
}

var availabilityReplacer = strings.NewReplacer(
	"all day", "all-day",
	"Afternoon/evening", "afternoon",
	"not available", "unavailable",
)

// DateLabel extracts "Aug 25" from an availability question header such as
// "Tell us about your availability! ... mid-August.Mon Aug 25".
func DateLabel(header string) (string, bool) {
	if !strings.HasPrefix(strings.TrimSpace(header), AvailabilityPrompt) {
		return "", false
	}
	tail := header[strings.LastIndex(header, ".")+1:]
	fields := strings.Fields(tail)
	if len(fields) > 0 && weekdays[strings.ToLower(fields[0])] {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return "", false
	}
	return strings.Join(fields, " "), true
}

// NormalizeAvailability maps the form's answer wording onto availability tags.
func NormalizeAvailability(answer string) string {
	return availabilityReplacer.Replace(strings.TrimSpace(answer))
}

func emptyAnswer(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "none":
		return true
	}
	return false
}

// Simplify keeps name and email and folds the per-day availability question
// columns into one "Aug 25: all-day | Aug 26: morning" column.
func Simplify(full *Table) (*Table, error) {
	first, last, email, err := full.identity()
	if err != nil {
		return nil, err
	}

	type dayColumn struct {
		index int
		label string
	}
	var days []dayColumn
	for i, h := range full.Header {
		if label, ok := DateLabel(h); ok {
			days = append(days, dayColumn{index: i, label: label})
		}
	}

	out := &Table{
		Header: []string{ColFirstName, ColLastName, ColEmail, ColAvailability},
		Rows:   make([][]string, 0, len(full.Rows)),
	}
	for _, row := range full.Rows {
		var parts []string
		for _, d := range days {
			answer := full.Cell(row, d.index)
			if emptyAnswer(answer) {
				continue
			}
			parts = append(parts, d.label+": "+NormalizeAvailability(answer))
		}
		avail := NoAvailability
		if len(parts) > 0 {
			avail = strings.Join(parts, " | ")
		}
		out.Rows = append(out.Rows, []string{
			full.Cell(row, first), full.Cell(row, last), full.Cell(row, email), avail,
		})
	}
	return out, nil
}
