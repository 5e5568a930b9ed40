package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arnavshah/orientation-scheduler/pkg/models"
	"github.com/arnavshah/orientation-scheduler/pkg/timeofday"
)

// NoAvailability is written for leaders who declared nothing.
const NoAvailability = "No availability specified"

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

// RowError names the data line (1-based, header excluded) that failed.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// table is a header-indexed csv reader.
type table struct {
	r    *csv.Reader
	cols map[string]int
	line int
}

func newTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty csv: %w", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		cols[h] = i
	}
	return &table{r: cr, cols: cols}, nil
}

func (t *table) require(names ...string) error {
	for _, n := range names {
		if _, ok := t.cols[n]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumn, n)
		}
	}
	return nil
}

func (t *table) has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// next returns the next non-blank record, or io.EOF.
func (t *table) next() ([]string, error) {
	for {
		rec, err := t.r.Read()
		if err != nil {
			return nil, err
		}
		t.line++
		if !blank(rec) {
			return rec, nil
		}
	}
}

func (t *table) get(rec []string, name string) string {
	i, ok := t.cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// ReadLeaders parses a simplified roster. Names come from First Name/Last Name
// or a single Name column.
func ReadLeaders(r io.Reader) ([]models.Leader, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, err
	}
	if err := t.require("Email", "Availability"); err != nil {
		return nil, err
	}
	split := t.has("First Name") && t.has("Last Name")
	if !split {
		if err := t.require("Name"); err != nil {
			return nil, err
		}
	}

	leaders := []models.Leader{}
	for {
		rec, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &RowError{Line: t.line, Err: err}
		}
		name := t.get(rec, "Name")
		if split {
			name = strings.TrimSpace(t.get(rec, "First Name") + " " + t.get(rec, "Last Name"))
		}
		leaders = append(leaders, models.Leader{
			Name:         name,
			Email:        t.get(rec, "Email"),
			Availability: ParseAvailabilityString(t.get(rec, "Availability")),
		})
	}
	return leaders, nil
}

// ParseAvailabilityString parses "Aug 25: all-day | Aug 26: morning". Each
// pair is split on its first colon; pairs without one are ignored.
func ParseAvailabilityString(s string) map[string]models.Availability {
	out := make(map[string]models.Availability)
	s = strings.TrimSpace(s)
	if s == "" || s == NoAvailability {
		return out
	}
	for _, pair := range strings.Split(s, "|") {
		date, tag, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		date = strings.TrimSpace(date)
		if date == "" {
			continue
		}
		out[date] = models.ParseAvailability(tag)
	}
	return out
}

// FormatAvailability is the inverse of ParseAvailabilityString. Dates are
// written in the given order; dates missing from the map are skipped.
func FormatAvailability(dates []string, avail map[string]models.Availability) string {
	var parts []string
	for _, d := range dates {
		if a, ok := avail[d]; ok {
			parts = append(parts, d+": "+a.String())
		}
	}
	if len(parts) == 0 {
		return NoAvailability
	}
	return strings.Join(parts, " | ")
}

// ReadEvents parses an event calendar.
func ReadEvents(r io.Reader) ([]models.Event, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, err
	}
	if err := t.require("Event", "Date", "Start Time", "End Time", "Leaders Needed"); err != nil {
		return nil, err
	}

	events := []models.Event{}
	for {
		rec, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &RowError{Line: t.line, Err: err}
		}
		needed, err := strconv.Atoi(t.get(rec, "Leaders Needed"))
		if err != nil {
			return nil, &RowError{Line: t.line, Err: fmt.Errorf("leaders needed: %w", err)}
		}
		events = append(events, models.Event{
			Name:          t.get(rec, "Event"),
			Date:          t.get(rec, "Date"),
			StartTime:     t.get(rec, "Start Time"),
			EndTime:       t.get(rec, "End Time"),
			LeadersNeeded: needed,
			Location:      t.get(rec, "Location"),
		})
	}
	return events, nil
}

// ReadAssignments parses a leader assignments file as written by
// WriteLeaderAssignments. A blank Hours cell is derived from the times.
func ReadAssignments(r io.Reader) ([]models.Assignment, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, err
	}
	if err := t.require("Leader Email", "Event", "Date", "Start Time", "End Time"); err != nil {
		return nil, err
	}

	out := []models.Assignment{}
	for {
		rec, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &RowError{Line: t.line, Err: err}
		}
		a := models.Assignment{
			LeaderEmail: t.get(rec, "Leader Email"),
			Event:       t.get(rec, "Event"),
			Date:        t.get(rec, "Date"),
			StartTime:   t.get(rec, "Start Time"),
			EndTime:     t.get(rec, "End Time"),
		}
		if h := t.get(rec, "Hours"); h != "" {
			if a.Hours, err = strconv.ParseFloat(h, 64); err != nil {
				return nil, &RowError{Line: t.line, Err: fmt.Errorf("hours: %w", err)}
			}
		} else {
			slot, err := timeofday.ParseRange(a.StartTime, a.EndTime)
			if err != nil {
				return nil, &RowError{Line: t.line, Err: err}
			}
			a.Hours = slot.Hours()
		}
		out = append(out, a)
	}
	return out, nil
}
