package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arnavshah/orientation-scheduler/pkg/meals"
	"github.com/arnavshah/orientation-scheduler/pkg/models"
	"github.com/arnavshah/orientation-scheduler/pkg/timeofday"
)

//go:embed orientation.yaml
var orientationYAML string

// ErrDuplicateEvent is returned when two catalog entries share a name.
var ErrDuplicateEvent = errors.New("catalog: duplicate event name")

type entry struct {
	Name          string `yaml:"name"`
	Date          string `yaml:"date"`
	StartTime     string `yaml:"start_time"`
	EndTime       string `yaml:"end_time"`
	LeadersNeeded int    `yaml:"leaders_needed"`
	Location      string `yaml:"location"`
	IsMeal        bool   `yaml:"is_meal"`
	IsCore        bool   `yaml:"is_core"`
	IsIndoor      bool   `yaml:"is_indoor"`
	IsOutdoor     bool   `yaml:"is_outdoor"`
}

type document struct {
	Events []entry        `yaml:"events"`
	Meals  []meals.Window `yaml:"meals"`
}

// Catalog is the fixed orientation calendar with its meal windows.
type Catalog struct {
	events []models.Event
	meals  []meals.Window
	index  map[string]int
}

// Default returns the embedded orientation week catalog.
func Default() *Catalog {
	c, err := Load(strings.NewReader(orientationYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load parses a catalog document and validates every time range.
func Load(r io.Reader) (*Catalog, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{index: make(map[string]int, len(doc.Events))}
	for _, e := range doc.Events {
		if _, err := timeofday.ParseRange(e.StartTime, e.EndTime); err != nil {
			return nil, fmt.Errorf("event %q: %w", e.Name, err)
		}
		if _, ok := c.index[e.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEvent, e.Name)
		}
		c.index[e.Name] = len(c.events)
		c.events = append(c.events, models.Event{
			Name:          e.Name,
			Date:          e.Date,
			StartTime:     e.StartTime,
			EndTime:       e.EndTime,
			LeadersNeeded: e.LeadersNeeded,
			Location:      e.Location,
			IsMeal:        e.IsMeal,
			IsCore:        e.IsCore,
			IsIndoor:      e.IsIndoor,
			IsOutdoor:     e.IsOutdoor,
		})
	}
	for _, m := range doc.Meals {
		if _, err := timeofday.ParseRange(m.StartTime, m.EndTime); err != nil {
			return nil, fmt.Errorf("meal %q: %w", m.Name, err)
		}
	}
	c.meals = doc.Meals
	return c, nil
}

// Events returns a copy of the calendar in file order.
func (c *Catalog) Events() []models.Event {
	return append([]models.Event(nil), c.events...)
}

// Meals returns the meal windows used for eligibility.
func (c *Catalog) Meals() []meals.Window {
	return append([]meals.Window(nil), c.meals...)
}

// Lookup finds an event by exact name.
func (c *Catalog) Lookup(name string) (models.Event, bool) {
	i, ok := c.index[name]
	if !ok {
		return models.Event{}, false
	}
	return c.events[i], true
}

func (c *Catalog) filter(keep func(models.Event) bool) []models.Event {
	out := []models.Event{}
	for _, e := range c.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// MealEvents lists events flagged as meals.
func (c *Catalog) MealEvents() []models.Event {
	return c.filter(func(e models.Event) bool { return e.IsMeal })
}

// CoreEvents lists events flagged as core programming.
func (c *Catalog) CoreEvents() []models.Event {
	return c.filter(func(e models.Event) bool { return e.IsCore })
}

// OutdoorEvents lists events held outside.
func (c *Catalog) OutdoorEvents() []models.Event {
	return c.filter(func(e models.Event) bool { return e.IsOutdoor })
}

// DaySchedule is one date's events.
type DaySchedule struct {
	Date   string         `json:"date"`
	Events []models.Event `json:"events"`
}

// Summary counts the catalog by type and groups it by date.
type Summary struct {
	TotalEvents        int           `json:"total_events"`
	TotalLeadersNeeded int           `json:"total_leaders_needed"`
	MealEvents         int           `json:"meal_events"`
	CoreEvents         int           `json:"core_events"`
	IndoorEvents       int           `json:"indoor_events"`
	OutdoorEvents      int           `json:"outdoor_events"`
	EventsByDate       []DaySchedule `json:"events_by_date"`
}

// Summary returns totals and the per-date listing. Dates appear in the order
// they are first seen.
func (c *Catalog) Summary() Summary {
	s := Summary{TotalEvents: len(c.events), EventsByDate: []DaySchedule{}}
	days := make(map[string]int)
	for _, e := range c.events {
		s.TotalLeadersNeeded += e.LeadersNeeded
		if e.IsMeal {
			s.MealEvents++
		}
		if e.IsCore {
			s.CoreEvents++
		}
		if e.IsIndoor {
			s.IndoorEvents++
		}
		if e.IsOutdoor {
			s.OutdoorEvents++
		}
		i, ok := days[e.Date]
		if !ok {
			i = len(s.EventsByDate)
			days[e.Date] = i
			s.EventsByDate = append(s.EventsByDate, DaySchedule{Date: e.Date})
		}
		s.EventsByDate[i].Events = append(s.EventsByDate[i].Events, e)
	}
	return s
}

// Dates lists the calendar dates in first-seen order.
func (c *Catalog) Dates() []string {
	var out []string
	for _, d := range c.Summary().EventsByDate {
		out = append(out, d.Date)
	}
	return out
}

// Enrich copies catalog metadata onto events with a matching name.
func (c *Catalog) Enrich(events []models.Event) []models.Event {
	out := make([]models.Event, len(events))
	for i, e := range events {
		if ce, ok := c.Lookup(e.Name); ok {
			e.Location = ce.Location
			e.IsMeal, e.IsCore, e.IsIndoor, e.IsOutdoor = ce.IsMeal, ce.IsCore, ce.IsIndoor, ce.IsOutdoor
		}
		out[i] = e
	}
	return out
}
