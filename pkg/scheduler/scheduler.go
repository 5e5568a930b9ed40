package scheduler

import (
	"math"
	"sort"

	"github.com/arnavshah/orientation-scheduler/pkg/models"
	"github.com/arnavshah/orientation-scheduler/pkg/timeofday"
)

// DefaultMaxHours is the total-hours cap per leader.
const DefaultMaxHours = 50.0

// Scheduler handles the logic of assigning leaders to events.
// A Scheduler is meant for a single run; create a new one per snapshot.
type Scheduler struct {
	Leaders  []models.Leader
	Events   []models.Event
	MaxHours float64

	// Populated by Run
	Allocation Allocation
	Rounds     int
}

// NewScheduler creates a new scheduler instance with the default hour cap
func NewScheduler(leaders []models.Leader, events []models.Event) *Scheduler {
	return &Scheduler{
		Leaders:  leaders,
		Events:   events,
		MaxHours: DefaultMaxHours,
	}
}

// Schedule runs a fresh scheduler over the given snapshot.
func Schedule(leaders []models.Leader, events []models.Event) (*models.Result, error) {
	return NewScheduler(leaders, events).Run()
}

type plannedEvent struct {
	event     models.Event
	slot      timeofday.Range
	duration  float64
	available []string
	target    int
}

type interval struct {
	date string
	slot timeofday.Range
}

// ledger holds the running state of one scheduling run.
type ledger struct {
	maxHours float64
	hours    map[string]float64
	schedule map[string][]interval
	assigned map[string][]string
	onEvent  map[string]map[string]bool
	records  map[string][]models.Assignment
}

func newLedger(maxHours float64) *ledger {
	return &ledger{
		maxHours: maxHours,
		hours:    make(map[string]float64),
		schedule: make(map[string][]interval),
		assigned: make(map[string][]string),
		onEvent:  make(map[string]map[string]bool),
		records:  make(map[string][]models.Assignment),
	}
}

func (l *ledger) fitsHours(email string, p *plannedEvent) bool {
	return l.hours[email]+p.duration <= l.maxHours
}

// wouldOverlap checks if a leader's existing intervals on the event date overlap the event
func (l *ledger) wouldOverlap(email string, p *plannedEvent) bool {
	for _, iv := range l.schedule[email] {
		if iv.date == p.event.Date && iv.slot.Overlaps(p.slot) {
			return true
		}
	}
	return false
}

func (l *ledger) eligible(email string, p *plannedEvent) bool {
	return !l.onEvent[p.event.Name][email] && !l.wouldOverlap(email, p) && l.fitsHours(email, p)
}

// pick returns the eligible candidate with the fewest hours. Ties go to the
// earliest candidate in pool order.
func (l *ledger) pick(p *plannedEvent) (string, bool) {
	best := ""
	minHours := math.Inf(1)
	for _, email := range p.available {
		if !l.eligible(email, p) {
			continue
		}
		if h := l.hours[email]; h < minHours {
			best = email
			minHours = h
		}
	}
	return best, best != ""
}

func (l *ledger) assign(email string, p *plannedEvent) {
	l.records[email] = append(l.records[email], models.Assignment{
		LeaderEmail: email,
		Event:       p.event.Name,
		Date:        p.event.Date,
		StartTime:   p.event.StartTime,
		EndTime:     p.event.EndTime,
		Hours:       p.duration,
	})
	l.hours[email] += p.duration
	l.schedule[email] = append(l.schedule[email], interval{date: p.event.Date, slot: p.slot})
	l.assigned[p.event.Name] = append(l.assigned[p.event.Name], email)
	if l.onEvent[p.event.Name] == nil {
		l.onEvent[p.event.Name] = make(map[string]bool)
	}
	l.onEvent[p.event.Name][email] = true
}

func (s *Scheduler) maxHours() float64 {
	if s.MaxHours <= 0 {
		return DefaultMaxHours
	}
	return s.MaxHours
}

// validate checks the snapshot and parses every event's time slot.
func (s *Scheduler) validate() ([]*plannedEvent, error) {
	emails := make(map[string]bool, len(s.Leaders))
	for _, leader := range s.Leaders {
		if leader.Email == "" {
			return nil, &LeaderError{Email: leader.Name, Err: ErrEmptyEmail}
		}
		if emails[leader.Email] {
			return nil, &LeaderError{Email: leader.Email, Err: ErrDuplicateLeader}
		}
		emails[leader.Email] = true
	}

	names := make(map[string]bool, len(s.Events))
	plans := make([]*plannedEvent, 0, len(s.Events))
	for _, ev := range s.Events {
		if ev.Name == "" {
			return nil, &EventError{Event: ev.Name, Err: ErrEmptyEventName}
		}
		if names[ev.Name] {
			return nil, &EventError{Event: ev.Name, Err: ErrDuplicateEvent}
		}
		names[ev.Name] = true
		if ev.LeadersNeeded < 0 {
			return nil, &EventError{Event: ev.Name, Err: ErrNegativeHeadcount}
		}
		slot, err := timeofday.ParseRange(ev.StartTime, ev.EndTime)
		if err != nil {
			return nil, &EventError{Event: ev.Name, Err: err}
		}
		plans = append(plans, &plannedEvent{event: ev, slot: slot, duration: slot.Hours()})
	}
	return plans, nil
}

// availableLeaders lists, in leader order, who may work the event and still
// fits under the hour cap.
func (s *Scheduler) availableLeaders(l *ledger, p *plannedEvent) []string {
	var out []string
	for _, leader := range s.Leaders {
		if Allows(leader, p.event.Date, p.slot) && l.fitsHours(leader.Email, p) {
			out = append(out, leader.Email)
		}
	}
	return out
}

func (s *Scheduler) plan(l *ledger) ([]*plannedEvent, error) {
	plans, err := s.validate()
	if err != nil {
		return nil, err
	}
	for _, p := range plans {
		p.available = s.availableLeaders(l, p)
	}
	s.Allocation = balance(plans)
	return plans, nil
}

// Plan validates the snapshot and returns the demand/supply allocation
// without assigning anyone.
func (s *Scheduler) Plan() (Allocation, error) {
	if _, err := s.plan(newLedger(s.maxHours())); err != nil {
		return Allocation{}, err
	}
	return s.Allocation, nil
}

// roundOrder sorts events by start time, then duration. The sort is stable
// so equal keys keep input order.
func roundOrder(plans []*plannedEvent) []*plannedEvent {
	ordered := append([]*plannedEvent(nil), plans...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].slot.Start != ordered[j].slot.Start {
			return ordered[i].slot.Start < ordered[j].slot.Start
		}
		return ordered[i].duration < ordered[j].duration
	})
	return ordered
}

// Run assigns leaders round by round. Each round visits every event in the
// fixed order and gives it at most one more leader, the least loaded
// eligible one, until a full round assigns nobody.
func (s *Scheduler) Run() (*models.Result, error) {
	l := newLedger(s.maxHours())
	plans, err := s.plan(l)
	if err != nil {
		return nil, err
	}

	order := roundOrder(plans)
	s.Rounds = 0
	for {
		made := 0
		for _, p := range order {
			if len(l.assigned[p.event.Name]) >= p.target {
				continue
			}
			if email, ok := l.pick(p); ok {
				l.assign(email, p)
				made++
			}
		}
		if made == 0 {
			break
		}
		s.Rounds++
	}

	return s.result(plans, l)
}

func (s *Scheduler) result(plans []*plannedEvent, l *ledger) (*models.Result, error) {
	res := &models.Result{
		LeaderAssignments: make(map[string][]models.Assignment, len(s.Leaders)),
		EventStaffing:     make(map[string]models.EventStaffing, len(plans)),
		LeaderOrder:       make([]string, 0, len(s.Leaders)),
		EventOrder:        make([]string, 0, len(plans)),
	}

	for _, leader := range s.Leaders {
		records := l.records[leader.Email]
		if records == nil {
			records = []models.Assignment{}
		}
		res.LeaderAssignments[leader.Email] = records
		res.LeaderOrder = append(res.LeaderOrder, leader.Email)
	}

	for _, p := range plans {
		assigned := append([]string{}, l.assigned[p.event.Name]...)
		res.EventStaffing[p.event.Name] = models.EventStaffing{
			AssignedLeaders:    assigned,
			Date:               p.event.Date,
			LeadersNeeded:      p.event.LeadersNeeded,
			LeadersAssigned:    len(assigned),
			AdjustedTarget:     p.target,
			FullyStaffed:       len(assigned) >= p.event.LeadersNeeded,
			StaffingPercentage: StaffingPercentage(len(assigned), p.event.LeadersNeeded),
			TimeSlot:           p.event.StartTime + " - " + p.event.EndTime,
			DurationHours:      p.duration,
		}
		res.EventOrder = append(res.EventOrder, p.event.Name)
	}

	conflicts, err := DetectConflicts(res.LeaderOrder, res.LeaderAssignments)
	if err != nil {
		return nil, err
	}
	res.TimeConflicts = conflicts
	res.SchedulingSummary = Summarize(s.Leaders, s.Events, res.LeaderAssignments, res.EventStaffing, s.maxHours())
	return res, nil
}

// StaffingPercentage returns assigned/needed as a percentage rounded to one
// decimal, or 0 when nothing is needed.
func StaffingPercentage(assigned, needed int) float64 {
	if needed <= 0 {
		return 0
	}
	return round1(float64(assigned) / float64(needed) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
