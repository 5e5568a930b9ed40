package csvio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/orientation-scheduler/pkg/meals"
	"github.com/arnavshah/orientation-scheduler/pkg/models"
)

const leadersCSV = `First Name,Last Name,Email,Availability
Ada,Lovelace,ada@example.com,Aug 25: all-day | Aug 26: Morning
Grace,Hopper,grace@example.com,No availability specified

Alan,Turing,alan@example.com,"Aug 25: evening | Aug 27: sometimes | junk"
`

func TestReadLeaders(t *testing.T) {
	leaders, err := ReadLeaders(strings.NewReader(leadersCSV))
	require.NoError(t, err)
	require.Len(t, leaders, 3)

	assert.Equal(t, "Ada Lovelace", leaders[0].Name)
	assert.Equal(t, "ada@example.com", leaders[0].Email)
	assert.Equal(t, map[string]models.Availability{"Aug 25": models.AllDay, "Aug 26": models.Morning}, leaders[0].Availability)

	assert.Empty(t, leaders[1].Availability)
	assert.Equal(t, map[string]models.Availability{"Aug 25": models.Evening, "Aug 27": models.Unavailable}, leaders[2].Availability)
}

func TestReadLeaders_NameColumn(t *testing.T) {
	leaders, err := ReadLeaders(strings.NewReader("Name,Email,Availability\nAda Lovelace,ada@example.com,Aug 25: afternoon\n"))
	require.NoError(t, err)
	require.Len(t, leaders, 1)
	assert.Equal(t, "Ada Lovelace", leaders[0].Name)
	assert.Equal(t, models.Afternoon, leaders[0].AvailabilityOn("Aug 25"))
}

func TestReadLeaders_MissingColumn(t *testing.T) {
	_, err := ReadLeaders(strings.NewReader("First Name,Email\nAda,ada@example.com\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = ReadLeaders(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParseAvailabilityString(t *testing.T) {
	tests := []struct {
		in   string
		want map[string]models.Availability
	}{
		{in: "", want: map[string]models.Availability{}},
		{in: NoAvailability, want: map[string]models.Availability{}},
		{in: "Aug 25: ALL-DAY", want: map[string]models.Availability{"Aug 25": models.AllDay}},
		{in: "Aug 25:afternoon|Aug 26 : evening", want: map[string]models.Availability{"Aug 25": models.Afternoon, "Aug 26": models.Evening}},
		{in: "Sept 1: unavailable | nonsense", want: map[string]models.Availability{"Sept 1": models.Unavailable}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAvailabilityString(tt.in))
		})
	}
}

func TestFormatAvailability_RoundTrip(t *testing.T) {
	avail := map[string]models.Availability{"Aug 25": models.AllDay, "Aug 26": models.Evening}
	s := FormatAvailability([]string{"Aug 25", "Aug 26", "Aug 27"}, avail)
	assert.Equal(t, "Aug 25: all-day | Aug 26: evening", s)
	assert.Equal(t, avail, ParseAvailabilityString(s))
	assert.Equal(t, NoAvailability, FormatAvailability([]string{"Aug 25"}, nil))
}

func TestReadEvents(t *testing.T) {
	in := "Event,Date,Start Time,End Time,Leaders Needed,Location\n" +
		"Welcome Ceremony,Aug 25,2:00pm,3:00pm,40,Chapel\n" +
		"Tours,Aug 25,3:00pm,5:00pm,20,\n"
	events, err := ReadEvents(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.Event{Name: "Welcome Ceremony", Date: "Aug 25", StartTime: "2:00pm", EndTime: "3:00pm", LeadersNeeded: 40, Location: "Chapel"}, events[0])
	assert.Equal(t, 20, events[1].LeadersNeeded)
}

func TestReadEvents_BadHeadcount(t *testing.T) {
	in := "Event,Date,Start Time,End Time,Leaders Needed\nTours,Aug 25,3:00pm,5:00pm,many\n"
	_, err := ReadEvents(strings.NewReader(in))
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 1, rowErr.Line)
}

func TestReadAssignments(t *testing.T) {
	in := "Leader Email,Event,Date,Start Time,End Time,Hours\n" +
		"ada@example.com,Tours,Aug 25,3:00pm,5:00pm,2.0\n" +
		"ada@example.com,Social,Aug 25,9:00pm,10:30pm,\n"
	got, err := ReadAssignments(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].Hours)
	assert.Equal(t, 1.5, got[1].Hours)
}

func sampleResult() *models.Result {
	return &models.Result{
		LeaderAssignments: map[string][]models.Assignment{
			"ada@example.com": {
				{LeaderEmail: "ada@example.com", Event: "Tours", Date: "Aug 25", StartTime: "3:00pm", EndTime: "5:00pm", Hours: 2},
			},
			"grace@example.com": {},
		},
		EventStaffing: map[string]models.EventStaffing{
			"Tours": {AssignedLeaders: []string{"ada@example.com"}, LeadersNeeded: 2, LeadersAssigned: 1, StaffingPercentage: 50, TimeSlot: "3:00pm - 5:00pm", DurationHours: 2},
		},
		SchedulingSummary: models.SchedulingSummary{TotalAssignmentHours: 2, FairnessScore: 0},
		TimeConflicts:     []models.TimeConflict{},
		LeaderOrder:       []string{"grace@example.com", "ada@example.com"},
		EventOrder:        []string{"Tours"},
	}
}

func TestWriters(t *testing.T) {
	res := sampleResult()

	var buf bytes.Buffer
	require.NoError(t, WriteLeaderAssignments(&buf, res))
	assert.Equal(t, "Leader Email,Event,Date,Start Time,End Time,Hours\nada@example.com,Tours,Aug 25,3:00pm,5:00pm,2.0\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteEventStaffing(&buf, res))
	assert.Equal(t, "Event,Leaders Needed,Leaders Assigned,Staffing Percentage,Fully Staffed,Time Slot,Duration (hours)\n"+
		"Tours,2,1,50.0,False,3:00pm - 5:00pm,2.0\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteConflicts(&buf, []models.TimeConflict{{Leader: "ada@example.com", ConflictingEvents: [2]string{"A", "B"}, OverlapTime: "1:00pm - 1:30pm"}}))
	assert.Contains(t, buf.String(), `ada@example.com,"A, B",1:00pm - 1:30pm`)

	buf.Reset()
	require.NoError(t, WriteSummary(&buf, res.SchedulingSummary))
	assert.Contains(t, buf.String(), "Total Assignment Hours,2.0\n")
	assert.Contains(t, buf.String(), "Events Below 50% Staffed,0\n")
}

func TestLeaderAssignments_RoundTrip(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer
	require.NoError(t, WriteLeaderAssignments(&buf, res))

	got, err := ReadAssignments(&buf)
	require.NoError(t, err)
	assert.Equal(t, res.Assignments(), got)
}

func TestWriteResult(t *testing.T) {
	dir := t.TempDir()
	res := sampleResult()
	elig := []meals.Eligibility{{MealEvent: "Dinner", Leader: "ada@example.com", Reason: meals.ReasonAdjacent}}

	paths, err := WriteResult(dir, "", res, elig)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, DefaultPrefix+SuffixLeaderAssignments),
		filepath.Join(dir, DefaultPrefix+SuffixEventStaffing),
		filepath.Join(dir, DefaultPrefix+SuffixSummary),
		filepath.Join(dir, DefaultPrefix+SuffixMealEligibility),
	}, paths)

	data, err := os.ReadFile(filepath.Join(dir, DefaultPrefix+SuffixMealEligibility))
	require.NoError(t, err)
	assert.Equal(t, "Meal Event,Eligible Leader,Reason\nDinner,ada@example.com,Working adjacent shift\n", string(data))

	res.TimeConflicts = []models.TimeConflict{{Leader: "ada@example.com", ConflictingEvents: [2]string{"A", "B"}, OverlapTime: "1:00pm - 1:30pm"}}
	paths, err = WriteResult(dir, "run", res, nil)
	require.NoError(t, err)
	assert.Len(t, paths, 4)
	assert.FileExists(t, filepath.Join(dir, "run"+SuffixTimeConflicts))
}
