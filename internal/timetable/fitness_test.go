package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridCatalog(t *testing.T) *Catalog {
	t.Helper()
	grid := TimeGrid{Days: 2, SlotsPerDay: 6}
	c, err := NewCatalog(
		[]Subject{
			{ID: "a", TeacherID: "t1", Sessions: 4},
			{ID: "b", TeacherID: "t2", Sessions: 1},
		},
		[]Teacher{
			{ID: "t1", Preferred: allSlots(grid)},
			{ID: "t2", Preferred: allSlots(grid)},
		},
		[]Room{{ID: "r1"}, {ID: "r2"}, {ID: "r3"}},
		grid,
	)
	require.NoError(t, err)
	return c
}

func TestEvaluateTerms(t *testing.T) {
	c := gridCatalog(t)

	cases := map[string]struct {
		schedule Schedule
		want     Breakdown
		penalty  int
	}{
		"clean": {
			schedule: Schedule{
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 0, Slot: 0},
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 0, Slot: 1},
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 1, Slot: 0},
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 1, Slot: 3},
				{Subject: "b", Teacher: "t2", Room: "r2", Day: 0, Slot: 0},
			},
			penalty: 0,
		},
		"room clash": {
			schedule: Schedule{
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 0, Slot: 0},
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 0, Slot: 2},
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 1, Slot: 0},
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 1, Slot: 3},
				{Subject: "b", Teacher: "t2", Room: "r1", Day: 0, Slot: 0},
			},
			want:    Breakdown{RoomClashes: 1, RoomConflictGroups: 1},
			penalty: 100,
		},
		"teacher clash": {
			schedule: Schedule{
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 0, Slot: 0},
				{Subject: "a", Teacher: "t1", Room: "r2", Day: 0, Slot: 0},
				{Subject: "a", Teacher: "t1", Room: "r3", Day: 0, Slot: 0},
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 1, Slot: 3},
				{Subject: "b", Teacher: "t2", Room: "r1", Day: 1, Slot: 0},
			},
			want:    Breakdown{TeacherClashes: 2, TeacherConflictGroups: 1, DailyOverload: 1},
			penalty: 210,
		},
		"daily overload without run": {
			schedule: Schedule{
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 0, Slot: 0},
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 0, Slot: 2},
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 0, Slot: 4},
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 1, Slot: 0},
				{Subject: "b", Teacher: "t2", Room: "r2", Day: 1, Slot: 0},
			},
			want:    Breakdown{DailyOverload: 1},
			penalty: 10,
		},
		"run of four": {
			schedule: Schedule{
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 0, Slot: 3},
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 0, Slot: 1},
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 0, Slot: 0},
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 0, Slot: 2},
				{Subject: "b", Teacher: "t2", Room: "r2", Day: 1, Slot: 0},
			},
			want:    Breakdown{DailyOverload: 2, LongRuns: 2},
			penalty: 26,
		},
		"run interrupted by a parallel session": {
			schedule: Schedule{
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 0, Slot: 0},
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 0, Slot: 1},
				{Subject: "b", Teacher: "t2", Room: "r2", Day: 0, Slot: 1},
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 0, Slot: 2},
				{Subject: "a", Teacher: "t1", Room: "r1", Day: 1, Slot: 0},
			},
			want:    Breakdown{DailyOverload: 1},
			penalty: 10,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, Analyze(c, tc.schedule))
			assert.Equal(t, tc.penalty, Evaluate(c, tc.schedule))
			assert.Equal(t, tc.penalty, Analyze(c, tc.schedule).Total())
		})
	}
}

func TestEvaluatePreferenceMisses(t *testing.T) {
	c := weekCatalog(t)
	s := Schedule{
		{Subject: "alg", Teacher: "t1", Room: "a", Day: 0, Slot: 0},
		{Subject: "alg", Teacher: "t1", Room: "a", Day: 1, Slot: 0},
		{Subject: "net", Teacher: "t3", Room: "b", Day: 3, Slot: 5},
	}
	b := Analyze(c, s)
	assert.Equal(t, 2, b.PreferenceMisses)
	assert.Equal(t, 10, Evaluate(c, s))
}

func TestEvaluateThreeWayRoomClash(t *testing.T) {
	c := weekCatalog(t)
	s := Schedule{
		{Subject: "alg", Teacher: "t1", Room: "a", Day: 2, Slot: 0},
		{Subject: "db", Teacher: "t2", Room: "a", Day: 2, Slot: 0},
		{Subject: "net", Teacher: "t3", Room: "a", Day: 2, Slot: 0},
	}
	b := Analyze(c, s)
	assert.Equal(t, 2, b.RoomClashes)
	assert.Equal(t, 1, b.RoomConflictGroups)
	assert.Equal(t, 0, b.TeacherClashes)
	// t2 and t3 do not prefer (2, 0).
	assert.Equal(t, 2*RoomClashWeight+2*PreferenceMissWeight, Evaluate(c, s))
}

func TestEvaluateIsNeverNegative(t *testing.T) {
	c := weekCatalog(t)
	rng := newRand(7)
	for i := 0; i < 50; i++ {
		assert.GreaterOrEqual(t, Evaluate(c, RandomSchedule(c, rng)), 0)
	}
}

func TestEvaluateForcedClash(t *testing.T) {
	c := clashCatalog(t)
	s := RandomSchedule(c, newRand(1))
	assert.Equal(t, 200, Evaluate(c, s))
}

func TestConflicted(t *testing.T) {
	s := Schedule{
		{Subject: "a", Teacher: "t1", Room: "r1", Day: 0, Slot: 0},
		{Subject: "b", Teacher: "t2", Room: "r1", Day: 0, Slot: 0},
		{Subject: "c", Teacher: "t1", Room: "r2", Day: 1, Slot: 0},
		{Subject: "d", Teacher: "t1", Room: "r3", Day: 1, Slot: 0},
		{Subject: "e", Teacher: "t3", Room: "r3", Day: 1, Slot: 1},
	}
	assert.Equal(t, []bool{true, true, true, true, false}, Conflicted(s))
	assert.Equal(t, []int{1, 3}, indexOccupancy(s).conflicts(len(s)))
}
