package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefineNeverWorsens(t *testing.T) {
	c := weekCatalog(t)
	rng := newRand(23)
	for i := 0; i < 20; i++ {
		s := RandomSchedule(c, rng)
		before := Evaluate(c, s)
		refined := Refine(c, s, 25, DefaultPlacementAttempts, rng)
		assert.LessOrEqual(t, Evaluate(c, refined), before)
		require.NoError(t, CheckSessions(c, refined))
	}
}

func TestRefineLeavesInputUntouched(t *testing.T) {
	c := weekCatalog(t)
	s := RandomSchedule(c, newRand(29))
	before := s.Clone()
	_ = Refine(c, s, 50, DefaultPlacementAttempts, newRand(30))
	assert.Equal(t, before, s)
}

func TestRefineReachesPreferredSlot(t *testing.T) {
	c, err := NewCatalog(
		[]Subject{{ID: "s1", TeacherID: "t1", Sessions: 1}},
		[]Teacher{{ID: "t1", Preferred: []Slot{{Day: 0, Slot: 0}}}},
		[]Room{{ID: "r1"}},
		TimeGrid{Days: 2, SlotsPerDay: 2},
	)
	require.NoError(t, err)

	for seed := int64(1); seed <= 10; seed++ {
		rng := newRand(seed)
		s := RandomSchedule(c, rng)
		penalty := Evaluate(c, s)
		if s[0].Day == 0 && s[0].Slot == 0 {
			assert.Equal(t, 0, penalty)
		} else {
			assert.Equal(t, PreferenceMissWeight, penalty)
		}

		refined := Refine(c, s, 200, DefaultPlacementAttempts, rng)
		assert.Equal(t, 0, Evaluate(c, refined), "seed %d", seed)
		assert.Equal(t, Slot{0, 0}, refined[0].At())
	}
}

func TestRefineSingleSlotSingleSession(t *testing.T) {
	c, err := NewCatalog(
		[]Subject{{ID: "s1", TeacherID: "t1", Sessions: 1}},
		[]Teacher{{ID: "t1", Preferred: []Slot{{Day: 0, Slot: 0}}}},
		[]Room{{ID: "r1"}},
		TimeGrid{Days: 1, SlotsPerDay: 1},
	)
	require.NoError(t, err)
	s := RandomSchedule(c, newRand(1))
	assert.Equal(t, 0, Evaluate(c, s))
	assert.Equal(t, 0, Evaluate(c, Refine(c, s, 1, DefaultPlacementAttempts, newRand(2))))
}

func TestRefineCannotBeatForcedClash(t *testing.T) {
	c := clashCatalog(t)
	rng := newRand(31)
	s := RandomSchedule(c, rng)
	for _, budget := range []int{1, 10, 500} {
		assert.Equal(t, 200, Evaluate(c, Refine(c, s, budget, DefaultPlacementAttempts, rng)))
	}
}

func TestRefineResolvesHardConflicts(t *testing.T) {
	c := openCatalog(t)
	s := Schedule{
		{Subject: "s1", Teacher: "t1", Room: "r1", Day: 0, Slot: 0},
		{Subject: "s2", Teacher: "t2", Room: "r1", Day: 0, Slot: 0},
	}
	require.Equal(t, 100, Evaluate(c, s))

	refined := Refine(c, s, 5, DefaultPlacementAttempts, newRand(37))
	assert.Equal(t, 0, Evaluate(c, refined))
	// Only the second occupant of the contended slot is eligible to move.
	assert.Equal(t, s[0], refined[0])
}

func TestRefineZeroBudgetReturnsCopy(t *testing.T) {
	c := weekCatalog(t)
	s := RandomSchedule(c, newRand(41))
	refined := Refine(c, s, 0, DefaultPlacementAttempts, newRand(41))
	assert.Equal(t, s, refined)

	refined[0].Room = "moved"
	assert.NotEqual(t, s[0].Room, refined[0].Room)
}
