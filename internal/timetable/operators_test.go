package timetable

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTournamentSelect(t *testing.T) {
	population := []Individual{
		{Penalty: 40}, {Penalty: 10}, {Penalty: 30}, {Penalty: 10}, {Penalty: 90},
	}

	t.Run("full tournament returns the minimum", func(t *testing.T) {
		rng := newRand(11)
		for i := 0; i < 20; i++ {
			assert.Equal(t, 10, TournamentSelect(population, len(population), rng).Penalty)
		}
	})

	t.Run("oversized tournament is clamped", func(t *testing.T) {
		assert.Equal(t, 10, TournamentSelect(population, 50, newRand(2)).Penalty)
	})

	t.Run("winner never worse than a sampled member", func(t *testing.T) {
		rng := newRand(5)
		for i := 0; i < 100; i++ {
			assert.Less(t, TournamentSelect(population, 3, rng).Penalty, 90)
		}
	})
}

func TestTournamentSelectTieGoesToFirstSampled(t *testing.T) {
	population := []Individual{
		{Schedule: Schedule{{Subject: "first"}}, Penalty: 5},
		{Schedule: Schedule{{Subject: "second"}}, Penalty: 5},
	}
	// Replay the sampling to learn which member was drawn first.
	probe := newRand(21)
	first := probe.Intn(len(population))

	got := TournamentSelect(population, 2, newRand(21))
	assert.Equal(t, population[first].Schedule[0].Subject, got.Schedule[0].Subject)
}

func TestCrossoverPreservesSessions(t *testing.T) {
	c := weekCatalog(t)
	rng := newRand(9)
	for i := 0; i < 25; i++ {
		a := RandomSchedule(c, rng)
		b := RandomSchedule(c, rng)
		child := Crossover(c, a, b, rng)
		require.NoError(t, CheckSessions(c, child))
		require.NoError(t, CheckPlacements(c, child))
	}
}

func TestCrossoverTakesGenesFromParents(t *testing.T) {
	c := weekCatalog(t)
	rng := newRand(13)
	a := RandomSchedule(c, rng)
	b := RandomSchedule(c, rng)
	child := Crossover(c, a, b, rng)

	// Both parents are in catalog order, so position i of the child comes
	// from position i of one of them.
	for i := range child {
		assert.True(t, child[i] == a[i] || child[i] == b[i], "position %d", i)
	}
}

func TestCrossoverFillsMissingSessions(t *testing.T) {
	c := weekCatalog(t)
	rng := newRand(17)
	a := RandomSchedule(c, rng)
	// b lacks every "alg" session and one "web" session.
	var b Schedule
	for _, asg := range RandomSchedule(c, rng) {
		if asg.Subject != "alg" {
			b = append(b, asg)
		}
	}
	b = b[:len(b)-1]

	child := Crossover(c, a, b, rng)
	require.NoError(t, CheckSessions(c, child))

	child = Crossover(c, nil, nil, rng)
	require.NoError(t, CheckSessions(c, child))
}

func TestCrossoverDoesNotAliasParents(t *testing.T) {
	c := weekCatalog(t)
	rng := newRand(19)
	a := RandomSchedule(c, rng)
	b := a.Clone()
	child := Crossover(c, a, b, rng)
	Mutate(c, child, 1, rng)
	assert.Empty(t, cmp.Diff(b, a))
}

func TestMutate(t *testing.T) {
	c := weekCatalog(t)

	t.Run("zero probability is a no-op", func(t *testing.T) {
		s := RandomSchedule(c, newRand(1))
		before := s.Clone()
		Mutate(c, s, 0, newRand(2))
		assert.Empty(t, cmp.Diff(before, s))
	})

	t.Run("changes at most one field per assignment", func(t *testing.T) {
		s := RandomSchedule(c, newRand(1))
		before := s.Clone()
		Mutate(c, s, 1, newRand(2))
		require.NoError(t, CheckSessions(c, s))
		require.NoError(t, CheckPlacements(c, s))
		for i := range s {
			assert.Equal(t, before[i].Subject, s[i].Subject)
			assert.Equal(t, before[i].Teacher, s[i].Teacher)
			changed := 0
			if before[i].Day != s[i].Day {
				changed++
			}
			if before[i].Slot != s[i].Slot {
				changed++
			}
			if before[i].Room != s[i].Room {
				changed++
			}
			assert.LessOrEqual(t, changed, 1)
		}
	})
}

func TestOperatorsAreDeterministic(t *testing.T) {
	c := weekCatalog(t)
	run := func() []Schedule {
		rng := newRand(42)
		a := RandomSchedule(c, rng)
		b := RandomSchedule(c, rng)
		child := Crossover(c, a, b, rng)
		Mutate(c, child, 0.3, rng)
		refined := Refine(c, child, 30, DefaultPlacementAttempts, rng)
		return []Schedule{a, b, child, refined}
	}
	assert.Empty(t, cmp.Diff(run(), run()))
}
