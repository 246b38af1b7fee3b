package timetable

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func allSlots(grid TimeGrid) []Slot {
	out := make([]Slot, 0, grid.Days*grid.SlotsPerDay)
	for d := 0; d < grid.Days; d++ {
		for s := 0; s < grid.SlotsPerDay; s++ {
			out = append(out, Slot{Day: d, Slot: s})
		}
	}
	return out
}

// weekCatalog mirrors a small faculty week: five days of six blocks.
func weekCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(
		[]Subject{
			{ID: "alg", Name: "Algorithms", TeacherID: "t1", Sessions: 4},
			{ID: "db", Name: "Databases", TeacherID: "t2", Sessions: 3},
			{ID: "net", Name: "Networks", TeacherID: "t3", Sessions: 3},
			{ID: "ai", Name: "Artificial Intelligence", TeacherID: "t1", Sessions: 3},
			{ID: "web", Name: "Web Programming", TeacherID: "t2", Sessions: 4},
		},
		[]Teacher{
			{ID: "t1", Name: "Ana", Preferred: []Slot{{0, 0}, {0, 1}, {0, 2}, {2, 0}, {2, 1}, {2, 2}, {2, 3}, {4, 0}}},
			{ID: "t2", Name: "Luis", Preferred: []Slot{{1, 0}, {1, 1}, {1, 2}, {1, 3}, {3, 0}, {3, 1}, {3, 2}, {3, 3}}},
			{ID: "t3", Name: "Marta", Preferred: []Slot{{0, 2}, {0, 3}, {2, 3}, {2, 4}, {4, 1}, {4, 2}, {4, 3}, {4, 4}}},
		},
		[]Room{{ID: "a", Name: "Room A", Capacity: 30}, {ID: "b", Name: "Room B", Capacity: 25}, {ID: "c", Name: "Room C", Capacity: 35}},
		TimeGrid{Days: 5, SlotsPerDay: 6},
	)
	require.NoError(t, err)
	return c
}

// openCatalog is trivially satisfiable: every slot preferred, rooms to spare.
func openCatalog(t *testing.T) *Catalog {
	t.Helper()
	grid := TimeGrid{Days: 2, SlotsPerDay: 2}
	c, err := NewCatalog(
		[]Subject{
			{ID: "s1", Name: "One", TeacherID: "t1", Sessions: 1},
			{ID: "s2", Name: "Two", TeacherID: "t2", Sessions: 1},
		},
		[]Teacher{
			{ID: "t1", Name: "First", Preferred: allSlots(grid)},
			{ID: "t2", Name: "Second", Preferred: allSlots(grid)},
		},
		[]Room{{ID: "r1", Name: "R1"}, {ID: "r2", Name: "R2"}},
		grid,
	)
	require.NoError(t, err)
	return c
}

// clashCatalog forces two sessions of one teacher into a single slot.
func clashCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(
		[]Subject{
			{ID: "s1", Name: "One", TeacherID: "t1", Sessions: 1},
			{ID: "s2", Name: "Two", TeacherID: "t1", Sessions: 1},
		},
		[]Teacher{{ID: "t1", Name: "Only", Preferred: []Slot{{0, 0}}}},
		[]Room{{ID: "r1", Name: "R1"}},
		TimeGrid{Days: 1, SlotsPerDay: 1},
	)
	require.NoError(t, err)
	return c
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
