package timetable

import "math/rand"

// DefaultPlacementAttempts bounds the collision-free placement search of one
// local search step.
const DefaultPlacementAttempts = 20

// Refine hill-climbs from s for up to maxIterations steps. Each step moves a
// conflicted assignment (or any assignment once conflicts are gone) to a
// collision-free spot if one turns up within attempts draws, otherwise to a
// random spot, and keeps the move only if the penalty strictly drops. The
// returned schedule never scores worse than s.
func Refine(c *Catalog, s Schedule, maxIterations, attempts int, rng *rand.Rand) Schedule {
	best := s.Clone()
	if len(best) == 0 {
		return best
	}
	bestPenalty := Evaluate(c, best)

	for iter := 0; iter < maxIterations && bestPenalty > 0; iter++ {
		candidate := best.Clone()
		occ := indexOccupancy(candidate)

		var idx int
		if conflicts := occ.conflicts(len(candidate)); len(conflicts) > 0 {
			idx = conflicts[rng.Intn(len(conflicts))]
		} else {
			idx = rng.Intn(len(candidate))
		}

		moved := false
		for try := 0; try < attempts; try++ {
			day := rng.Intn(c.Grid.Days)
			slot := rng.Intn(c.Grid.SlotsPerDay)
			room := c.Rooms[rng.Intn(len(c.Rooms))].ID
			if occ.free(candidate, idx, room, day, slot) {
				candidate[idx] = relocate(candidate[idx], room, day, slot)
				moved = true
				break
			}
		}
		if !moved {
			day := rng.Intn(c.Grid.Days)
			slot := rng.Intn(c.Grid.SlotsPerDay)
			room := c.Rooms[rng.Intn(len(c.Rooms))].ID
			candidate[idx] = relocate(candidate[idx], room, day, slot)
		}

		if penalty := Evaluate(c, candidate); penalty < bestPenalty {
			best, bestPenalty = candidate, penalty
		}
	}
	return best
}

func relocate(a Assignment, room string, day, slot int) Assignment {
	a.Room, a.Day, a.Slot = room, day, slot
	return a
}
