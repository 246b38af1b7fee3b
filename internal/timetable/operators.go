package timetable

import (
	"math/rand"
	"sort"
)

// Individual is a schedule with its cached penalty.
type Individual struct {
	Schedule Schedule
	Penalty  int
}

func newIndividual(c *Catalog, s Schedule) Individual {
	return Individual{Schedule: s, Penalty: Evaluate(c, s)}
}

// TournamentSelect samples size distinct members without replacement and
// returns the one with the lowest penalty. Ties go to the earliest sampled.
func TournamentSelect(population []Individual, size int, rng *rand.Rand) Individual {
	if size > len(population) {
		size = len(population)
	}
	picked := make([]int, 0, size)
	for len(picked) < size {
		candidate := rng.Intn(len(population))
		dup := false
		for _, p := range picked {
			if p == candidate {
				dup = true
				break
			}
		}
		if !dup {
			picked = append(picked, candidate)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool {
		return population[picked[i]].Penalty < population[picked[j]].Penalty
	})
	return population[picked[0]]
}

// Crossover builds a child subject by subject, in catalog order. For the i-th
// session of a subject it takes either parent's i-th assignment with equal
// odds, the only one available, or a fresh random one when neither parent
// has it.
func Crossover(c *Catalog, a, b Schedule, rng *rand.Rand) Schedule {
	fromA := groupBySubject(a)
	fromB := groupBySubject(b)

	child := make(Schedule, 0, c.TotalSessions())
	for _, subj := range c.Subjects {
		la, lb := fromA[subj.ID], fromB[subj.ID]
		for i := 0; i < subj.Sessions; i++ {
			switch {
			case i < len(la) && i < len(lb):
				if rng.Float64() < 0.5 {
					child = append(child, la[i])
				} else {
					child = append(child, lb[i])
				}
			case i < len(la):
				child = append(child, la[i])
			case i < len(lb):
				child = append(child, lb[i])
			default:
				child = append(child, randomAssignment(c, subj, rng))
			}
		}
	}
	return child
}

func groupBySubject(s Schedule) map[string][]Assignment {
	out := make(map[string][]Assignment)
	for _, a := range s {
		out[a.Subject] = append(out[a.Subject], a)
	}
	return out
}

// Mutate rerolls, with probability p per assignment, one of day, slot or
// room. s is changed in place.
func Mutate(c *Catalog, s Schedule, p float64, rng *rand.Rand) {
	for i := range s {
		if rng.Float64() >= p {
			continue
		}
		a := s[i]
		switch rng.Intn(3) {
		case 0:
			a.Day = rng.Intn(c.Grid.Days)
		case 1:
			a.Slot = rng.Intn(c.Grid.SlotsPerDay)
		default:
			a.Room = c.Rooms[rng.Intn(len(c.Rooms))].ID
		}
		s[i] = a
	}
}
