package timetable

// occupancyKey names one resource at one grid position.
type occupancyKey struct {
	resource string
	day      int
	slot     int
}

// occupancy groups schedule positions by (room, day, slot) and by
// (teacher, day, slot). Positions within a group are in schedule order.
type occupancy struct {
	rooms    map[occupancyKey][]int
	teachers map[occupancyKey][]int
}

func indexOccupancy(s Schedule) occupancy {
	occ := occupancy{
		rooms:    make(map[occupancyKey][]int, len(s)),
		teachers: make(map[occupancyKey][]int, len(s)),
	}
	for i, a := range s {
		rk := occupancyKey{resource: a.Room, day: a.Day, slot: a.Slot}
		tk := occupancyKey{resource: a.Teacher, day: a.Day, slot: a.Slot}
		occ.rooms[rk] = append(occ.rooms[rk], i)
		occ.teachers[tk] = append(occ.teachers[tk], i)
	}
	return occ
}

// excess sums k-1 over every group of size k and counts contended groups.
func excess(groups map[occupancyKey][]int) (extra, contended int) {
	for _, positions := range groups {
		if len(positions) > 1 {
			extra += len(positions) - 1
			contended++
		}
	}
	return extra, contended
}

// conflicts lists, in ascending order, every position that is not the first
// occupant of a contended room or teacher group.
func (o occupancy) conflicts(n int) []int {
	marked := make([]bool, n)
	mark := func(groups map[occupancyKey][]int) {
		for _, positions := range groups {
			for _, p := range positions[1:] {
				marked[p] = true
			}
		}
	}
	mark(o.rooms)
	mark(o.teachers)

	out := make([]int, 0)
	for i, m := range marked {
		if m {
			out = append(out, i)
		}
	}
	return out
}

// Conflicted flags every position whose room or teacher slot is shared with
// another assignment.
func Conflicted(s Schedule) []bool {
	occ := indexOccupancy(s)
	flags := make([]bool, len(s))
	for i, a := range s {
		flags[i] = len(occ.rooms[occupancyKey{a.Room, a.Day, a.Slot}]) > 1 ||
			len(occ.teachers[occupancyKey{a.Teacher, a.Day, a.Slot}]) > 1
	}
	return flags
}

// free reports whether moving position i to (room, day, slot) would collide
// with any other assignment on room or teacher.
func (o occupancy) free(s Schedule, i int, room string, day, slot int) bool {
	for _, p := range o.rooms[occupancyKey{room, day, slot}] {
		if p != i {
			return false
		}
	}
	for _, p := range o.teachers[occupancyKey{s[i].Teacher, day, slot}] {
		if p != i {
			return false
		}
	}
	return true
}
