package timetable

import "sort"

// Penalty weights.
const (
	RoomClashWeight      = 100
	TeacherClashWeight   = 100
	PreferenceMissWeight = 5
	DailyOverloadWeight  = 10
	LongRunWeight        = 3

	// MaxDailySessions is the number of sessions a subject may hold on one
	// day before the overload term applies.
	MaxDailySessions = 2
	// MaxRunLength is the longest run of adjacent same-subject blocks that
	// goes unpenalised.
	MaxRunLength = 2
)

// Breakdown itemises a schedule's penalty.
type Breakdown struct {
	RoomClashes           int `json:"room_clashes"`
	TeacherClashes        int `json:"teacher_clashes"`
	PreferenceMisses      int `json:"preference_misses"`
	DailyOverload         int `json:"daily_overload"`
	LongRuns              int `json:"long_runs"`
	RoomConflictGroups    int `json:"room_conflict_groups"`
	TeacherConflictGroups int `json:"teacher_conflict_groups"`
}

// Total returns the weighted penalty.
func (b Breakdown) Total() int {
	return b.RoomClashes*RoomClashWeight +
		b.TeacherClashes*TeacherClashWeight +
		b.PreferenceMisses*PreferenceMissWeight +
		b.DailyOverload*DailyOverloadWeight +
		b.LongRuns*LongRunWeight
}

// Evaluate scores s against c. Zero means conflict free and fully preferred.
func Evaluate(c *Catalog, s Schedule) int {
	return analyze(c, s, indexOccupancy(s)).Total()
}

// Analyze returns the per-term breakdown of Evaluate.
func Analyze(c *Catalog, s Schedule) Breakdown {
	return analyze(c, s, indexOccupancy(s))
}

func analyze(c *Catalog, s Schedule, occ occupancy) Breakdown {
	var b Breakdown
	b.RoomClashes, b.RoomConflictGroups = excess(occ.rooms)
	b.TeacherClashes, b.TeacherConflictGroups = excess(occ.teachers)

	type subjectDay struct {
		subject string
		day     int
	}
	perDay := make(map[subjectDay]int)
	for _, a := range s {
		if !c.Prefers(a.Teacher, a.At()) {
			b.PreferenceMisses++
		}
		perDay[subjectDay{a.Subject, a.Day}]++
	}
	for _, n := range perDay {
		if n > MaxDailySessions {
			b.DailyOverload += n - MaxDailySessions
		}
	}

	b.LongRuns = longRuns(s, c.Grid.Days)
	return b
}

// longRuns walks each day's assignments ordered by slot and counts blocks
// beyond MaxRunLength in runs of one subject on adjacent slots.
func longRuns(s Schedule, days int) int {
	byDay := make([][]Assignment, days)
	for _, a := range s {
		if a.Day >= 0 && a.Day < days {
			byDay[a.Day] = append(byDay[a.Day], a)
		}
	}

	extra := 0
	for _, day := range byDay {
		if len(day) < MaxRunLength+1 {
			continue
		}
		sort.SliceStable(day, func(i, j int) bool { return day[i].Slot < day[j].Slot })
		run := 1
		for i := 1; i < len(day); i++ {
			if day[i].Subject == day[i-1].Subject && day[i].Slot == day[i-1].Slot+1 {
				run++
				if run > MaxRunLength {
					extra++
				}
				continue
			}
			run = 1
		}
	}
	return extra
}
