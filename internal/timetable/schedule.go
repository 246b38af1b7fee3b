package timetable

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	appErrors "github.com/L1nkStart/optimizacion-combinatoria/pkg/errors"
)

// Assignment places one session of a subject. Teacher mirrors the subject's
// teacher and never changes after creation.
type Assignment struct {
	Subject string `json:"subject_id"`
	Teacher string `json:"teacher_id"`
	Room    string `json:"room_id"`
	Day     int    `json:"day"`
	Slot    int    `json:"slot"`
}

// At returns the assignment's position on the grid.
func (a Assignment) At() Slot {
	return Slot{Day: a.Day, Slot: a.Slot}
}

// Schedule is an ordered set of assignments.
type Schedule []Assignment

// Clone returns an independent copy.
func (s Schedule) Clone() Schedule {
	if s == nil {
		return nil
	}
	out := make(Schedule, len(s))
	copy(out, s)
	return out
}

// CountBySubject tallies assignments per subject id.
func (s Schedule) CountBySubject() map[string]int {
	counts := make(map[string]int)
	for _, a := range s {
		counts[a.Subject]++
	}
	return counts
}

// CheckSessions verifies that every subject appears exactly as many times as
// the catalog requires and that no foreign subject slipped in.
func CheckSessions(c *Catalog, s Schedule) error {
	counts := s.CountBySubject()
	var drift []string
	for _, subj := range c.Subjects {
		if got := counts[subj.ID]; got != subj.Sessions {
			drift = append(drift, fmt.Sprintf("%s: want %d got %d", subj.ID, subj.Sessions, got))
		}
		delete(counts, subj.ID)
	}
	extra := make([]string, 0, len(counts))
	for id := range counts {
		extra = append(extra, id)
	}
	sort.Strings(extra)
	for _, id := range extra {
		drift = append(drift, fmt.Sprintf("%s: not in catalog", id))
	}
	if len(drift) == 0 {
		return nil
	}
	return appErrors.Clone(appErrors.ErrInternalConsistency, "session count drift: "+strings.Join(drift, ", "))
}

// CheckPlacements verifies that every assignment references known catalog
// entries and lies on the grid. Used for schedules supplied from outside the
// engine.
func CheckPlacements(c *Catalog, s Schedule) error {
	rooms := make(map[string]struct{}, len(c.Rooms))
	for _, r := range c.Rooms {
		rooms[r.ID] = struct{}{}
	}
	var problems []string
	for i, a := range s {
		subj, ok := c.Subject(a.Subject)
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("#%d unknown subject %q", i, a.Subject))
		case subj.TeacherID != a.Teacher:
			problems = append(problems, fmt.Sprintf("#%d teacher %q does not teach %q", i, a.Teacher, a.Subject))
		}
		if _, ok := rooms[a.Room]; !ok {
			problems = append(problems, fmt.Sprintf("#%d unknown room %q", i, a.Room))
		}
		if !c.Grid.Contains(a.At()) {
			problems = append(problems, fmt.Sprintf("#%d (%d, %d) outside the grid", i, a.Day, a.Slot))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return appErrors.Clone(appErrors.ErrValidation, "invalid schedule: "+strings.Join(problems, "; "))
}

// randomAssignment draws day, slot and room uniformly, in that order.
func randomAssignment(c *Catalog, subj Subject, rng *rand.Rand) Assignment {
	day := rng.Intn(c.Grid.Days)
	slot := rng.Intn(c.Grid.SlotsPerDay)
	room := c.Rooms[rng.Intn(len(c.Rooms))].ID
	return Assignment{Subject: subj.ID, Teacher: subj.TeacherID, Room: room, Day: day, Slot: slot}
}

// RandomSchedule emits Sessions random assignments for every subject, in
// catalog order. No conflict avoidance is attempted.
func RandomSchedule(c *Catalog, rng *rand.Rand) Schedule {
	s := make(Schedule, 0, c.TotalSessions())
	for _, subj := range c.Subjects {
		for i := 0; i < subj.Sessions; i++ {
			s = append(s, randomAssignment(c, subj, rng))
		}
	}
	return s
}
