// Package timetable implements the schedule search engine: the catalog and
// schedule model, the fitness evaluator, the genetic operators, the
// conflict-directed local search and the evolution loop driving them.
package timetable

import (
	"fmt"
	"strings"

	appErrors "github.com/L1nkStart/optimizacion-combinatoria/pkg/errors"
)

// Slot is a (day, slot) pair on the time grid.
type Slot struct {
	Day  int `json:"day"`
	Slot int `json:"slot"`
}

// Subject is a course that must be taught Sessions times per week.
type Subject struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TeacherID string `json:"teacher_id"`
	Sessions  int    `json:"sessions"`
}

// Teacher owns subjects and prefers some slots of the grid.
type Teacher struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Preferred []Slot `json:"preferred"`
}

// Room hosts sessions. Capacity is informational only.
type Room struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// TimeGrid bounds the valid (day, slot) pairs.
type TimeGrid struct {
	Days        int `json:"days"`
	SlotsPerDay int `json:"slots_per_day"`
}

// Contains reports whether s lies on the grid.
func (g TimeGrid) Contains(s Slot) bool {
	return s.Day >= 0 && s.Day < g.Days && s.Slot >= 0 && s.Slot < g.SlotsPerDay
}

// Catalog is the read-only description of a search problem. Build it with
// NewCatalog; the zero value is not usable.
type Catalog struct {
	Subjects []Subject
	Teachers []Teacher
	Rooms    []Room
	Grid     TimeGrid

	subjectIndex map[string]int
	teacherIndex map[string]int
	preferred    map[string]map[Slot]struct{}
}

// NewCatalog validates the inputs and returns a catalog ready for searching.
// Slices are copied so later changes by the caller do not leak in.
func NewCatalog(subjects []Subject, teachers []Teacher, rooms []Room, grid TimeGrid) (*Catalog, error) {
	c := &Catalog{
		Subjects: append([]Subject(nil), subjects...),
		Teachers: make([]Teacher, len(teachers)),
		Rooms:    append([]Room(nil), rooms...),
		Grid:     grid,
	}
	for i, t := range teachers {
		t.Preferred = append([]Slot(nil), t.Preferred...)
		c.Teachers[i] = t
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	c.buildIndexes()
	return c, nil
}

func (c *Catalog) validate() error {
	var problems []string

	if c.Grid.Days <= 0 {
		problems = append(problems, fmt.Sprintf("grid days must be positive, got %d", c.Grid.Days))
	}
	if c.Grid.SlotsPerDay <= 0 {
		problems = append(problems, fmt.Sprintf("grid slots per day must be positive, got %d", c.Grid.SlotsPerDay))
	}
	if len(c.Subjects) == 0 {
		problems = append(problems, "catalog has no subjects")
	}
	if len(c.Rooms) == 0 {
		problems = append(problems, "catalog has no rooms")
	}

	teachers := make(map[string]struct{}, len(c.Teachers))
	for _, t := range c.Teachers {
		if t.ID == "" {
			problems = append(problems, "teacher with empty id")
			continue
		}
		if _, dup := teachers[t.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate teacher id %q", t.ID))
			continue
		}
		teachers[t.ID] = struct{}{}
		if c.Grid.Days > 0 && c.Grid.SlotsPerDay > 0 {
			for _, s := range t.Preferred {
				if !c.Grid.Contains(s) {
					problems = append(problems, fmt.Sprintf("teacher %q prefers (%d, %d) outside the grid", t.ID, s.Day, s.Slot))
				}
			}
		}
	}

	rooms := make(map[string]struct{}, len(c.Rooms))
	for _, r := range c.Rooms {
		if r.ID == "" {
			problems = append(problems, "room with empty id")
			continue
		}
		if _, dup := rooms[r.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate room id %q", r.ID))
			continue
		}
		rooms[r.ID] = struct{}{}
	}

	subjects := make(map[string]struct{}, len(c.Subjects))
	for _, s := range c.Subjects {
		if s.ID == "" {
			problems = append(problems, "subject with empty id")
			continue
		}
		if _, dup := subjects[s.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate subject id %q", s.ID))
		}
		subjects[s.ID] = struct{}{}
		if _, ok := teachers[s.TeacherID]; !ok {
			problems = append(problems, fmt.Sprintf("subject %q references unknown teacher %q", s.ID, s.TeacherID))
		}
		if s.Sessions <= 0 {
			problems = append(problems, fmt.Sprintf("subject %q requires %d sessions", s.ID, s.Sessions))
		}
	}

	if len(problems) > 0 {
		return appErrors.Clone(appErrors.ErrInvalidCatalog, "invalid catalog: "+strings.Join(problems, "; "))
	}
	return nil
}

func (c *Catalog) buildIndexes() {
	c.subjectIndex = make(map[string]int, len(c.Subjects))
	for i, s := range c.Subjects {
		c.subjectIndex[s.ID] = i
	}
	c.teacherIndex = make(map[string]int, len(c.Teachers))
	c.preferred = make(map[string]map[Slot]struct{}, len(c.Teachers))
	for i, t := range c.Teachers {
		c.teacherIndex[t.ID] = i
		set := make(map[Slot]struct{}, len(t.Preferred))
		for _, s := range t.Preferred {
			set[s] = struct{}{}
		}
		c.preferred[t.ID] = set
	}
}

// Teacher looks up a teacher by id.
func (c *Catalog) Teacher(id string) (Teacher, bool) {
	i, ok := c.teacherIndex[id]
	if !ok {
		return Teacher{}, false
	}
	return c.Teachers[i], true
}

// Subject looks up a subject by id.
func (c *Catalog) Subject(id string) (Subject, bool) {
	i, ok := c.subjectIndex[id]
	if !ok {
		return Subject{}, false
	}
	return c.Subjects[i], true
}

// Prefers reports whether the teacher listed s among their preferred slots.
func (c *Catalog) Prefers(teacherID string, s Slot) bool {
	_, ok := c.preferred[teacherID][s]
	return ok
}

// TotalSessions is the length of every schedule built over the catalog.
func (c *Catalog) TotalSessions() int {
	total := 0
	for _, s := range c.Subjects {
		total += s.Sessions
	}
	return total
}
