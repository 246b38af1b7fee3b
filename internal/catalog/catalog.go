// Package catalog turns catalog payloads from files, the database or API
// requests into validated search catalogs and back into display views.
package catalog

import (
	"fmt"
	"strings"

	"github.com/L1nkStart/optimizacion-combinatoria/internal/dto"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/models"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/timetable"
)

// Labels names the days and slots of a grid for display.
type Labels struct {
	Days  []string
	Slots []string
}

// Day returns the label of day d.
func (l Labels) Day(d int) string {
	if d >= 0 && d < len(l.Days) && l.Days[d] != "" {
		return l.Days[d]
	}
	return fmt.Sprintf("Day %d", d+1)
}

// Slot returns the label of slot s.
func (l Labels) Slot(s int) string {
	if s >= 0 && s < len(l.Slots) && l.Slots[s] != "" {
		return l.Slots[s]
	}
	return fmt.Sprintf("Block %d", s+1)
}

// Resolved bundles a validated catalog with its source payload and labels.
type Resolved struct {
	Name    string
	Payload dto.CatalogPayload
	Catalog *timetable.Catalog
	Labels  Labels
}

// Build validates p and converts it into a search catalog.
func Build(p dto.CatalogPayload) (*Resolved, error) {
	subjects := make([]timetable.Subject, len(p.Subjects))
	for i, s := range p.Subjects {
		subjects[i] = timetable.Subject{ID: s.ID, Name: s.Name, TeacherID: s.TeacherID, Sessions: s.Sessions}
	}
	teachers := make([]timetable.Teacher, len(p.Teachers))
	for i, t := range p.Teachers {
		preferred := make([]timetable.Slot, len(t.Preferred))
		for j, s := range t.Preferred {
			preferred[j] = timetable.Slot{Day: s.Day, Slot: s.Slot}
		}
		teachers[i] = timetable.Teacher{ID: t.ID, Name: t.Name, Preferred: preferred}
	}
	rooms := make([]timetable.Room, len(p.Rooms))
	for i, r := range p.Rooms {
		rooms[i] = timetable.Room{ID: r.ID, Name: r.Name, Capacity: r.Capacity}
	}

	c, err := timetable.NewCatalog(subjects, teachers, rooms, timetable.TimeGrid{Days: p.Grid.Days, SlotsPerDay: p.Grid.SlotsPerDay})
	if err != nil {
		return nil, err
	}
	return &Resolved{
		Name:    p.Name,
		Payload: p,
		Catalog: c,
		Labels:  Labels{Days: p.Grid.DayNames, Slots: p.Grid.SlotLabels},
	}, nil
}

// FromSnapshot converts database rows into a payload. Rows are expected in
// position order already.
func FromSnapshot(s models.CatalogSnapshot) dto.CatalogPayload {
	preferred := make(map[string][]dto.SlotPayload)
	for _, p := range s.PreferredSlots {
		preferred[p.TeacherID] = append(preferred[p.TeacherID], dto.SlotPayload{Day: p.DayOfWeek, Slot: p.TimeSlot})
	}

	out := dto.CatalogPayload{
		Name: "database",
		Grid: dto.GridPayload{
			Days:        s.Grid.Days,
			SlotsPerDay: s.Grid.SlotsPerDay,
			DayNames:    splitLabels(s.Grid.DayNames),
			SlotLabels:  splitLabels(s.Grid.SlotLabels),
		},
		Subjects: make([]dto.SubjectPayload, 0, len(s.Subjects)),
		Teachers: make([]dto.TeacherPayload, 0, len(s.Teachers)),
		Rooms:    make([]dto.RoomPayload, 0, len(s.Rooms)),
	}
	for _, t := range s.Teachers {
		out.Teachers = append(out.Teachers, dto.TeacherPayload{ID: t.ID, Name: t.FullName, Preferred: preferred[t.ID]})
	}
	for _, r := range s.Rooms {
		out.Rooms = append(out.Rooms, dto.RoomPayload{ID: r.ID, Name: r.Name, Capacity: r.Capacity})
	}
	for _, subj := range s.Subjects {
		name := subj.Name
		if name == "" {
			name = subj.Code
		}
		out.Subjects = append(out.Subjects, dto.SubjectPayload{ID: subj.ID, Name: name, TeacherID: subj.TeacherID, Sessions: subj.WeeklySessions})
	}
	return out
}

func splitLabels(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ToSchedule converts client assignments into a schedule.
func ToSchedule(in []dto.AssignmentPayload) timetable.Schedule {
	s := make(timetable.Schedule, len(in))
	for i, a := range in {
		s[i] = timetable.Assignment{Subject: a.SubjectID, Teacher: a.TeacherID, Room: a.RoomID, Day: a.Day, Slot: a.Slot}
	}
	return s
}

// Views enriches s with names, labels and conflict flags.
func (r *Resolved) Views(s timetable.Schedule) []dto.AssignmentView {
	rooms := make(map[string]string, len(r.Catalog.Rooms))
	for _, room := range r.Catalog.Rooms {
		rooms[room.ID] = room.Name
	}
	conflicted := timetable.Conflicted(s)

	out := make([]dto.AssignmentView, len(s))
	for i, a := range s {
		subj, _ := r.Catalog.Subject(a.Subject)
		teacher, _ := r.Catalog.Teacher(a.Teacher)
		out[i] = dto.AssignmentView{
			SubjectID:   a.Subject,
			SubjectName: subj.Name,
			TeacherID:   a.Teacher,
			TeacherName: teacher.Name,
			RoomID:      a.Room,
			RoomName:    rooms[a.Room],
			Day:         a.Day,
			Slot:        a.Slot,
			DayName:     r.Labels.Day(a.Day),
			SlotLabel:   r.Labels.Slot(a.Slot),
			Conflict:    conflicted[i],
			Preferred:   r.Catalog.Prefers(a.Teacher, a.At()),
		}
	}
	return out
}

// Breakdown converts an engine breakdown into its transport form.
func Breakdown(b timetable.Breakdown) dto.PenaltyBreakdown {
	return dto.PenaltyBreakdown{
		Total:                 b.Total(),
		RoomClashes:           b.RoomClashes,
		TeacherClashes:        b.TeacherClashes,
		PreferenceMisses:      b.PreferenceMisses,
		DailyOverload:         b.DailyOverload,
		LongRuns:              b.LongRuns,
		RoomConflictGroups:    b.RoomConflictGroups,
		TeacherConflictGroups: b.TeacherConflictGroups,
	}
}
