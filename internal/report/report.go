// Package report lays out schedules as per-room weekly grids with a conflict
// summary, ready for the exporters.
package report

import (
	"fmt"
	"strings"

	"github.com/L1nkStart/optimizacion-combinatoria/internal/catalog"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/timetable"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/export"
)

const (
	blockHeader = "Block"
	emptyCell   = "---"
	// ConflictMark is appended to cells whose occupants clash.
	ConflictMark = "(!)"
)

// Document builds the exportable view of s.
func Document(r *catalog.Resolved, s timetable.Schedule, title string, history []int) export.Document {
	return export.Document{
		Title:   title,
		Summary: Summary(r, s),
		Sheets:  RoomGrids(r, s),
		History: history,
	}
}

// RoomGrids renders one sheet per room: rows are slots, columns are days.
func RoomGrids(r *catalog.Resolved, s timetable.Schedule) []export.Sheet {
	c := r.Catalog
	conflicted := timetable.Conflicted(s)

	type cellKey struct {
		room      string
		day, slot int
	}
	cells := make(map[cellKey][]int)
	for i, a := range s {
		k := cellKey{a.Room, a.Day, a.Slot}
		cells[k] = append(cells[k], i)
	}

	headers := make([]string, 0, c.Grid.Days+1)
	headers = append(headers, blockHeader)
	for d := 0; d < c.Grid.Days; d++ {
		headers = append(headers, r.Labels.Day(d))
	}

	sheets := make([]export.Sheet, 0, len(c.Rooms))
	for _, room := range c.Rooms {
		rows := make([]map[string]string, 0, c.Grid.SlotsPerDay)
		for slot := 0; slot < c.Grid.SlotsPerDay; slot++ {
			row := map[string]string{blockHeader: r.Labels.Slot(slot)}
			for d := 0; d < c.Grid.Days; d++ {
				row[headers[d+1]] = cellText(c, s, cells[cellKey{room.ID, d, slot}], conflicted)
			}
			rows = append(rows, row)
		}
		title := room.Name
		if title == "" {
			title = room.ID
		}
		sheets = append(sheets, export.Sheet{Title: title, Data: export.Dataset{Headers: headers, Rows: rows}})
	}
	return sheets
}

func cellText(c *timetable.Catalog, s timetable.Schedule, positions []int, conflicted []bool) string {
	if len(positions) == 0 {
		return emptyCell
	}
	names := make([]string, 0, len(positions))
	clash := false
	for _, p := range positions {
		name := s[p].Subject
		if subj, ok := c.Subject(s[p].Subject); ok && subj.Name != "" {
			name = subj.Name
		}
		names = append(names, name)
		clash = clash || conflicted[p]
	}
	text := strings.Join(names, " / ")
	if clash {
		text += " " + ConflictMark
	}
	return text
}

// Summary lists the penalty and the conflict analysis of s.
func Summary(r *catalog.Resolved, s timetable.Schedule) []string {
	b := timetable.Analyze(r.Catalog, s)
	return []string{
		fmt.Sprintf("Penalty: %d", b.Total()),
		fmt.Sprintf("Room conflicts: %d", b.RoomConflictGroups),
		fmt.Sprintf("Teacher conflicts: %d", b.TeacherConflictGroups),
		fmt.Sprintf("Preference violations: %d", b.PreferenceMisses),
		fmt.Sprintf("Daily overload: %d", b.DailyOverload),
		fmt.Sprintf("Long runs: %d", b.LongRuns),
	}
}

// Overview describes the size of the problem.
func Overview(r *catalog.Resolved) []string {
	c := r.Catalog
	return []string{
		fmt.Sprintf("- %d subjects", len(c.Subjects)),
		fmt.Sprintf("- %d teachers", len(c.Teachers)),
		fmt.Sprintf("- %d rooms", len(c.Rooms)),
		fmt.Sprintf("- %d days x %d blocks = %d slots", c.Grid.Days, c.Grid.SlotsPerDay, c.Grid.Days*c.Grid.SlotsPerDay),
		fmt.Sprintf("- %d class blocks required", c.TotalSessions()),
	}
}
