package models

import "time"

// Subject is a row of the subjects table.
type Subject struct {
	ID             string    `db:"id" json:"id"`
	Code           string    `db:"code" json:"code"`
	Name           string    `db:"name" json:"name"`
	TeacherID      string    `db:"teacher_id" json:"teacher_id"`
	WeeklySessions int       `db:"weekly_sessions" json:"weekly_sessions"`
	Position       int       `db:"position" json:"position"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Teacher is a row of the teachers table.
type Teacher struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Position int    `db:"position" json:"position"`
}

// TeacherPreferredSlot marks one preferred (day, slot) for a teacher.
type TeacherPreferredSlot struct {
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	DayOfWeek int    `db:"day_of_week" json:"day_of_week"`
	TimeSlot  int    `db:"time_slot" json:"time_slot"`
}

// Room is a row of the rooms table.
type Room struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Capacity int    `db:"capacity" json:"capacity"`
	Position int    `db:"position" json:"position"`
}

// TimeGrid is the single-row time_grid table.
type TimeGrid struct {
	Days        int    `db:"days" json:"days"`
	SlotsPerDay int    `db:"slots_per_day" json:"slots_per_day"`
	DayNames    string `db:"day_names" json:"day_names"`
	SlotLabels  string `db:"slot_labels" json:"slot_labels"`
}

// CatalogSnapshot is everything the catalog tables hold.
type CatalogSnapshot struct {
	Grid           TimeGrid
	Subjects       []Subject
	Teachers       []Teacher
	PreferredSlots []TeacherPreferredSlot
	Rooms          []Room
}
