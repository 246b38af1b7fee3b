package dto

import "time"

// SlotPayload is a (day, slot) pair, both zero based.
type SlotPayload struct {
	Day  int `json:"day" mapstructure:"day" validate:"min=0"`
	Slot int `json:"slot" mapstructure:"slot" validate:"min=0"`
}

// SubjectPayload describes a subject and its weekly demand.
type SubjectPayload struct {
	ID        string `json:"id" mapstructure:"id" validate:"required"`
	Name      string `json:"name" mapstructure:"name"`
	TeacherID string `json:"teacherId" mapstructure:"teacher_id" validate:"required"`
	Sessions  int    `json:"sessions" mapstructure:"sessions" validate:"required,min=1"`
}

// TeacherPayload describes a teacher and the slots they prefer.
type TeacherPayload struct {
	ID        string        `json:"id" mapstructure:"id" validate:"required"`
	Name      string        `json:"name" mapstructure:"name"`
	Preferred []SlotPayload `json:"preferredSlots" mapstructure:"preferred_slots" validate:"omitempty,dive"`
}

// RoomPayload describes a room.
type RoomPayload struct {
	ID       string `json:"id" mapstructure:"id" validate:"required"`
	Name     string `json:"name" mapstructure:"name"`
	Capacity int    `json:"capacity" mapstructure:"capacity" validate:"min=0"`
}

// GridPayload sizes the week. Labels are optional and only used for display.
type GridPayload struct {
	Days        int      `json:"days" mapstructure:"days" validate:"required,min=1"`
	SlotsPerDay int      `json:"slotsPerDay" mapstructure:"slots_per_day" validate:"required,min=1"`
	DayNames    []string `json:"dayNames,omitempty" mapstructure:"day_names"`
	SlotLabels  []string `json:"slotLabels,omitempty" mapstructure:"slot_labels"`
}

// CatalogPayload is the transport form of a timetable catalog.
type CatalogPayload struct {
	Name     string           `json:"name,omitempty" mapstructure:"name"`
	Grid     GridPayload      `json:"grid" mapstructure:"grid"`
	Subjects []SubjectPayload `json:"subjects" mapstructure:"subjects" validate:"required,min=1,dive"`
	Teachers []TeacherPayload `json:"teachers" mapstructure:"teachers" validate:"required,min=1,dive"`
	Rooms    []RoomPayload    `json:"rooms" mapstructure:"rooms" validate:"required,min=1,dive"`
}

// SolverOptions overrides the configured search tuning for one request.
type SolverOptions struct {
	PopulationSize        *int     `json:"populationSize,omitempty" validate:"omitempty,min=2"`
	MaxGenerations        *int     `json:"maxGenerations,omitempty" validate:"omitempty,min=1"`
	EliteCount            *int     `json:"eliteCount,omitempty" validate:"omitempty,min=0"`
	TournamentSize        *int     `json:"tournamentSize,omitempty" validate:"omitempty,min=1"`
	LocalSearchIterations *int     `json:"localSearchIterations,omitempty" validate:"omitempty,min=0"`
	LowMutationRate       *float64 `json:"lowMutationRate,omitempty" validate:"omitempty,min=0,max=1"`
	HighMutationRate      *float64 `json:"highMutationRate,omitempty" validate:"omitempty,min=0,max=1"`
	Workers               *int     `json:"workers,omitempty" validate:"omitempty,min=1,max=64"`
}

// SolveRequest asks for a timetable. Without a catalog the configured one is
// used; without a seed one is drawn and echoed back. The catalog is checked
// when it is resolved, not with the rest of the request.
type SolveRequest struct {
	Catalog *CatalogPayload `json:"catalog,omitempty" validate:"-"`
	Seed    *int64          `json:"seed,omitempty"`
	Options SolverOptions   `json:"options"`
}

// AssignmentPayload is a placed session as supplied by a client.
type AssignmentPayload struct {
	SubjectID string `json:"subjectId" validate:"required"`
	TeacherID string `json:"teacherId" validate:"required"`
	RoomID    string `json:"roomId" validate:"required"`
	Day       int    `json:"day" validate:"min=0"`
	Slot      int    `json:"slot" validate:"min=0"`
}

// AssignmentView is a placed session enriched for display.
type AssignmentView struct {
	SubjectID   string `json:"subjectId"`
	SubjectName string `json:"subjectName"`
	TeacherID   string `json:"teacherId"`
	TeacherName string `json:"teacherName"`
	RoomID      string `json:"roomId"`
	RoomName    string `json:"roomName"`
	Day         int    `json:"day"`
	Slot        int    `json:"slot"`
	DayName     string `json:"dayName"`
	SlotLabel   string `json:"slotLabel"`
	Conflict    bool   `json:"conflict"`
	Preferred   bool   `json:"preferred"`
}

// PenaltyBreakdown itemises a penalty.
type PenaltyBreakdown struct {
	Total                 int `json:"total"`
	RoomClashes           int `json:"roomClashes"`
	TeacherClashes        int `json:"teacherClashes"`
	PreferenceMisses      int `json:"preferenceMisses"`
	DailyOverload         int `json:"dailyOverload"`
	LongRuns              int `json:"longRuns"`
	RoomConflictGroups    int `json:"roomConflictGroups"`
	TeacherConflictGroups int `json:"teacherConflictGroups"`
}

// SolveResponse is the outcome of a search. Interrupted is set when a
// timeout or cancellation stopped the search early; the schedule is then the
// best one found so far.
type SolveResponse struct {
	Seed        int64            `json:"seed"`
	Penalty     int              `json:"penalty"`
	Perfect     bool             `json:"perfect"`
	Generation  int              `json:"generation"`
	Generations int              `json:"generations"`
	Interrupted bool             `json:"interrupted,omitempty"`
	ElapsedMS   int64            `json:"elapsedMs"`
	Breakdown   PenaltyBreakdown `json:"breakdown"`
	Assignments []AssignmentView `json:"assignments"`
	History     []int            `json:"history,omitempty"`
}

// EvaluateRequest scores a hand-made schedule.
type EvaluateRequest struct {
	Catalog     *CatalogPayload     `json:"catalog,omitempty" validate:"-"`
	Assignments []AssignmentPayload `json:"assignments" validate:"required,min=1,dive"`
}

// EvaluateResponse reports the score of a supplied schedule.
type EvaluateResponse struct {
	Penalty     int              `json:"penalty"`
	Breakdown   PenaltyBreakdown `json:"breakdown"`
	Assignments []AssignmentView `json:"assignments"`
	// SessionDrift lists subjects whose session count differs from the catalog.
	SessionDrift string `json:"sessionDrift,omitempty"`
}

// RunProgress is the last generation reported by a running search.
type RunProgress struct {
	Generation  int `json:"generation"`
	BestPenalty int `json:"bestPenalty"`
}

// RunView describes an asynchronous run.
type RunView struct {
	ID         string         `json:"id"`
	Status     string         `json:"status"`
	Seed       int64          `json:"seed"`
	CreatedAt  time.Time      `json:"createdAt"`
	StartedAt  *time.Time     `json:"startedAt,omitempty"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
	Progress   *RunProgress   `json:"progress,omitempty"`
	Result     *SolveResponse `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// ExportRequest asks for a stored export of a finished run.
type ExportRequest struct {
	Format string `json:"format" form:"format" validate:"required,oneof=csv pdf xlsx html txt"`
}

// ExportLink points at a stored export.
type ExportLink struct {
	Format    string    `json:"format"`
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
