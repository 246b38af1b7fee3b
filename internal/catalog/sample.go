package catalog

import "github.com/L1nkStart/optimizacion-combinatoria/internal/dto"

// Sample returns the demonstration catalog: a five day week of six blocks,
// three teachers, three rooms and five subjects.
func Sample() dto.CatalogPayload {
	return dto.CatalogPayload{
		Name: "sample",
		Grid: dto.GridPayload{
			Days:        5,
			SlotsPerDay: 6,
			DayNames:    []string{"Lunes", "Martes", "Miercoles", "Jueves", "Viernes"},
			SlotLabels:  []string{"8:00-9:30", "9:30-11:00", "11:00-12:30", "12:30-14:00", "14:00-15:30", "15:30-17:00"},
		},
		Teachers: []dto.TeacherPayload{
			{ID: "t1", Name: "Prof. Garcia", Preferred: slots(0, 0, 0, 1, 0, 2, 2, 0, 2, 1, 2, 2, 2, 3, 4, 0)},
			{ID: "t2", Name: "Prof. Martinez", Preferred: slots(1, 0, 1, 1, 1, 2, 1, 3, 3, 0, 3, 1, 3, 2, 3, 3)},
			{ID: "t3", Name: "Prof. Lopez", Preferred: slots(0, 2, 0, 3, 2, 3, 2, 4, 4, 1, 4, 2, 4, 3, 4, 4)},
		},
		Rooms: []dto.RoomPayload{
			{ID: "a1", Name: "Aula A", Capacity: 30},
			{ID: "a2", Name: "Aula B", Capacity: 25},
			{ID: "a3", Name: "Aula C", Capacity: 35},
		},
		Subjects: []dto.SubjectPayload{
			{ID: "m1", Name: "Algoritmos", TeacherID: "t1", Sessions: 4},
			{ID: "m2", Name: "Bases de Datos", TeacherID: "t2", Sessions: 3},
			{ID: "m3", Name: "Redes", TeacherID: "t3", Sessions: 3},
			{ID: "m4", Name: "Inteligencia Artificial", TeacherID: "t1", Sessions: 3},
			{ID: "m5", Name: "Programacion Web", TeacherID: "t2", Sessions: 4},
		},
	}
}

// slots pairs up a flat day, slot, day, slot... list.
func slots(pairs ...int) []dto.SlotPayload {
	out := make([]dto.SlotPayload, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, dto.SlotPayload{Day: pairs[i], Slot: pairs[i+1]})
	}
	return out
}
