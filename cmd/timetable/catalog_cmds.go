package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/L1nkStart/optimizacion-combinatoria/internal/catalog"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/dto"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/report"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "check a catalog without searching",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := root.loadCatalog()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			name := resolved.Name
			if name == "" {
				name = "catalog"
			}
			fmt.Fprintf(out, "%s is valid:\n", name)
			printLines(out, report.Overview(resolved))
			return nil
		},
	}
}

func newSampleCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "write the built-in sample catalog as yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := yaml.Marshal(catalogDocument(catalog.Sample()))
			if err != nil {
				return fmt.Errorf("encode sample: %w", err)
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			return os.WriteFile(output, body, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write; stdout when empty")
	return cmd
}

// catalogDocument keys p the way catalog files are read back.
func catalogDocument(p dto.CatalogPayload) map[string]interface{} {
	slots := func(in []dto.SlotPayload) []map[string]int {
		out := make([]map[string]int, len(in))
		for i, s := range in {
			out[i] = map[string]int{"day": s.Day, "slot": s.Slot}
		}
		return out
	}

	teachers := make([]map[string]interface{}, len(p.Teachers))
	for i, t := range p.Teachers {
		teachers[i] = map[string]interface{}{"id": t.ID, "name": t.Name, "preferred_slots": slots(t.Preferred)}
	}
	rooms := make([]map[string]interface{}, len(p.Rooms))
	for i, r := range p.Rooms {
		rooms[i] = map[string]interface{}{"id": r.ID, "name": r.Name, "capacity": r.Capacity}
	}
	subjects := make([]map[string]interface{}, len(p.Subjects))
	for i, s := range p.Subjects {
		subjects[i] = map[string]interface{}{"id": s.ID, "name": s.Name, "teacher_id": s.TeacherID, "sessions": s.Sessions}
	}

	return map[string]interface{}{
		"name": p.Name,
		"grid": map[string]interface{}{
			"days":          p.Grid.Days,
			"slots_per_day": p.Grid.SlotsPerDay,
			"day_names":     p.Grid.DayNames,
			"slot_labels":   p.Grid.SlotLabels,
		},
		"teachers": teachers,
		"rooms":    rooms,
		"subjects": subjects,
	}
}
