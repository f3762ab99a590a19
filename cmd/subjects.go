package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caseboard/suspect-search/internal/database"
)

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "List enrolled subjects",
	RunE:  runSubjects,
}

func init() {
	rootCmd.AddCommand(subjectsCmd)
	subjectsCmd.Flags().String("name", "", "Filter by name (diacritics and dashes are ignored)")
}

func runSubjects(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := cmd.Context()

	var subjects []database.SubjectRecord
	if name := mustGetString(cmd, "name"); name != "" {
		subjects, err = eng.store.FindSubjectsByName(ctx, name)
	} else {
		subjects, err = eng.store.ListSubjects(ctx)
	}
	if err != nil {
		return fmt.Errorf("listing subjects: %w", err)
	}
	if len(subjects) == 0 {
		fmt.Println("No subjects enrolled.")
		return nil
	}

	for _, s := range subjects {
		encodings, err := eng.store.ListEncodingsBySubject(ctx, s.ID)
		if err != nil {
			return fmt.Errorf("listing encodings for %s: %w", s.ID, err)
		}
		fmt.Printf("%s  %-30s  %d encoding(s)", s.ID, s.Meta.Name, len(encodings))
		if s.Meta.Status != "" {
			fmt.Printf("  [%s]", s.Meta.Status)
		}
		fmt.Println()
	}
	return nil
}
