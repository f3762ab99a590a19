package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/caseboard/suspect-search/internal/database"
	"github.com/caseboard/suspect-search/internal/imaging"
	"github.com/caseboard/suspect-search/internal/pipeline"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <image>",
	Short: "Enroll a subject from a face photograph",
	Long: `Enroll registers a face encoding in the database. With --subject the
encoding is added to an existing subject; otherwise --name is required and
a new subject is created. The image must contain exactly one face.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("subject", "", "Existing subject ID to add the encoding to")
	enrollCmd.Flags().String("name", "", "Subject name (required for a new subject)")
	enrollCmd.Flags().String("dob", "", "Date of birth")
	enrollCmd.Flags().String("description", "", "Physical description")
	enrollCmd.Flags().String("status", "", "Case status (e.g. wanted, cleared)")
	enrollCmd.Flags().String("notes", "", "Free-form notes")
	enrollCmd.Flags().String("location", "", "Last known location")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	subjectID := mustGetString(cmd, "subject")
	name := mustGetString(cmd, "name")
	if subjectID == "" && name == "" {
		return errors.New("either --subject or --name is required")
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	receipt, err := eng.pipeline.Enroll(cmd.Context(), pipeline.EnrollRequest{
		Source:    imaging.FromPath(args[0]),
		SubjectID: subjectID,
		Meta: database.SubjectMeta{
			Name:              name,
			DateOfBirth:       mustGetString(cmd, "dob"),
			Description:       mustGetString(cmd, "description"),
			Status:            mustGetString(cmd, "status"),
			Notes:             mustGetString(cmd, "notes"),
			LastKnownLocation: mustGetString(cmd, "location"),
		},
		SourceLabel: filepath.Base(args[0]),
	})
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNoFaceForEnrollment):
			return fmt.Errorf("no face found in %s", args[0])
		case errors.Is(err, pipeline.ErrMultipleFaces):
			return fmt.Errorf("%s contains multiple faces; crop to one", args[0])
		default:
			return err
		}
	}

	fmt.Printf("Enrolled %s\n", receipt.Subject.Meta.Name)
	fmt.Printf("  Subject ID:  %s\n", receipt.Subject.ID)
	fmt.Printf("  Encoding ID: %d\n", receipt.EncodingID)
	if receipt.DuplicateOf != "" {
		fmt.Printf("  Warning: resembles already enrolled subject %s\n", receipt.DuplicateOf)
	}
	return nil
}

// printJSON renders a value as indented JSON on stdout.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
