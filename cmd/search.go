package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caseboard/suspect-search/internal/imaging"
	"github.com/caseboard/suspect-search/internal/pipeline"
)

var searchCmd = &cobra.Command{
	Use:   "search <image>",
	Short: "Look an image up against the enrolled subjects",
	Long: `Search matches a photograph or composite sketch against the database.
Sketch-like input is detected automatically, enhanced and routed through
the sketch-tolerant detector.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().Bool("json", false, "Print the raw result as JSON")
	searchCmd.Flags().Float64("threshold", 0, "Distance threshold override (0 uses the configured default)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.pipeline.SearchAt(cmd.Context(), imaging.FromPath(args[0]),
		mustGetFloat64(cmd, "threshold"))
	if err != nil {
		if errors.Is(err, imaging.ErrDecode) {
			return fmt.Errorf("could not decode %s as an image", args[0])
		}
		return err
	}

	if mustGetBool(cmd, "json") {
		return printJSON(cmd, result)
	}

	switch result.Outcome {
	case pipeline.OutcomeNoFace:
		fmt.Println("No face found in the image.")
	case pipeline.OutcomeNoMatch:
		fmt.Printf("No match (%d face(s) checked).\n", len(result.Regions))
	case pipeline.OutcomeMatch:
		meta := result.Subject.Meta
		fmt.Printf("Match: %s\n", meta.Name)
		fmt.Printf("  Subject ID: %s\n", result.Subject.ID)
		fmt.Printf("  Distance:   %.4f\n", result.Distance)
		fmt.Printf("  Similarity: %.4f\n", result.Similarity)
		if meta.Status != "" {
			fmt.Printf("  Status:     %s\n", meta.Status)
		}
		if meta.LastKnownLocation != "" {
			fmt.Printf("  Last seen:  %s\n", meta.LastKnownLocation)
		}
	}
	if result.Sketch {
		fmt.Println("  (input was treated as a sketch)")
	}
	return nil
}
