package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caseboard/suspect-search/internal/database"
	"github.com/caseboard/suspect-search/internal/imaging"
	"github.com/caseboard/suspect-search/internal/pipeline"
)

var importCmd = &cobra.Command{
	Use:   "import <directory>",
	Short: "Bulk-enroll subjects from a directory of face images",
	Long: `Import walks a directory and enrolls every image it finds. The subject
name is taken from the file name without its extension ("Jan Novak.jpg"
enrolls "Jan Novak"). Images whose name matches an already enrolled subject
add an encoding to that subject instead of creating a duplicate.

Images without a detectable face are skipped and reported at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().String("status", "", "Case status to assign to newly created subjects")
}

var importExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".webp": true, ".gif": true,
}

// collectImportFiles lists image files directly under dir, sorted by name.
func collectImportFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if importExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	files, err := collectImportFiles(args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no images found in %s", args[0])
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	status := mustGetString(cmd, "status")
	ctx := cmd.Context()

	bar := progressbar.Default(int64(len(files)), "enrolling")
	var enrolled, skipped int
	var failures []string

	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		req := pipeline.EnrollRequest{
			Source:      imaging.FromPath(path),
			SourceLabel: filepath.Base(path),
		}
		existing, err := eng.store.FindSubjectsByName(ctx, name)
		if err != nil {
			return fmt.Errorf("looking up %s: %w", name, err)
		}
		if len(existing) > 0 {
			req.SubjectID = existing[0].ID
		} else {
			req.Meta = database.SubjectMeta{Name: name, Status: status}
		}

		if _, err := eng.pipeline.Enroll(ctx, req); err != nil {
			if errors.Is(err, pipeline.ErrNoFaceForEnrollment) ||
				errors.Is(err, pipeline.ErrMultipleFaces) ||
				errors.Is(err, imaging.ErrDecode) {
				eng.log.Warn("skipping image", zap.String("path", path), zap.Error(err))
				skipped++
				failures = append(failures, fmt.Sprintf("%s: %v", filepath.Base(path), err))
				_ = bar.Add(1)
				continue
			}
			return fmt.Errorf("enrolling %s: %w", path, err)
		}
		enrolled++
		_ = bar.Add(1)
	}

	fmt.Printf("\nEnrolled %d image(s), skipped %d.\n", enrolled, skipped)
	for _, f := range failures {
		fmt.Printf("  skipped %s\n", f)
	}
	return nil
}
