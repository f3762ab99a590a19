// Package cmd implements the suspect-search command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "suspect-search",
	Short: "Facial recognition lookup over a database of enrolled subjects",
	Long: `Suspect Search matches face photographs and composite sketches against
a database of enrolled subjects. Photographs run through a CNN detector;
sketches are enhanced and routed through a classical cascade. Matching uses
exact Euclidean distances over 128-dimensional dlib encodings.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// newLogger builds the process logger. DEBUG=1 switches to the development
// encoder with debug level enabled.
func newLogger() (*zap.Logger, error) {
	if os.Getenv("DEBUG") != "" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
