package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/snapindex/snapindex/pkg/models"
)

var detectCmd = &cobra.Command{
	Use:   "detect-exports <directory>",
	Short: "Scan a directory for export archives",
	Args:  cobra.ExactArgs(1),
	Run:   runDetect,
}

var autoDetectCmd = &cobra.Command{
	Use:   "auto-detect-exports",
	Short: "Scan the configured scan roots for export archives",
	Run:   runAutoDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(autoDetectCmd)
}

func printExports(exports []models.ExportSet) {
	if len(exports) == 0 {
		fmt.Println("No export candidates found.")
		return
	}
	for _, e := range exports {
		fmt.Printf("%s\t%s\t%d part(s)\n", e.ID, e.ValidationStatus, len(e.SourcePaths))
	}
}

func runDetect(cmd *cobra.Command, args []string) {
	a := mustApp()
	defer a.Close()

	exports, err := a.DetectExports(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "detect failed: %v\n", err)
		os.Exit(1)
	}
	printExports(exports)
}

func runAutoDetect(cmd *cobra.Command, args []string) {
	a := mustApp()
	defer a.Close()

	exports, err := a.AutoDetectExports()
	if err != nil {
		fmt.Fprintf(os.Stderr, "auto-detect failed: %v\n", err)
		os.Exit(1)
	}
	printExports(exports)
}
