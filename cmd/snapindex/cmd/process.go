package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/snapindex/snapindex/pkg/ingestion"
	"github.com/snapindex/snapindex/pkg/models"
)

var (
	processSourceType string
)

var processCmd = &cobra.Command{
	Use:   "process-export <path...>",
	Short: "Run ingestion on one or more export parts (a folder, or one/more zip parts)",
	Args:  cobra.MinimumNArgs(1),
	Run:   runProcess,
}

var reimportCmd = &cobra.Command{
	Use:   "reimport-data",
	Short: "Reread the first stored export, clear all data, and re-ingest it",
	Run:   runReimport,
}

func init() {
	processCmd.Flags().StringVar(&processSourceType, "type", "zip", "export source type: zip or folder")
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(reimportCmd)
}

func buildExportSet(paths []string) models.ExportSet {
	sourceType := models.SourceZip
	if processSourceType == "folder" {
		sourceType = models.SourceFolder
	}
	return models.ExportSet{
		ID:          ingestion.NewExportID(),
		SourcePaths: paths,
		SourceType:  sourceType,
	}
}

func printProgress(p models.IngestionProgress) {
	fmt.Printf("[%5.1f%%] %s: %s\n", p.Progress*100, p.CurrentStep, p.Message)
}

func printResult(r models.IngestionResult) {
	fmt.Printf("conversations=%d events=%d memories=%d parse_failures=%d\n",
		r.ConversationsParsed, r.EventsParsed, r.MemoriesParsed, r.ParseFailures)
	for _, w := range r.Warnings {
		fmt.Println("warning:", w)
	}
}

func runProcess(cmd *cobra.Command, args []string) {
	a := mustApp()
	defer a.Close()

	export := buildExportSet(args)
	result, err := a.ProcessExport(context.Background(), export, printProgress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "process failed: %v\n", err)
		os.Exit(1)
	}
	printResult(result)
}

func runReimport(cmd *cobra.Command, args []string) {
	a := mustApp()
	defer a.Close()

	result, err := a.ReimportData(context.Background(), printProgress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reimport failed: %v\n", err)
		os.Exit(1)
	}
	printResult(result)
}
