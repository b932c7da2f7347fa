package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snapindex/snapindex/pkg/models"
)

func printDownloadProgress(p models.DownloadProgress) {
	fmt.Printf("[%5.1f%%] memory %s: %s\n", p.Progress*100, p.MemoryID, p.Status)
}

var downloadMemoryCmd = &cobra.Command{
	Use:   "download-memory <memory-id>",
	Short: "Download one memory's media",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		err := a.DownloadMemory(context.Background(), args[0], printDownloadProgress)
		exitOn(err)
	},
}

var downloadAllMemoriesCmd = &cobra.Command{
	Use:   "download-all-memories",
	Short: "Download every pending or failed memory",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		succeeded, warnings := a.DownloadAllMemories(context.Background(), printDownloadProgress)
		fmt.Printf("downloaded %d\n", succeeded)
		for _, w := range warnings {
			fmt.Println("warning:", w)
		}
	},
}

func init() {
	rootCmd.AddCommand(downloadMemoryCmd, downloadAllMemoriesCmd)
}
