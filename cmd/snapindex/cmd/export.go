package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snapindex/snapindex/pkg/exportwriter"
)

var exportFormat string

var exportConversationCmd = &cobra.Command{
	Use:   "export-conversation <conversation-id> <output-path>",
	Short: "Write a conversation's events to a file as json or txt",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		err := a.ExportConversation(context.Background(), args[0], exportwriter.Format(exportFormat), args[1])
		exitOn(err)
		fmt.Println("wrote", args[1])
	},
}

func init() {
	exportConversationCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json or txt")
	rootCmd.AddCommand(exportConversationCmd)
}
