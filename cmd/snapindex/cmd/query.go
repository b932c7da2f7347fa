package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/snapindex/snapindex/pkg/models"
)

var conversationsCmd = &cobra.Command{
	Use:   "get-conversations",
	Short: "List every conversation",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		convs, err := a.GetConversations(context.Background())
		exitOn(err)
		for _, c := range convs {
			fmt.Printf("%s\t%d messages\tmedia=%v\n", c.ID, c.MessageCount, c.HasMedia)
		}
	},
}

var messagesCmd = &cobra.Command{
	Use:   "get-messages <conversation-id>",
	Short: "List every event in a conversation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		events, err := a.GetMessages(context.Background(), args[0])
		exitOn(err)
		printEvents(events)
	},
}

var (
	pageOffset int
	pageLimit  int
)

var messagesPageCmd = &cobra.Command{
	Use:   "get-messages-page <conversation-id>",
	Short: "Paginate a conversation's events",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		page, err := a.GetMessagesPage(context.Background(), args[0], pageOffset, pageLimit)
		exitOn(err)
		printEvents(page.Messages)
		fmt.Printf("total=%d has_more=%v\n", page.TotalCount, page.HasMore)
	},
}

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search-messages <query>",
	Short: "Full-text search across every event",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		results, err := a.SearchMessages(context.Background(), args[0], searchLimit)
		exitOn(err)
		for _, r := range results {
			fmt.Printf("%s\t%s\t%s\n", r.Timestamp.Format("2006-01-02 15:04:05"), r.SenderName, r.Content)
		}
	},
}

var statsCmd = &cobra.Command{
	Use:   "get-export-stats <export-id>",
	Short: "Summarize an export",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		stats, err := a.GetExportStats(context.Background(), args[0])
		exitOn(err)
		fmt.Printf("messages=%d conversations=%d memories=%d media=%d missing_media=%d\n",
			stats.TotalMessages, stats.TotalConversations, stats.TotalMemories, stats.TotalMediaFiles, stats.MissingMediaCount)
		for _, c := range stats.TopContacts {
			fmt.Printf("  %s: %d\n", c.Name, c.Count)
		}
	},
}

var exportsCmd = &cobra.Command{
	Use:   "get-exports",
	Short: "List every persisted export",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		exports, err := a.GetExports(context.Background())
		exitOn(err)
		for _, e := range exports {
			fmt.Printf("%s\t%s\t%s\n", e.ID, e.SourceType, e.ValidationStatus)
		}
	},
}

var memoriesExportFilter string

var memoriesCmd = &cobra.Command{
	Use:   "get-memories",
	Short: "List memories, optionally filtered by export id",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		memories, err := a.GetMemories(context.Background(), memoriesExportFilter)
		exitOn(err)
		for _, m := range memories {
			fmt.Printf("%s\t%s\t%s\n", m.ID, m.MediaType, m.DownloadStatus)
		}
	},
}

var (
	mediaStreamOffset int
	mediaStreamLimit  int
)

var mediaStreamCmd = &cobra.Command{
	Use:   "get-unified-media-stream",
	Short: "Paginate every media item across events and memories",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		page, err := a.GetUnifiedMediaStream(context.Background(), mediaStreamLimit, mediaStreamOffset)
		exitOn(err)
		for _, item := range page.Items {
			fmt.Printf("%s\t%s\t%s\n", item.Timestamp.Format("2006-01-02"), item.Source, item.Path)
		}
		fmt.Printf("total=%d has_more=%v\n", page.TotalCount, page.HasMore)
	},
}

var indexAtDateCmd = &cobra.Command{
	Use:   "get-message-index-at-date <conversation-id> <date>",
	Short: "Find the scroll offset for a calendar date (YYYY-MM-DD)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		idx, err := a.GetMessageIndexAtDate(context.Background(), args[0], args[1])
		exitOn(err)
		fmt.Println(idx)
	},
}

var activityDatesCmd = &cobra.Command{
	Use:   "get-activity-dates <conversation-id>",
	Short: "List distinct calendar dates with activity",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		dates, err := a.GetActivityDates(context.Background(), args[0])
		exitOn(err)
		for _, d := range dates {
			fmt.Println(d)
		}
	},
}

var validationReportCmd = &cobra.Command{
	Use:   "get-validation-report <export-id>",
	Short: "Report an export's parse and media-link integrity",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		report, err := a.GetValidationReport(context.Background(), args[0])
		exitOn(err)
		fmt.Printf("html_files=%d/%d media=%d/%d missing=%d\n",
			report.ParsedHTMLFiles, report.TotalHTMLFiles, report.MediaFound, report.TotalMediaReferenced, report.MediaMissing)
		for _, w := range report.Warnings {
			fmt.Println("warning:", w)
		}
	},
}

func init() {
	messagesPageCmd.Flags().IntVar(&pageOffset, "offset", 0, "pagination offset")
	messagesPageCmd.Flags().IntVar(&pageLimit, "limit", 50, "page size (clamped to [1, 2000])")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 50, "result cap (clamped to [1, 500])")
	memoriesCmd.Flags().StringVar(&memoriesExportFilter, "export-id", "", "restrict to one export")
	mediaStreamCmd.Flags().IntVar(&mediaStreamOffset, "offset", 0, "pagination offset")
	mediaStreamCmd.Flags().IntVar(&mediaStreamLimit, "limit", 100, "page size (clamped to [1, 1000])")

	rootCmd.AddCommand(conversationsCmd, messagesCmd, messagesPageCmd, searchCmd, statsCmd,
		exportsCmd, memoriesCmd, mediaStreamCmd, indexAtDateCmd, activityDatesCmd, validationReportCmd)
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printEvents(events []models.Event) {
	for _, e := range events {
		content := ""
		if e.Content != nil {
			content = *e.Content
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.EventType, e.SenderName, content)
	}
}
