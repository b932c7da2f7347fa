package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background scheduler until interrupted",
	Long:  "serve starts the configured auto_schedule cron job (auto-detect, processing of each detected export, and memory download) and blocks until SIGINT/SIGTERM.",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()

		if a.Config.AutoSchedule == "" {
			fmt.Fprintln(os.Stderr, "auto_schedule is empty in config; nothing to run")
			os.Exit(1)
		}
		exitOn(a.StartAutoSchedule(context.Background()))
		fmt.Println("scheduler started, cron:", a.Config.AutoSchedule)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		fmt.Println("shutting down")
		a.StopAutoSchedule()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
