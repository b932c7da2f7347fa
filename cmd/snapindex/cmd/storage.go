package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var getStoragePathCmd = &cobra.Command{
	Use:   "get-storage-path",
	Short: "Print the configured storage root",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		fmt.Println(a.GetStoragePath())
	},
}

var setStoragePathCmd = &cobra.Command{
	Use:   "set-storage-path <path>",
	Short: "Move the storage root and reopen the index there",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		exitOn(a.SetStoragePath(configPath, args[0]))
		fmt.Println("storage path set to", args[0])
	},
}

var checkDiskSpaceCmd = &cobra.Command{
	Use:   "check-disk-space [path]",
	Short: "Report available and total bytes for a path (default: the storage root)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		space, err := a.CheckDiskSpace(path)
		exitOn(err)
		fmt.Printf("available=%d total=%d bytes mount=%s\n", space.AvailableBytes, space.TotalBytes, space.MountPoint)
	},
}

var resetDataCmd = &cobra.Command{
	Use:   "reset-data",
	Short: "Delete all indexed data and the index database files",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		exitOn(a.ResetData(context.Background()))
		fmt.Println("data reset")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the last-used storage root and export, if any",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		state := a.LastUIState()
		if state.LastSelectedExportID == "" {
			fmt.Println("no export has been processed yet")
			return
		}
		fmt.Printf("last_storage_root=%s last_selected_export_id=%s\n", state.LastStorageRoot, state.LastSelectedExportID)
	},
}

func init() {
	rootCmd.AddCommand(getStoragePathCmd, setStoragePathCmd, checkDiskSpaceCmd, resetDataCmd, statusCmd)
}
