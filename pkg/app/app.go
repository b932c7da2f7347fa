// Package app wires the Store, Config, Detector, Extractor, Orchestrator,
// Downloader, Scheduler, and StorageManager into the single App used by
// every command surface (SPEC_FULL.md §6).
package app

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/snapindex/snapindex/pkg/apperror"
	"github.com/snapindex/snapindex/pkg/config"
	"github.com/snapindex/snapindex/pkg/detector"
	"github.com/snapindex/snapindex/pkg/downloader"
	"github.com/snapindex/snapindex/pkg/exportwriter"
	"github.com/snapindex/snapindex/pkg/ingestion"
	"github.com/snapindex/snapindex/pkg/models"
	"github.com/snapindex/snapindex/pkg/scheduler"
	"github.com/snapindex/snapindex/pkg/storagemgr"
	"github.com/snapindex/snapindex/pkg/store"
	"github.com/snapindex/snapindex/pkg/uistate"
)

// dbFileName is the index database's filename under the storage root.
const dbFileName = "index.db"

// uiStateFileName is the tolerant cross-run state file's name, kept
// alongside config.yaml rather than under the storage root so it survives
// a set_storage_path move.
const uiStateFileName = "uistate.json"

// App is the composition root: one instance per running process, built
// from a loaded Config and shared by every command handler.
type App struct {
	Config      config.Config
	Log         zerolog.Logger
	Store       *store.Store
	Detector    *detector.Detector
	Ingestion   *ingestion.Orchestrator
	Downloader  *downloader.Downloader
	Storage     *storagemgr.Manager
	Scheduler   *scheduler.Scheduler
	uiStatePath string
}

// New loads configuration from configPath (or defaults), opens the Store
// under the configured storage root, and wires every component.
func New(configPath string, log zerolog.Logger) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	storage := storagemgr.New(cfg.StorageRoot)
	if err := storage.EnsureRoot(); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(cfg.StorageRoot, dbFileName)
	s, err := store.Open(context.Background(), dbPath, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:      cfg,
		Log:         log,
		Store:       s,
		Detector:    detector.New(log),
		Ingestion:   ingestion.New(s, log),
		Downloader:  downloader.New(s, cfg.StorageRoot, log),
		Storage:     storage,
		Scheduler:   scheduler.New(log),
		uiStatePath: filepath.Join(filepath.Dir(configPath), uiStateFileName),
	}
	return a, nil
}

// LastUIState returns the tolerant cross-run state (last storage root, last
// selected export), or a zero-value State if none has been saved yet.
func (a *App) LastUIState() uistate.State {
	return uistate.Load(a.uiStatePath)
}

// RecordLastSelectedExport persists the most recently processed or queried
// export id as tolerant UI state. Failures are non-fatal by design: this is
// disposable convenience state, not part of the durable index.
func (a *App) RecordLastSelectedExport(exportID string) {
	s := a.LastUIState()
	s.LastStorageRoot = a.Config.StorageRoot
	s.LastSelectedExportID = exportID
	if err := uistate.Save(a.uiStatePath, s); err != nil {
		a.Log.Warn().Err(err).Msg("failed to save ui state")
	}
}

// Close releases the Store's connection pool.
func (a *App) Close() error {
	return a.Store.Close()
}

// DetectExports scans a single directory for candidate export groups
// (spec.md §6 detect_exports).
func (a *App) DetectExports(dir string) ([]models.ExportSet, error) {
	return a.Detector.DetectInDirectory(dir)
}

// AutoDetectExports scans every configured scan root (spec.md §6
// auto_detect_exports).
func (a *App) AutoDetectExports() ([]models.ExportSet, error) {
	return a.Detector.DetectInStandardPaths(a.Config.ScanRoots)
}

// ProcessExport runs the full ingestion pipeline for one detected export
// (spec.md §6 process_export).
func (a *App) ProcessExport(ctx context.Context, export models.ExportSet, onProgress ingestion.ProgressFunc) (models.IngestionResult, error) {
	extractTarget := filepath.Join(a.Config.StorageRoot, "extracted")
	result, err := a.Ingestion.Run(ctx, export, extractTarget, onProgress)
	if err == nil {
		a.RecordLastSelectedExport(export.ID)
	}
	return result, err
}

// GetConversations lists every conversation (spec.md §6 get_conversations).
func (a *App) GetConversations(ctx context.Context) ([]models.Conversation, error) {
	return a.Store.GetConversations(ctx)
}

// GetMessages lists every event in a conversation (spec.md §6 get_messages).
func (a *App) GetMessages(ctx context.Context, conversationID string) ([]models.Event, error) {
	return a.Store.GetMessages(ctx, conversationID)
}

// GetMessagesPage paginates a conversation's events (spec.md §6
// get_messages_page).
func (a *App) GetMessagesPage(ctx context.Context, conversationID string, offset, limit int) (models.MessagePage, error) {
	return a.Store.GetMessagesPage(ctx, conversationID, offset, limit)
}

// SearchMessages runs a full-text search (spec.md §6 search_messages).
func (a *App) SearchMessages(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	return a.Store.SearchMessages(ctx, query, limit)
}

// GetExportStats summarizes an export (spec.md §6 get_export_stats).
func (a *App) GetExportStats(ctx context.Context, exportID string) (models.ExportStats, error) {
	return a.Store.GetExportStats(ctx, exportID)
}

// GetExports lists every persisted export (spec.md §6 get_exports).
func (a *App) GetExports(ctx context.Context) ([]models.ExportSet, error) {
	return a.Store.GetExports(ctx)
}

// GetMemories lists memories, optionally filtered by export (spec.md §6
// get_memories).
func (a *App) GetMemories(ctx context.Context, exportID string) ([]models.Memory, error) {
	return a.Store.GetMemories(ctx, exportID)
}

// GetUnifiedMediaStream paginates media across events and memories
// (spec.md §6 get_unified_media_stream).
func (a *App) GetUnifiedMediaStream(ctx context.Context, limit, offset int) (models.PaginatedMedia, error) {
	return a.Store.GetUnifiedMediaStream(ctx, limit, offset)
}

// GetMessageIndexAtDate finds the scroll offset for a calendar date
// (spec.md §6 get_message_index_at_date).
func (a *App) GetMessageIndexAtDate(ctx context.Context, conversationID, date string) (int, error) {
	return a.Store.GetMessageIndexAtDate(ctx, conversationID, date)
}

// GetActivityDates lists distinct calendar dates with activity (spec.md §6
// get_activity_dates).
func (a *App) GetActivityDates(ctx context.Context, conversationID string) ([]string, error) {
	return a.Store.GetActivityDates(ctx, conversationID)
}

// GetValidationReport reports an export's parse/link integrity (spec.md §6
// get_validation_report).
func (a *App) GetValidationReport(ctx context.Context, exportID string) (models.ValidationReport, error) {
	return a.Store.GetValidationReport(ctx, exportID)
}

// ExportConversation writes a conversation's events to outputPath as json
// or txt (SPEC_FULL.md export_conversation supplement).
func (a *App) ExportConversation(ctx context.Context, conversationID string, format exportwriter.Format, outputPath string) error {
	events, err := a.Store.GetMessages(ctx, conversationID)
	if err != nil {
		return err
	}
	return exportwriter.WriteConversation(events, format, outputPath)
}

// DownloadMemory downloads one memory's media (spec.md §6 download_memory).
func (a *App) DownloadMemory(ctx context.Context, memoryID string, onProgress downloader.ProgressFunc) error {
	memories, err := a.Store.GetMemories(ctx, "")
	if err != nil {
		return err
	}
	for _, m := range memories {
		if m.ID == memoryID {
			return a.Downloader.DownloadMemory(ctx, m, onProgress)
		}
	}
	return apperror.Validation("memory not found: " + memoryID)
}

// DownloadAllMemories downloads every pending or failed memory (spec.md §6
// download_all_memories).
func (a *App) DownloadAllMemories(ctx context.Context, onProgress downloader.ProgressFunc) (int, []string) {
	return a.Downloader.DownloadAllPending(ctx, onProgress)
}

// GetStoragePath returns the configured storage root (spec.md §6
// get_storage_path).
func (a *App) GetStoragePath() string { return a.Config.StorageRoot }

// SetStoragePath updates and persists the storage root, then reopens the
// Store at the new location (spec.md §6 set_storage_path).
func (a *App) SetStoragePath(configPath, newRoot string) error {
	a.Config.StorageRoot = newRoot
	if err := config.Save(configPath, a.Config); err != nil {
		return err
	}
	a.Storage = storagemgr.New(newRoot)
	if err := a.Storage.EnsureRoot(); err != nil {
		return err
	}
	if err := a.Store.Close(); err != nil {
		return err
	}
	s, err := store.Open(context.Background(), filepath.Join(newRoot, dbFileName), a.Log)
	if err != nil {
		return err
	}
	a.Store = s
	a.Downloader = downloader.New(s, newRoot, a.Log)
	a.Ingestion = ingestion.New(s, a.Log)
	return nil
}

// CheckDiskSpace reports available/total bytes for path, or the storage
// root when path is empty (spec.md §6 check_disk_space).
func (a *App) CheckDiskSpace(path string) (storagemgr.DiskSpace, error) {
	return a.Storage.CheckDiskSpace(path)
}

// ResetData clears every table and deletes the index database files from
// disk, since a cleared-but-present database file would otherwise survive
// a reset (spec.md §6 reset_data).
func (a *App) ResetData(ctx context.Context) error {
	if err := a.Store.ResetData(ctx); err != nil {
		return err
	}
	if err := a.Store.Close(); err != nil {
		return err
	}
	dbPath := filepath.Join(a.Config.StorageRoot, dbFileName)
	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return apperror.IO("remove "+dbPath+suffix, err)
		}
	}
	s, err := store.Open(ctx, dbPath, a.Log)
	if err != nil {
		return err
	}
	a.Store = s
	a.Ingestion = ingestion.New(s, a.Log)
	a.Downloader = downloader.New(s, a.Config.StorageRoot, a.Log)
	return nil
}

// ReimportData rereads the first stored ExportSet, wipes all data, and
// re-runs ingestion for it (spec.md §6 reimport_data). The export must be
// captured before ResetData, since that call deletes the row it lives in.
func (a *App) ReimportData(ctx context.Context, onProgress ingestion.ProgressFunc) (models.IngestionResult, error) {
	exports, err := a.Store.GetExports(ctx)
	if err != nil {
		return models.IngestionResult{}, err
	}
	if len(exports) == 0 {
		return models.IngestionResult{}, apperror.Validation("no stored export to reimport")
	}
	export := exports[0]

	if err := a.ResetData(ctx); err != nil {
		return models.IngestionResult{}, err
	}
	return a.ProcessExport(ctx, export, onProgress)
}

// autoSyncJobName identifies the Scheduler entry registered by
// StartAutoSchedule, for logging only.
const autoSyncJobName = "auto-sync"

// StartAutoSchedule registers a.Config.AutoSchedule as a cron job that
// re-runs auto_detect_exports against the configured scan roots, runs
// ProcessExport on every export it detects, and then runs
// download_all_memories against pending/failed memories, then starts the
// Scheduler (SPEC_FULL.md §2 background scheduling supplement). A blank
// AutoSchedule disables the feature.
func (a *App) StartAutoSchedule(ctx context.Context) error {
	if a.Config.AutoSchedule == "" {
		return nil
	}
	_, err := a.Scheduler.AddJob(a.Config.AutoSchedule, autoSyncJobName, func() {
		exports, err := a.AutoDetectExports()
		if err != nil {
			a.Log.Error().Err(err).Msg("auto-detect failed")
			return
		}
		for _, export := range exports {
			if _, err := a.ProcessExport(ctx, export, nil); err != nil {
				a.Log.Error().Err(err).Str("export_id", export.ID).Msg("auto-process failed")
			}
		}
		succeeded, warnings := a.DownloadAllMemories(ctx, nil)
		a.Log.Info().Int("downloaded", succeeded).Int("warnings", len(warnings)).Msg("auto-download complete")
	})
	if err != nil {
		return apperror.Validation("invalid auto_schedule cron expression: " + err.Error())
	}
	a.Scheduler.Start()
	return nil
}

// StopAutoSchedule halts the Scheduler, waiting for any in-flight job.
func (a *App) StopAutoSchedule() {
	a.Scheduler.Stop()
}
