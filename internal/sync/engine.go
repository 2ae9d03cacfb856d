package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"

	"github.com/quipsync/quipsync/internal/config"
	"github.com/quipsync/quipsync/internal/quipapi"
	"github.com/quipsync/quipsync/internal/utils"
)

// LockFileName guards the sync target: one engine instance owns one run.
const LockFileName = ".quip_sync.lock"

var (
	// ErrUnauthorized aborts the whole run: no subsequent call can succeed
	// with a rejected credential.
	ErrUnauthorized = errors.New("sync: credential rejected")

	// ErrTargetLocked means another sync already owns the target directory.
	ErrTargetLocked = errors.New("sync: target directory locked by another run")
)

// API is the remote surface the engine needs. Each call makes exactly one
// attempt; the engine drives retries.
type API interface {
	GetFolder(ctx context.Context, id string) (*quipapi.Folder, error)
	GetThread(ctx context.Context, id string) (*quipapi.Thread, error)
	ExportThread(ctx context.Context, id string, format string) ([]byte, error)
}

// Engine walks the remote folder tree depth-first and mirrors it under the
// target directory. Single-threaded and synchronous: one network call in
// flight at a time, cancellation checked at item boundaries only.
type Engine struct {
	api    API
	cfg    *config.RunConfig
	cancel *CancelHandle
	state  *StateStore
	agg    *aggregator

	folderPolicy Policy
	threadPolicy Policy
	exportPol    Policy
}

func NewEngine(api API, cfg *config.RunConfig, cancel *CancelHandle) *Engine {
	return &Engine{
		api:          api,
		cfg:          cfg,
		cancel:       cancel,
		folderPolicy: folderFetchPolicy,
		threadPolicy: threadFetchPolicy,
		exportPol:    exportPolicy,
	}
}

// Run executes one sync and returns the finalized report. The report is
// produced even after cancellation or partial failure; the error is
// non-nil only when the run aborted (rejected credential, locked target,
// unusable target directory).
func (e *Engine) Run(ctx context.Context) (*RunReport, error) {
	if err := utils.EnsureDir(e.cfg.TargetDir); err != nil {
		return nil, fmt.Errorf("sync: target dir: %w", err)
	}

	lock := flock.New(filepath.Join(e.cfg.TargetDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("sync: lock target: %w", err)
	}
	if !locked {
		return nil, ErrTargetLocked
	}
	defer lock.Unlock()

	e.state = LoadState(e.cfg.TargetDir)
	e.agg = newAggregator()

	slog.Info("sync run starting",
		"run_id", e.agg.runID,
		"folder", e.cfg.FolderID,
		"mode", e.cfg.Mode,
		"dry_run", e.cfg.DryRun)
	if last := e.state.LastSync(); last != "" {
		slog.Info("previous sync", "finished_at", last)
	}

	runErr := e.syncFolder(ctx, e.cfg.FolderID, e.cfg.TargetDir)

	// cooperative stop is not a failure; already-written files stay
	if errors.Is(runErr, context.Canceled) {
		slog.Info("sync cancelled, partial results kept")
		runErr = nil
	}
	if e.cancel.Cancelled() {
		slog.Info("sync stopped by request, partial results kept")
	}

	if !e.cfg.DryRun {
		if err := e.state.Save(); err != nil {
			slog.Error("sync state not saved", "error", err)
			if runErr == nil {
				runErr = err
			}
		}
	}

	report := e.agg.finalize()
	slog.Info("sync run finished",
		"run_id", report.RunID,
		"folders", report.Folders,
		"exported", report.Exported,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"written", humanize.Bytes(uint64(report.BytesWritten)),
		"elapsed", report.Elapsed.Round(time.Millisecond))

	return report, runErr
}

// syncFolder mirrors one remote folder into parentDir, then its documents,
// then recurses into subfolders. It returns an error only for run-abort
// conditions; per-item failures are recorded and swallowed.
func (e *Engine) syncFolder(ctx context.Context, id string, parentDir string) error {
	folder, attempts, err := retryDo(ctx, e.folderPolicy, func(ctx context.Context) (*quipapi.Folder, error) {
		return e.api.GetFolder(ctx, id)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if quipapi.IsUnauthorized(err) {
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
	}

	title := ""
	if folder != nil {
		title = folder.Title
	}

	var dirName string
	unresolved := err != nil || title == ""
	if unresolved {
		// keep the subtree reachable under the raw id; a later run with the
		// name resolved will mirror it properly
		title = fmt.Sprintf("Unknown Folder %s", id)
		dirName = id
	} else {
		dirName = SanitizeName(title)
	}
	dir := filepath.Join(parentDir, dirName)

	if mkErr := utils.EnsureDir(dir); mkErr != nil {
		e.agg.record(Record{
			ID:       id,
			Title:    title,
			Path:     dir,
			Outcome:  OutcomeFailed,
			Reason:   fmt.Sprintf("create directory: %v", mkErr),
			IsFolder: true,
		})
		return nil
	}

	e.agg.folderVisited()

	if err != nil {
		slog.Warn("folder name unresolved", "folder", id, "attempts", attempts, "error", err)
		e.agg.record(Record{
			ID:       id,
			Title:    title,
			Path:     dir,
			Outcome:  OutcomeFailed,
			Reason:   err.Error(),
			Attempts: attempts,
			IsFolder: true,
		})
	} else {
		slog.Info("folder", "title", title, "documents", len(folder.ThreadIDs), "subfolders", len(folder.FolderIDs))
	}

	if folder == nil {
		return nil
	}

	for _, threadID := range folder.ThreadIDs {
		if e.stopped(ctx) {
			return nil
		}
		if err := e.syncDocument(ctx, threadID, dir); err != nil {
			return err
		}
	}

	for _, childID := range folder.FolderIDs {
		if e.stopped(ctx) {
			return nil
		}
		if err := e.syncFolder(ctx, childID, dir); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) syncDocument(ctx context.Context, id string, dir string) error {
	thread, attempts, err := retryDo(ctx, e.threadPolicy, func(ctx context.Context) (*quipapi.Thread, error) {
		return e.api.GetThread(ctx, id)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if quipapi.IsUnauthorized(err) {
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		e.agg.record(Record{
			ID:       id,
			Title:    fmt.Sprintf("Document %s", id),
			Path:     dir,
			Outcome:  OutcomeFailed,
			Reason:   err.Error(),
			Attempts: attempts,
		})
		return nil
	}

	title := thread.Title
	if title == "" {
		title = fmt.Sprintf("Document %s", id)
	}

	kind := KindFromThreadType(thread.Type)
	format, ok := FormatForKind(kind)
	if !ok {
		slog.Warn("unsupported document kind", "document", id, "title", title, "type", thread.Type)
		e.agg.record(Record{
			ID:      id,
			Title:   title,
			Path:    dir,
			Outcome: OutcomeFailed,
			Reason:  fmt.Sprintf("unsupported kind %q", thread.Type),
		})
		return nil
	}

	outPath := filepath.Join(dir, SanitizeName(title)+"."+format.Ext())

	if !e.state.ShouldExport(id, thread.UpdatedUsec, e.cfg.Mode, outPath) {
		slog.Debug("unchanged", "title", title)
		e.agg.record(Record{
			ID:      id,
			Title:   title,
			Path:    outPath,
			Outcome: OutcomeSkipped,
		})
		return nil
	}

	if e.cfg.DryRun {
		slog.Info("would export", "title", title, "format", format.Ext(), "path", outPath)
		e.agg.record(Record{
			ID:      id,
			Title:   title,
			Path:    outPath,
			Outcome: OutcomeExported,
		})
		return nil
	}

	data, attempts, err := retryDo(ctx, e.exportPol, func(ctx context.Context) ([]byte, error) {
		return e.api.ExportThread(ctx, id, format.Ext())
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if quipapi.IsUnauthorized(err) {
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		e.agg.record(Record{
			ID:       id,
			Title:    title,
			Path:     outPath,
			Outcome:  OutcomeFailed,
			Reason:   err.Error(),
			Attempts: attempts,
		})
		return nil
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		e.agg.record(Record{
			ID:      id,
			Title:   title,
			Path:    outPath,
			Outcome: OutcomeFailed,
			Reason:  fmt.Sprintf("write file: %v", err),
		})
		return nil
	}

	e.state.RecordSuccess(id, StateEntry{
		Title:       title,
		UpdatedUsec: thread.UpdatedUsec,
		Path:        outPath,
		Format:      format.Ext(),
	})

	slog.Info("exported",
		"title", title,
		"format", format.Ext(),
		"size", humanize.Bytes(uint64(len(data))),
		"attempts", attempts)
	e.agg.record(Record{
		ID:       id,
		Title:    title,
		Path:     outPath,
		Outcome:  OutcomeExported,
		Attempts: attempts,
		Bytes:    int64(len(data)),
	})
	return nil
}

// stopped is the cancellation checkpoint, consulted before each document
// and each subfolder.
func (e *Engine) stopped(ctx context.Context) bool {
	return e.cancel.Cancelled() || ctx.Err() != nil
}
