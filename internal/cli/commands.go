package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/nacl-lang/workspace/internal/config"
	"github.com/nacl-lang/workspace/internal/ctxlog"
	"github.com/nacl-lang/workspace/internal/dirstore"
	"github.com/nacl-lang/workspace/internal/workspace"
)

// Run executes the parsed command against the workspace at cfg.Root.
func Run(ctx context.Context, cfg *Config, out io.Writer) error {
	settings, err := config.Load(cfg.Root)
	if err != nil {
		return err
	}
	ws, err := workspace.Open(cfg.Root, settings)
	if err != nil {
		return err
	}

	switch cfg.Command {
	case CommandList:
		return runList(ctx, ws, out)
	case CommandErrors:
		return runErrors(ctx, ws, out)
	case CommandWatch:
		return runWatch(ctx, ws, settings, out)
	}
	return &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", cfg.Command)}
}

func runList(ctx context.Context, ws *workspace.Workspace, out io.Writer) error {
	ids, err := ws.List(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(out, id.String())
	}
	return nil
}

func runErrors(ctx context.Context, ws *workspace.Workspace, out io.Writer) error {
	errs, err := ws.Errors(ctx)
	if err != nil {
		return err
	}
	for _, pe := range errs.Parse {
		fmt.Fprintln(out, pe.Error())
	}
	for _, me := range errs.Merge {
		fmt.Fprintln(out, me.Error())
	}
	if errs.HasErrors() {
		return &ExitError{Code: 1, Message: fmt.Sprintf("%d parse error(s), %d merge error(s)", len(errs.Parse), len(errs.Merge))}
	}
	fmt.Fprintln(out, "no errors")
	return nil
}

// runWatch follows external edits to the source directory and feeds each
// debounced batch through the workspace, printing the semantic changes.
func runWatch(ctx context.Context, ws *workspace.Workspace, settings config.Settings, out io.Writer) error {
	disk, ok := ws.Store().(*dirstore.Disk)
	if !ok {
		return &ExitError{Code: 2, Message: "watch requires an on-disk workspace"}
	}

	// Build the initial snapshot before watching, so the first batch
	// produces a real delta.
	if _, err := ws.List(ctx); err != nil {
		return err
	}

	watcher, err := dirstore.NewWatcher(disk, time.Duration(settings.WatchDebounceMs)*time.Millisecond)
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Start(ctx); err != nil {
		return err
	}

	logger := ctxlog.FromContext(ctx)
	logger.Info("watching workspace", "root", disk.Root())

	for batch := range watcher.Batches() {
		if err := ingestBatch(ctx, ws, batch, out); err != nil {
			logger.Error("failed to ingest watch batch", "error", err)
		}
	}
	return ctx.Err()
}

func ingestBatch(ctx context.Context, ws *workspace.Workspace, batch dirstore.Batch, out io.Writer) error {
	if len(batch.Changed) > 0 {
		entries, err := ws.Store().GetFiles(ctx, batch.Changed)
		if err != nil {
			return err
		}
		var present []dirstore.Entry
		for _, e := range entries {
			if e != nil {
				present = append(present, *e)
			}
		}
		changes, err := ws.SetNaclFiles(ctx, present...)
		if err != nil {
			return err
		}
		for _, c := range changes {
			fmt.Fprintf(out, "%s %s\n", c.Action, c.ID)
		}
	}
	if len(batch.Removed) > 0 {
		changes, err := ws.RemoveNaclFiles(ctx, batch.Removed...)
		if err != nil {
			return err
		}
		for _, c := range changes {
			fmt.Fprintf(out, "%s %s\n", c.Action, c.ID)
		}
	}
	return nil
}
