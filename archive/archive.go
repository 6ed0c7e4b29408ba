// Package archive drives an archival run: it walks each configured folder of
// the mail source, saves matched messages to deterministic file paths,
// reconciles file permissions, exports metadata, and deletes source items
// once their archived copy is settled.
package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/mailarc/mailarc/config"
	"github.com/mailarc/mailarc/consts"
	"github.com/mailarc/mailarc/logger"
	"github.com/mailarc/mailarc/mailsource"
	"github.com/mailarc/mailarc/metrics"
	"github.com/mailarc/mailarc/perms"
	"github.com/mailarc/mailarc/result"
	"github.com/mailarc/mailarc/routing"
	"github.com/mailarc/mailarc/runlog"
)

// errFolderLimit stops a folder walk once the item bound is reached.
var errFolderLimit = errors.New("folder item limit reached")

// PermissionApplier reconciles a file's access entries for one message.
// Implemented by perms.Reconciler.
type PermissionApplier interface {
	Apply(ctx context.Context, path string, msg *mailsource.MessageRecord) *result.TaskResult
}

// Exporter writes archived-message metadata to the export sink.
type Exporter interface {
	Export(ctx context.Context, msg *mailsource.MessageRecord) error
}

// Mirrorer uploads an archived file to the object-storage mirror.
type Mirrorer interface {
	Mirror(ctx context.Context, archiveRoot, filePath string, body []byte) error
}

// EventLogger appends run events. Implemented by runlog.Log.
type EventLogger interface {
	Event(eventID int, context string) error
}

// Processor is the single-threaded archival engine. All fields are set once
// before Run; Sink, Mirror, and Events are optional.
type Processor struct {
	Config config.ArchiveConfig
	Source mailsource.Source
	Routes *routing.Table
	Paths  *routing.Builder
	FS     perms.Filesystem
	Perms  PermissionApplier
	Sink   Exporter
	Mirror Mirrorer
	Events EventLogger
	DryRun bool
}

// Run processes every configured folder and returns the folded run result.
// Store attach and detach failures are fatal; everything else is recorded
// and the run continues.
func (p *Processor) Run(ctx context.Context) *result.TaskResult {
	res := result.New()
	defer func() {
		res.Finish()
		for _, taskErr := range res.Errors {
			metrics.TaskErrors.WithLabelValues(string(taskErr.Kind)).Inc()
		}
	}()

	if err := p.Source.Attach(ctx); err != nil {
		res.AddErrorf(consts.KindAttachStoreFailed, "%v", err)
		return res
	}

	for _, folder := range p.Config.Folders {
		if ctx.Err() != nil {
			break
		}
		res.Fold(p.processFolder(ctx, folder))
	}

	if err := p.Source.Detach(); err != nil {
		res.AddErrorf(consts.KindDetachStoreFailed, "%v", err)
	}
	return res
}

func (p *Processor) processFolder(ctx context.Context, folder string) *result.TaskResult {
	res := result.New()
	defer res.Finish()

	p.event(runlog.EventFolderStarted, folder)
	logger.Info("processing folder", "folder", folder)

	count, err := p.Source.Count(ctx, folder)
	if err != nil {
		if errors.Is(err, consts.ErrFolderNotFound) {
			res.AddErrorf(consts.KindFolderNotFound, "%s", folder)
		} else {
			res.AddErrorf(consts.KindGetItemCountFailed, "%s: %v", folder, err)
		}
		return res
	}
	res.MaxItems = count

	processed := 0
	err = p.Source.Walk(ctx, folder, func(msg *mailsource.MessageRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.Config.MaxItems > 0 && processed >= p.Config.MaxItems {
			return errFolderLimit
		}
		processed++
		res.Fold(p.processMessage(ctx, msg))
		return nil
	})
	switch {
	case err == nil, errors.Is(err, errFolderLimit),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	case errors.Is(err, consts.ErrFolderNotFound):
		res.AddErrorf(consts.KindFolderNotFound, "%s", folder)
	default:
		res.AddErrorf(consts.KindSaveMessageFailed, "walking %s: %v", folder, err)
	}

	logger.Info("folder done", "folder", folder,
		"items", count, "saved", res.TotalItems, "skipped", res.SkippedItems, "errors", len(res.Errors))
	return res
}

// processMessage runs the full pipeline for one message: route, path, save,
// permissions, export, and the deletion gate.
func (p *Processor) processMessage(ctx context.Context, msg *mailsource.MessageRecord) *result.TaskResult {
	res := result.New()
	defer res.Finish()
	metrics.ItemsProcessed.Inc()

	route, ok := p.Routes.Resolve(msg.MessageClass)
	if !ok {
		res.SkippedItems++
		metrics.ItemsSkipped.Inc()
		logger.Debug("no route for message class", "class", msg.MessageClass, "subject", msg.Subject)
		p.event(runlog.EventMessageSkipped, fmt.Sprintf("no route: %s", msg.MessageClass))
		return res
	}

	var saveRes, permRes *result.TaskResult

	if route.Action == routing.ActionSave {
		path, err := p.Paths.BuildPath(route, msg)
		if err != nil {
			res.AddErrorf(consts.KindInvalidPath, "%s: %v", msg.Subject, err)
			return res
		}

		saveRes = p.save(ctx, path, msg)
		res.Fold(saveRes)

		if route.ApplyPermissions && saveRes.Success {
			permRes = p.applyPermissions(ctx, path, msg)
			res.Fold(permRes)
		}

		if route.WriteToSink && saveRes.Success && !p.DryRun && p.Sink != nil {
			if err := p.Sink.Export(ctx, msg); err != nil {
				res.AddErrorf(consts.KindWriteToSinkFailed, "%s: %v", msg.Fingerprint, err)
			}
		}

		if p.Mirror != nil && saveRes.Success && !p.DryRun {
			if err := p.Mirror.Mirror(ctx, p.Config.Root, path, msg.Body); err != nil {
				// Filesystem copy is authoritative; a failed mirror upload
				// is logged but not recorded against the message.
				logger.Warn("mirror upload failed", "path", path, "error", err)
			}
		}
	}

	if ShouldDelete(route, saveRes, permRes) {
		p.deleteSource(ctx, msg, res)
	}

	return res
}

// save writes the message body to path. An already existing file counts as
// skipped, not saved; the archived copy is assumed identical because the
// file name embeds the content fingerprint.
func (p *Processor) save(ctx context.Context, path string, msg *mailsource.MessageRecord) *result.TaskResult {
	res := result.New()
	defer res.Finish()

	if p.FS.FileExists(path) {
		res.SkippedItems++
		metrics.ItemsSkipped.Inc()
		logger.Debug("already archived", "path", path)
		p.event(runlog.EventMessageSkipped, fmt.Sprintf("duplicate: %s", path))
		return res
	}

	if p.DryRun {
		res.TotalItems++
		logger.Info("would save message", "path", path)
		return res
	}

	if err := p.FS.WriteFile(path, msg.Body); err != nil {
		// The write may have landed despite the error; trust the file if
		// it is there.
		if p.FS.FileExists(path) {
			logger.Warn("save reported error but file exists, treating as saved",
				"path", path, "error", err)
		} else {
			res.AddErrorf(consts.KindSaveMessageFailed, "%s: %v", path, err)
			return res
		}
	}

	res.TotalItems++
	metrics.ItemsSaved.Inc()
	logger.Info("archived message", "path", path, "class", msg.MessageClass)
	p.event(runlog.EventMessageArchived, path)
	return res
}

func (p *Processor) applyPermissions(ctx context.Context, path string, msg *mailsource.MessageRecord) *result.TaskResult {
	if p.DryRun {
		res := result.New()
		logger.Info("would reconcile permissions", "path", path,
			"recipients", len(msg.Recipients))
		return res.Finish()
	}
	return p.Perms.Apply(ctx, path, msg)
}

func (p *Processor) deleteSource(ctx context.Context, msg *mailsource.MessageRecord, res *result.TaskResult) {
	if p.DryRun {
		logger.Info("would delete source message", "id", msg.ID, "folder", msg.Folder)
		return
	}
	if err := p.Source.Delete(ctx, msg); err != nil {
		res.AddErrorf(consts.KindDeleteMessageFailed, "%s: %v", msg.ID, err)
		return
	}
	metrics.ItemsDeleted.Inc()
	logger.Debug("deleted source message", "id", msg.ID, "folder", msg.Folder)
	p.event(runlog.EventMessageDeleted, msg.ID)
}

// ShouldDelete decides whether the source item may be removed. Delete routes
// always remove; save routes remove only after a settled save and, when the
// route requires them, settled permissions.
func ShouldDelete(route routing.Route, saveRes, permRes *result.TaskResult) bool {
	if route.Action == routing.ActionDelete {
		return true
	}
	if saveRes == nil || !saveRes.Success {
		return false
	}
	if !route.ApplyPermissions {
		return true
	}
	return permRes != nil && permRes.Success
}

func (p *Processor) event(eventID int, context string) {
	if p.Events == nil {
		return
	}
	if err := p.Events.Event(eventID, context); err != nil {
		logger.Warn("failed to append run event", "event", eventID, "error", err)
	}
}
