package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bommel/internal/amqp"
	"bommel/internal/log"
	"bommel/internal/services"
	"bommel/internal/sheets"
)

// ExportWorker mirrors the organization tree into a spreadsheet. It exports
// after every tree-change event and on a timer as a backup for missed events.
type ExportWorker struct {
	coordinator *services.Coordinator
	exporter    sheets.TreeExporter
	logger      *log.Logger

	// exportMu serializes exports triggered by events and the ticker.
	exportMu   sync.Mutex
	lastExport time.Time
	lastRef    string
}

func NewExportWorker(coordinator *services.Coordinator, exporter sheets.TreeExporter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		coordinator: coordinator,
		exporter:    exporter,
		logger:      logger.WithComponent(log.ComponentWorker),
	}
}

// HandleTreeChange processes a single tree-change message from AMQP.
// Events of other organizations are acknowledged and skipped.
func (w *ExportWorker) HandleTreeChange(ctx context.Context, msg *amqp.TreeChangeMessage) error {
	if msg.OrganizationID != 0 && msg.OrganizationID != w.coordinator.OrganizationID() {
		w.logger.DebugContext(ctx, "Skipping change of another organization",
			log.FieldEventID, msg.EventID,
			log.FieldOrganizationID, msg.OrganizationID)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing tree change",
		log.FieldEventID, msg.EventID,
		log.FieldOperation, string(msg.Kind),
		log.FieldBommelID, msg.BommelID,
		log.FieldParentID, msg.ParentID)

	if _, err := w.Export(ctx); err != nil {
		return fmt.Errorf("export after %s of bommel %d: %w", msg.Kind, msg.BommelID, err)
	}
	return nil
}

// Export reloads the tree and writes it to the spreadsheet.
func (w *ExportWorker) Export(ctx context.Context) (string, error) {
	w.exportMu.Lock()
	defer w.exportMu.Unlock()

	if err := w.coordinator.Reload(ctx); err != nil {
		return "", fmt.Errorf("reload tree: %w", err)
	}

	rows := sheets.Rows(w.coordinator.Tree())
	ref, err := w.exporter.Export(ctx, rows)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to export tree",
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
		return "", fmt.Errorf("export tree: %w", err)
	}

	w.lastExport = time.Now()
	w.lastRef = ref
	w.logger.InfoContext(ctx, "Exported tree",
		log.FieldOperation, log.OpExport,
		log.FieldNodeCount, len(rows),
		"range", ref)
	return ref, nil
}

// LastExport returns when and where the last successful export went.
func (w *ExportWorker) LastExport() (time.Time, string) {
	w.exportMu.Lock()
	defer w.exportMu.Unlock()
	return w.lastExport, w.lastRef
}

// RunPeriodic exports on every tick until ctx is done. Failures are logged
// and retried on the next tick.
func (w *ExportWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Export(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Periodic export failed", log.FieldError, err)
			}
		}
	}
}
