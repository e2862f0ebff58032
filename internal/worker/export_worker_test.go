package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"bommel/internal/amqp"
	"bommel/internal/core"
	"bommel/internal/memory"
	"bommel/internal/services"
	sheetsmem "bommel/internal/sheets/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (*memory.Store, *services.Coordinator, *sheetsmem.Exporter, *ExportWorker) {
	t.Helper()
	ctx := context.Background()
	store := memory.New(memory.Organization{ID: 1, Name: "ACME"})
	root, err := store.CreateNode(ctx, core.VirtualRootID, "ACME", "")
	require.NoError(t, err)
	sales, err := store.CreateNode(ctx, root.ID, "Sales", "")
	require.NoError(t, err)
	_, err = store.RecordTransaction(ctx, core.Transaction{BommelID: sales.ID, Amount: core.Money{Cents: -700}})
	require.NoError(t, err)

	coord := services.NewCoordinator(store, 1, core.StatisticsMode{Aggregate: true}, nil)
	exporter := sheetsmem.New()
	return store, coord, exporter, NewExportWorker(coord, exporter, nil)
}

func TestExportWorker_ExportReloadsAndWritesRows(t *testing.T) {
	store, _, exporter, w := newFixture(t)
	ctx := context.Background()

	ref, err := w.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mem:1!A1:J3", ref)

	rows, ok := exporter.Last()
	require.True(t, ok)
	require.Len(t, rows, 2)
	assert.Equal(t, "ACME", rows[0].Path)
	assert.Equal(t, int64(700), rows[0].Figures.Expenses.Cents, "root shows the aggregate")

	// Changes made behind the coordinator's back show up on the next export.
	_, err = store.CreateNode(ctx, rows[0].ID, "Marketing", "")
	require.NoError(t, err)
	_, err = w.Export(ctx)
	require.NoError(t, err)
	rows, _ = exporter.Last()
	assert.Len(t, rows, 3)

	at, lastRef := w.LastExport()
	assert.False(t, at.IsZero())
	assert.Equal(t, "mem:2!A1:J4", lastRef)
}

func TestExportWorker_HandleTreeChange(t *testing.T) {
	_, _, exporter, w := newFixture(t)
	ctx := context.Background()

	msg := amqp.NewTreeChangeMessage(core.TreeChange{Kind: core.ChangeMoved, OrganizationID: 1, BommelID: 2, ParentID: 1})
	require.NoError(t, w.HandleTreeChange(ctx, msg))
	assert.Equal(t, 1, exporter.Count())

	other := amqp.NewTreeChangeMessage(core.TreeChange{Kind: core.ChangeCreated, OrganizationID: 9, BommelID: 5})
	require.NoError(t, w.HandleTreeChange(ctx, other))
	assert.Equal(t, 1, exporter.Count(), "foreign organization must be skipped")
}

func TestExportWorker_ExportFailureIsReturned(t *testing.T) {
	_, _, exporter, w := newFixture(t)
	boom := errors.New("sheet is protected")
	exporter.FailWith(boom)

	msg := amqp.NewTreeChangeMessage(core.TreeChange{Kind: core.ChangeDeleted, OrganizationID: 1, BommelID: 2})
	err := w.HandleTreeChange(context.Background(), msg)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	at, _ := w.LastExport()
	assert.True(t, at.IsZero())
}

func TestExportWorker_RunPeriodicStopsOnCancel(t *testing.T) {
	_, _, exporter, w := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.RunPeriodic(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return exporter.Count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not stop")
	}
}
