package store

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/carelog/carelog_backend/internal/model"
)

const DefaultLockTimeout = 3 * time.Second

// DocStore serializes all mutations of the Document: one writer at a time,
// each write a full load-mutate-save cycle. Readers run lock-free against
// the last-persisted snapshot.
type DocStore struct {
	cs          *CipherStore
	lockTimeout time.Duration
	tracer      trace.Tracer

	writer *semaphore.Weighted

	snapMu sync.RWMutex
	snap   *model.Document
}

func NewDocStore(cs *CipherStore, lockTimeout time.Duration) (*DocStore, error) {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	doc, err := cs.Load()
	if err != nil {
		return nil, err
	}
	return &DocStore{
		cs:          cs,
		lockTimeout: lockTimeout,
		tracer:      otel.Tracer("carelog/store"),
		writer:      semaphore.NewWeighted(1),
		snap:        doc,
	}, nil
}

// Update runs fn as one transaction: acquire the writer lock (ErrBusy on
// timeout), load the current document, apply exactly one logical mutation,
// persist, publish the new snapshot. If fn or the save fails, the persisted
// store is untouched and the error is returned as-is.
func (d *DocStore) Update(ctx context.Context, fn func(doc *model.Document) error) error {
	ctx, span := d.tracer.Start(ctx, "docstore.update")
	defer span.End()

	lockCtx, cancel := context.WithTimeout(ctx, d.lockTimeout)
	defer cancel()
	if err := d.writer.Acquire(lockCtx, 1); err != nil {
		span.SetAttributes(attribute.Bool("busy", true))
		return ErrBusy
	}
	defer d.writer.Release(1)

	// Fresh load under the lock: if another process wrote the file since
	// our snapshot, we operate on its state rather than clobbering it.
	doc, err := d.cs.Load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	if err := d.cs.Save(doc); err != nil {
		return err
	}

	d.snapMu.Lock()
	d.snap = doc
	d.snapMu.Unlock()
	return nil
}

// View runs fn against the last-persisted snapshot without the writer
// lock. fn must treat the document as read-only.
func (d *DocStore) View(ctx context.Context, fn func(doc *model.Document)) {
	_, span := d.tracer.Start(ctx, "docstore.view")
	defer span.End()

	d.snapMu.RLock()
	doc := d.snap
	d.snapMu.RUnlock()
	fn(doc)
}
