package app

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/carelog/carelog_backend/config"
	"github.com/carelog/carelog_backend/internal/model"
	"github.com/carelog/carelog_backend/internal/service/feedback"
	"github.com/carelog/carelog_backend/internal/store"
)

// WorkerModule runs the background draft filler.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc      fx.Lifecycle
	Docs    *store.DocStore
	Drafter feedback.Drafter
	Cfg     *config.Config
}

// RegisterWorkers starts the draft worker: it periodically finds feedback
// requests that are still drafted with no text and fills them, so drafting
// happens without any user having to trigger it. Generation runs outside
// the store transaction; the worker re-checks state before writing in case
// a clinician got there first.
func RegisterWorkers(p WorkerParams) {
	interval := p.Cfg.Drafter.PollInterval()
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go runDraftWorker(ctx, p.Docs, p.Drafter, interval, done)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			<-done
			return nil
		},
	})
}

type pendingDraft struct {
	hospitalID string
	requestID  string
	note       model.Note
}

func runDraftWorker(ctx context.Context, docs *store.DocStore, d feedback.Drafter, interval time.Duration, done chan<- struct{}) {
	defer close(done)
	slog.Info("draft_worker: started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("draft_worker: stopped")
			return
		case <-ticker.C:
			fillDrafts(ctx, docs, d)
		}
	}
}

func fillDrafts(ctx context.Context, docs *store.DocStore, d feedback.Drafter) {
	var pending []pendingDraft
	docs.View(ctx, func(doc *model.Document) {
		for _, h := range doc.Hospitals {
			for _, f := range h.Feedback {
				if f.Status != model.FeedbackDrafted || f.DraftText != "" {
					continue
				}
				n := h.NoteByID(f.NoteID)
				if n == nil {
					continue
				}
				pending = append(pending, pendingDraft{
					hospitalID: h.ID,
					requestID:  f.ID,
					note:       *n,
				})
			}
		}
	})

	for _, pd := range pending {
		text, err := d.Draft(ctx, pd.note)
		if err != nil {
			slog.Warn("draft_worker: draft failed", "request", pd.requestID, "err", err)
			continue
		}

		err = docs.Update(ctx, func(doc *model.Document) error {
			h := doc.Hospital(pd.hospitalID)
			if h == nil {
				return nil
			}
			f := h.FeedbackByID(pd.requestID)
			if f == nil || f.Status != model.FeedbackDrafted || f.DraftText != "" {
				return nil
			}
			f.DraftText = text
			return nil
		})
		if err != nil {
			slog.Warn("draft_worker: store draft failed", "request", pd.requestID, "err", err)
			continue
		}
		slog.Debug("draft_worker: draft stored", "request", pd.requestID)
	}
}
