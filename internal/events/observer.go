package events

import (
	"context"
	"log/slog"

	"github.com/maltedev/marketplace-matcher/internal/models"
	"github.com/maltedev/marketplace-matcher/internal/scheduler"
)

// LogObserver reports task completions through slog.
type LogObserver struct {
	logger *slog.Logger
}

func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logger.With("component", "progress")}
}

func (o *LogObserver) TaskCompleted(ctx context.Context, p scheduler.Progress) {
	o.logger.InfoContext(ctx, "task completed",
		"run_id", p.RunID,
		"index", p.Index,
		"completed", p.Completed,
		"total", p.Total,
		"product", p.Row.Task.Product,
		"vendor", p.Row.Task.Vendor,
		"matches", matchedCount(p.Row))
}

func matchedCount(row models.ResultRow) int {
	n := 0
	for _, m := range models.Marketplaces {
		if row.Result(m).Matched() {
			n++
		}
	}
	return n
}

type multi []scheduler.Observer

// Multi fans each completion out to every non-nil observer in order.
func Multi(observers ...scheduler.Observer) scheduler.Observer {
	out := make(multi, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (m multi) TaskCompleted(ctx context.Context, p scheduler.Progress) {
	for _, o := range m {
		o.TaskCompleted(ctx, p)
	}
}
