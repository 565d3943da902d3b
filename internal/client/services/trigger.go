package services

import (
	"context"

	"github.com/dmitrijs2005/finnysync/internal/logging"
)

// Trigger schedules a sync pass after a local change.
type Trigger interface {
	ScheduleOnce(requireNetwork bool) error
}

type noopTrigger struct{}

func (noopTrigger) ScheduleOnce(bool) error { return nil }

// notify asks for a pass without failing the mutation that caused it.
func notify(ctx context.Context, t Trigger, log logging.Logger) {
	if err := t.ScheduleOnce(true); err != nil {
		log.Warn(ctx, "could not schedule sync", "error", err)
	}
}
