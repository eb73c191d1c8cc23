package worker

import (
	"context"
	"log"
	"time"
)

// SchedulerWorker periodically drives the sequence scheduler so due emails
// go out without an external cron. Each tick is one bounded batch; anything
// beyond the batch waits for the next tick.
type SchedulerWorker struct {
	Scheduler *SequenceScheduler
	Interval  time.Duration
	Logger    *log.Logger
}

func NewSchedulerWorker(scheduler *SequenceScheduler, interval time.Duration, logger *log.Logger) *SchedulerWorker {
	return &SchedulerWorker{
		Scheduler: scheduler,
		Interval:  interval,
		Logger:    logger,
	}
}

func (sw *SchedulerWorker) Start(ctx context.Context) {
	sw.Logger.Println("Scheduler worker started")

	ticker := time.NewTicker(sw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sw.Logger.Println("Scheduler worker shutting down...")
			return
		case <-ticker.C:
			sw.runOnce()
		}
	}
}

func (sw *SchedulerWorker) runOnce() {
	summary, err := sw.Scheduler.ProcessDueSends()
	if err != nil {
		sw.Logger.Printf("Error processing due sends: %v", err)
		return
	}
	if summary.Processed > 0 {
		sw.Logger.Printf("Processed %d scheduled emails (%d sent, %d failed)",
			summary.Processed, summary.Sent, summary.Failed)
	}
}
