package publish

import (
	"context"
	"sync/atomic"

	"bosko/core/status"
	"bosko/logger"
	"bosko/model"

	"github.com/alitto/pond/v2"
)

// PendingLister lists tracks that have not reached the video platform yet.
type PendingLister interface {
	ListPending(ctx context.Context, userID int64, limit int) ([]*model.Track, error)
}

// ResumeReport counts the outcome of a Resume pass.
type ResumeReport struct {
	Total     int
	Completed int
	Failed    int
}

// Resume runs every pending track of userID (0 for all users) through Run on a pool of workers.
// A failing track is recorded and does not stop the others.
func (o *Orchestrator) Resume(ctx context.Context, lister PendingLister, userID int64, limit, workers int) (*ResumeReport, error) {
	tracks, err := lister.ListPending(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}

	var completed, failed atomic.Int32
	pool := pond.NewPool(workers, pond.WithContext(ctx))
	for _, t := range tracks {
		pool.Submit(func() {
			st, err := o.Run(ctx, t.UserID, t.ID)
			if err != nil {
				failed.Add(1)
				logger.Warn("resume failed",
					logger.String("track_id", t.ID),
					logger.String("status", string(st)),
					logger.ErrorField(err))
				return
			}
			if st == status.Completed {
				completed.Add(1)
			}
		})
	}
	pool.StopAndWait()

	report := &ResumeReport{Total: len(tracks), Completed: int(completed.Load()), Failed: int(failed.Load())}
	logger.Info("resume finished",
		logger.Int("total", report.Total),
		logger.Int("completed", report.Completed),
		logger.Int("failed", report.Failed))
	return report, ctx.Err()
}
