package export

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"tracker/internal/logging"
)

// StartScheduler uploads a fresh backup on a fixed interval. It is a no-op
// when no uploader is configured. The returned scheduler should be shut down
// on exit.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	if s.uploader == nil {
		logging.Logger().Infof("backup uploads disabled: no bucket configured")
		return nil, nil
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			backup, err := s.Snapshot(ctx)
			if err != nil {
				logging.Logger().Errorf("scheduled backup snapshot failed: %v", err)
				return
			}
			key, err := s.uploader.Upload(ctx, backup)
			if err != nil {
				logging.Logger().Errorf("scheduled backup upload failed: %v", err)
				return
			}
			logging.Logger().Infof("backup uploaded: %s (%d matches)", key, len(backup.Matches))
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	logging.Logger().Infof("backup scheduler started: every %s", interval)
	return sched, nil
}
