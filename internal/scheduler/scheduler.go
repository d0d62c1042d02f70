package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/logger"
	"github.com/tripwise-dev/tripwise/internal/models"
)

// Job is a named maintenance task.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler runs maintenance jobs on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	jobs    []Job
	mu      sync.RWMutex
	lastRun map[string]time.Time
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler initializes a new Scheduler instance
func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		lastRun: make(map[string]time.Time),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers job under schedule, any expression robfig/cron accepts
// including descriptors such as "@hourly".
func (s *Scheduler) Add(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() { s.execute(job) })
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()

	return nil
}

func (s *Scheduler) Start() {
	s.mu.RLock()
	count := len(s.jobs)
	s.mu.RUnlock()

	s.cron.Start()
	logger.WithFields(logrus.Fields{"jobs": count}).Info("Scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	logger.Log.Info("Scheduler stopped")
}

// RunNow executes every job once, synchronously.
func (s *Scheduler) RunNow() {
	s.mu.RLock()
	jobs := append([]Job(nil), s.jobs...)
	s.mu.RUnlock()

	for _, job := range jobs {
		s.execute(job)
	}
}

func (s *Scheduler) execute(job Job) {
	start := time.Now()
	log := logger.WithFields(logrus.Fields{"job": job.Name})

	if err := job.Run(s.ctx); err != nil {
		log.WithError(err).Error("Maintenance job failed")
		return
	}

	s.mu.Lock()
	s.lastRun[job.Name] = start
	s.mu.Unlock()

	log.WithFields(logrus.Fields{"duration": time.Since(start)}).Debug("Maintenance job finished")
}

// GetStatus returns current scheduler status
func (s *Scheduler) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lastRun := make(map[string]time.Time, len(s.lastRun))
	for name, at := range s.lastRun {
		lastRun[name] = at
	}

	return map[string]interface{}{
		"jobs":     len(s.jobs),
		"last_run": lastRun,
		"running":  s.ctx.Err() == nil,
	}
}

// PurgeExpiredInvitations deletes invitations that expired unaccepted.
func PurgeExpiredInvitations(ctx context.Context) error {
	res := db.DB.WithContext(ctx).
		Where("accepted_at IS NULL AND expires_at < ?", time.Now()).
		Delete(&models.Invitation{})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected > 0 {
		logger.WithFields(logrus.Fields{"count": res.RowsAffected}).Info("Purged expired invitations")
	}

	return nil
}

// PruneReadNotifications deletes read notifications older than retention.
// A retention of zero or less disables pruning.
func PruneReadNotifications(retention time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if retention <= 0 {
			return nil
		}

		res := db.DB.WithContext(ctx).
			Where("read = ? AND created_at < ?", true, time.Now().Add(-retention)).
			Delete(&models.Notification{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			logger.WithFields(logrus.Fields{"count": res.RowsAffected}).Info("Pruned read notifications")
		}

		return nil
	}
}
