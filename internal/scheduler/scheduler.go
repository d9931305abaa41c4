package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/monocle-dev/taskforge/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Reminder records a due-date notification for a task at most once per kind.
type Reminder interface {
	Remind(ctx context.Context, task models.Task, kind string) (bool, error)
}

// Scheduler periodically sweeps open tasks and reminds their assignees
// about upcoming and missed due dates.
type Scheduler struct {
	db       *gorm.DB
	reminder Reminder
	interval time.Duration
	window   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

const (
	DefaultInterval = 15 * time.Minute
	DefaultWindow   = 24 * time.Hour
)

// New builds a scheduler. Non-positive interval or window use the defaults.
func New(db *gorm.DB, reminder Reminder, interval, window time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if window <= 0 {
		window = DefaultWindow
	}

	return &Scheduler{
		db:       db,
		reminder: reminder,
		interval: interval,
		window:   window,
		now:      time.Now,
	}
}

// Start runs an immediate sweep and then one per interval until Stop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.done = make(chan struct{})
	s.running = true

	go s.run(s.ctx, s.done)

	log.WithFields(log.Fields{
		"interval": s.interval.String(),
		"window":   s.window.String(),
	}).Info("Reminder scheduler started")
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	done := s.done
	s.running = false
	s.mu.Unlock()

	<-done
	log.Info("Reminder scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *Scheduler) sweepAndLog(ctx context.Context) {
	created, err := s.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Error("Reminder sweep failed")
		}
		return
	}
	if created > 0 {
		log.WithField("created", created).Info("Reminder sweep completed")
	}
}

// Sweep creates due-soon and overdue notifications for assigned, unfinished
// tasks and returns how many it created.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	var tasks []models.Task

	err := s.db.WithContext(ctx).
		Where("assignee_id IS NOT NULL AND due_date IS NOT NULL AND status <> ?", models.StatusDone).
		Find(&tasks).Error

	if err != nil {
		return 0, fmt.Errorf("load open tasks: %w", err)
	}

	now := s.now()
	created := 0

	for _, task := range tasks {
		kind, ok := reminderKind(task, now, s.window)
		if !ok {
			continue
		}

		ok, err := s.reminder.Remind(ctx, task, kind)
		if err != nil {
			return created, fmt.Errorf("remind task %d: %w", task.ID, err)
		}
		if ok {
			created++
		}
	}

	return created, nil
}

func reminderKind(task models.Task, now time.Time, window time.Duration) (string, bool) {
	due := *task.DueDate

	switch {
	case due.Before(now):
		return models.NotificationTaskOverdue, true
	case due.Before(now.Add(window)):
		return models.NotificationTaskDueSoon, true
	default:
		return "", false
	}
}
