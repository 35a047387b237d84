package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/chris/attune/internal/db"
)

const reloadInterval = 5 * time.Minute

// Runner executes a schedule. *Dispatcher satisfies it.
type Runner interface {
	Run(ctx context.Context, kind, arg string) error
}

type Scheduler struct {
	cron     *cron.Cron
	db       *db.DB
	runner   Runner
	log      *zap.Logger
	mu       sync.Mutex
	entryIDs map[int64]cron.EntryID // scheduleID -> cron entry
	stop     chan struct{}
}

// New builds a scheduler whose cron expressions are evaluated in loc.
func New(database *db.DB, runner Runner, loc *time.Location, log *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		db:       database,
		runner:   runner,
		log:      log,
		entryIDs: make(map[int64]cron.EntryID),
		stop:     make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.Reload()
	s.cron.Start()

	// Reload schedules every 5 minutes to pick up edits made through the CLI.
	go func() {
		t := time.NewTicker(reloadInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				s.Reload()
			case <-s.stop:
				return
			}
		}
	}()

	s.log.Info("scheduler started")
}

// Stop halts the cron and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.cron.Stop().Done()
}

// Defaults are the schedules seeded into an empty database.
func Defaults(promptCron, formCron, weeklyCron string) []db.Schedule {
	var out []db.Schedule
	add := func(name, kind, expr, arg string) {
		if expr != "" {
			out = append(out, db.Schedule{Name: name, Kind: kind, CronExpr: expr, Arg: arg})
		}
	}
	add("prompts", db.KindPrompt, promptCron, "")
	add("evening-form", db.KindForm, formCron, "")
	add("weekly-summary", db.KindWeekly, weeklyCron, "")
	return out
}

// Seed inserts the default schedules if the table is empty.
func (s *Scheduler) Seed(defaults []db.Schedule) {
	n, err := s.db.SeedSchedules(defaults)
	if err != nil {
		s.log.Error("seeding default schedules", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("seeded default schedules", zap.Int("count", n))
	}
}

// Reload replaces every cron entry with the enabled schedules from the
// database.
func (s *Scheduler) Reload() {
	schedules, err := s.db.ListSchedules(true)
	if err != nil {
		s.log.Error("loading schedules", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Remove all existing entries and re-register
	// Fine for this scale. Actual diffing would be way more complex.
	for _, entryID := range s.entryIDs {
		s.cron.Remove(entryID)
	}
	s.entryIDs = make(map[int64]cron.EntryID)

	for _, sched := range schedules {
		entryID, err := s.cron.AddFunc(sched.CronExpr, func() {
			s.runSchedule(sched)
		})
		if err != nil {
			s.log.Warn("invalid cron expression",
				zap.String("schedule", sched.Name),
				zap.String("cron", sched.CronExpr),
				zap.Error(err),
			)
			continue
		}
		s.entryIDs[sched.ID] = entryID
	}

	s.log.Debug("loaded schedules", zap.Int("count", len(s.entryIDs)))
}

// Entries reports how many schedules are registered.
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entryIDs)
}

func (s *Scheduler) runSchedule(sched db.Schedule) {
	log := s.log.With(zap.String("schedule", sched.Name), zap.String("kind", sched.Kind))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.runner.Run(ctx, sched.Kind, sched.Arg); err != nil {
		if errors.Is(err, ErrOutsideHours) {
			log.Debug("skipped", zap.Error(err))
		} else {
			log.Error("schedule failed", zap.Error(err))
		}
		return
	}
	if err := s.db.RecordScheduleRun(sched.ID); err != nil {
		log.Error("recording run", zap.Error(err))
	}
	log.Info("completed")
}
