// Package scheduler runs the pipeline jobs on cron schedules and answers
// chat commands.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"SectorSentinel/internal/app"
	"SectorSentinel/internal/baseline"
	"SectorSentinel/internal/model"
	"SectorSentinel/internal/news"
	"SectorSentinel/internal/notifier"
	"SectorSentinel/internal/recorder"
)

// Jobs is the set of operations the scheduler triggers.
type Jobs interface {
	Today() time.Time
	IsTradingDay(d time.Time) bool
	FetchDaily(ctx context.Context, date time.Time, force bool) (*model.RunReport, error)
	FetchIntraday(ctx context.Context, date time.Time, label string, force bool) (*model.RunReport, error)
	Repair(ctx context.Context) ([]*model.RunReport, error)
	Validate(ctx context.Context) (*baseline.CoverageReport, error)
	SectorNews(ctx context.Context) (*news.SectorNews, error)
	PrivateHealth(ctx context.Context) (*news.PrivateHealth, error)
	RecentRuns(limit int) ([]recorder.RunSummary, error)
}

// Schedules holds cron expressions with a seconds field.
type Schedules struct {
	Daily    string
	Intraday map[string]string // label -> cron
	Repair   string
	Validate string
	News     string
}

// Scheduler manages all cron tasks. Jobs never overlap.
type Scheduler struct {
	Cron     *cron.Cron
	Jobs     Jobs
	Notifier notifier.Notifier
	Log      logrus.FieldLogger
	Ctx      context.Context

	mu sync.Mutex
}

// NewScheduler creates a scheduler evaluating cron expressions in loc.
func NewScheduler(ctx context.Context, jobs Jobs, n notifier.Notifier, log logrus.FieldLogger, loc *time.Location) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Jobs:     jobs,
		Notifier: n,
		Log:      log,
		Ctx:      ctx,
	}
}

// RegisterAll registers every job. Empty expressions are skipped.
func (s *Scheduler) RegisterAll(sch Schedules) error {
	add := func(name, spec string, fn func()) error {
		if spec == "" {
			return nil
		}
		if _, err := s.Cron.AddFunc(spec, func() { s.run(name, fn) }); err != nil {
			return fmt.Errorf("register %s task: %w", name, err)
		}
		s.Log.WithFields(logrus.Fields{"task": name, "cron": spec}).Info("task registered")
		return nil
	}

	if err := add("daily", sch.Daily, s.dailyTask); err != nil {
		return err
	}
	labels := make([]string, 0, len(sch.Intraday))
	for label := range sch.Intraday {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if err := add("intraday-"+label, sch.Intraday[label], func() { s.intradayTask(label) }); err != nil {
			return err
		}
	}
	if err := add("repair", sch.Repair, s.repairTask); err != nil {
		return err
	}
	if err := add("validate", sch.Validate, s.validateTask); err != nil {
		return err
	}
	return add("news", sch.News, s.newsTask)
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

func (s *Scheduler) run(name string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Ctx.Err() != nil {
		return
	}
	start := time.Now()
	s.Log.WithField("task", name).Info("running task")
	fn()
	s.Log.WithFields(logrus.Fields{"task": name, "took": time.Since(start).Round(time.Millisecond)}).Info("task done")
}

func (s *Scheduler) dailyTask() {
	today := s.Jobs.Today()
	if !s.Jobs.IsTradingDay(today) {
		s.Log.WithField("date", model.FormatDate(today)).Info("no exchange open, skipping daily fetch")
		return
	}
	if _, err := s.Jobs.FetchDaily(s.Ctx, today, false); err != nil {
		s.fail("daily fetch", err)
	}
}

func (s *Scheduler) intradayTask(label string) {
	today := s.Jobs.Today()
	if !s.Jobs.IsTradingDay(today) {
		return
	}
	if _, err := s.Jobs.FetchIntraday(s.Ctx, today, label, false); err != nil {
		s.fail("intraday "+label, err)
	}
}

func (s *Scheduler) repairTask() {
	if _, err := s.Jobs.Repair(s.Ctx); err != nil {
		s.fail("repair", err)
	}
}

func (s *Scheduler) validateTask() {
	// Gaps are reported by the job itself.
	if _, err := s.Jobs.Validate(s.Ctx); err != nil && !errors.Is(err, app.ErrValidationFailed) {
		s.fail("validate", err)
	}
}

func (s *Scheduler) newsTask() {
	if _, err := s.Jobs.SectorNews(s.Ctx); err != nil {
		s.fail("sector news", err)
	}
	if _, err := s.Jobs.PrivateHealth(s.Ctx); err != nil {
		if errors.Is(err, news.ErrMissingAPIKey) {
			s.Log.Warn("NEWS_API_KEY not set, skipping private company health")
			return
		}
		s.fail("private health", err)
	}
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	var cmd string
	if fields := strings.Fields(command); len(fields) > 0 {
		cmd = strings.ToLower(fields[0])
	}
	switch cmd {
	case "/status":
		runs, err := s.Jobs.RecentRuns(10)
		if err != nil {
			return fmt.Sprintf("❌ status: %v", err)
		}
		return notifier.FormatRecentRuns(runs)
	case "/validate":
		var reply string
		s.run("validate", func() {
			cov, err := s.Jobs.Validate(ctx)
			switch {
			case cov != nil:
				reply = notifier.FormatCoverage(cov)
			case err != nil:
				reply = fmt.Sprintf("❌ validate: %v", err)
			}
		})
		return reply
	case "/fetch":
		s.run("daily", s.dailyTask)
		return ""
	case "/repair":
		s.run("repair", s.repairTask)
		return "🔧 repair finished"
	default:
		return "Commands:\n• /status recent runs\n• /validate coverage check\n• /fetch daily snapshot now\n• /repair fill missing symbols"
	}
}

func (s *Scheduler) fail(task string, err error) {
	s.Log.WithError(err).WithField("task", task).Error("task failed")
	if s.Ctx.Err() != nil {
		return
	}
	if err := notifier.Deliver(s.Ctx, s.Notifier, fmt.Sprintf("❌ %s failed: %v", task, err)); err != nil {
		s.Log.WithError(err).Error("send notification")
	}
}
