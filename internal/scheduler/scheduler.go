package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/config"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/service/costing"
	"github.com/mamadbah2/kitchenledger/internal/service/reporting"
	"github.com/mamadbah2/kitchenledger/internal/service/taxes"
	"github.com/mamadbah2/kitchenledger/internal/service/whatsapp"
)

// Ledger is the slice of the command service the jobs depend on.
type Ledger interface {
	StalePrices(ctx context.Context) ([]costing.StaleIngredient, error)
	PeriodReport(ctx context.Context, r reporting.Range, mode reporting.CompareMode) (reporting.PeriodReport, error)
	ScheduleC(ctx context.Context, r reporting.Range) (taxes.ScheduleC, error)
}

// Archive stores weekly closes.
type Archive interface {
	SaveSnapshot(ctx context.Context, snap models.ReportSnapshot) error
}

// WeekPublisher pushes a weekly close to an external sheet.
type WeekPublisher interface {
	PublishWeek(ctx context.Context, report reporting.PeriodReport) error
	PublishScheduleC(ctx context.Context, sc taxes.ScheduleC) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	cfg       config.ReportingConfig
	ledger    Ledger
	archive   Archive
	publisher WeekPublisher
	notifier  whatsapp.Notifier
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduler creates a new scheduler instance running in the configured timezone.
// publisher may be nil when sheet export is disabled.
func NewScheduler(cfg config.ReportingConfig, ledger Ledger, archive Archive, publisher WeekPublisher, notifier whatsapp.Notifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		cfg:       cfg,
		ledger:    ledger,
		archive:   archive,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger.Named("scheduler"),
		now:       func() time.Time { return time.Now().In(loc) },
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("stale_price_cron", s.cfg.StalePriceCron),
		zap.String("weekly_close_cron", s.cfg.WeeklyCloseCron))

	if _, err := s.cron.AddFunc(s.cfg.StalePriceCron, s.run("stale prices", s.AlertStalePrices)); err != nil {
		return fmt.Errorf("schedule stale price alert: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.WeeklyCloseCron, s.run("weekly close", s.CloseWeek)); err != nil {
		return fmt.Errorf("schedule weekly close: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := job(ctx); err != nil {
			s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	}
}

// AlertStalePrices notifies the operator of ingredients whose price needs refreshing.
func (s *Scheduler) AlertStalePrices(ctx context.Context) error {
	stale, err := s.ledger.StalePrices(ctx)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	s.logger.Info("stale ingredient prices", zap.Int("count", len(stale)))
	return s.notifier.Notify(ctx, FormatStale(stale))
}

// CloseWeek builds the report of the previous Monday-Sunday week, archives it, exports it with
// its Schedule C lines and sends the digest. A failed export does not stop the archive or the alert.
func (s *Scheduler) CloseWeek(ctx context.Context) error {
	week := PreviousWeek(s.now())
	report, err := s.ledger.PeriodReport(ctx, week, reporting.ComparePreviousPeriod)
	if err != nil {
		return err
	}

	if err := s.archive.SaveSnapshot(ctx, reporting.Snapshot(report, s.now())); err != nil {
		return fmt.Errorf("archive weekly close: %w", err)
	}

	if s.publisher != nil {
		s.publish(ctx, report)
	}

	s.logger.Info("week closed", zap.String("range", week.String()), zap.Float64("net_income", report.NetIncome))
	return s.notifier.Notify(ctx, reporting.FormatSummary(report))
}

func (s *Scheduler) publish(ctx context.Context, report reporting.PeriodReport) {
	if err := s.publisher.PublishWeek(ctx, report); err != nil {
		s.logger.Warn("weekly sheet export failed", zap.Error(err))
		return
	}
	sc, err := s.ledger.ScheduleC(ctx, report.Range)
	if err != nil {
		s.logger.Warn("weekly schedule c failed", zap.Error(err))
		return
	}
	if err := s.publisher.PublishScheduleC(ctx, sc); err != nil {
		s.logger.Warn("schedule c sheet export failed", zap.Error(err))
	}
}

// PreviousWeek is the last complete Monday-Sunday week before now.
func PreviousWeek(now time.Time) reporting.Range {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	sinceMonday := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -sinceMonday-7)
	return reporting.Range{Start: monday, End: monday.AddDate(0, 0, 6)}
}

// FormatStale renders the stale price alert.
func FormatStale(stale []costing.StaleIngredient) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d ingredient price(s) need refreshing:", len(stale))
	for _, st := range stale {
		if st.DaysSinceUpdate < 0 {
			fmt.Fprintf(&b, "\n- %s: never priced", st.Ingredient.Name)
			continue
		}
		fmt.Fprintf(&b, "\n- %s: %d days old", st.Ingredient.Name, st.DaysSinceUpdate)
	}
	return b.String()
}
