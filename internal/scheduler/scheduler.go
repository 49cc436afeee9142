package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"go-pos-inventory/internal/config"
	"go-pos-inventory/internal/events"
	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/service"
)

const jobTimeout = 2 * time.Minute

// ReportArchive stores end-of-day reports.
type ReportArchive interface {
	SaveDailyReport(ctx context.Context, report model.DailyReport) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	cfg       config.SchedulerConfig
	loc       *time.Location
	dashboard service.DashboardService
	inventory service.InventoryService
	archive   ReportArchive
	events    events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduler creates a new scheduler instance. archive may be nil, in which
// case reports are only logged.
func NewScheduler(cfg config.SchedulerConfig, loc *time.Location, dashboard service.DashboardService,
	inventory service.InventoryService, archive ReportArchive, pub events.Publisher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	if pub == nil {
		pub = events.Nop{}
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		cfg:       cfg,
		loc:       loc,
		dashboard: dashboard,
		inventory: inventory,
		archive:   archive,
		events:    pub,
		logger:    logger,
		now:       time.Now,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("report_schedule", s.cfg.ReportSchedule),
		zap.String("stock_alert_schedule", s.cfg.StockAlertSchedule))

	if _, err := s.cron.AddFunc(s.cfg.ReportSchedule, s.dailyReportJob); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.StockAlertSchedule, s.stockAlertJob); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) dailyReportJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.RunDailyReport(ctx, s.now()); err != nil {
		s.logger.Error("failed to build daily report", zap.Error(err))
	}
}

func (s *Scheduler) stockAlertJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.RunStockAlertSweep(ctx); err != nil {
		s.logger.Error("stock alert sweep failed", zap.Error(err))
	}
}

// RunDailyReport builds the report for the calendar day containing day and
// archives it.
func (s *Scheduler) RunDailyReport(ctx context.Context, day time.Time) (*model.DailyReport, error) {
	day = day.In(s.loc)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 0, 1)

	sales, err := s.dashboard.Summary(ctx, from, to, 0)
	if err != nil {
		return nil, err
	}
	stock, err := s.dashboard.StockOverview(ctx)
	if err != nil {
		return nil, err
	}

	report := model.DailyReport{
		Date:        from.Format(time.DateOnly),
		Sales:       *sales,
		Stock:       *stock,
		GeneratedAt: s.now(),
	}

	log := s.logger.With(
		zap.String("date", report.Date),
		zap.Int("sales", sales.SaleCount),
		zap.String("revenue", sales.Revenue.StringFixed(2)),
		zap.Int("critical_items", stock.ByAlertLevel[model.AlertCritical]))

	if s.archive == nil {
		log.Info("daily report generated (archive disabled)")
		return &report, nil
	}
	if err := s.archive.SaveDailyReport(ctx, report); err != nil {
		return nil, err
	}
	log.Info("daily report archived")
	return &report, nil
}

// RunStockAlertSweep publishes a stock alert for every item at or below its
// reorder level and returns how many were raised.
func (s *Scheduler) RunStockAlertSweep(ctx context.Context) (int, error) {
	alerts, err := s.inventory.ListAlerts(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	for _, a := range alerts {
		s.events.Publish(events.TopicStockAlert, events.StockAlertEvent{
			ItemID:       a.ID,
			SKU:          a.SKU,
			Name:         a.Name,
			Quantity:     a.Quantity,
			ReorderLevel: a.ReorderLevel,
			Level:        a.AlertLevel,
			At:           now,
		})
	}
	if len(alerts) > 0 {
		s.logger.Info("stock alerts raised", zap.Int("count", len(alerts)))
	}
	return len(alerts), nil
}
