// Package commands is the inbound operation set of the engine. Each operation loads a read
// snapshot from the store, runs the pure engines on it and persists their results. Multi-step
// writes go through one store transaction.
package commands

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/config"
	"github.com/mamadbah2/kitchenledger/internal/repository"
	"github.com/mamadbah2/kitchenledger/internal/service/costing"
	"github.com/mamadbah2/kitchenledger/internal/service/mapping"
	"github.com/mamadbah2/kitchenledger/internal/service/payables"
	"github.com/mamadbah2/kitchenledger/internal/service/payroll"
	"github.com/mamadbah2/kitchenledger/internal/service/reporting"
	"github.com/mamadbah2/kitchenledger/internal/service/taxes"
)

const dateFormat = "2006-01-02"

// Service executes engine operations against a store.
type Service struct {
	store      repository.Store
	cfg        config.EngineConfig
	aggregator *costing.Aggregator
	mapper     *mapping.Engine
	reports    *reporting.Service
	payroll    *payroll.Calculator
	taxes      *taxes.Service
	payables   *payables.Service
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// NewService wires the engines around store using cfg.
func NewService(store repository.Store, cfg config.EngineConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:      store,
		cfg:        cfg,
		aggregator: costing.NewAggregator(cfg.EffectiveHourlyLaborRate),
		mapper:     mapping.NewEngine(cfg.RegexTimeout, nil, logger.Named("mapping")),
		reports:    reporting.NewService(logger.Named("reporting")),
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	// The engines read the service clock so a replaced s.now reaches them too.
	clock := func() time.Time { return s.now() }
	s.payroll = payroll.NewCalculator(cfg, logger.Named("payroll"), clock)
	s.taxes = taxes.NewService(s.payroll, cfg.Form1099Threshold, logger.Named("taxes"))
	s.payables = payables.NewService(logger.Named("payables"), clock)
	return s
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
