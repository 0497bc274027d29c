package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
	"swiftresponse/pkg/logger"
	"swiftresponse/pkg/metrics"
)

// MonitorService periodically exports the active emergency gauges and
// warns about pending records nobody has picked up.
type MonitorService interface {
	Start() error
	Stop()
	// Sweep runs one pass. It returns the stale pending records.
	Sweep(ctx context.Context) ([]*models.EmergencyRecord, error)
}

type monitorService struct {
	emergencyRepo interfaces.EmergencyRepository
	schedule      string
	staleAfter    time.Duration
	timeout       time.Duration
	cron          *cron.Cron
	logger        *logger.Logger
}

func NewMonitorService(emergencyRepo interfaces.EmergencyRepository, schedule string, staleAfter time.Duration, logger *logger.Logger) MonitorService {
	if schedule == "" {
		schedule = "@every 1m"
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &monitorService{
		emergencyRepo: emergencyRepo,
		schedule:      schedule,
		staleAfter:    staleAfter,
		timeout:       30 * time.Second,
		cron:          cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger:        logger.WithField("service", "monitor"),
	}
}

func (m *monitorService) Start() error {
	_, err := m.cron.AddFunc(m.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		if _, err := m.Sweep(ctx); err != nil {
			m.logger.WithError(err).Warn("Emergency sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid monitor schedule %q: %w", m.schedule, err)
	}
	m.cron.Start()
	m.logger.WithField("schedule", m.schedule).Info("Emergency monitor started")
	return nil
}

func (m *monitorService) Stop() {
	<-m.cron.Stop().Done()
}

func (m *monitorService) Sweep(ctx context.Context) ([]*models.EmergencyRecord, error) {
	counts, err := m.emergencyRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	for _, status := range models.AllEmergencyStatuses {
		if status.IsTerminal() {
			continue
		}
		metrics.ActiveEmergencies.WithLabelValues(string(status)).Set(float64(counts[status]))
	}

	stale, err := m.emergencyRepo.ListStale(ctx, models.EmergencyStatusPending, time.Now().Add(-m.staleAfter))
	if err != nil {
		return nil, err
	}
	metrics.StalePending.Set(float64(len(stale)))
	for _, rec := range stale {
		m.logger.WithEmergencyID(rec.ID).WithFields(map[string]interface{}{
			"emergency_type": rec.EmergencyType,
			"age":            time.Since(rec.CreatedAt).Round(time.Second).String(),
		}).Warn("Emergency still pending")
	}
	return stale, nil
}
