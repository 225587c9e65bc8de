package services

import (
	"context"

	"auction-bidgate/internal/domain"
	"auction-bidgate/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Sweeper drops state nobody is using; the in-memory RateLimiter is one.
type Sweeper interface {
	Cleanup() int
}

type JobSchedules struct {
	LotRefresh   string
	LimiterSweep string
}

// CronScheduler runs the periodic gateway jobs. The lot refresh only runs on
// the instance holding leadership so the shared snapshot has one writer.
type CronScheduler struct {
	cron       *cron.Cron
	lots       *LotService
	sweeper    Sweeper
	leader     domain.LeaderElection
	instanceID string
	schedules  JobSchedules
	log        logger.Logger
}

func NewCronScheduler(lots *LotService, sweeper Sweeper, leader domain.LeaderElection, instanceID string,
	schedules JobSchedules, log logger.Logger) *CronScheduler {
	return &CronScheduler{
		cron:       cron.New(cron.WithSeconds()),
		lots:       lots,
		sweeper:    sweeper,
		leader:     leader,
		instanceID: instanceID,
		schedules:  schedules,
		log:        log,
	}
}

func (s *CronScheduler) Start(ctx context.Context) error {
	s.log.Info("Starting scheduler", "lot_refresh", s.schedules.LotRefresh, "limiter_sweep", s.schedules.LimiterSweep)

	if _, err := s.cron.AddFunc(s.schedules.LotRefresh, func() {
		s.refreshLots(ctx)
	}); err != nil {
		return err
	}

	if s.sweeper != nil && s.schedules.LimiterSweep != "" {
		if _, err := s.cron.AddFunc(s.schedules.LimiterSweep, s.sweepLimiter); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

func (s *CronScheduler) Stop() error {
	s.log.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	return nil
}

func (s *CronScheduler) refreshLots(ctx context.Context) {
	if s.leader != nil {
		isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
		if err != nil {
			s.log.Error("Failed to check leadership", "error", err)
			return
		}
		if !isLeader {
			return
		}
	}

	if _, err := s.lots.Refresh(ctx); err != nil {
		s.log.Error("Failed to refresh lots", "error", err)
	}
}

func (s *CronScheduler) sweepLimiter() {
	if evicted := s.sweeper.Cleanup(); evicted > 0 {
		s.log.Debug("Evicted idle rate windows", "count", evicted)
	}
}
