package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/plantelhq/plantel/internal/audit"
	configdomain "github.com/plantelhq/plantel/internal/billingconfig/domain"
	chargedomain "github.com/plantelhq/plantel/internal/charge/domain"
	"github.com/plantelhq/plantel/internal/clock"
	"github.com/plantelhq/plantel/internal/config"
	"github.com/plantelhq/plantel/internal/observability"
	schoolyeardomain "github.com/plantelhq/plantel/internal/schoolyear/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// appliedTerms is one configuration version flattened into the values a
// snapshot writes onto a charge.
type appliedTerms struct {
	version        int
	primaryPrice   decimal.Decimal
	secondaryPrice decimal.Decimal
	exchangeRate   *decimal.Decimal
	moraRate       decimal.Decimal // fraction
	graceDays      int
	moraCap        decimal.Decimal // fraction
	cutoffDate     *time.Time
}

type SnapshotService struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	repo           chargedomain.Repository
	schoolYearRepo schoolyeardomain.Repository
	configRepo     configdomain.Repository
	audit          audit.Service
	metrics        *observability.Metrics
	batchSize      int
}

type SnapshotParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Cfg   *config.Config

	Repo           chargedomain.Repository
	SchoolYearRepo schoolyeardomain.Repository
	ConfigRepo     configdomain.Repository
	Audit          audit.Service
	Metrics        *observability.Metrics
}

func NewSnapshot(p SnapshotParam) chargedomain.Snapshot {
	batch := p.Cfg.Billing.BatchSize
	if batch < 1 {
		batch = 500
	}
	return &SnapshotService{
		db:             p.DB,
		log:            p.Log.Named("charge.snapshot"),
		clock:          p.Clock,
		repo:           p.Repo,
		schoolYearRepo: p.SchoolYearRepo,
		configRepo:     p.ConfigRepo,
		audit:          p.Audit,
		metrics:        p.Metrics,
		batchSize:      batch,
	}
}

// Freeze stamps the active configuration onto every charge of the given
// month, whatever its state, and marks them frozen. Re-freezing under an
// unchanged configuration rewrites identical values, so the operation is
// idempotent in effect. Runs in a single transaction.
func (s *SnapshotService) Freeze(ctx context.Context, req chargedomain.FreezeRequest) (int, error) {
	sy, err := s.schoolYearRepo.FindByID(ctx, s.db, req.SchoolYearID)
	if err != nil {
		return 0, err
	}
	if sy == nil {
		return 0, schoolyeardomain.ErrSchoolYearNotFound
	}
	if !schoolyeardomain.Contains(sy, req.Month, req.Year) {
		return 0, chargedomain.ErrMonthOutOfCalendar
	}

	cfg, err := s.activeTerms(ctx)
	if err != nil {
		return 0, err
	}

	filter := chargedomain.BatchFilter{
		Month:        &req.Month,
		Year:         &req.Year,
		SchoolYearID: &req.SchoolYearID,
	}

	affected := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now(ctx)
		var cursor snowflake.ID
		for {
			batch, err := s.repo.ListBatch(ctx, tx, filter, cursor, s.batchSize)
			if err != nil {
				return err
			}
			if len(batch) == 0 {
				return nil
			}
			for i := range batch {
				ch := &batch[i]
				s.applySnapshot(ch, cfg)
				ch.Frozen = true
				if ch.BaseAmount.IsZero() {
					ch.BaseAmount = cfg.primaryPrice
				}
				ch.UpdatedAt = now
				if err := s.repo.Update(ctx, tx, ch); err != nil {
					return err
				}
				affected++
			}
			cursor = batch[len(batch)-1].ID
		}
	})
	if err != nil {
		return 0, err
	}

	s.metrics.ChargesFrozen.Add(float64(affected))
	s.audit.Record(ctx, req.Actor, "billing.freeze_month", "school_year", strPtr(req.SchoolYearID.String()), map[string]any{
		"month":          req.Month,
		"year":           req.Year,
		"config_version": cfg.version,
		"affected":       affected,
	})
	s.log.Info("month frozen",
		zap.Int("month", req.Month),
		zap.Int("year", req.Year),
		zap.Int("config_version", cfg.version),
		zap.Int("affected", affected),
	)
	return affected, nil
}

// SyncPrices propagates the active configuration onto pending and reported
// charges. Base amount always follows the current price; a frozen charge's
// snapshot is rewritten only when syncMoraParams is set, which re-freezes
// it in place. Paid and voided charges are never touched. Runs in a single
// transaction.
func (s *SnapshotService) SyncPrices(ctx context.Context, req chargedomain.SyncRequest) (chargedomain.SyncResult, error) {
	if (req.Month == nil) != (req.Year == nil) {
		return chargedomain.SyncResult{}, chargedomain.ErrMonthYearPairRequired
	}
	if req.Month != nil {
		if req.SchoolYearID == nil {
			return chargedomain.SyncResult{}, chargedomain.ErrSchoolYearRequired
		}
		sy, err := s.schoolYearRepo.FindByID(ctx, s.db, *req.SchoolYearID)
		if err != nil {
			return chargedomain.SyncResult{}, err
		}
		if sy == nil {
			return chargedomain.SyncResult{}, schoolyeardomain.ErrSchoolYearNotFound
		}
		if !schoolyeardomain.Contains(sy, *req.Month, *req.Year) {
			return chargedomain.SyncResult{}, chargedomain.ErrMonthOutOfCalendar
		}
	}

	cfg, err := s.activeTerms(ctx)
	if err != nil {
		return chargedomain.SyncResult{}, err
	}

	filter := chargedomain.BatchFilter{
		Month:        req.Month,
		Year:         req.Year,
		SchoolYearID: req.SchoolYearID,
		Statuses: []chargedomain.ChargeStatus{
			chargedomain.ChargeStatusPending,
			chargedomain.ChargeStatusReported,
		},
	}

	affected := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now(ctx)
		var cursor snowflake.ID
		for {
			batch, err := s.repo.ListBatch(ctx, tx, filter, cursor, s.batchSize)
			if err != nil {
				return err
			}
			if len(batch) == 0 {
				return nil
			}
			for i := range batch {
				ch := &batch[i]
				ch.BaseAmount = cfg.primaryPrice
				if ch.Frozen && req.SyncMoraParams {
					s.applySnapshot(ch, cfg)
				}
				ch.UpdatedAt = now
				if err := s.repo.Update(ctx, tx, ch); err != nil {
					return err
				}
				affected++
			}
			cursor = batch[len(batch)-1].ID
		}
	})
	if err != nil {
		return chargedomain.SyncResult{}, err
	}

	s.metrics.ChargesSynced.Add(float64(affected))
	s.audit.Record(ctx, req.Actor, "billing.sync_prices", "billing_configuration", nil, map[string]any{
		"config_version":   cfg.version,
		"sync_mora_params": req.SyncMoraParams,
		"affected":         affected,
	})
	s.log.Info("prices synced",
		zap.Int("config_version", cfg.version),
		zap.Bool("sync_mora_params", req.SyncMoraParams),
		zap.Int("affected", affected),
	)

	return chargedomain.SyncResult{
		Affected: affected,
		Summary: chargedomain.PriceSummary{
			PrimaryPrice:   cfg.primaryPrice,
			SecondaryPrice: cfg.secondaryPrice,
			ExchangeRate:   cfg.exchangeRate,
			ConfigVersion:  cfg.version,
		},
	}, nil
}

func (s *SnapshotService) activeTerms(ctx context.Context) (*appliedTerms, error) {
	cfg, err := s.configRepo.FindActive(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, chargedomain.ErrNoActiveConfig
	}

	terms := &appliedTerms{
		version:        cfg.Version,
		primaryPrice:   cfg.PrimaryPrice,
		secondaryPrice: cfg.SecondaryPrice,
		moraRate:       cfg.MoraRatePct.Div(hundred),
		graceDays:      cfg.GraceDays,
		moraCap:        cfg.MoraCapPct.Div(hundred),
	}
	if cfg.PrimaryPrice.IsPositive() {
		rate := cfg.SecondaryPrice.Div(cfg.PrimaryPrice)
		terms.exchangeRate = &rate
	}
	if cfg.CutoffDate != nil {
		terms.cutoffDate = cfg.CutoffDate
	}
	return terms, nil
}

func (s *SnapshotService) applySnapshot(ch *chargedomain.MonthlyCharge, cfg *appliedTerms) {
	primary := cfg.primaryPrice
	secondary := cfg.secondaryPrice
	rate := cfg.moraRate
	grace := cfg.graceDays
	cap := cfg.moraCap
	version := cfg.version

	ch.AppliedPrimaryPrice = &primary
	ch.AppliedSecondaryPrice = &secondary
	ch.AppliedExchangeRate = cfg.exchangeRate
	ch.AppliedMoraRate = &rate
	ch.AppliedGraceDays = &grace
	ch.AppliedMoraCap = &cap
	ch.AppliedCutoffDate = cfg.cutoffDate
	ch.AppliedConfigVersion = &version
}

func strPtr(s string) *string { return &s }
