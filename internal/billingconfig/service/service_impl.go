package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	configdomain "github.com/plantelhq/plantel/internal/billingconfig/domain"
	"github.com/plantelhq/plantel/internal/clock"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  configdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  configdomain.Repository
}

func New(p ServiceParam) configdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("billingconfig.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) GetActive(ctx context.Context) (*configdomain.View, error) {
	cfg, err := s.repo.FindActive(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, configdomain.ErrConfigNotFound
	}
	view := cfg.ToView()
	return &view, nil
}

var (
	zero    = decimal.Zero
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// SetActive inserts a new immutable configuration version and deactivates
// the previous one in the same transaction. Unset fields carry over from
// the current version. Charges are never touched here.
func (s *Service) SetActive(ctx context.Context, req configdomain.UpdateRequest) (*configdomain.View, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var next *configdomain.BillingConfiguration
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindActive(ctx, tx)
		if err != nil {
			return err
		}

		now := s.clock.Now(ctx)
		next = &configdomain.BillingConfiguration{
			ID:        s.genID.Generate(),
			Version:   1,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if current != nil {
			next.Version = current.Version + 1
			next.PrimaryPrice = current.PrimaryPrice
			next.SecondaryPrice = current.SecondaryPrice
			next.MoraRatePct = current.MoraRatePct
			next.GraceDays = current.GraceDays
			next.MoraCapPct = current.MoraCapPct
			next.CutoffDate = current.CutoffDate
		}

		if req.PrimaryPrice != nil {
			next.PrimaryPrice = *req.PrimaryPrice
		}
		if req.SecondaryPrice != nil {
			next.SecondaryPrice = *req.SecondaryPrice
		}
		if req.MoraRate != nil {
			next.MoraRatePct = req.MoraRate.Mul(hundred)
		}
		if req.GraceDays != nil {
			next.GraceDays = *req.GraceDays
		}
		if req.MoraCap != nil {
			next.MoraCapPct = req.MoraCap.Mul(hundred)
		}
		if req.ClearCutoff {
			next.CutoffDate = nil
		} else if req.CutoffDate != nil {
			t := req.CutoffDate.UTC()
			next.CutoffDate = &t
		}

		if current != nil {
			if err := s.repo.Deactivate(ctx, tx, current.ID); err != nil {
				return err
			}
		}
		return s.repo.Insert(ctx, tx, next)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("billing configuration activated",
		zap.Int("version", next.Version),
		zap.String("primary_price", next.PrimaryPrice.String()),
		zap.String("mora_rate_pct", next.MoraRatePct.String()),
	)

	view := next.ToView()
	return &view, nil
}

func validate(req configdomain.UpdateRequest) error {
	if req.PrimaryPrice != nil && req.PrimaryPrice.IsNegative() {
		return configdomain.ErrInvalidPrice
	}
	if req.SecondaryPrice != nil && req.SecondaryPrice.IsNegative() {
		return configdomain.ErrInvalidPrice
	}
	if req.MoraRate != nil && (req.MoraRate.LessThan(zero) || req.MoraRate.GreaterThan(one)) {
		return configdomain.ErrInvalidMoraRate
	}
	if req.MoraCap != nil && (req.MoraCap.LessThan(zero) || req.MoraCap.GreaterThan(one)) {
		return configdomain.ErrInvalidMoraCap
	}
	if req.GraceDays != nil && *req.GraceDays < 0 {
		return configdomain.ErrInvalidGrace
	}
	return nil
}
