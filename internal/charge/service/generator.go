package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	configdomain "github.com/plantelhq/plantel/internal/billingconfig/domain"
	chargedomain "github.com/plantelhq/plantel/internal/charge/domain"
	"github.com/plantelhq/plantel/internal/clock"
	enrollmentdomain "github.com/plantelhq/plantel/internal/enrollment/domain"
	"github.com/plantelhq/plantel/internal/observability"
	schoolyeardomain "github.com/plantelhq/plantel/internal/schoolyear/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type GeneratorService struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	repo           chargedomain.Repository
	enrollmentRepo enrollmentdomain.Repository
	schoolYearRepo schoolyeardomain.Repository
	configSvc      configdomain.Service
	months         schoolyeardomain.MonthSource
	metrics        *observability.Metrics
}

type GeneratorParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock

	Repo           chargedomain.Repository
	EnrollmentRepo enrollmentdomain.Repository
	SchoolYearRepo schoolyeardomain.Repository
	ConfigSvc      configdomain.Service
	Months         schoolyeardomain.MonthSource
	Metrics        *observability.Metrics
}

func NewGenerator(p GeneratorParam) chargedomain.Generator {
	return &GeneratorService{
		db:             p.DB,
		log:            p.Log.Named("charge.generator"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		enrollmentRepo: p.EnrollmentRepo,
		schoolYearRepo: p.SchoolYearRepo,
		configSvc:      p.ConfigSvc,
		months:         p.Months,
		metrics:        p.Metrics,
	}
}

// GenerateForEnrollment creates the enrollment's monthly charges at the
// current configuration price. Existing charges (looked up by student,
// school year and month) are left alone, so re-invoking is a no-op for
// months already billed. The whole batch runs in one transaction.
func (s *GeneratorService) GenerateForEnrollment(ctx context.Context, enrollmentID snowflake.ID) (int, error) {
	enr, err := s.enrollmentRepo.FindByID(ctx, s.db, enrollmentID)
	if err != nil {
		return 0, err
	}
	if enr == nil {
		return 0, enrollmentdomain.ErrEnrollmentNotFound
	}

	sy, err := s.schoolYearRepo.FindByID(ctx, s.db, enr.SchoolYearID)
	if err != nil {
		return 0, err
	}
	if sy == nil {
		return 0, schoolyeardomain.ErrSchoolYearNotFound
	}

	cfg, err := s.configSvc.GetActive(ctx)
	if err != nil {
		if errors.Is(err, configdomain.ErrConfigNotFound) {
			return 0, chargedomain.ErrNoActiveConfig
		}
		return 0, err
	}

	months := s.months.Months(sy)
	created := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now(ctx)
		for _, my := range months {
			existing, err := s.repo.FindByKey(ctx, tx, enr.StudentID, enr.SchoolYearID, my.Month)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}

			due := time.Date(my.Year, time.Month(my.Month), 1, 0, 0, 0, 0, time.UTC)
			ch := &chargedomain.MonthlyCharge{
				ID:               s.genID.Generate(),
				StudentID:        enr.StudentID,
				RepresentativeID: enr.RepresentativeID,
				EnrollmentID:     enr.ID,
				SchoolYearID:     enr.SchoolYearID,
				TariffID:         enr.TariffID,
				Month:            my.Month,
				Year:             my.Year,
				BaseAmount:       cfg.PrimaryPrice,
				AccruedMora:      decimal.Zero,
				DueDate:          &due,
				Status:           chargedomain.ChargeStatusPending,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if err := s.repo.Insert(ctx, tx, ch); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if created > 0 {
		s.metrics.ChargesGenerated.WithLabelValues(sy.Periodo).Add(float64(created))
	}
	s.log.Info("charges generated",
		zap.Int64("enrollment_id", int64(enr.ID)),
		zap.String("periodo", sy.Periodo),
		zap.Int("created", created),
	)
	return created, nil
}
