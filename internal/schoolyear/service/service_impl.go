package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/plantelhq/plantel/internal/clock"
	schoolyeardomain "github.com/plantelhq/plantel/internal/schoolyear/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var periodoPattern = regexp.MustCompile(`^\d{4}-\d{4}$`)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  schoolyeardomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  schoolyeardomain.Repository
}

func New(p ServiceParam) schoolyeardomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("schoolyear.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req schoolyeardomain.CreateRequest) (*schoolyeardomain.SchoolYear, error) {
	periodo := strings.TrimSpace(req.Periodo)
	if !periodoPattern.MatchString(periodo) {
		return nil, schoolyeardomain.ErrInvalidPeriodo
	}

	start := schoolyeardomain.DefaultStartMonth
	if req.StartMonth != nil {
		start = *req.StartMonth
	}
	end := schoolyeardomain.DefaultEndMonth
	if req.EndMonth != nil {
		end = *req.EndMonth
	}
	if start < 1 || start > 12 || end < 1 || end > 12 {
		return nil, schoolyeardomain.ErrInvalidMonthSpan
	}

	now := s.clock.Now(ctx)
	sy := &schoolyeardomain.SchoolYear{
		ID:         s.genID.Generate(),
		Periodo:    periodo,
		StartMonth: start,
		EndMonth:   end,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, sy); err != nil {
		return nil, err
	}

	s.log.Info("school year created",
		zap.String("periodo", sy.Periodo),
		zap.Int("start_month", sy.StartMonth),
		zap.Int("end_month", sy.EndMonth),
	)
	return sy, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*schoolyeardomain.SchoolYear, error) {
	sy, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if sy == nil {
		return nil, schoolyeardomain.ErrSchoolYearNotFound
	}
	return sy, nil
}

func (s *Service) List(ctx context.Context, opts schoolyeardomain.ListOptions) ([]schoolyeardomain.SchoolYear, error) {
	return s.repo.List(ctx, s.db, opts)
}
