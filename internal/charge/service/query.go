package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	chargedomain "github.com/plantelhq/plantel/internal/charge/domain"
	"github.com/plantelhq/plantel/pkg/db/pagination"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type QueryService struct {
	db   *gorm.DB
	repo chargedomain.Repository
}

type QueryParam struct {
	fx.In

	DB   *gorm.DB
	Repo chargedomain.Repository
}

func NewQuery(p QueryParam) chargedomain.Query {
	return &QueryService{db: p.DB, repo: p.Repo}
}

func (s *QueryService) List(ctx context.Context, opts chargedomain.ListOptions, page pagination.Pagination) ([]chargedomain.MonthlyCharge, *pagination.PageInfo, error) {
	page = page.Normalize()
	items, total, err := s.repo.List(ctx, s.db, opts, page)
	if err != nil {
		return nil, nil, err
	}
	return items, &pagination.PageInfo{
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalCount: total,
	}, nil
}

func (s *QueryService) Get(ctx context.Context, id snowflake.ID) (*chargedomain.MonthlyCharge, error) {
	ch, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, chargedomain.ErrChargeNotFound
	}
	return ch, nil
}
