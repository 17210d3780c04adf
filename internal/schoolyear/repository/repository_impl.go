package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	schoolyeardomain "github.com/plantelhq/plantel/internal/schoolyear/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() schoolyeardomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sy *schoolyeardomain.SchoolYear) error {
	return db.WithContext(ctx).Create(sy).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*schoolyeardomain.SchoolYear, error) {
	var sy schoolyeardomain.SchoolYear
	err := db.WithContext(ctx).Where("id = ?", id).First(&sy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sy, nil
}

func (r *repo) FindByPeriodo(ctx context.Context, db *gorm.DB, periodo string) (*schoolyeardomain.SchoolYear, error) {
	var sy schoolyeardomain.SchoolYear
	err := db.WithContext(ctx).Where("periodo = ?", periodo).First(&sy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sy, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, opts schoolyeardomain.ListOptions) ([]schoolyeardomain.SchoolYear, error) {
	query := db.WithContext(ctx).Model(&schoolyeardomain.SchoolYear{})
	if opts.Active != nil {
		query = query.Where("active = ?", *opts.Active)
	}
	var items []schoolyeardomain.SchoolYear
	if err := query.Order("periodo ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
