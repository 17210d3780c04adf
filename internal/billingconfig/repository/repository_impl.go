package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	configdomain "github.com/plantelhq/plantel/internal/billingconfig/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() configdomain.Repository {
	return &repo{}
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB) (*configdomain.BillingConfiguration, error) {
	var cfg configdomain.BillingConfiguration
	err := db.WithContext(ctx).Where("active = ?", true).Order("version DESC").First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, cfg *configdomain.BillingConfiguration) error {
	return db.WithContext(ctx).Create(cfg).Error
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&configdomain.BillingConfiguration{}).
		Where("id = ?", id).
		Update("active", false).Error
}
