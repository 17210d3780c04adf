package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	chargedomain "github.com/plantelhq/plantel/internal/charge/domain"
	"github.com/plantelhq/plantel/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() chargedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *chargedomain.MonthlyCharge) error {
	return db.WithContext(ctx).Create(c).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, c *chargedomain.MonthlyCharge) error {
	return db.WithContext(ctx).Save(c).Error
}

func (r *repo) UpdateFromStatus(ctx context.Context, db *gorm.DB, c *chargedomain.MonthlyCharge, from chargedomain.ChargeStatus) (bool, error) {
	res := db.WithContext(ctx).
		Model(&chargedomain.MonthlyCharge{}).
		Where("id = ? AND status = ?", c.ID, from).
		Updates(map[string]any{
			"status":       c.Status,
			"accrued_mora": c.AccruedMora,
			"payment_id":   c.PaymentID,
			"observations": c.Observations,
			"updated_at":   c.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*chargedomain.MonthlyCharge, error) {
	var c chargedomain.MonthlyCharge
	err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByKey looks a charge up by its uniqueness key. Year is deliberately
// not part of the key; see the generator notes.
func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, studentID, schoolYearID snowflake.ID, month int) (*chargedomain.MonthlyCharge, error) {
	var c chargedomain.MonthlyCharge
	err := db.WithContext(ctx).
		Where("student_id = ? AND school_year_id = ? AND month = ?", studentID, schoolYearID, month).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, opts chargedomain.ListOptions, page pagination.Pagination) ([]chargedomain.MonthlyCharge, int64, error) {
	query := db.WithContext(ctx).Model(&chargedomain.MonthlyCharge{})
	if opts.Status != nil {
		query = query.Where("status = ?", *opts.Status)
	}
	if opts.StudentID != nil {
		query = query.Where("student_id = ?", *opts.StudentID)
	}
	if opts.RepresentativeID != nil {
		query = query.Where("representative_id = ?", *opts.RepresentativeID)
	}
	if opts.SchoolYearID != nil {
		query = query.Where("school_year_id = ?", *opts.SchoolYearID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []chargedomain.MonthlyCharge
	err := query.
		Order("year ASC, month ASC, id ASC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) ListBatch(ctx context.Context, db *gorm.DB, filter chargedomain.BatchFilter, afterID snowflake.ID, limit int) ([]chargedomain.MonthlyCharge, error) {
	query := db.WithContext(ctx).
		Model(&chargedomain.MonthlyCharge{}).
		Where("id > ?", afterID)
	if filter.Month != nil {
		query = query.Where("month = ?", *filter.Month)
	}
	if filter.Year != nil {
		query = query.Where("year = ?", *filter.Year)
	}
	if filter.SchoolYearID != nil {
		query = query.Where("school_year_id = ?", *filter.SchoolYearID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	var items []chargedomain.MonthlyCharge
	if err := query.Order("id ASC").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
