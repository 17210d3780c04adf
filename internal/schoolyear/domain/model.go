package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// SchoolYear is an administrative period such as "2024-2025". Its academic
// span is configurable: EndMonth < StartMonth means the year wraps across
// the December/January boundary.
type SchoolYear struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	Periodo    string       `json:"periodo" gorm:"type:text;not null;uniqueIndex"`
	StartMonth int          `json:"start_month" gorm:"not null;default:9"`
	EndMonth   int          `json:"end_month" gorm:"not null;default:7"`
	Active     bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"not null"`
}

func (SchoolYear) TableName() string { return "school_years" }

var (
	ErrSchoolYearNotFound = errors.New("school_year_not_found")
	ErrInvalidPeriodo     = errors.New("invalid_periodo")
	ErrInvalidMonthSpan   = errors.New("invalid_month_span")
)

type ListOptions struct {
	Active *bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sy *SchoolYear) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SchoolYear, error)
	FindByPeriodo(ctx context.Context, db *gorm.DB, periodo string) (*SchoolYear, error)
	List(ctx context.Context, db *gorm.DB, opts ListOptions) ([]SchoolYear, error)
}

type CreateRequest struct {
	Periodo    string
	StartMonth *int
	EndMonth   *int
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*SchoolYear, error)
	Get(ctx context.Context, id snowflake.ID) (*SchoolYear, error)
	List(ctx context.Context, opts ListOptions) ([]SchoolYear, error)
}
