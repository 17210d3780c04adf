package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BillingConfiguration is one immutable pricing/mora version. Exactly one
// row is active at a time; an update inserts version N+1 and deactivates N
// instead of editing in place, so an in-flight freeze or sync batch always
// reads a consistent version. Mora fields are stored in percentage points.
type BillingConfiguration struct {
	ID             snowflake.ID    `json:"id" gorm:"primaryKey"`
	Version        int             `json:"version" gorm:"not null;uniqueIndex"`
	Active         bool            `json:"active" gorm:"not null;index"`
	PrimaryPrice   decimal.Decimal `json:"primary_price" gorm:"type:numeric(14,2);not null"`
	SecondaryPrice decimal.Decimal `json:"secondary_price" gorm:"type:numeric(14,2);not null"`
	MoraRatePct    decimal.Decimal `json:"mora_rate_pct" gorm:"type:numeric(9,4);not null"`
	GraceDays      int             `json:"grace_days" gorm:"not null;default:0"`
	MoraCapPct     decimal.Decimal `json:"mora_cap_pct" gorm:"type:numeric(9,4);not null"`
	CutoffDate     *time.Time      `json:"cutoff_date"`
	CreatedAt      time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"not null"`
}

func (BillingConfiguration) TableName() string { return "billing_configurations" }

var (
	ErrConfigNotFound  = errors.New("billing_config_not_found")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidMoraRate = errors.New("invalid_mora_rate")
	ErrInvalidMoraCap  = errors.New("invalid_mora_cap")
	ErrInvalidGrace    = errors.New("invalid_grace_days")
)

// MoraTerms is the caller-facing mora shape, expressed in fractions (0-1).
type MoraTerms struct {
	Tasa           decimal.Decimal `json:"tasa"`
	DiasGracia     int             `json:"diasGracia"`
	TopePorcentaje decimal.Decimal `json:"topePorcentaje"`
}

// View is the normalized read model of the active configuration: prices as
// stored, mora exposed as fractions rather than percentage points.
type View struct {
	ID             snowflake.ID    `json:"id"`
	Version        int             `json:"version"`
	PrimaryPrice   decimal.Decimal `json:"primary_price"`
	SecondaryPrice decimal.Decimal `json:"secondary_price"`
	Mora           MoraTerms       `json:"mora"`
	CutoffDate     *time.Time      `json:"cutoff_date"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

var hundred = decimal.NewFromInt(100)

func (c *BillingConfiguration) ToView() View {
	return View{
		ID:             c.ID,
		Version:        c.Version,
		PrimaryPrice:   c.PrimaryPrice,
		SecondaryPrice: c.SecondaryPrice,
		Mora: MoraTerms{
			Tasa:           c.MoraRatePct.Div(hundred),
			DiasGracia:     c.GraceDays,
			TopePorcentaje: c.MoraCapPct.Div(hundred),
		},
		CutoffDate: c.CutoffDate,
		UpdatedAt:  c.UpdatedAt,
	}
}

// UpdateRequest is the canonical upsert shape. The HTTP boundary decodes
// both the flat and the nested mora payloads into this one struct; mora
// values arrive as fractions. Nil fields keep the current value.
type UpdateRequest struct {
	PrimaryPrice   *decimal.Decimal
	SecondaryPrice *decimal.Decimal
	MoraRate       *decimal.Decimal // fraction, 0-1
	GraceDays      *int
	MoraCap        *decimal.Decimal // fraction, 0-1
	CutoffDate     *time.Time
	ClearCutoff    bool
}

type Repository interface {
	FindActive(ctx context.Context, db *gorm.DB) (*BillingConfiguration, error)
	Insert(ctx context.Context, db *gorm.DB, cfg *BillingConfiguration) error
	Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}

// Service owns the singleton active configuration. SetActive never touches
// monthly charges; propagation is always an explicit snapshot-engine call.
type Service interface {
	GetActive(ctx context.Context) (*View, error)
	SetActive(ctx context.Context, req UpdateRequest) (*View, error)
}
