package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	configdomain "github.com/plantelhq/plantel/internal/billingconfig/domain"
	"github.com/plantelhq/plantel/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ChargeStatus string

const (
	ChargeStatusPending  ChargeStatus = "pending"
	ChargeStatusReported ChargeStatus = "reported"
	ChargeStatusPaid     ChargeStatus = "paid"
	ChargeStatusVoided   ChargeStatus = "voided"
)

// MonthlyCharge is one billable tuition record per student and month within
// a school year. The uniqueness key is (student, school year, month); the
// missing year component is a known gap kept on purpose until product
// confirms the intended key.
//
// Applied_* columns are the pricing/mora snapshot. While Frozen is false
// they are advisory; once Frozen is true they are the charge's terms and
// change only through an explicit re-sync. AppliedConfigVersion records
// which configuration version the snapshot was taken from.
type MonthlyCharge struct {
	ID               snowflake.ID  `json:"id" gorm:"primaryKey"`
	StudentID        snowflake.ID  `json:"student_id" gorm:"not null;uniqueIndex:uq_charge_student_sy_month;index"`
	RepresentativeID snowflake.ID  `json:"representative_id" gorm:"not null;index"`
	EnrollmentID     snowflake.ID  `json:"enrollment_id" gorm:"not null;index"`
	SchoolYearID     snowflake.ID  `json:"school_year_id" gorm:"not null;uniqueIndex:uq_charge_student_sy_month;index"`
	TariffID         *snowflake.ID `json:"tariff_id"`
	Month            int           `json:"month" gorm:"not null;uniqueIndex:uq_charge_student_sy_month"`
	Year             int           `json:"year" gorm:"not null"`

	BaseAmount  decimal.Decimal `json:"base_amount" gorm:"type:numeric(14,2);not null"`
	AccruedMora decimal.Decimal `json:"accrued_mora" gorm:"type:numeric(14,2);not null"`
	DueDate     *time.Time      `json:"due_date"`

	Status ChargeStatus `json:"status" gorm:"type:text;not null;default:'pending';index"`
	Frozen bool         `json:"frozen" gorm:"not null;default:false"`

	AppliedPrimaryPrice   *decimal.Decimal `json:"applied_primary_price" gorm:"type:numeric(14,2)"`
	AppliedSecondaryPrice *decimal.Decimal `json:"applied_secondary_price" gorm:"type:numeric(14,2)"`
	AppliedExchangeRate   *decimal.Decimal `json:"applied_exchange_rate" gorm:"type:numeric(14,6)"`
	AppliedMoraRate       *decimal.Decimal `json:"applied_mora_rate" gorm:"type:numeric(9,6)"`
	AppliedGraceDays      *int             `json:"applied_grace_days"`
	AppliedMoraCap        *decimal.Decimal `json:"applied_mora_cap" gorm:"type:numeric(9,6)"`
	AppliedCutoffDate     *time.Time       `json:"applied_cutoff_date"`
	AppliedConfigVersion  *int             `json:"applied_config_version"`

	PaymentID    *snowflake.ID `json:"payment_id" gorm:"index"`
	Observations string        `json:"observations" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (MonthlyCharge) TableName() string { return "monthly_charges" }

// IsTerminal reports whether the charge can no longer move.
func (c *MonthlyCharge) IsTerminal() bool {
	return c.Status == ChargeStatusPaid || c.Status == ChargeStatusVoided
}

// Terms resolves the mora parameters in effect for this charge: the frozen
// snapshot when present, the live configuration otherwise. Applied mora
// rate and cap are stored as fractions, same as the configuration view.
func (c *MonthlyCharge) Terms(live *configdomain.View) Terms {
	t := Terms{Base: c.BaseAmount}
	if c.DueDate != nil {
		t.DueDate = *c.DueDate
	}
	if c.Frozen {
		if c.AppliedMoraRate != nil {
			t.Rate = *c.AppliedMoraRate
		}
		if c.AppliedGraceDays != nil {
			t.GraceDays = *c.AppliedGraceDays
		}
		if c.AppliedMoraCap != nil {
			t.Cap = *c.AppliedMoraCap
		}
		t.Cutoff = c.AppliedCutoffDate
		return t
	}
	if live != nil {
		t.Rate = live.Mora.Tasa
		t.GraceDays = live.Mora.DiasGracia
		t.Cap = live.Mora.TopePorcentaje
		t.Cutoff = live.CutoffDate
	}
	return t
}

// Terms are the parameters the mora calculator works from. Rate and Cap
// are fractions of the base amount.
type Terms struct {
	Base      decimal.Decimal
	Rate      decimal.Decimal
	GraceDays int
	Cap       decimal.Decimal
	Cutoff    *time.Time
	DueDate   time.Time
}

var (
	ErrChargeNotFound        = errors.New("charge_not_found")
	ErrChargeAlreadyPaid     = errors.New("charge_already_paid")
	ErrChargeNotPending      = errors.New("charge_not_pending")
	ErrChargeNotReported     = errors.New("charge_not_reported")
	ErrMonthOutOfCalendar    = errors.New("month_out_of_calendar")
	ErrSchoolYearRequired    = errors.New("school_year_required")
	ErrMonthYearPairRequired = errors.New("month_year_pair_required")
	ErrNoActiveConfig        = errors.New("no_active_billing_config")
)

type ListOptions struct {
	Status           *ChargeStatus
	StudentID        *snowflake.ID
	RepresentativeID *snowflake.ID
	SchoolYearID     *snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, c *MonthlyCharge) error
	Update(ctx context.Context, db *gorm.DB, c *MonthlyCharge) error
	// UpdateFromStatus persists c only while the stored row is still in
	// from, reporting whether a row moved. Concurrent transitions of the
	// same charge race on this guard and the loser changes nothing.
	UpdateFromStatus(ctx context.Context, db *gorm.DB, c *MonthlyCharge, from ChargeStatus) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MonthlyCharge, error)
	FindByKey(ctx context.Context, db *gorm.DB, studentID, schoolYearID snowflake.ID, month int) (*MonthlyCharge, error)
	List(ctx context.Context, db *gorm.DB, opts ListOptions, page pagination.Pagination) ([]MonthlyCharge, int64, error)
	// ListBatch pages through a filtered row set by ascending id so batch
	// mutations can be chunked inside one transaction.
	ListBatch(ctx context.Context, db *gorm.DB, filter BatchFilter, afterID snowflake.ID, limit int) ([]MonthlyCharge, error)
}

// BatchFilter narrows the rows a batch mutation walks. Nil fields match
// everything; Statuses nil means any state.
type BatchFilter struct {
	Month        *int
	Year         *int
	SchoolYearID *snowflake.ID
	Statuses     []ChargeStatus
}
