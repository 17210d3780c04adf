package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusVoided  PaymentStatus = "voided"
)

// Payment is created when a charge is reported and stays in lockstep with
// the charge through approve/reject. Receipt metadata comes from the file
// storage collaborator.
type Payment struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey"`
	ChargeID     snowflake.ID    `json:"charge_id" gorm:"not null;index"`
	MethodID     snowflake.ID    `json:"method_id" gorm:"not null;index"`
	Amount       decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	MoraAmount   decimal.Decimal `json:"mora_amount" gorm:"type:numeric(14,2);not null"`
	Discount     decimal.Decimal `json:"discount" gorm:"type:numeric(14,2);not null"`
	Total        decimal.Decimal `json:"total" gorm:"type:numeric(14,2);not null"`
	Reference    string          `json:"reference" gorm:"type:text"`
	Observations string          `json:"observations" gorm:"type:text"`
	Receipt      datatypes.JSON  `json:"receipt" gorm:"type:jsonb"`
	Status       PaymentStatus   `json:"status" gorm:"type:text;not null;default:'pending'"`
	CreatedAt    time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// ReceiptMeta is the stored shape of the receipt JSON column.
type ReceiptMeta struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

type PaymentMethod struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Active    bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }

var (
	ErrPaymentNotFound       = errors.New("payment_not_found")
	ErrPaymentMethodNotFound = errors.New("payment_method_not_found")
	ErrPaymentMethodInactive = errors.New("payment_method_inactive")
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, p *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status PaymentStatus, at time.Time) error
	FindMethod(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentMethod, error)
	ListActiveMethods(ctx context.Context, db *gorm.DB) ([]PaymentMethod, error)
}
