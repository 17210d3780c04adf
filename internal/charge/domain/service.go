package domain

import (
	"context"
	"io"

	"github.com/bwmarrin/snowflake"
	"github.com/plantelhq/plantel/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

// Generator creates the recurring monthly charges for an enrollment.
type Generator interface {
	// GenerateForEnrollment find-or-creates one pending charge per billable
	// month and returns how many were newly created. Safe to re-run.
	GenerateForEnrollment(ctx context.Context, enrollmentID snowflake.ID) (int, error)
}

type FreezeRequest struct {
	Month        int
	Year         int
	SchoolYearID snowflake.ID
	Actor        string
}

type SyncRequest struct {
	Month          *int
	Year           *int
	SchoolYearID   *snowflake.ID
	SyncMoraParams bool
	Actor          string
}

// PriceSummary reports the configuration values a sync propagated.
type PriceSummary struct {
	PrimaryPrice   decimal.Decimal  `json:"primary_price"`
	SecondaryPrice decimal.Decimal  `json:"secondary_price"`
	ExchangeRate   *decimal.Decimal `json:"exchange_rate"`
	ConfigVersion  int              `json:"config_version"`
}

type SyncResult struct {
	Affected int          `json:"affected"`
	Summary  PriceSummary `json:"summary"`
}

// Snapshot freezes a month's terms onto its charges and is the only
// sanctioned channel for propagating configuration edits to existing
// charges.
type Snapshot interface {
	Freeze(ctx context.Context, req FreezeRequest) (int, error)
	SyncPrices(ctx context.Context, req SyncRequest) (SyncResult, error)
}

// ReceiptUpload is an incoming receipt file from the report endpoint.
type ReceiptUpload struct {
	Name     string
	MimeType string
	Reader   io.Reader
}

type ReportRequest struct {
	ChargeID     snowflake.ID
	MethodID     snowflake.ID
	Reference    string
	Observations string
	Receipt      *ReceiptUpload
}

// Workflow moves a charge through report/approve/reject, keeping its
// linked payment in the same state within the same transaction.
type Workflow interface {
	Report(ctx context.Context, req ReportRequest) (*MonthlyCharge, error)
	Approve(ctx context.Context, chargeID snowflake.ID, actor string) (*MonthlyCharge, error)
	Reject(ctx context.Context, chargeID snowflake.ID, observations, actor string) (*MonthlyCharge, error)
}

// Query is the read side used by the HTTP listing surface.
type Query interface {
	List(ctx context.Context, opts ListOptions, page pagination.Pagination) ([]MonthlyCharge, *pagination.PageInfo, error)
	Get(ctx context.Context, id snowflake.ID) (*MonthlyCharge, error)
}
