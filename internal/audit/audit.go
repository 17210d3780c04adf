package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/plantelhq/plantel/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Log is one audit trail row. Pricing edits, freezes, syncs and workflow
// transitions all leave a row here; the snapshot engine is otherwise the
// only record of why a charge's terms changed.
type Log struct {
	ID         snowflake.ID   `json:"id" gorm:"primaryKey"`
	Actor      string         `json:"actor" gorm:"type:text"`
	Action     string         `json:"action" gorm:"type:text;not null;index"`
	TargetType string         `json:"target_type" gorm:"type:text;not null"`
	TargetID   *string        `json:"target_id" gorm:"type:text;index"`
	Detail     datatypes.JSON `json:"detail" gorm:"type:jsonb"`
	CreatedAt  time.Time      `json:"created_at" gorm:"not null;index"`
}

func (Log) TableName() string { return "audit_logs" }

type Service interface {
	Record(ctx context.Context, actor, action, targetType string, targetID *string, detail map[string]any)
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func New(db *gorm.DB, log *zap.Logger, genID *snowflake.Node, clk clock.Clock) Service {
	return &service{db: db, log: log.Named("audit"), genID: genID, clock: clk}
}

// Record writes the audit row outside the caller's transaction. A failure
// is logged, never propagated: audit must not abort billing work.
func (s *service) Record(ctx context.Context, actor, action, targetType string, targetID *string, detail map[string]any) {
	payload, err := json.Marshal(detail)
	if err != nil {
		payload = []byte("{}")
	}

	row := &Log{
		ID:         s.genID.Generate(),
		Actor:      actor,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     datatypes.JSON(payload),
		CreatedAt:  s.clock.Now(ctx),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

var Module = fx.Module("audit",
	fx.Provide(New),
)
