package notification

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type EventKind string

const (
	EventChargeReported EventKind = "charge_reported"
	EventChargeApproved EventKind = "charge_approved"
	EventChargeRejected EventKind = "charge_rejected"
)

type Event struct {
	Kind             EventKind
	ChargeID         snowflake.ID
	RepresentativeID snowflake.ID
	Detail           string
}

// Dispatcher delivers billing events to representatives. Delivery is
// fire-and-forget; the workflow never waits on it or fails because of it.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event)
}

type logDispatcher struct {
	log *zap.Logger
}

func NewLogDispatcher(log *zap.Logger) Dispatcher {
	return &logDispatcher{log: log.Named("notification")}
}

func (d *logDispatcher) Dispatch(ctx context.Context, ev Event) {
	d.log.Info("notification dispatched",
		zap.String("kind", string(ev.Kind)),
		zap.Int64("charge_id", int64(ev.ChargeID)),
		zap.Int64("representative_id", int64(ev.RepresentativeID)),
	)
}

var Module = fx.Module("notification",
	fx.Provide(NewLogDispatcher),
)
