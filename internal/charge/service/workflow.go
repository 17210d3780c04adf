package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/plantelhq/plantel/internal/audit"
	configdomain "github.com/plantelhq/plantel/internal/billingconfig/domain"
	chargedomain "github.com/plantelhq/plantel/internal/charge/domain"
	"github.com/plantelhq/plantel/internal/charge/mora"
	"github.com/plantelhq/plantel/internal/clock"
	"github.com/plantelhq/plantel/internal/notification"
	"github.com/plantelhq/plantel/internal/observability"
	paymentdomain "github.com/plantelhq/plantel/internal/payment/domain"
	"github.com/plantelhq/plantel/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type WorkflowService struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	repo        chargedomain.Repository
	paymentRepo paymentdomain.Repository
	configSvc   configdomain.Service
	accrual     mora.Strategy
	files       storage.FileStore
	notify      notification.Dispatcher
	audit       audit.Service
	metrics     *observability.Metrics
}

type WorkflowParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock

	Repo        chargedomain.Repository
	PaymentRepo paymentdomain.Repository
	ConfigSvc   configdomain.Service
	Accrual     mora.Strategy
	Files       storage.FileStore
	Notify      notification.Dispatcher
	Audit       audit.Service
	Metrics     *observability.Metrics
}

func NewWorkflow(p WorkflowParam) chargedomain.Workflow {
	return &WorkflowService{
		db:          p.DB,
		log:         p.Log.Named("charge.workflow"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		paymentRepo: p.PaymentRepo,
		configSvc:   p.ConfigSvc,
		accrual:     p.Accrual,
		files:       p.Files,
		notify:      p.Notify,
		audit:       p.Audit,
		metrics:     p.Metrics,
	}
}

// Report moves a pending charge to reported and creates its pending
// payment. The receipt is staged before the transaction opens, the rows
// reference the staged file, and the file is promoted only after commit;
// an aborted transaction discards the staged upload. The pending status
// is re-verified inside the transaction with a guarded update, so of two
// overlapping reports of one charge exactly one persists anything.
func (s *WorkflowService) Report(ctx context.Context, req chargedomain.ReportRequest) (*chargedomain.MonthlyCharge, error) {
	ch, err := s.repo.FindByID(ctx, s.db, req.ChargeID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, chargedomain.ErrChargeNotFound
	}
	if ch.Status == chargedomain.ChargeStatusPaid {
		return nil, chargedomain.ErrChargeAlreadyPaid
	}
	if ch.Status != chargedomain.ChargeStatusPending {
		return nil, chargedomain.ErrChargeNotPending
	}

	method, err := s.paymentRepo.FindMethod(ctx, s.db, req.MethodID)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, paymentdomain.ErrPaymentMethodNotFound
	}
	if !method.Active {
		return nil, paymentdomain.ErrPaymentMethodInactive
	}

	now := s.clock.Now(ctx)

	// Accrued mora is computed from the charge's applied terms: the frozen
	// snapshot when present, the live configuration otherwise.
	liveCfg, err := s.liveConfig(ctx)
	if err != nil {
		return nil, err
	}
	accrued := s.accrual.Accrue(ch.Terms(liveCfg), now)
	total := ch.BaseAmount.Add(accrued)

	var staged *storage.StagedFile
	if req.Receipt != nil {
		staged, err = s.files.Stage(ctx, req.Receipt.Name, req.Receipt.MimeType, req.Receipt.Reader)
		if err != nil {
			return nil, err
		}
	}

	pay := &paymentdomain.Payment{
		ID:           s.genID.Generate(),
		ChargeID:     ch.ID,
		MethodID:     method.ID,
		Amount:       ch.BaseAmount,
		MoraAmount:   accrued,
		Discount:     decimal.Zero,
		Total:        total,
		Reference:    req.Reference,
		Observations: req.Observations,
		Status:       paymentdomain.PaymentStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if staged != nil {
		meta, merr := json.Marshal(paymentdomain.ReceiptMeta{
			Name:     staged.Name,
			MimeType: staged.MimeType,
			Size:     staged.Size,
		})
		if merr == nil {
			pay.Receipt = datatypes.JSON(meta)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The pre-transaction read above may be stale by now; re-load and
		// re-verify under the transaction before touching any row.
		cur, err := s.repo.FindByID(ctx, tx, req.ChargeID)
		if err != nil {
			return err
		}
		if cur == nil {
			return chargedomain.ErrChargeNotFound
		}
		if cur.Status == chargedomain.ChargeStatusPaid {
			return chargedomain.ErrChargeAlreadyPaid
		}
		if cur.Status != chargedomain.ChargeStatusPending {
			return chargedomain.ErrChargeNotPending
		}

		if err := s.paymentRepo.Insert(ctx, tx, pay); err != nil {
			return err
		}
		cur.Status = chargedomain.ChargeStatusReported
		cur.AccruedMora = accrued
		cur.PaymentID = &pay.ID
		if req.Observations != "" {
			cur.Observations = req.Observations
		}
		cur.UpdatedAt = now
		moved, err := s.repo.UpdateFromStatus(ctx, tx, cur, chargedomain.ChargeStatusPending)
		if err != nil {
			return err
		}
		if !moved {
			return chargedomain.ErrChargeNotPending
		}
		ch = cur
		return nil
	})
	if err != nil {
		if staged != nil {
			if derr := s.files.Discard(ctx, staged); derr != nil {
				s.log.Warn("discard staged receipt failed", zap.Error(derr))
			}
		}
		return nil, err
	}

	if staged != nil {
		s.finalizeReceipt(ctx, pay.ID, staged)
	}

	s.metrics.WorkflowMoves.WithLabelValues("report").Inc()
	s.notify.Dispatch(ctx, notification.Event{
		Kind:             notification.EventChargeReported,
		ChargeID:         ch.ID,
		RepresentativeID: ch.RepresentativeID,
	})
	return ch, nil
}

// Approve settles a reported charge: the charge and its linked payment
// move to paid inside one transaction so the pair never disagrees.
func (s *WorkflowService) Approve(ctx context.Context, chargeID snowflake.ID, actor string) (*chargedomain.MonthlyCharge, error) {
	var ch *chargedomain.MonthlyCharge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ch, err = s.repo.FindByID(ctx, tx, chargeID)
		if err != nil {
			return err
		}
		if ch == nil {
			return chargedomain.ErrChargeNotFound
		}
		if ch.Status != chargedomain.ChargeStatusReported {
			return chargedomain.ErrChargeNotReported
		}

		now := s.clock.Now(ctx)
		ch.Status = chargedomain.ChargeStatusPaid
		ch.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, ch); err != nil {
			return err
		}
		if ch.PaymentID != nil {
			return s.paymentRepo.UpdateStatus(ctx, tx, *ch.PaymentID, paymentdomain.PaymentStatusPaid, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.WorkflowMoves.WithLabelValues("approve").Inc()
	s.audit.Record(ctx, actor, "charge.approve", "monthly_charge", strPtr(chargeID.String()), nil)
	s.notify.Dispatch(ctx, notification.Event{
		Kind:             notification.EventChargeApproved,
		ChargeID:         ch.ID,
		RepresentativeID: ch.RepresentativeID,
	})
	return ch, nil
}

// Reject voids a reported charge and its linked payment in one transaction.
func (s *WorkflowService) Reject(ctx context.Context, chargeID snowflake.ID, observations, actor string) (*chargedomain.MonthlyCharge, error) {
	var ch *chargedomain.MonthlyCharge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ch, err = s.repo.FindByID(ctx, tx, chargeID)
		if err != nil {
			return err
		}
		if ch == nil {
			return chargedomain.ErrChargeNotFound
		}
		if ch.Status != chargedomain.ChargeStatusReported {
			return chargedomain.ErrChargeNotReported
		}

		now := s.clock.Now(ctx)
		ch.Status = chargedomain.ChargeStatusVoided
		if observations != "" {
			ch.Observations = observations
		}
		ch.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, ch); err != nil {
			return err
		}
		if ch.PaymentID != nil {
			return s.paymentRepo.UpdateStatus(ctx, tx, *ch.PaymentID, paymentdomain.PaymentStatusVoided, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.WorkflowMoves.WithLabelValues("reject").Inc()
	s.audit.Record(ctx, actor, "charge.reject", "monthly_charge", strPtr(chargeID.String()), map[string]any{
		"observations": observations,
	})
	s.notify.Dispatch(ctx, notification.Event{
		Kind:             notification.EventChargeRejected,
		ChargeID:         ch.ID,
		RepresentativeID: ch.RepresentativeID,
		Detail:           observations,
	})
	return ch, nil
}

func (s *WorkflowService) liveConfig(ctx context.Context) (*configdomain.View, error) {
	view, err := s.configSvc.GetActive(ctx)
	if err != nil {
		if errors.Is(err, configdomain.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return view, nil
}

// finalizeReceipt runs after commit: the staged file becomes durable and
// the payment row is pointed at its final URL. A failure here leaves the
// staged reference in place and is logged for retry by an operator.
func (s *WorkflowService) finalizeReceipt(ctx context.Context, paymentID snowflake.ID, staged *storage.StagedFile) {
	stored, err := s.files.Promote(ctx, staged)
	if err != nil {
		s.log.Warn("promote receipt failed", zap.Int64("payment_id", int64(paymentID)), zap.Error(err))
		return
	}
	meta, err := json.Marshal(paymentdomain.ReceiptMeta{
		URL:      stored.URL,
		Name:     stored.Name,
		MimeType: stored.MimeType,
		Size:     stored.Size,
	})
	if err != nil {
		return
	}
	err = s.db.WithContext(ctx).
		Model(&paymentdomain.Payment{}).
		Where("id = ?", paymentID).
		Update("receipt", datatypes.JSON(meta)).Error
	if err != nil {
		s.log.Warn("update receipt metadata failed", zap.Int64("payment_id", int64(paymentID)), zap.Error(err))
	}
}
