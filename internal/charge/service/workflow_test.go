package service

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/plantelhq/plantel/internal/audit"
	configdomain "github.com/plantelhq/plantel/internal/billingconfig/domain"
	chargedomain "github.com/plantelhq/plantel/internal/charge/domain"
	"github.com/plantelhq/plantel/internal/charge/mora"
	"github.com/plantelhq/plantel/internal/clock"
	"github.com/plantelhq/plantel/internal/notification"
	paymentdomain "github.com/plantelhq/plantel/internal/payment/domain"
	"github.com/plantelhq/plantel/internal/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receiptUpload(content string) *chargedomain.ReceiptUpload {
	return &chargedomain.ReceiptUpload{
		Name:     "comprobante.pdf",
		MimeType: "application/pdf",
		Reader:   strings.NewReader(content),
	}
}

func (e *testEnv) report(t *testing.T, ctx context.Context, ch *chargedomain.MonthlyCharge) *chargedomain.MonthlyCharge {
	t.Helper()
	out, err := e.workflow.Report(ctx, chargedomain.ReportRequest{
		ChargeID:  ch.ID,
		MethodID:  e.method.ID,
		Reference: "TRX-001",
		Receipt:   receiptUpload("recibo"),
	})
	require.NoError(t, err)
	return out
}

func (e *testEnv) payment(t *testing.T, id int64) *paymentdomain.Payment {
	t.Helper()
	var p paymentdomain.Payment
	require.NoError(t, e.db.Where("id = ?", id).First(&p).Error)
	return &p
}

func TestReportCreatesPendingPayment(t *testing.T) {
	env := newTestEnv(t)
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	// Due Oct 1, grace 5 days: ten days late accrues five billable days.
	asOf := time.Date(2024, 10, 11, 0, 0, 0, 0, time.UTC)
	ctx := clock.WithNow(context.Background(), asOf)

	ch := env.chargeForMonth(t, 10)
	out := env.report(t, ctx, ch)

	require.Equal(t, chargedomain.ChargeStatusReported, out.Status)
	require.NotNil(t, out.PaymentID)
	// 50 * 0.02 * 5
	require.True(t, out.AccruedMora.Equal(dec2("5")))

	pay, err := env.paymentRepo.FindByID(ctx, env.db, *out.PaymentID)
	require.NoError(t, err)
	require.NotNil(t, pay)
	require.Equal(t, paymentdomain.PaymentStatusPending, pay.Status)
	require.Equal(t, ch.ID, pay.ChargeID)
	require.Equal(t, env.method.ID, pay.MethodID)
	require.Equal(t, "TRX-001", pay.Reference)
	require.True(t, pay.Amount.Equal(dec2("50")))
	require.True(t, pay.MoraAmount.Equal(dec2("5")))
	require.True(t, pay.Total.Equal(dec2("55")))

	// The receipt was promoted after commit and carries its final URL.
	var meta paymentdomain.ReceiptMeta
	require.NoError(t, json.Unmarshal(pay.Receipt, &meta))
	require.Equal(t, "comprobante.pdf", meta.Name)
	require.NotEmpty(t, meta.URL)
}

func TestReportWithinGraceAccruesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	asOf := time.Date(2024, 10, 4, 0, 0, 0, 0, time.UTC)
	ctx := clock.WithNow(context.Background(), asOf)

	out := env.report(t, ctx, env.chargeForMonth(t, 10))
	require.True(t, out.AccruedMora.IsZero())

	pay := env.payment(t, int64(*out.PaymentID))
	require.True(t, pay.Total.Equal(dec2("50")))
}

func TestReportUsesFrozenTermsForMora(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	_, err := env.snapshot.Freeze(ctx, chargedomain.FreezeRequest{
		Month: 10, Year: 2024, SchoolYearID: env.schoolYear.ID,
	})
	require.NoError(t, err)

	// A later configuration raises the mora rate; the frozen charge keeps
	// its snapshot rate.
	env.setConfig(t, configdomain.UpdateRequest{MoraRate: dec2Ptr("0.10")})

	asOf := time.Date(2024, 10, 11, 0, 0, 0, 0, time.UTC)
	out := env.report(t, clock.WithNow(ctx, asOf), env.chargeForMonth(t, 10))
	require.True(t, out.AccruedMora.Equal(dec2("5")))
}

func TestReportOnPaidChargeFailsCleanly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	ch := env.chargeForMonth(t, 10)
	require.NoError(t, env.db.Model(ch).Update("status", chargedomain.ChargeStatusPaid).Error)

	_, err := env.workflow.Report(ctx, chargedomain.ReportRequest{
		ChargeID: ch.ID,
		MethodID: env.method.ID,
		Receipt:  receiptUpload("recibo"),
	})
	require.ErrorIs(t, err, chargedomain.ErrChargeAlreadyPaid)

	var payments int64
	require.NoError(t, env.db.Model(&paymentdomain.Payment{}).Count(&payments).Error)
	require.Zero(t, payments)
	require.Nil(t, env.reload(t, ch.ID).PaymentID)
}

func TestReportRequiresPendingCharge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	ch := env.chargeForMonth(t, 10)
	env.report(t, ctx, ch)

	_, err := env.workflow.Report(ctx, chargedomain.ReportRequest{
		ChargeID: ch.ID,
		MethodID: env.method.ID,
	})
	require.ErrorIs(t, err, chargedomain.ErrChargeNotPending)
}

func TestReportValidatesPaymentMethod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)
	ch := env.chargeForMonth(t, 10)

	_, err := env.workflow.Report(ctx, chargedomain.ReportRequest{
		ChargeID: ch.ID,
		MethodID: env.node.Generate(),
	})
	require.ErrorIs(t, err, paymentdomain.ErrPaymentMethodNotFound)

	require.NoError(t, env.db.Model(env.method).Update("active", false).Error)
	_, err = env.workflow.Report(ctx, chargedomain.ReportRequest{
		ChargeID: ch.ID,
		MethodID: env.method.ID,
	})
	require.ErrorIs(t, err, paymentdomain.ErrPaymentMethodInactive)
}

func TestReportDiscardsStagedReceiptWhenTxFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)
	ch := env.chargeForMonth(t, 10)

	// Force the transaction to fail after the receipt was staged.
	require.NoError(t, env.db.Migrator().DropTable(&paymentdomain.Payment{}))

	_, err := env.workflow.Report(ctx, chargedomain.ReportRequest{
		ChargeID: ch.ID,
		MethodID: env.method.ID,
		Receipt:  receiptUpload("recibo"),
	})
	require.Error(t, err)

	staged, rerr := os.ReadDir(filepath.Join(env.storageRoot, "staging"))
	require.NoError(t, rerr)
	require.Empty(t, staged)

	promoted, rerr := os.ReadDir(filepath.Join(env.storageRoot, "receipts"))
	require.NoError(t, rerr)
	require.Empty(t, promoted)
}

// stageHookStore runs a callback once, right before the first Stage call
// goes through. It lets a test interleave a second report while the first
// one sits between its status pre-check and its transaction.
type stageHookStore struct {
	storage.FileStore
	hook func()
}

func (s *stageHookStore) Stage(ctx context.Context, name, mimeType string, r io.Reader) (*storage.StagedFile, error) {
	if s.hook != nil {
		h := s.hook
		s.hook = nil
		h()
	}
	return s.FileStore.Stage(ctx, name, mimeType, r)
}

func TestReportLosesToOverlappingReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)
	ch := env.chargeForMonth(t, 10)

	files, err := storage.NewLocalStore(env.storageRoot)
	require.NoError(t, err)
	hooked := &stageHookStore{FileStore: files}
	hooked.hook = func() {
		env.report(t, ctx, ch)
	}

	stale := NewWorkflow(WorkflowParam{
		DB: env.db, Log: zap.NewNop(), GenID: env.node, Clock: clock.SystemClock{},
		Repo:        env.chargeRepo,
		PaymentRepo: env.paymentRepo,
		ConfigSvc:   env.configSvc,
		Accrual:     mora.DailySimple{},
		Files:       hooked,
		Notify:      notification.NewLogDispatcher(zap.NewNop()),
		Audit:       audit.New(env.db, zap.NewNop(), env.node, clock.SystemClock{}),
		Metrics:     env.metrics,
	})

	_, err = stale.Report(ctx, chargedomain.ReportRequest{
		ChargeID: ch.ID,
		MethodID: env.method.ID,
		Receipt:  receiptUpload("recibo duplicado"),
	})
	require.ErrorIs(t, err, chargedomain.ErrChargeNotPending)

	// Only the first report persisted a payment and the charge points at it.
	var payments []paymentdomain.Payment
	require.NoError(t, env.db.Where("charge_id = ?", ch.ID).Find(&payments).Error)
	require.Len(t, payments, 1)

	got := env.reload(t, ch.ID)
	require.Equal(t, chargedomain.ChargeStatusReported, got.Status)
	require.NotNil(t, got.PaymentID)
	require.Equal(t, payments[0].ID, *got.PaymentID)

	// The loser's staged receipt was discarded.
	staged, rerr := os.ReadDir(filepath.Join(env.storageRoot, "staging"))
	require.NoError(t, rerr)
	require.Empty(t, staged)
	promoted, rerr := os.ReadDir(filepath.Join(env.storageRoot, "receipts"))
	require.NoError(t, rerr)
	require.Len(t, promoted, 1)
}

func TestApproveSettlesChargeAndPaymentTogether(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	ch := env.report(t, ctx, env.chargeForMonth(t, 10))

	out, err := env.workflow.Approve(ctx, ch.ID, "admin")
	require.NoError(t, err)
	require.Equal(t, chargedomain.ChargeStatusPaid, out.Status)

	pay := env.payment(t, int64(*out.PaymentID))
	require.Equal(t, paymentdomain.PaymentStatusPaid, pay.Status)
}

func TestApproveRequiresReportedCharge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	ch := env.chargeForMonth(t, 10)
	_, err := env.workflow.Approve(ctx, ch.ID, "admin")
	require.ErrorIs(t, err, chargedomain.ErrChargeNotReported)

	_, err = env.workflow.Approve(ctx, env.node.Generate(), "admin")
	require.ErrorIs(t, err, chargedomain.ErrChargeNotFound)
}

func TestRejectVoidsChargeAndPaymentTogether(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	ch := env.report(t, ctx, env.chargeForMonth(t, 10))

	out, err := env.workflow.Reject(ctx, ch.ID, "monto no coincide", "admin")
	require.NoError(t, err)
	require.Equal(t, chargedomain.ChargeStatusVoided, out.Status)
	require.Equal(t, "monto no coincide", out.Observations)

	pay := env.payment(t, int64(*out.PaymentID))
	require.Equal(t, paymentdomain.PaymentStatusVoided, pay.Status)
}

func TestRejectRequiresReportedCharge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.setConfig(t, baseConfig())
	env.generateAll(t)

	ch := env.chargeForMonth(t, 10)
	_, err := env.workflow.Reject(ctx, ch.ID, "", "admin")
	require.ErrorIs(t, err, chargedomain.ErrChargeNotReported)

	// A voided charge cannot be re-reported or re-rejected.
	reported := env.report(t, ctx, ch)
	_, err = env.workflow.Reject(ctx, reported.ID, "", "admin")
	require.NoError(t, err)
	_, err = env.workflow.Reject(ctx, reported.ID, "", "admin")
	require.ErrorIs(t, err, chargedomain.ErrChargeNotReported)
}
