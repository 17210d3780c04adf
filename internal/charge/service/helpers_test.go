package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/plantelhq/plantel/internal/audit"
	configdomain "github.com/plantelhq/plantel/internal/billingconfig/domain"
	configrepository "github.com/plantelhq/plantel/internal/billingconfig/repository"
	configservice "github.com/plantelhq/plantel/internal/billingconfig/service"
	chargedomain "github.com/plantelhq/plantel/internal/charge/domain"
	"github.com/plantelhq/plantel/internal/charge/mora"
	chargerepository "github.com/plantelhq/plantel/internal/charge/repository"
	"github.com/plantelhq/plantel/internal/clock"
	"github.com/plantelhq/plantel/internal/config"
	enrollmentdomain "github.com/plantelhq/plantel/internal/enrollment/domain"
	enrollmentrepository "github.com/plantelhq/plantel/internal/enrollment/repository"
	"github.com/plantelhq/plantel/internal/notification"
	"github.com/plantelhq/plantel/internal/observability"
	paymentdomain "github.com/plantelhq/plantel/internal/payment/domain"
	paymentrepository "github.com/plantelhq/plantel/internal/payment/repository"
	schoolyeardomain "github.com/plantelhq/plantel/internal/schoolyear/domain"
	schoolyearrepository "github.com/plantelhq/plantel/internal/schoolyear/repository"
	"github.com/plantelhq/plantel/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// testEnv wires the charge services against an in-memory database with one
// school year, one enrolled student and one active payment method seeded.
type testEnv struct {
	db      *gorm.DB
	node    *snowflake.Node
	metrics *observability.Metrics

	chargeRepo  chargedomain.Repository
	paymentRepo paymentdomain.Repository
	configSvc   configdomain.Service

	generator chargedomain.Generator
	snapshot  chargedomain.Snapshot
	workflow  chargedomain.Workflow
	query     chargedomain.Query

	schoolYear *schoolyeardomain.SchoolYear
	enrollment *enrollmentdomain.Enrollment
	method     *paymentdomain.PaymentMethod

	storageRoot string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&schoolyeardomain.SchoolYear{},
		&configdomain.BillingConfiguration{},
		&enrollmentdomain.Representative{},
		&enrollmentdomain.Student{},
		&enrollmentdomain.Tariff{},
		&enrollmentdomain.Enrollment{},
		&paymentdomain.PaymentMethod{},
		&paymentdomain.Payment{},
		&chargedomain.MonthlyCharge{},
		&audit.Log{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	clk := clock.SystemClock{}
	metrics := observability.NewMetrics()
	auditSvc := audit.New(db, log, node, clk)
	storageRoot := t.TempDir()
	files, err := storage.NewLocalStore(storageRoot)
	require.NoError(t, err)

	chargeRepo := chargerepository.Provide()
	paymentRepo := paymentrepository.Provide()
	configRepo := configrepository.Provide()
	schoolYearRepo := schoolyearrepository.Provide()
	enrollmentRepo := enrollmentrepository.Provide()

	configSvc := configservice.New(configservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: configRepo,
	})

	env := &testEnv{
		db:          db,
		node:        node,
		metrics:     metrics,
		storageRoot: storageRoot,
		chargeRepo:  chargeRepo,
		paymentRepo: paymentRepo,
		configSvc:   configSvc,
		generator: NewGenerator(GeneratorParam{
			DB: db, Log: log, GenID: node, Clock: clk,
			Repo:           chargeRepo,
			EnrollmentRepo: enrollmentRepo,
			SchoolYearRepo: schoolYearRepo,
			ConfigSvc:      configSvc,
			Months:         schoolyeardomain.FixedMonths{},
			Metrics:        metrics,
		}),
		snapshot: NewSnapshot(SnapshotParam{
			DB: db, Log: log, Clock: clk,
			Cfg:            &config.Config{Billing: config.BillingConfig{BatchSize: 4}},
			Repo:           chargeRepo,
			SchoolYearRepo: schoolYearRepo,
			ConfigRepo:     configRepo,
			Audit:          auditSvc,
			Metrics:        metrics,
		}),
		workflow: NewWorkflow(WorkflowParam{
			DB: db, Log: log, GenID: node, Clock: clk,
			Repo:        chargeRepo,
			PaymentRepo: paymentRepo,
			ConfigSvc:   configSvc,
			Accrual:     mora.DailySimple{},
			Files:       files,
			Notify:      notification.NewLogDispatcher(log),
			Audit:       auditSvc,
			Metrics:     metrics,
		}),
		query: NewQuery(QueryParam{
			DB: db, Repo: chargeRepo,
		}),
	}
	env.seed(t)
	return env
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	now := time.Date(2024, 8, 15, 12, 0, 0, 0, time.UTC)

	e.schoolYear = &schoolyeardomain.SchoolYear{
		ID:         e.node.Generate(),
		Periodo:    "2024-2025",
		StartMonth: 9,
		EndMonth:   7,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, e.db.Create(e.schoolYear).Error)

	rep := &enrollmentdomain.Representative{
		ID: e.node.Generate(), FirstName: "Maria", LastName: "Perez",
		Email: "maria@example.test", CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, e.db.Create(rep).Error)

	st := &enrollmentdomain.Student{
		ID: e.node.Generate(), FirstName: "Jose", LastName: "Perez",
		RepresentativeID: rep.ID, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, e.db.Create(st).Error)

	e.enrollment = &enrollmentdomain.Enrollment{
		ID:               e.node.Generate(),
		StudentID:        st.ID,
		RepresentativeID: rep.ID,
		SchoolYearID:     e.schoolYear.ID,
		Status:           enrollmentdomain.EnrollmentStatusActive,
		EnrolledAt:       now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, e.db.Create(e.enrollment).Error)

	e.method = &paymentdomain.PaymentMethod{
		ID: e.node.Generate(), Name: "Transferencia", Active: true,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, e.db.Create(e.method).Error)
}

func (e *testEnv) setConfig(t *testing.T, req configdomain.UpdateRequest) *configdomain.View {
	t.Helper()
	view, err := e.configSvc.SetActive(context.Background(), req)
	require.NoError(t, err)
	return view
}

func (e *testEnv) charges(t *testing.T) []chargedomain.MonthlyCharge {
	t.Helper()
	var out []chargedomain.MonthlyCharge
	require.NoError(t, e.db.Order("id ASC").Find(&out).Error)
	return out
}

func (e *testEnv) reload(t *testing.T, id snowflake.ID) *chargedomain.MonthlyCharge {
	t.Helper()
	ch, err := e.chargeRepo.FindByID(context.Background(), e.db, id)
	require.NoError(t, err)
	require.NotNil(t, ch)
	return ch
}

func dec2(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func dec2Ptr(s string) *decimal.Decimal {
	d := dec2(s)
	return &d
}

func int2Ptr(v int) *int { return &v }

func sfPtr(id snowflake.ID) *snowflake.ID { return &id }

func baseConfig() configdomain.UpdateRequest {
	return configdomain.UpdateRequest{
		PrimaryPrice:   dec2Ptr("50"),
		SecondaryPrice: dec2Ptr("1800"),
		MoraRate:       dec2Ptr("0.02"),
		GraceDays:      int2Ptr(5),
		MoraCap:        dec2Ptr("0.5"),
	}
}
