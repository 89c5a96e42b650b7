package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/nordleads/leadflow/internal/assignment/domain"
	assignmentrepo "github.com/nordleads/leadflow/internal/assignment/repository"
	buyerdomain "github.com/nordleads/leadflow/internal/buyer/domain"
	buyerrepo "github.com/nordleads/leadflow/internal/buyer/repository"
	"github.com/nordleads/leadflow/internal/clock"
	historydomain "github.com/nordleads/leadflow/internal/history/domain"
	historyrepo "github.com/nordleads/leadflow/internal/history/repository"
	historyservice "github.com/nordleads/leadflow/internal/history/service"
	leaddomain "github.com/nordleads/leadflow/internal/lead/domain"
	leadrepo "github.com/nordleads/leadflow/internal/lead/repository"
	ledgerdomain "github.com/nordleads/leadflow/internal/ledger/domain"
	ledgerservice "github.com/nordleads/leadflow/internal/ledger/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   domain.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&leaddomain.Lead{},
		&buyerdomain.BuyerAccount{},
		&domain.LeadAssignment{},
		&historydomain.Entry{},
		&ledgerdomain.BudgetTransaction{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	historySvc := historyservice.New(historyservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  historyrepo.Provide(),
	})
	ledgerSvc := ledgerservice.New(ledgerservice.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     fake,
		BuyerRepo: buyerrepo.Provide(),
	})
	svc := New(Params{
		DB:       db,
		Log:      log,
		Clock:    fake,
		Repo:     assignmentrepo.Provide(),
		LeadRepo: leadrepo.Provide(),
		Ledger:   ledgerSvc,
		History:  historySvc,
	})

	return &testEnv{db: db, node: node, clock: fake, svc: svc}
}

func (e *testEnv) seedAssignment(t *testing.T, status domain.AssignmentStatus, cost int64) (*domain.LeadAssignment, snowflake.ID) {
	t.Helper()

	buyer := buyerdomain.BuyerAccount{
		ID:            e.node.Generate(),
		CompanyName:   "Buyer",
		CurrentBudget: 10000,
	}
	require.NoError(t, e.db.Create(&buyer).Error)

	lead := leaddomain.Lead{
		ID:       e.node.Generate(),
		Category: "insurance",
		Status:   leaddomain.LeadStatusQualified,
	}
	lead.CompanyID = &buyer.ID
	require.NoError(t, e.db.Create(&lead).Error)

	assignment := domain.LeadAssignment{
		ID:         e.node.Generate(),
		LeadID:     lead.ID,
		BuyerID:    buyer.ID,
		Cost:       cost,
		Status:     status,
		AssignedAt: e.clock.Now().Add(-time.Hour),
	}
	require.NoError(t, e.db.Create(&assignment).Error)
	return &assignment, buyer.ID
}

func TestAcceptTransitionsAssignment(t *testing.T) {
	env := newTestEnv(t)
	seeded, _ := env.seedAssignment(t, domain.AssignmentStatusAssigned, 4000)

	accepted, err := env.svc.Accept(context.Background(), domain.AcceptRequest{AssignmentID: seeded.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)

	var stored domain.LeadAssignment
	require.NoError(t, env.db.First(&stored, "id = ?", seeded.ID).Error)
	assert.Equal(t, domain.AssignmentStatusAccepted, stored.Status)

	var entry historydomain.Entry
	require.NoError(t, env.db.First(&entry, "lead_id = ?", seeded.LeadID).Error)
	assert.Equal(t, historydomain.MethodStatusUpdate, entry.Method)
	assert.Equal(t, string(domain.AssignmentStatusAccepted), entry.NewStatus)
}

func TestAcceptRejectsNonAssignedStates(t *testing.T) {
	env := newTestEnv(t)

	for _, status := range []domain.AssignmentStatus{
		domain.AssignmentStatusAccepted,
		domain.AssignmentStatusRejected,
		domain.AssignmentStatusExpired,
	} {
		seeded, _ := env.seedAssignment(t, status, 4000)
		_, err := env.svc.Accept(context.Background(), domain.AcceptRequest{AssignmentID: seeded.ID})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "status %s", status)
	}
}

func TestAcceptUnknownAssignment(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Accept(context.Background(), domain.AcceptRequest{AssignmentID: env.node.Generate()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRejectRefundsAndRequeuesLead(t *testing.T) {
	env := newTestEnv(t)
	seeded, buyerID := env.seedAssignment(t, domain.AssignmentStatusAssigned, 4000)
	reason := "wrong region"

	rejected, err := env.svc.Reject(context.Background(), domain.RejectRequest{
		AssignmentID: seeded.ID,
		Reason:       &reason,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusRejected, rejected.Status)

	// Full cost refunded.
	var buyer buyerdomain.BuyerAccount
	require.NoError(t, env.db.First(&buyer, "id = ?", buyerID).Error)
	assert.Equal(t, int64(14000), buyer.CurrentBudget)

	var refund ledgerdomain.BudgetTransaction
	require.NoError(t, env.db.
		First(&refund, "company_id = ? AND transaction_type = ?", buyerID, ledgerdomain.TransactionTypeRefund).Error)
	assert.Equal(t, int64(4000), refund.Amount)

	// Lead returns to the unassigned pool.
	var lead leaddomain.Lead
	require.NoError(t, env.db.First(&lead, "id = ?", seeded.LeadID).Error)
	assert.Equal(t, leaddomain.LeadStatusNew, lead.Status)
	assert.Nil(t, lead.CompanyID)

	var entry historydomain.Entry
	require.NoError(t, env.db.First(&entry, "lead_id = ?", seeded.LeadID).Error)
	assert.Equal(t, string(leaddomain.LeadStatusNew), entry.NewStatus)
}

func TestRejectAcceptedAssignment(t *testing.T) {
	env := newTestEnv(t)
	seeded, _ := env.seedAssignment(t, domain.AssignmentStatusAccepted, 4000)

	rejected, err := env.svc.Reject(context.Background(), domain.RejectRequest{AssignmentID: seeded.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusRejected, rejected.Status)
}

func TestRejectTerminalAssignment(t *testing.T) {
	env := newTestEnv(t)
	seeded, buyerID := env.seedAssignment(t, domain.AssignmentStatusRejected, 4000)

	_, err := env.svc.Reject(context.Background(), domain.RejectRequest{AssignmentID: seeded.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// No double refund.
	var buyer buyerdomain.BuyerAccount
	require.NoError(t, env.db.First(&buyer, "id = ?", buyerID).Error)
	assert.Equal(t, int64(10000), buyer.CurrentBudget)
}
