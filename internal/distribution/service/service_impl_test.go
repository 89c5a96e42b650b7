package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	assignmentdomain "github.com/nordleads/leadflow/internal/assignment/domain"
	assignmentrepo "github.com/nordleads/leadflow/internal/assignment/repository"
	buyerdomain "github.com/nordleads/leadflow/internal/buyer/domain"
	buyerrepo "github.com/nordleads/leadflow/internal/buyer/repository"
	catalogdomain "github.com/nordleads/leadflow/internal/catalog/domain"
	catalogrepo "github.com/nordleads/leadflow/internal/catalog/repository"
	"github.com/nordleads/leadflow/internal/clock"
	"github.com/nordleads/leadflow/internal/distribution/domain"
	eligibilityservice "github.com/nordleads/leadflow/internal/eligibility/service"
	historydomain "github.com/nordleads/leadflow/internal/history/domain"
	historyrepo "github.com/nordleads/leadflow/internal/history/repository"
	historyservice "github.com/nordleads/leadflow/internal/history/service"
	leaddomain "github.com/nordleads/leadflow/internal/lead/domain"
	leadrepo "github.com/nordleads/leadflow/internal/lead/repository"
	ledgerdomain "github.com/nordleads/leadflow/internal/ledger/domain"
	ledgerservice "github.com/nordleads/leadflow/internal/ledger/service"
	settingsdomain "github.com/nordleads/leadflow/internal/settings/domain"
	settingsservice "github.com/nordleads/leadflow/internal/settings/service"
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
		&catalogdomain.LeadPackage{},
		&catalogdomain.PackageSubscription{},
		&assignmentdomain.LeadAssignment{},
		&ledgerdomain.BudgetTransaction{},
		&historydomain.Entry{},
		&settingsdomain.LeadSettings{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	settingsSvc := settingsservice.New(settingsservice.Params{DB: db, Log: log, Clock: fake})
	eligibilitySvc := eligibilityservice.New(eligibilityservice.Params{
		DB:             db,
		Log:            log,
		Clock:          fake,
		CatalogRepo:    catalogrepo.Provide(),
		BuyerRepo:      buyerrepo.Provide(),
		AssignmentRepo: assignmentrepo.Provide(),
	})
	ledgerSvc := ledgerservice.New(ledgerservice.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     fake,
		BuyerRepo: buyerrepo.Provide(),
	})
	historySvc := historyservice.New(historyservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  historyrepo.Provide(),
	})
	svc := New(Params{
		DB:             db,
		Log:            log,
		GenID:          node,
		Clock:          fake,
		Settings:       settingsSvc,
		Eligibility:    eligibilitySvc,
		Ledger:         ledgerSvc,
		History:        historySvc,
		LeadRepo:       leadrepo.Provide(),
		BuyerRepo:      buyerrepo.Provide(),
		CatalogRepo:    catalogrepo.Provide(),
		AssignmentRepo: assignmentrepo.Provide(),
	})

	return &testEnv{db: db, node: node, clock: fake, svc: svc}
}

type buyerOpts struct {
	budget      int64
	perUnit     int64
	pause       bool
	dailyBudget *int64
}

func (e *testEnv) createBuyer(t *testing.T, opts buyerOpts) snowflake.ID {
	t.Helper()
	buyer := buyerdomain.BuyerAccount{
		ID:                      e.node.Generate(),
		CompanyName:             "Buyer",
		CurrentBudget:           opts.budget,
		DailyBudget:             opts.dailyBudget,
		PauseWhenBudgetExceeded: opts.pause,
		LeadCostPerUnit:         opts.perUnit,
	}
	require.NoError(t, e.db.Create(&buyer).Error)
	return buyer.ID
}

func (e *testEnv) subscribe(t *testing.T, buyerID snowflake.ID, category string, price int64, priority int) snowflake.ID {
	t.Helper()
	pkg := catalogdomain.LeadPackage{
		ID:            e.node.Generate(),
		Name:          "Package",
		Category:      category,
		PricePerLead:  price,
		PriorityLevel: priority,
		IsActive:      true,
	}
	require.NoError(t, e.db.Create(&pkg).Error)
	require.NoError(t, e.db.Create(&catalogdomain.PackageSubscription{
		ID:        e.node.Generate(),
		BuyerID:   buyerID,
		PackageID: pkg.ID,
		Status:    catalogdomain.SubscriptionStatusActive,
	}).Error)
	return pkg.ID
}

func (e *testEnv) createLead(t *testing.T, category string) snowflake.ID {
	t.Helper()
	lead := leaddomain.Lead{
		ID:       e.node.Generate(),
		Category: category,
		Status:   leaddomain.LeadStatusNew,
		Title:    "Boiler replacement",
	}
	require.NoError(t, e.db.Create(&lead).Error)
	return lead.ID
}

func (e *testEnv) setSettings(t *testing.T, autoDistribute, globallyPaused bool) {
	t.Helper()
	require.NoError(t, e.db.Save(&settingsdomain.LeadSettings{
		ID:             settingsdomain.SingletonID,
		AutoDistribute: autoDistribute,
		GloballyPaused: globallyPaused,
		UpdatedAt:      e.clock.Now(),
	}).Error)
}

func (e *testEnv) budget(t *testing.T, buyerID snowflake.ID) int64 {
	t.Helper()
	var buyer buyerdomain.BuyerAccount
	require.NoError(t, e.db.First(&buyer, "id = ?", buyerID).Error)
	return buyer.CurrentBudget
}

func TestDistributeAssignsAndCharges(t *testing.T) {
	env := newTestEnv(t)
	buyerID := env.createBuyer(t, buyerOpts{budget: 10000})
	env.subscribe(t, buyerID, "plumbing", 4000, 1)
	leadID := env.createLead(t, "plumbing")

	result, err := env.svc.Distribute(context.Background(), leadID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAssigned, result.Outcome)
	require.NotNil(t, result.BuyerID)
	assert.Equal(t, buyerID, *result.BuyerID)
	require.NotNil(t, result.Cost)
	assert.Equal(t, int64(4000), *result.Cost)
	assert.Equal(t, 1, result.CandidatesTried)

	assert.Equal(t, int64(6000), env.budget(t, buyerID))

	var lead leaddomain.Lead
	require.NoError(t, env.db.First(&lead, "id = ?", leadID).Error)
	assert.Equal(t, leaddomain.LeadStatusQualified, lead.Status)
	require.NotNil(t, lead.CompanyID)
	assert.Equal(t, buyerID, *lead.CompanyID)

	var entry historydomain.Entry
	require.NoError(t, env.db.First(&entry, "lead_id = ?", leadID).Error)
	assert.Equal(t, historydomain.MethodAuto, entry.Method)
	assert.Equal(t, string(leaddomain.LeadStatusQualified), entry.NewStatus)
}

func TestDistributeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	buyerID := env.createBuyer(t, buyerOpts{budget: 10000})
	env.subscribe(t, buyerID, "plumbing", 4000, 1)
	leadID := env.createLead(t, "plumbing")

	first, err := env.svc.Distribute(context.Background(), leadID)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeAssigned, first.Outcome)

	second, err := env.svc.Distribute(context.Background(), leadID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyAssigned, second.Outcome)
	require.NotNil(t, second.AssignmentID)
	assert.Equal(t, *first.AssignmentID, *second.AssignmentID)

	// No second charge.
	assert.Equal(t, int64(6000), env.budget(t, buyerID))
	var count int64
	require.NoError(t, env.db.Model(&assignmentdomain.LeadAssignment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDistributePrefersHigherPriority(t *testing.T) {
	env := newTestEnv(t)
	lowID := env.createBuyer(t, buyerOpts{budget: 10000})
	env.subscribe(t, lowID, "plumbing", 4000, 1)
	highID := env.createBuyer(t, buyerOpts{budget: 10000})
	env.subscribe(t, highID, "plumbing", 5000, 5)
	leadID := env.createLead(t, "plumbing")

	result, err := env.svc.Distribute(context.Background(), leadID)
	require.NoError(t, err)
	require.NotNil(t, result.BuyerID)
	assert.Equal(t, highID, *result.BuyerID)
	assert.Equal(t, int64(5000), *result.Cost)
}

func TestDistributePausedBuyerRunsOutAfterTwoLeads(t *testing.T) {
	env := newTestEnv(t)
	buyerID := env.createBuyer(t, buyerOpts{budget: 10000, pause: true})
	env.subscribe(t, buyerID, "plumbing", 4000, 1)

	for i := 0; i < 2; i++ {
		result, err := env.svc.Distribute(context.Background(), env.createLead(t, "plumbing"))
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeAssigned, result.Outcome)
	}
	assert.Equal(t, int64(2000), env.budget(t, buyerID))

	// 2000 left against a 4000 price with pause enabled; the buyer is no
	// longer a candidate at all.
	result, err := env.svc.Distribute(context.Background(), env.createLead(t, "plumbing"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNoBuyer, result.Outcome)
	assert.Zero(t, result.CandidatesTried)
	assert.Equal(t, int64(2000), env.budget(t, buyerID))
}

func TestDistributeGloballyPaused(t *testing.T) {
	env := newTestEnv(t)
	buyerID := env.createBuyer(t, buyerOpts{budget: 10000})
	env.subscribe(t, buyerID, "plumbing", 4000, 1)
	leadID := env.createLead(t, "plumbing")
	env.setSettings(t, true, true)

	result, err := env.svc.Distribute(context.Background(), leadID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDisabled, result.Outcome)

	assert.Equal(t, int64(10000), env.budget(t, buyerID))
	var count int64
	require.NoError(t, env.db.Model(&ledgerdomain.BudgetTransaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDistributeAutoDistributeOff(t *testing.T) {
	env := newTestEnv(t)
	buyerID := env.createBuyer(t, buyerOpts{budget: 10000})
	env.subscribe(t, buyerID, "plumbing", 4000, 1)
	leadID := env.createLead(t, "plumbing")
	env.setSettings(t, false, false)

	result, err := env.svc.Distribute(context.Background(), leadID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDisabled, result.Outcome)
}

func TestDistributeNoCandidates(t *testing.T) {
	env := newTestEnv(t)
	leadID := env.createLead(t, "plumbing")

	result, err := env.svc.Distribute(context.Background(), leadID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNoBuyer, result.Outcome)

	var lead leaddomain.Lead
	require.NoError(t, env.db.First(&lead, "id = ?", leadID).Error)
	assert.Equal(t, leaddomain.LeadStatusNew, lead.Status)
	assert.Nil(t, lead.CompanyID)
}

func TestDistributeUnknownLead(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Distribute(context.Background(), env.node.Generate())
	assert.ErrorIs(t, err, leaddomain.ErrNotFound)
}

func TestDistributeFallsThroughOnInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	// Highest priority but cannot pay; unpaused, so it stays a candidate and
	// fails at the debit instead.
	brokeID := env.createBuyer(t, buyerOpts{budget: 1000})
	env.subscribe(t, brokeID, "plumbing", 4000, 9)
	fundedID := env.createBuyer(t, buyerOpts{budget: 10000})
	env.subscribe(t, fundedID, "plumbing", 3000, 1)
	leadID := env.createLead(t, "plumbing")

	result, err := env.svc.Distribute(context.Background(), leadID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAssigned, result.Outcome)
	require.NotNil(t, result.BuyerID)
	assert.Equal(t, fundedID, *result.BuyerID)
	assert.Equal(t, 2, result.CandidatesTried)

	assert.Equal(t, int64(1000), env.budget(t, brokeID))
	assert.Equal(t, int64(7000), env.budget(t, fundedID))
}

func TestDistributeBudgetForExactlyOneLead(t *testing.T) {
	env := newTestEnv(t)
	buyerID := env.createBuyer(t, buyerOpts{budget: 4000})
	env.subscribe(t, buyerID, "plumbing", 4000, 1)

	first, err := env.svc.Distribute(context.Background(), env.createLead(t, "plumbing"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAssigned, first.Outcome)

	// The buyer is still a candidate at zero budget but the debit fails, so
	// the second lead finds no taker and the balance never goes negative.
	second, err := env.svc.Distribute(context.Background(), env.createLead(t, "plumbing"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNoBuyer, second.Outcome)
	assert.Equal(t, 1, second.CandidatesTried)
	assert.Equal(t, int64(0), env.budget(t, buyerID))
}

func TestDistributeConcurrentAttemptsSingleBudget(t *testing.T) {
	env := newTestEnv(t)
	buyerID := env.createBuyer(t, buyerOpts{budget: 4000})
	env.subscribe(t, buyerID, "plumbing", 4000, 1)
	leadA := env.createLead(t, "plumbing")
	leadB := env.createLead(t, "plumbing")

	type attempt struct {
		result domain.Result
		err    error
	}
	attempts := make([]attempt, 2)
	var wg sync.WaitGroup
	for i, leadID := range []snowflake.ID{leadA, leadB} {
		wg.Add(1)
		go func(i int, id snowflake.ID) {
			defer wg.Done()
			result, err := env.svc.Distribute(context.Background(), id)
			attempts[i] = attempt{result: result, err: err}
		}(i, leadID)
	}
	wg.Wait()

	assigned := 0
	for _, a := range attempts {
		if a.err == nil && a.result.Outcome == domain.OutcomeAssigned {
			assigned++
		}
	}
	assert.LessOrEqual(t, assigned, 1)

	// The budget covers exactly one lead; the conditional debit keeps the
	// balance non-negative no matter how the attempts interleave.
	balance := env.budget(t, buyerID)
	assert.Equal(t, int64(4000)-int64(assigned)*4000, balance)
	assert.GreaterOrEqual(t, balance, int64(0))

	var count int64
	require.NoError(t, env.db.Model(&assignmentdomain.LeadAssignment{}).Count(&count).Error)
	assert.Equal(t, int64(assigned), count)
}

func TestIsTransientClassification(t *testing.T) {
	assert.False(t, isTransient(nil))
	assert.False(t, isTransient(leaddomain.ErrNotFound))
	assert.False(t, isTransient(context.Canceled))
	assert.False(t, isTransient(errors.New(`sql: Scan error on column index 1, name "assigned_at": unsupported Scan`)))
	assert.True(t, isTransient(driver.ErrBadConn))
	assert.True(t, isTransient(fmt.Errorf("list unassigned: %w", errors.New("database is locked (5) (SQLITE_BUSY)"))))
}

func TestAssignManuallyUsesPackagePrice(t *testing.T) {
	env := newTestEnv(t)
	buyerID := env.createBuyer(t, buyerOpts{budget: 10000, perUnit: 2500})
	env.subscribe(t, buyerID, "plumbing", 4000, 1)
	leadID := env.createLead(t, "plumbing")

	result, err := env.svc.AssignManually(context.Background(), domain.ManualAssignRequest{
		LeadID:  leadID,
		BuyerID: buyerID,
		Actor:   "ops@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAssigned, result.Outcome)
	assert.Equal(t, int64(4000), *result.Cost)
	assert.Equal(t, int64(6000), env.budget(t, buyerID))
}

func TestAssignManuallyFallsBackToPerUnitCost(t *testing.T) {
	env := newTestEnv(t)
	buyerID := env.createBuyer(t, buyerOpts{budget: 10000, perUnit: 2500})
	leadID := env.createLead(t, "plumbing")

	result, err := env.svc.AssignManually(context.Background(), domain.ManualAssignRequest{
		LeadID:  leadID,
		BuyerID: buyerID,
		Actor:   "ops@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2500), *result.Cost)
	assert.Equal(t, int64(7500), env.budget(t, buyerID))
}

func TestAssignManuallyRequiresActor(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.AssignManually(context.Background(), domain.ManualAssignRequest{
		LeadID:  env.node.Generate(),
		BuyerID: env.node.Generate(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidActor)
}

func TestAssignManuallySupersedesActiveAssignment(t *testing.T) {
	env := newTestEnv(t)
	firstID := env.createBuyer(t, buyerOpts{budget: 10000})
	env.subscribe(t, firstID, "plumbing", 4000, 1)
	secondID := env.createBuyer(t, buyerOpts{budget: 10000, perUnit: 3000})
	leadID := env.createLead(t, "plumbing")

	auto, err := env.svc.Distribute(context.Background(), leadID)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeAssigned, auto.Outcome)
	require.Equal(t, firstID, *auto.BuyerID)

	env.clock.Advance(time.Minute)
	manual, err := env.svc.AssignManually(context.Background(), domain.ManualAssignRequest{
		LeadID:  leadID,
		BuyerID: secondID,
		Actor:   "ops@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAssigned, manual.Outcome)
	assert.Equal(t, secondID, *manual.BuyerID)

	// The first buyer was refunded in full; the second was charged.
	assert.Equal(t, int64(10000), env.budget(t, firstID))
	assert.Equal(t, int64(7000), env.budget(t, secondID))

	var prior assignmentdomain.LeadAssignment
	require.NoError(t, env.db.First(&prior, "id = ?", *auto.AssignmentID).Error)
	assert.Equal(t, assignmentdomain.AssignmentStatusRejected, prior.Status)

	var lead leaddomain.Lead
	require.NoError(t, env.db.First(&lead, "id = ?", leadID).Error)
	require.NotNil(t, lead.CompanyID)
	assert.Equal(t, secondID, *lead.CompanyID)

	// One auto entry plus the rejection and the manual assignment.
	var entries []historydomain.Entry
	require.NoError(t, env.db.Order("created_at ASC, id ASC").Find(&entries, "lead_id = ?", leadID).Error)
	require.Len(t, entries, 3)
	assert.Equal(t, historydomain.MethodAuto, entries[0].Method)
	assert.Equal(t, historydomain.MethodManual, entries[1].Method)
	assert.Equal(t, string(assignmentdomain.AssignmentStatusRejected), entries[1].NewStatus)
	assert.Equal(t, historydomain.MethodManual, entries[2].Method)
	assert.Equal(t, string(leaddomain.LeadStatusQualified), entries[2].NewStatus)
}
