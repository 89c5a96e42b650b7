package sweeper

import (
	"context"
	"fmt"
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
	distributionservice "github.com/nordleads/leadflow/internal/distribution/service"
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
	fake := clock.NewFakeClock(time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC))

	return &testEnv{db: db, node: node, clock: fake}
}

func (e *testEnv) newSweeper(t *testing.T, cfg Config) *Sweeper {
	t.Helper()
	log := zap.NewNop()

	settingsSvc := settingsservice.New(settingsservice.Params{DB: e.db, Log: log, Clock: e.clock})
	eligibilitySvc := eligibilityservice.New(eligibilityservice.Params{
		DB:             e.db,
		Log:            log,
		Clock:          e.clock,
		CatalogRepo:    catalogrepo.Provide(),
		BuyerRepo:      buyerrepo.Provide(),
		AssignmentRepo: assignmentrepo.Provide(),
	})
	ledgerSvc := ledgerservice.New(ledgerservice.Params{
		DB:        e.db,
		Log:       log,
		GenID:     e.node,
		Clock:     e.clock,
		BuyerRepo: buyerrepo.Provide(),
	})
	historySvc := historyservice.New(historyservice.Params{
		DB:    e.db,
		Log:   log,
		GenID: e.node,
		Clock: e.clock,
		Repo:  historyrepo.Provide(),
	})
	distributionSvc := distributionservice.New(distributionservice.Params{
		DB:             e.db,
		Log:            log,
		GenID:          e.node,
		Clock:          e.clock,
		Settings:       settingsSvc,
		Eligibility:    eligibilitySvc,
		Ledger:         ledgerSvc,
		History:        historySvc,
		LeadRepo:       leadrepo.Provide(),
		BuyerRepo:      buyerrepo.Provide(),
		CatalogRepo:    catalogrepo.Provide(),
		AssignmentRepo: assignmentrepo.Provide(),
	})

	sweeper, err := New(Params{
		DB:           e.db,
		Log:          log,
		Clock:        e.clock,
		LeadRepo:     leadrepo.Provide(),
		Distribution: distributionSvc,
		Settings:     settingsSvc,
		Config:       cfg,
	})
	require.NoError(t, err)
	return sweeper
}

func (e *testEnv) createSubscribedBuyer(t *testing.T, budget, price int64) snowflake.ID {
	t.Helper()
	buyer := buyerdomain.BuyerAccount{
		ID:            e.node.Generate(),
		CompanyName:   "Buyer",
		CurrentBudget: budget,
	}
	require.NoError(t, e.db.Create(&buyer).Error)

	pkg := catalogdomain.LeadPackage{
		ID:           e.node.Generate(),
		Name:         "Package",
		Category:     "plumbing",
		PricePerLead: price,
		IsActive:     true,
	}
	require.NoError(t, e.db.Create(&pkg).Error)
	require.NoError(t, e.db.Create(&catalogdomain.PackageSubscription{
		ID:        e.node.Generate(),
		BuyerID:   buyer.ID,
		PackageID: pkg.ID,
		Status:    catalogdomain.SubscriptionStatusActive,
	}).Error)
	return buyer.ID
}

func (e *testEnv) createLead(t *testing.T, createdAt time.Time) snowflake.ID {
	t.Helper()
	lead := leaddomain.Lead{
		ID:        e.node.Generate(),
		Category:  "plumbing",
		Status:    leaddomain.LeadStatusNew,
		Title:     "Lead",
		CreatedAt: createdAt,
	}
	require.NoError(t, e.db.Create(&lead).Error)
	return lead.ID
}

func TestRunOnceDistributesBacklog(t *testing.T) {
	env := newTestEnv(t)
	buyerID := env.createSubscribedBuyer(t, 10000, 4000)
	env.createLead(t, env.clock.Now().Add(-2*time.Hour))
	env.createLead(t, env.clock.Now().Add(-time.Hour))
	sweeper := env.newSweeper(t, Config{})

	assigned, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, assigned)

	var remaining int64
	require.NoError(t, env.db.Model(&leaddomain.Lead{}).
		Where("company_id IS NULL").Count(&remaining).Error)
	assert.Zero(t, remaining)

	var buyer buyerdomain.BuyerAccount
	require.NoError(t, env.db.First(&buyer, "id = ?", buyerID).Error)
	assert.Equal(t, int64(2000), buyer.CurrentBudget)
}

func TestRunOnceSkipsWhenGloballyPaused(t *testing.T) {
	env := newTestEnv(t)
	env.createSubscribedBuyer(t, 10000, 4000)
	env.createLead(t, env.clock.Now().Add(-time.Hour))
	require.NoError(t, env.db.Create(&settingsdomain.LeadSettings{
		ID:             settingsdomain.SingletonID,
		AutoDistribute: true,
		GloballyPaused: true,
	}).Error)
	sweeper := env.newSweeper(t, Config{})

	assigned, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, assigned)

	var count int64
	require.NoError(t, env.db.Model(&assignmentdomain.LeadAssignment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRunOnceHonorsBatchSize(t *testing.T) {
	env := newTestEnv(t)
	env.createSubscribedBuyer(t, 100000, 4000)
	for i := 0; i < 3; i++ {
		env.createLead(t, env.clock.Now().Add(-time.Duration(3-i)*time.Hour))
	}
	sweeper := env.newSweeper(t, Config{BatchSize: 2})

	assigned, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, assigned)

	var remaining int64
	require.NoError(t, env.db.Model(&leaddomain.Lead{}).
		Where("company_id IS NULL").Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

func TestRunOnceLeavesUnsellableLeads(t *testing.T) {
	env := newTestEnv(t)
	env.createLead(t, env.clock.Now().Add(-time.Hour))
	sweeper := env.newSweeper(t, Config{})

	assigned, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, assigned)

	var remaining int64
	require.NoError(t, env.db.Model(&leaddomain.Lead{}).
		Where("company_id IS NULL").Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

func TestRunOnceEmptyQueue(t *testing.T) {
	env := newTestEnv(t)
	sweeper := env.newSweeper(t, Config{})

	assigned, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, assigned)
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
