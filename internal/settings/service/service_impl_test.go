package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/nordleads/leadflow/internal/clock"
	"github.com/nordleads/leadflow/internal/settings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.LeadSettings{}))

	fake := clock.NewFakeClock(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))
	svc := New(Params{DB: db, Log: zap.NewNop(), Clock: fake})
	return svc, db
}

func TestSnapshotDefaultsWhenUnseeded(t *testing.T) {
	svc, _ := newTestService(t)

	settings, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, settings.AutoDistribute)
	assert.False(t, settings.GloballyPaused)
}

func TestSnapshotReadsSeededRow(t *testing.T) {
	svc, db := newTestService(t)
	require.NoError(t, db.Create(&domain.LeadSettings{
		ID:             domain.SingletonID,
		AutoDistribute: false,
		GloballyPaused: true,
	}).Error)

	settings, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.False(t, settings.AutoDistribute)
	assert.True(t, settings.GloballyPaused)
}

func TestUpdateAppliesPartialChanges(t *testing.T) {
	svc, _ := newTestService(t)
	paused := true

	settings, err := svc.Update(context.Background(), domain.UpdateRequest{GloballyPaused: &paused})
	require.NoError(t, err)
	assert.True(t, settings.GloballyPaused)
	// Untouched field keeps its default.
	assert.True(t, settings.AutoDistribute)

	// The write sticks for the next snapshot.
	snapshot, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, snapshot.GloballyPaused)
	assert.True(t, snapshot.AutoDistribute)
}

func TestUpdateCreatesSingletonOnFirstWrite(t *testing.T) {
	svc, db := newTestService(t)
	auto := false

	_, err := svc.Update(context.Background(), domain.UpdateRequest{AutoDistribute: &auto})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&domain.LeadSettings{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var row domain.LeadSettings
	require.NoError(t, db.First(&row, domain.SingletonID).Error)
	assert.False(t, row.AutoDistribute)
}
