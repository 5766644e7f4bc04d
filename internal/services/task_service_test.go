package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/testutil"
)

func TestTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewTaskService(db)
	manager := testutil.IdentityOf(testutil.CreateTestUser(t, db, models.RoleManager))
	collector := testutil.IdentityOf(testutil.CreateTestUser(t, db, models.RoleCashCollector))

	task, err := svc.CreateTask(ctx, manager, "  Construction ", "New hall")
	require.NoError(t, err)
	assert.Equal(t, "Construction", task.Name)

	_, err = svc.CreateTask(ctx, manager, "Construction", "")
	testutil.AssertAppError(t, err, "DUPLICATE_TASK")

	_, err = svc.CreateTask(ctx, manager, " ", "")
	testutil.AssertAppError(t, err, "INVALID_INPUT")

	_, err = svc.CreateTask(ctx, collector, "Festival", "")
	testutil.AssertAppError(t, err, "FORBIDDEN")

	got, err := svc.GetTask(ctx, collector, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	updated, err := svc.UpdateTask(ctx, manager, task.ID, "Hall Construction", "")
	require.NoError(t, err)
	assert.Equal(t, "Hall Construction", updated.Name)
	assert.Equal(t, "New hall", updated.Description)

	list, err := svc.ListTasks(ctx, collector, pagination.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.TotalItems)

	require.NoError(t, svc.DeleteTask(ctx, manager, task.ID))
	_, err = svc.GetTask(ctx, manager, task.ID)
	testutil.AssertAppError(t, err, "TASK_NOT_FOUND")
}

func TestDeleteTaskInUse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewTaskService(db)
	fx := newLedgerFixture(t, db, 1, 10)

	err := svc.DeleteTask(context.Background(), fx.manager, fx.task.ID)
	testutil.AssertAppError(t, err, "TASK_IN_USE")
}
