package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/testutil"
)

func TestExpenseTypes(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewExpenseService(db)
	manager := testutil.IdentityOf(testutil.CreateTestUser(t, db, models.RoleManager))
	collector := testutil.IdentityOf(testutil.CreateTestUser(t, db, models.RoleCashCollector))

	et, err := svc.CreateExpenseType(ctx, manager, "Utilities")
	require.NoError(t, err)

	_, err = svc.CreateExpenseType(ctx, manager, "Utilities")
	testutil.AssertAppError(t, err, "DUPLICATE_EXPENSE_TYPE")

	_, err = svc.CreateExpenseType(ctx, collector, "Food")
	testutil.AssertAppError(t, err, "FORBIDDEN")

	renamed, err := svc.UpdateExpenseType(ctx, manager, et.ID, "Electricity")
	require.NoError(t, err)
	assert.Equal(t, "Electricity", renamed.Name)

	list, err := svc.ListExpenseTypes(ctx, manager, pagination.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.TotalItems)

	_, err = svc.RecordExpense(ctx, manager, RecordExpenseInput{
		ExpenseTypeID: et.ID, Amount: decimal.RequireFromString("10"), Date: time.Now(),
	})
	require.NoError(t, err)

	err = svc.DeleteExpenseType(ctx, manager, et.ID)
	testutil.AssertAppError(t, err, "EXPENSE_TYPE_IN_USE")

	unused, err := svc.CreateExpenseType(ctx, manager, "Unused")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteExpenseType(ctx, manager, unused.ID))
}

func TestRecordExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		manager := testutil.IdentityOf(testutil.CreateTestUser(t, db, models.RoleManager))
		et := testutil.CreateTestExpenseType(t, db)

		expense, err := svc.RecordExpense(ctx, manager, RecordExpenseInput{
			ExpenseTypeID: et.ID,
			Amount:        decimal.RequireFromString("99.999"),
			Description:   " Cement ",
			Date:          time.Now(),
		})
		require.NoError(t, err)
		testutil.AssertDecimal(t, expense.Amount, "100.00")
		assert.Equal(t, "Cement", expense.Description)
		assert.Equal(t, manager.UserID, expense.RecordedByID)

		got, err := svc.GetExpense(ctx, manager, expense.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ExpenseType)
		assert.Equal(t, et.Name, got.ExpenseType.Name)
	})

	t.Run("invalid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		manager := testutil.IdentityOf(testutil.CreateTestUser(t, db, models.RoleManager))
		et := testutil.CreateTestExpenseType(t, db)

		_, err := svc.RecordExpense(ctx, manager, RecordExpenseInput{ExpenseTypeID: et.ID, Amount: decimal.Zero, Date: time.Now()})
		testutil.AssertAppError(t, err, "INVALID_AMOUNT")

		_, err = svc.RecordExpense(ctx, manager, RecordExpenseInput{ExpenseTypeID: et.ID, Amount: decimal.RequireFromString("1000000000000.00"), Date: time.Now()})
		testutil.AssertAppError(t, err, "INVALID_AMOUNT")

		_, err = svc.RecordExpense(ctx, manager, RecordExpenseInput{ExpenseTypeID: et.ID, Amount: decimal.NewFromInt(5)})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.RecordExpense(ctx, manager, RecordExpenseInput{ExpenseTypeID: "0192f5a4-0000-7000-8000-00000000ffff", Amount: decimal.NewFromInt(5), Date: time.Now()})
		testutil.AssertAppError(t, err, "EXPENSE_TYPE_NOT_FOUND")
	})

	t.Run("collector_forbidden", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		collector := testutil.IdentityOf(testutil.CreateTestUser(t, db, models.RoleCashCollector))
		et := testutil.CreateTestExpenseType(t, db)

		_, err := svc.RecordExpense(ctx, collector, RecordExpenseInput{ExpenseTypeID: et.ID, Amount: decimal.NewFromInt(5), Date: time.Now()})
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}

func TestListExpenses(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewExpenseService(db)
	manager := testutil.CreateTestUser(t, db, models.RoleManager)
	food := testutil.CreateTestExpenseType(t, db)
	rent := testutil.CreateTestExpenseType(t, db)

	now := time.Now()
	testutil.CreateTestExpense(t, db, food.ID, "10", now.AddDate(0, 0, -10), manager.ID)
	testutil.CreateTestExpense(t, db, food.ID, "20", now, manager.ID)
	testutil.CreateTestExpense(t, db, rent.ID, "30", now.AddDate(0, 0, -1), manager.ID)

	actor := testutil.IdentityOf(manager)
	resp, err := svc.ListExpenses(ctx, actor, ExpenseFilter{}, pagination.PageRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Data, 3)
	testutil.AssertDecimal(t, resp.Data[0].Amount, "20")
	require.NotNil(t, resp.Data[0].ExpenseType)

	resp, err = svc.ListExpenses(ctx, actor, ExpenseFilter{ExpenseTypeID: &food.ID}, pagination.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.TotalItems)

	from := now.AddDate(0, 0, -5)
	resp, err = svc.ListExpenses(ctx, actor, ExpenseFilter{FromDate: &from}, pagination.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.TotalItems)
}
