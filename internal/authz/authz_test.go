package authz_test

import (
	"testing"

	. "ledgerbook/internal/authz"
	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/models"
	"ledgerbook/internal/testutil"
)

func ptr(s string) *string { return &s }

func TestCan(t *testing.T) {
	admin := Identity{UserID: "a", Role: models.RoleAdmin}
	manager := Identity{UserID: "m", Role: models.RoleManager}
	collector := Identity{UserID: "c", Role: models.RoleCashCollector}
	anonymous := Identity{}

	tests := []struct {
		name   string
		id     Identity
		action Action
		res    Resource
		want   bool
	}{
		{"admin_manages_users", admin, ActionManageUsers, Resource{}, true},
		{"manager_cannot_manage_users", manager, ActionManageUsers, Resource{}, false},
		{"manager_creates_book", manager, ActionCreateBook, Resource{}, true},
		{"collector_cannot_create_book", collector, ActionCreateBook, Resource{}, false},
		{"collector_cannot_assign_book", collector, ActionAssignBook, Resource{}, false},
		{"collector_issues_on_own_book", collector, ActionIssueReceipt, Own(ptr("c")), true},
		{"collector_cannot_issue_on_other_book", collector, ActionIssueReceipt, Own(ptr("x")), false},
		{"collector_cannot_issue_on_unassigned_book", collector, ActionIssueReceipt, Own(nil), false},
		{"manager_issues_on_any_book", manager, ActionIssueReceipt, Own(ptr("x")), true},
		{"admin_issues_on_unassigned_book", admin, ActionIssueReceipt, Own(nil), true},
		{"collector_cannot_edit_receipt", collector, ActionEditReceipt, Own(ptr("c")), false},
		{"collector_cannot_view_financials", collector, ActionViewFinancials, Resource{}, false},
		{"collector_cannot_publish", collector, ActionPublishReport, Resource{}, false},
		{"manager_publishes", manager, ActionPublishReport, Resource{}, true},
		{"collector_views_tasks", collector, ActionViewTasks, Resource{}, true},
		{"anonymous_views_published", anonymous, ActionViewPublished, Resource{}, true},
		{"anonymous_cannot_view_receipts", anonymous, ActionViewReceipts, Own(ptr("")), false},
		{"pipeline_publishes", Pipeline(), ActionPublishReport, Resource{}, true},
		{"pipeline_cannot_manage_users", Pipeline(), ActionManageUsers, Resource{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Can(tt.id, tt.action, tt.res); got != tt.want {
				t.Errorf("Can(%s, %s) = %v, want %v", tt.id.Role, tt.action, got, tt.want)
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	t.Run("forbidden_for_wrong_role", func(t *testing.T) {
		err := Authorize(Identity{UserID: "c", Role: models.RoleCashCollector}, ActionPublishReport, Resource{})
		testutil.AssertAppError(t, err, "FORBIDDEN")
		if apperrors.KindOf(err) != apperrors.KindAuthorization {
			t.Errorf("expected authorization kind, got %s", apperrors.KindOf(err))
		}
	})

	t.Run("unauthorized_for_anonymous", func(t *testing.T) {
		err := Authorize(Identity{}, ActionViewReceipts, Resource{})
		testutil.AssertAppError(t, err, "UNAUTHORIZED")
	})

	t.Run("allowed", func(t *testing.T) {
		testutil.AssertNoError(t, Authorize(Identity{UserID: "a", Role: models.RoleAdmin}, ActionManageUsers, Resource{}))
	})
}

func TestRequire(t *testing.T) {
	collector := Identity{UserID: "c", Role: models.RoleCashCollector}

	testutil.AssertNoError(t, Require(collector, ActionViewReceipts))
	testutil.AssertAppError(t, Require(collector, ActionViewExpenses), "FORBIDDEN")

	if !IsScoped(collector, ActionViewBook) {
		t.Error("expected collectors to be scoped to their own books")
	}
	if IsScoped(Identity{UserID: "m", Role: models.RoleManager}, ActionViewBook) {
		t.Error("expected managers to see every book")
	}
}
