// Package authz answers one question for every entry point: may this
// identity perform this action on this resource?
package authz

import (
	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/models"
)

// Identity is the request-scoped caller. It is built by the auth middleware
// (or the pipeline middleware) and passed explicitly into every service call.
type Identity struct {
	UserID string
	Role   models.Role
}

// Pipeline is the identity used by scheduled jobs authenticated with the
// pipeline API key. It carries manager rights but no user record.
func Pipeline() Identity {
	return Identity{Role: models.RoleManager}
}

// System is the identity used by operator tooling such as ledgerctl. It
// carries admin rights but no user record.
func System() Identity {
	return Identity{Role: models.RoleAdmin}
}

// IsAnonymous reports whether the identity carries no role at all.
func (i Identity) IsAnonymous() bool {
	return i.Role == ""
}

// IsUnattended reports whether the identity belongs to a scheduled job or
// operator tool rather than a signed-in user.
func (i Identity) IsUnattended() bool {
	return i.UserID == "" && i.Role != ""
}

// ActorID returns the user id as a nullable reference for audit columns.
func (i Identity) ActorID() *string {
	if i.UserID == "" {
		return nil
	}
	id := i.UserID
	return &id
}

// IsCollector reports whether the caller is a cash collector.
func (i Identity) IsCollector() bool {
	return i.Role == models.RoleCashCollector
}

// Action names an operation guarded by the capability table.
type Action string

const (
	ActionManageUsers        Action = "users:manage"
	ActionViewTasks          Action = "tasks:view"
	ActionManageTasks        Action = "tasks:manage"
	ActionCreateBook         Action = "books:create"
	ActionAssignBook         Action = "books:assign"
	ActionCloseBook          Action = "books:close"
	ActionEditBookRange      Action = "books:edit_range"
	ActionViewBook           Action = "books:view"
	ActionIssueReceipt       Action = "receipts:issue"
	ActionEditReceipt        Action = "receipts:edit"
	ActionViewReceipts       Action = "receipts:view"
	ActionManageExpenseTypes Action = "expense_types:manage"
	ActionRecordExpense      Action = "expenses:record"
	ActionViewExpenses       Action = "expenses:view"
	ActionViewFinancials     Action = "reports:financials"
	ActionPublishReport      Action = "reports:publish"
	ActionViewPublished      Action = "reports:published"
)

// scope describes how far a role's permission for an action reaches.
type scope int

const (
	scopeNone scope = iota
	// scopeOwn allows the action only on resources held by the caller.
	scopeOwn
	scopeAll
)

var (
	staff     = map[models.Role]scope{models.RoleAdmin: scopeAll, models.RoleManager: scopeAll}
	everyone  = map[models.Role]scope{models.RoleAdmin: scopeAll, models.RoleManager: scopeAll, models.RoleCashCollector: scopeAll}
	ownership = map[models.Role]scope{models.RoleAdmin: scopeAll, models.RoleManager: scopeAll, models.RoleCashCollector: scopeOwn}
)

var capabilities = map[Action]map[models.Role]scope{
	ActionManageUsers:        {models.RoleAdmin: scopeAll},
	ActionViewTasks:          everyone,
	ActionManageTasks:        staff,
	ActionCreateBook:         staff,
	ActionAssignBook:         staff,
	ActionCloseBook:          staff,
	ActionEditBookRange:      staff,
	ActionViewBook:           ownership,
	ActionIssueReceipt:       ownership,
	ActionEditReceipt:        staff,
	ActionViewReceipts:       ownership,
	ActionManageExpenseTypes: staff,
	ActionRecordExpense:      staff,
	ActionViewExpenses:       staff,
	ActionViewFinancials:     staff,
	ActionPublishReport:      staff,
}

// Resource carries the ownership facts a decision may depend on.
type Resource struct {
	// OwnerID is the user currently holding the resource, e.g. a book's assignee.
	OwnerID *string
}

// Own returns a Resource held by ownerID (nil for unassigned resources).
func Own(ownerID *string) Resource {
	return Resource{OwnerID: ownerID}
}

// Can reports whether id may perform action on res.
func Can(id Identity, action Action, res Resource) bool {
	if action == ActionViewPublished {
		return true
	}
	if id.IsAnonymous() {
		return false
	}
	switch capabilities[action][id.Role] {
	case scopeAll:
		return true
	case scopeOwn:
		return res.OwnerID != nil && id.UserID != "" && *res.OwnerID == id.UserID
	default:
		return false
	}
}

// IsScoped reports whether id only sees its own resources for action, which
// list queries use to add an ownership filter.
func IsScoped(id Identity, action Action) bool {
	return capabilities[action][id.Role] == scopeOwn
}

// Authorize returns nil when Can allows the action and an AppError otherwise.
func Authorize(id Identity, action Action, res Resource) error {
	if Can(id, action, res) {
		return nil
	}
	if id.IsAnonymous() {
		return apperrors.ErrUnauthorized
	}
	return apperrors.ErrForbidden
}

// Require checks an action that does not depend on resource ownership.
func Require(id Identity, action Action) error {
	if IsScoped(id, action) {
		// Ownership-scoped roles may call the action; services narrow the data.
		return nil
	}
	return Authorize(id, action, Resource{})
}
