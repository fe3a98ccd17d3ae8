package auth

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Account roles known to the engine.
const (
	RoleCitizen  = "citizen"
	RoleDoctor   = "doctor"
	RoleHospital = "hospital"
	RoleMinistry = "ministry"
)

// Action names evaluated by the policy. Keeping them in one table replaces
// the ad hoc role-string comparisons the portal used to scatter across its
// server actions.
const (
	ActionInitRootCA       = "pki:init-root-ca"
	ActionIssueIdentity    = "pki:issue-identity"
	ActionRegisterHospital = "pki:register-hospital"
	ActionSignReport       = "pki:sign-report"
	ActionRequestAccess    = "consent:request"
	ActionListRequests     = "consent:list"
	ActionDecideRequest    = "consent:decide"
	ActionViewGrants       = "consent:view-grants"
	ActionEmergencyAccess  = "emergency:access"
	ActionPatientSearch    = "emergency:search"
	ActionReadAuditLog     = "audit:read"
)

var policyTable = map[string][]string{
	ActionInitRootCA:       {RoleMinistry},
	ActionIssueIdentity:    {RoleMinistry},
	ActionRegisterHospital: {RoleMinistry},
	ActionSignReport:       {RoleDoctor, RoleMinistry},
	ActionRequestAccess:    {RoleDoctor},
	ActionListRequests:     {RoleCitizen},
	ActionDecideRequest:    {RoleCitizen},
	ActionViewGrants:       {RoleCitizen},
	ActionEmergencyAccess:  {RoleDoctor},
	ActionPatientSearch:    {RoleDoctor},
	ActionReadAuditLog:     {RoleMinistry},
}

// Allowed reports whether the given role may perform the action. Unknown
// actions are denied.
func Allowed(role, action string) bool {
	for _, r := range policyTable[action] {
		if r == role {
			return true
		}
	}
	return false
}

// Require returns an error unless the role may perform the action. Services
// with their own role source (the emergency controller reads the caller's
// role from the accounts table, not the token) call this directly.
func Require(role, action string) error {
	if !Allowed(role, action) {
		return fmt.Errorf("%w: role %q may not perform %s", ErrForbidden, role, action)
	}
	return nil
}

// RequirePolicy returns middleware gating a route on the policy table. Every
// privileged route mounts this, so the table is the one place role access is
// decided; ownership checks stay in the services.
func RequirePolicy(action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := RoleFromContext(c.Request().Context())
			if err := Require(role, action); err != nil {
				return echo.NewHTTPError(http.StatusForbidden, err.Error())
			}
			return next(c)
		}
	}
}
