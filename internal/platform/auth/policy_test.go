package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAllowed(t *testing.T) {
	cases := []struct {
		role   string
		action string
		want   bool
	}{
		{RoleMinistry, ActionInitRootCA, true},
		{RoleDoctor, ActionInitRootCA, false},
		{RoleCitizen, ActionInitRootCA, false},
		{RoleMinistry, ActionIssueIdentity, true},
		{RoleHospital, ActionIssueIdentity, false},
		{RoleMinistry, ActionRegisterHospital, true},
		{RoleDoctor, ActionRegisterHospital, false},
		{RoleDoctor, ActionSignReport, true},
		{RoleMinistry, ActionSignReport, true},
		{RoleHospital, ActionSignReport, false},
		{RoleCitizen, ActionSignReport, false},
		{RoleDoctor, ActionRequestAccess, true},
		{RoleCitizen, ActionRequestAccess, false},
		{RoleCitizen, ActionListRequests, true},
		{RoleDoctor, ActionListRequests, false},
		{RoleCitizen, ActionDecideRequest, true},
		{RoleDoctor, ActionDecideRequest, false},
		{RoleCitizen, ActionViewGrants, true},
		{RoleDoctor, ActionViewGrants, false},
		{RoleDoctor, ActionEmergencyAccess, true},
		{RoleMinistry, ActionEmergencyAccess, false},
		{RoleDoctor, ActionPatientSearch, true},
		{RoleCitizen, ActionPatientSearch, false},
		{RoleMinistry, ActionReadAuditLog, true},
		{RoleDoctor, ActionReadAuditLog, false},
		{RoleDoctor, "unknown:action", false},
		{"", ActionSignReport, false},
	}
	for _, tc := range cases {
		if got := Allowed(tc.role, tc.action); got != tc.want {
			t.Errorf("Allowed(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.want)
		}
	}
}

func TestRequire(t *testing.T) {
	if err := Require(RoleMinistry, ActionInitRootCA); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := Require(RoleDoctor, ActionInitRootCA)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestRequirePolicyMiddleware(t *testing.T) {
	e := echo.New()
	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	mw := RequirePolicy(ActionSignReport)

	call := func(role string) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if role != "" {
			ctx := context.WithValue(req.Context(), UserRoleKey, role)
			req = req.WithContext(ctx)
		}
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		return mw(handler)(c)
	}

	if err := call(RoleDoctor); err != nil {
		t.Errorf("doctor should pass: %v", err)
	}
	if err := call(RoleMinistry); err != nil {
		t.Errorf("ministry should pass: %v", err)
	}

	for _, role := range []string{RoleHospital, RoleCitizen, ""} {
		err := call(role)
		var httpErr *echo.HTTPError
		if !errors.As(err, &httpErr) || httpErr.Code != http.StatusForbidden {
			t.Errorf("role %q should get 403, got %v", role, err)
		}
	}
}
