package httpapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LaythSaleem/student-attendance-system-sub003/internal/apperr"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/auth"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/httpapi"
)

const (
	testKey    = "handler-test-key"
	testIssuer = "attendance-test"
)

// fakeDirectory grants teacher-a ownership of class-a only.
type fakeDirectory struct{}

func (fakeDirectory) ClassOwner(_ context.Context, classID string) (string, error) {
	if classID == "class-a" {
		return "teacher-a", nil
	}
	return "", apperr.NotFound("class not found")
}

func (fakeDirectory) StudentForUser(_ context.Context, userID string) (string, error) {
	return "", apperr.NotFound("no student record for user")
}

func (fakeDirectory) Enrolled(context.Context, string, string) (bool, error) { return false, nil }

func (fakeDirectory) ClassesOwnedBy(context.Context, string) ([]string, error) { return nil, nil }

// newRouter builds a router with only the pieces the middleware path
// needs; requests that pass the gates are not exercised here.
func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := &httpapi.Handler{Guard: auth.NewGuard(fakeDirectory{})}
	h.Register(r, testKey, testIssuer)
	return r
}

func tokenFor(t *testing.T, userID string, role auth.Role) string {
	t.Helper()
	token, _, err := auth.Issue(userID, userID+"@school.example", role, testIssuer, testKey, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func doRequest(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// TestProtectedRoute_MissingToken verifies protected routes return 401
// without a bearer token.
func TestProtectedRoute_MissingToken(t *testing.T) {
	r := newRouter(t)

	rec := doRequest(r, http.MethodGet, "/v1/attendance", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unauthorized") {
		t.Errorf("expected unauthorized code in body, got %s", rec.Body.String())
	}
}

// TestProtectedRoute_InvalidToken verifies a bad token is rejected with
// the same response as a missing one.
func TestProtectedRoute_InvalidToken(t *testing.T) {
	r := newRouter(t)

	rec := doRequest(r, http.MethodGet, "/v1/attendance", "garbage.token.here", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

// TestProtectedRoute_ExpiredToken verifies an expired token is
// indistinguishable from an invalid one at the boundary.
func TestProtectedRoute_ExpiredToken(t *testing.T) {
	r := newRouter(t)
	token, _, err := auth.Issue("teacher-a", "a@school.example", auth.RoleTeacher, testIssuer, testKey, -time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	rec := doRequest(r, http.MethodGet, "/v1/attendance", token, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

// TestCapabilityGate verifies role capability enforcement per route.
func TestCapabilityGate(t *testing.T) {
	r := newRouter(t)

	cases := []struct {
		name   string
		method string
		path   string
		role   auth.Role
		want   int
	}{
		{"student cannot record", http.MethodPost, "/v1/attendance", auth.RoleStudent, http.StatusForbidden},
		{"student cannot read reports", http.MethodGet, "/v1/reports", auth.RoleStudent, http.StatusForbidden},
		{"teacher cannot delete", http.MethodDelete, "/v1/attendance/some-id", auth.RoleTeacher, http.StatusForbidden},
		{"teacher cannot manage users", http.MethodPost, "/v1/users", auth.RoleTeacher, http.StatusForbidden},
		{"student cannot upload", http.MethodPost, "/v1/uploads", auth.RoleStudent, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(r, tc.method, tc.path, tokenFor(t, "caller", tc.role), "")
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d (body %s)", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

// TestRecordAttendance_BadPayload verifies binding failures surface as
// 400 with the stable error shape.
func TestRecordAttendance_BadPayload(t *testing.T) {
	r := newRouter(t)
	token := tokenFor(t, "admin-1", auth.RoleAdmin)

	rec := doRequest(r, http.MethodPost, "/v1/attendance", token, `{"student_id": "s1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "validation") {
		t.Errorf("expected validation code in body, got %s", rec.Body.String())
	}

	rec = doRequest(r, http.MethodPost, "/v1/attendance", token,
		`{"student_id": "s1", "class_id": "c1", "status": "present", "session_date": "09-03-2026"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date format, got %d", rec.Code)
	}
}

// TestLogin_BadPayload verifies the login handler rejects malformed
// bodies before touching credentials.
func TestLogin_BadPayload(t *testing.T) {
	r := newRouter(t)

	rec := doRequest(r, http.MethodPost, "/v1/sessions", "", `{"email": "x@y.z"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

// TestReportFilter_BadStatus verifies query validation on the shared
// filter parser.
func TestReportFilter_BadStatus(t *testing.T) {
	r := newRouter(t)
	token := tokenFor(t, "admin-1", auth.RoleAdmin)

	rec := doRequest(r, http.MethodGet, "/v1/reports?status=vanished", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d (body %s)", rec.Code, rec.Body.String())
	}
}
