package middlewares_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/coursehub/internal/actorctx"
	"github.com/geocoder89/coursehub/internal/auth"
	"github.com/geocoder89/coursehub/internal/domain/identity"
	"github.com/geocoder89/coursehub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	claims auth.Claims
	err    error
	calls  int
}

func (f *fakeVerifier) Verify(string) (auth.Claims, error) {
	f.calls++
	return f.claims, f.err
}

type rejections map[string]int

func (r rejections) ObserveRejection(stage, reason string) { r[stage+"/"+reason]++ }

type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal body: %v body=%s", err, w.Body.String())
	}
	return body
}

func TestRequireAuth(t *testing.T) {
	valid := auth.Claims{Subject: 7, Email: "sue@example.com", Role: identity.RoleStudent}

	tests := []struct {
		name       string
		header     string
		verifyErr  error
		wantStatus int
		wantReason string
	}{
		{name: "no header", wantStatus: http.StatusUnauthorized, wantReason: "auth/missing_header"},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantReason: "auth/missing_header"},
		{name: "empty token", header: "Bearer    ", wantStatus: http.StatusUnauthorized, wantReason: "auth/missing_token"},
		{name: "malformed", header: "Bearer x", verifyErr: auth.ErrMalformedToken, wantStatus: http.StatusUnauthorized, wantReason: "auth/malformed"},
		{name: "bad signature", header: "Bearer x", verifyErr: auth.ErrBadSignature, wantStatus: http.StatusUnauthorized, wantReason: "auth/bad_signature"},
		{name: "expired", header: "Bearer x", verifyErr: auth.ErrExpired, wantStatus: http.StatusUnauthorized, wantReason: "auth/expired"},
		{name: "valid", header: "Bearer good", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &fakeVerifier{claims: valid, err: tt.verifyErr}
			seen := rejections{}
			m := middlewares.NewAuthMiddleware(v, seen, nil)

			handlerCalled := false
			r := gin.New()
			r.Use(middlewares.RequestID())
			r.GET("/me", m.RequireAuth(), func(c *gin.Context) {
				handlerCalled = true
				p, ok := middlewares.PrincipalFrom(c)
				if !ok {
					t.Fatal("principal missing in handler")
				}
				c.JSON(http.StatusOK, gin.H{"id": p.ID, "role": p.Role})
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus != http.StatusOK {
				if handlerCalled {
					t.Fatal("handler must not run on auth failure")
				}
				body := decodeErr(t, w)
				if body.Error.Code != "unauthorized" {
					t.Fatalf("unexpected code %q", body.Error.Code)
				}
				if body.Error.RequestID == "" {
					t.Fatal("expected requestId in error body")
				}
				if seen[tt.wantReason] != 1 {
					t.Fatalf("expected rejection %s, got %v", tt.wantReason, seen)
				}
				return
			}

			if !strings.Contains(w.Body.String(), `"id":7`) {
				t.Fatalf("unexpected body %s", w.Body.String())
			}
		})
	}
}

func TestRequireAuth_ExistingPrincipalIsKept(t *testing.T) {
	v := &fakeVerifier{claims: auth.Claims{Subject: 99, Role: identity.RoleAdmin}}
	m := middlewares.NewAuthMiddleware(v, nil, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(actorctx.WithPrincipal(c.Request.Context(),
			actorctx.Principal{ID: 7, Role: identity.RoleStudent}))
		c.Next()
	})
	r.GET("/me", m.RequireAuth(), m.RequireAuth(), func(c *gin.Context) {
		p, _ := middlewares.PrincipalFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": p.ID})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"id":7`) {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	if v.calls != 0 {
		t.Fatalf("verifier should not be called, got %d calls", v.calls)
	}
}

func TestRequireRoles(t *testing.T) {
	tests := []struct {
		name       string
		role       identity.Role
		allowed    []identity.Role
		wantStatus int
		wantCode   string
	}{
		{"allowed", identity.RoleInstructor, []identity.Role{identity.RoleInstructor, identity.RoleAdmin}, http.StatusOK, ""},
		{"not allowed", identity.RoleStudent, []identity.Role{identity.RoleInstructor, identity.RoleAdmin}, http.StatusForbidden, "forbidden"},
		{"admin only", identity.RoleInstructor, []identity.Role{identity.RoleAdmin}, http.StatusForbidden, "forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &fakeVerifier{claims: auth.Claims{Subject: 3, Role: tt.role}}
			m := middlewares.NewAuthMiddleware(v, nil, nil)

			r := gin.New()
			r.POST("/courses", m.RequireAuth(), m.RequireRoles(tt.allowed...), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/courses", nil)
			req.Header.Set("Authorization", "Bearer t")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantCode != "" && decodeErr(t, w).Error.Code != tt.wantCode {
				t.Fatalf("unexpected body %s", w.Body.String())
			}
		})
	}
}

func TestRequireRoles_WithoutPrincipalIsServerError(t *testing.T) {
	var logs bytes.Buffer
	seen := rejections{}
	m := middlewares.NewAuthMiddleware(&fakeVerifier{}, seen, slog.New(slog.NewJSONHandler(&logs, nil)))

	r := gin.New()
	r.GET("/users", m.RequireRoles(identity.RoleAdmin), func(c *gin.Context) {
		t.Fatal("handler must not run")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d", w.Code)
	}
	if decodeErr(t, w).Error.Code != "identity_missing" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if !strings.Contains(logs.String(), `"level":"ERROR"`) {
		t.Fatalf("expected error log, got %s", logs.String())
	}
	if seen["role/identity_missing"] != 1 {
		t.Fatalf("expected rejection metric, got %v", seen)
	}
}

func TestRequireAuth_WithRealIssuer(t *testing.T) {
	now := time.Now()
	issuer := auth.NewIssuer("secret", time.Hour, auth.WithClock(func() time.Time { return now }))
	token, err := issuer.Issue(auth.Claims{Subject: 5, Email: "a@example.com", Role: identity.RoleAdmin}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	m := middlewares.NewAuthMiddleware(issuer, nil, nil)
	r := gin.New()
	r.GET("/x", m.RequireAuth(), m.RequireRoles(identity.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d body=%s", w.Code, w.Body.String())
	}

	now = now.Add(2 * time.Minute)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expired token: got status %d", w.Code)
	}
}
