package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/coursehub/internal/actorctx"
	"github.com/geocoder89/coursehub/internal/domain/course"
	"github.com/geocoder89/coursehub/internal/domain/enrollment"
	"github.com/geocoder89/coursehub/internal/domain/identity"
	"github.com/geocoder89/coursehub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

var student = actorctx.Principal{ID: 7, Email: "sue@example.com", Role: identity.RoleStudent}

// setupRouter mounts one handler behind a fake auth step that injects p.
func setupRouter(method, path string, p *actorctx.Principal, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Handle(method, path, func(c *gin.Context) {
		c.Set("request_id", "req-1")
		if p != nil {
			c.Request = c.Request.WithContext(actorctx.WithPrincipal(c.Request.Context(), *p))
		}
		c.Next()
	}, h)
	return r
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
		Details   struct {
			JSON   string                `json:"json"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}
	return resp
}

type fakeEnroller struct {
	enrollFn   func(ctx context.Context, courseID int64, p actorctx.Principal) (enrollment.Enrollment, error)
	unenrollFn func(ctx context.Context, courseID int64, p actorctx.Principal) error
}

func (f *fakeEnroller) Enroll(ctx context.Context, courseID int64, p actorctx.Principal) (enrollment.Enrollment, error) {
	if f.enrollFn != nil {
		return f.enrollFn(ctx, courseID, p)
	}
	return enrollment.Enrollment{}, nil
}

func (f *fakeEnroller) Unenroll(ctx context.Context, courseID int64, p actorctx.Principal) error {
	if f.unenrollFn != nil {
		return f.unenrollFn(ctx, courseID, p)
	}
	return nil
}

func TestEnrollHandler(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		principal  *actorctx.Principal
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "created", path: "/courses/3/enroll", principal: &student, wantStatus: http.StatusCreated},
		{name: "already enrolled", path: "/courses/3/enroll", principal: &student, err: enrollment.ErrAlreadyEnrolled, wantStatus: http.StatusConflict, wantCode: "conflict"},
		{name: "course missing", path: "/courses/3/enroll", principal: &student, err: course.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "requester gone", path: "/courses/3/enroll", principal: &student, err: enrollment.ErrRequesterGone, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "store failure", path: "/courses/3/enroll", principal: &student, err: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
		{name: "bad id", path: "/courses/x/enroll", principal: &student, wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
		{name: "no principal", path: "/courses/3/enroll", wantStatus: http.StatusInternalServerError, wantCode: "identity_missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotCourse int64
			h := handlers.NewEnrollmentsHandler(&fakeEnroller{
				enrollFn: func(_ context.Context, courseID int64, p actorctx.Principal) (enrollment.Enrollment, error) {
					gotCourse = courseID
					if tt.err != nil {
						return enrollment.Enrollment{}, tt.err
					}
					return enrollment.Enrollment{ID: 1, StudentID: p.ID, CourseID: courseID}, nil
				},
			})

			r := setupRouter(http.MethodPost, "/courses/:id/enroll", tt.principal, h.Enroll)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantCode != "" {
				resp := decode(t, w)
				if resp.Error.Code != tt.wantCode {
					t.Fatalf("got code %q, want %q", resp.Error.Code, tt.wantCode)
				}
				if resp.Error.RequestID != "req-1" {
					t.Fatalf("missing request id: %s", w.Body.String())
				}
				return
			}
			if gotCourse != 3 {
				t.Fatalf("course id not passed through: %d", gotCourse)
			}
		})
	}
}

func TestErrorMessagesHideInternals(t *testing.T) {
	h := handlers.NewEnrollmentsHandler(&fakeEnroller{
		unenrollFn: func(context.Context, int64, actorctx.Principal) error {
			return enrollment.ErrVanished
		},
	})

	r := setupRouter(http.MethodDelete, "/courses/:id/unenroll", &student, h.Unenroll)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/courses/3/unenroll", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "vanished") {
		t.Fatalf("internal detail leaked: %s", w.Body.String())
	}
}

func TestUnenrollNotEnrolledMessage(t *testing.T) {
	h := handlers.NewEnrollmentsHandler(&fakeEnroller{
		unenrollFn: func(context.Context, int64, actorctx.Principal) error {
			return enrollment.ErrNotEnrolled
		},
	})

	r := setupRouter(http.MethodDelete, "/courses/:id/unenroll", &student, h.Unenroll)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/courses/3/unenroll", nil))

	resp := decode(t, w)
	if w.Code != http.StatusBadRequest || resp.Error.Message != "not enrolled in this course" {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

type fakeCourses struct {
	createFn func(ctx context.Context, req course.CreateCourseRequest, p actorctx.Principal) (course.Course, error)
}

func (f *fakeCourses) Create(ctx context.Context, req course.CreateCourseRequest, p actorctx.Principal) (course.Course, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req, p)
	}
	return course.Course{}, nil
}

func (f *fakeCourses) Update(context.Context, int64, course.UpdateCourseRequest, actorctx.Principal) (course.Course, error) {
	return course.Course{}, nil
}

func (f *fakeCourses) Delete(context.Context, int64, actorctx.Principal) error { return nil }

type fakeReader struct {
	views []course.View
}

func (f *fakeReader) ListVisible(context.Context, actorctx.Principal) ([]course.View, error) {
	return f.views, nil
}

func (f *fakeReader) FindOne(context.Context, int64, actorctx.Principal) (course.View, error) {
	return course.View{}, course.ErrNotFound
}

func TestCreateCourseHandler(t *testing.T) {
	instructor := actorctx.Principal{ID: 2, Role: identity.RoleInstructor}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantFields map[string]string
		wantJSON   string
	}{
		{name: "valid", body: `{"title":"Go 101","description":"Intro"}`, wantStatus: http.StatusCreated},
		{name: "short title", body: `{"title":"Go","description":"Intro"}`, wantStatus: http.StatusBadRequest, wantFields: map[string]string{"title": "min"}},
		{name: "missing fields", body: `{}`, wantStatus: http.StatusBadRequest, wantFields: map[string]string{"title": "required", "description": "required"}},
		{name: "bad json", body: `{"title":`, wantStatus: http.StatusBadRequest},
		{name: "wrong type", body: `{"title":5,"description":"x"}`, wantStatus: http.StatusBadRequest, wantJSON: "invalid_json_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var owner int64
			h := handlers.NewCoursesHandler(&fakeCourses{
				createFn: func(_ context.Context, req course.CreateCourseRequest, p actorctx.Principal) (course.Course, error) {
					owner = p.ID
					return course.Course{ID: 1, OwnerID: p.ID, Title: req.Title, Description: req.Description}, nil
				},
			}, &fakeReader{})

			r := setupRouter(http.MethodPost, "/courses", &instructor, h.CreateCourse)
			req := httptest.NewRequest(http.MethodPost, "/courses", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus == http.StatusCreated {
				if owner != instructor.ID {
					t.Fatalf("owner not taken from principal: %d", owner)
				}
				return
			}

			resp := decode(t, w)
			if resp.Error.Code != "invalid_request" {
				t.Fatalf("unexpected code %q", resp.Error.Code)
			}
			if tt.wantJSON != "" && resp.Error.Details.JSON != tt.wantJSON {
				t.Fatalf("got json detail %q, want %q", resp.Error.Details.JSON, tt.wantJSON)
			}
			got := map[string]string{}
			for _, f := range resp.Error.Details.Fields {
				got[f.Field] = f.Rule
			}
			for field, rule := range tt.wantFields {
				if got[field] != rule {
					t.Fatalf("field %s: got rule %q, want %q (all=%v)", field, got[field], rule, got)
				}
			}
		})
	}
}

func TestListAndGetCourseHandlers(t *testing.T) {
	views := []course.View{{Course: course.Course{ID: 3, Title: "Go"}, Enrollments: []course.EnrollmentView{}}}
	h := handlers.NewCoursesHandler(&fakeCourses{}, &fakeReader{views: views})

	r := setupRouter(http.MethodGet, "/courses", &student, h.ListCourses)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/courses", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}
	var list struct {
		Count int           `json:"count"`
		Items []course.View `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 1 || list.Items[0].ID != 3 {
		t.Fatalf("unexpected list %s", w.Body.String())
	}

	r = setupRouter(http.MethodGet, "/courses/:id", &student, h.GetCourse)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/courses/3", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d", w.Code)
	}
}

type pingFn func(ctx context.Context) error

func (f pingFn) Ping(ctx context.Context) error { return f(ctx) }

func TestReadyz(t *testing.T) {
	down := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"postgres": pingFn(func(context.Context) error { return nil }),
		"redis":    pingFn(func(context.Context) error { return errors.New("connection refused") }),
	}, nil)

	r := gin.New()
	r.GET("/readyz", down.Readyz)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "connection refused") {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestReadyzWhileShuttingDown(t *testing.T) {
	var draining bool
	h := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"postgres": pingFn(func(context.Context) error { return nil }),
	}, func() bool { return draining })

	r := gin.New()
	r.GET("/readyz", h.Readyz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("got %d before shutdown", w.Code)
	}

	draining = true
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "shutting_down") {
		t.Fatalf("got %d %s during shutdown", w.Code, w.Body.String())
	}
}
