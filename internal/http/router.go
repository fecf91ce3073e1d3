package http

import (
	"log/slog"

	"github.com/geocoder89/coursehub/internal/http/handlers"
	"github.com/geocoder89/coursehub/internal/http/middlewares"
	"github.com/geocoder89/coursehub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type AccountService interface {
	handlers.Authenticator
	handlers.UserAdmin
}

type EnrollmentService interface {
	handlers.CourseReader
	handlers.Enroller
}

type Deps struct {
	Log         *slog.Logger
	Env         string
	ServiceName string

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	Tokens      middlewares.TokenVerifier
	Accounts    AccountService
	Courses     handlers.CourseWriter
	Enrollments EnrollmentService
	Health      map[string]handlers.Pinger
	// ShuttingDown flips /readyz to 503 once shutdown starts.
	ShuttingDown func() bool

	CORSAllowedOrigins []string
	MaxBodyBytes       int64
}

func NewRouter(d Deps) *gin.Engine {
	isDev := d.Env == "dev" || d.Env == "test"
	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.ServiceName == "" {
		d.ServiceName = "coursehub"
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(d.ServiceName))
	r.Use(middlewares.SecurityHeaders(!isDev))
	r.Use(middlewares.CORS(d.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(d.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.RequestLogger(d.Log))

	var gate middlewares.GateMetrics
	if d.Prom != nil {
		r.Use(d.Prom.HTTPMiddleware())
		gate = d.Prom
	}
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	health := handlers.NewHealthHandler(d.Health, d.ShuttingDown)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	authH := handlers.NewAuthHandler(d.Accounts)
	r.POST("/auth/register", authH.Register)
	r.POST("/auth/login", authH.Login)

	am := middlewares.NewAuthMiddleware(d.Tokens, gate, d.Log)
	guard := func(id RouteID) []gin.HandlerFunc {
		return []gin.HandlerFunc{am.RequireAuth(), am.RequireRoles(rolesFor(id)...)}
	}
	handle := func(g *gin.RouterGroup, method, path string, id RouteID, h gin.HandlerFunc) {
		g.Handle(method, path, append(guard(id), h)...)
	}

	coursesH := handlers.NewCoursesHandler(d.Courses, d.Enrollments)
	enrollH := handlers.NewEnrollmentsHandler(d.Enrollments)
	courses := r.Group("/courses")
	handle(courses, "POST", "", RouteCreateCourse, coursesH.CreateCourse)
	handle(courses, "GET", "", RouteListCourses, coursesH.ListCourses)
	handle(courses, "GET", "/:id", RouteGetCourse, coursesH.GetCourse)
	handle(courses, "PATCH", "/:id", RouteUpdateCourse, coursesH.UpdateCourse)
	handle(courses, "DELETE", "/:id", RouteDeleteCourse, coursesH.DeleteCourse)
	handle(courses, "POST", "/:id/enroll", RouteEnroll, enrollH.Enroll)
	handle(courses, "DELETE", "/:id/unenroll", RouteUnenroll, enrollH.Unenroll)

	usersH := handlers.NewUsersHandler(d.Accounts)
	users := r.Group("/users")
	handle(users, "GET", "", RouteListUsers, usersH.ListUsers)
	handle(users, "GET", "/:id", RouteGetUser, usersH.GetUser)
	handle(users, "PATCH", "/:id", RouteUpdateUser, usersH.UpdateUser)
	handle(users, "DELETE", "/:id", RouteDeleteUser, usersH.DeleteUser)

	return r
}
