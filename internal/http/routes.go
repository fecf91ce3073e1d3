package http

import (
	"fmt"

	"github.com/geocoder89/coursehub/internal/domain/identity"
)

// RouteID names one authenticated endpoint in RouteRoles.
type RouteID string

const (
	RouteCreateCourse RouteID = "courses.create"
	RouteListCourses  RouteID = "courses.list"
	RouteGetCourse    RouteID = "courses.get"
	RouteUpdateCourse RouteID = "courses.update"
	RouteDeleteCourse RouteID = "courses.delete"
	RouteEnroll       RouteID = "courses.enroll"
	RouteUnenroll     RouteID = "courses.unenroll"
	RouteListUsers    RouteID = "users.list"
	RouteGetUser      RouteID = "users.get"
	RouteUpdateUser   RouteID = "users.update"
	RouteDeleteUser   RouteID = "users.delete"
)

var (
	everyone   = []identity.Role{identity.RoleStudent, identity.RoleInstructor, identity.RoleAdmin}
	staff      = []identity.Role{identity.RoleInstructor, identity.RoleAdmin}
	adminsOnly = []identity.Role{identity.RoleAdmin}
)

// RouteRoles is the allow-list checked by the role gate. Self-or-admin rules
// on /users/:id live in the accounts service.
var RouteRoles = map[RouteID][]identity.Role{
	RouteCreateCourse: staff,
	RouteListCourses:  everyone,
	RouteGetCourse:    everyone,
	RouteUpdateCourse: staff,
	RouteDeleteCourse: staff,
	RouteEnroll:       everyone,
	RouteUnenroll:     everyone,
	RouteListUsers:    adminsOnly,
	RouteGetUser:      everyone,
	RouteUpdateUser:   everyone,
	RouteDeleteUser:   everyone,
}

// rolesFor panics on an unknown route so a missing entry fails at startup
// rather than on the first request.
func rolesFor(id RouteID) []identity.Role {
	roles, ok := RouteRoles[id]
	if !ok || len(roles) == 0 {
		panic(fmt.Sprintf("http: no role allow-list for route %q", id))
	}
	return roles
}
