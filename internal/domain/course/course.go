package course

import (
	"fmt"
	"time"

	"github.com/geocoder89/coursehub/internal/apperr"
	"github.com/geocoder89/coursehub/internal/domain/enrollment"
	"github.com/geocoder89/coursehub/internal/domain/identity"
)

type Course struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

var ErrNotFound = fmt.Errorf("%w: course not found", apperr.ErrNotFound)

type CreateCourseRequest struct {
	Title       string `json:"title" binding:"required,min=3,max=120"`
	Description string `json:"description" binding:"required,max=2000"`
}

// UpdateCourseRequest is a partial update; at least one field must be set.
type UpdateCourseRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=3,max=120"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

func (r UpdateCourseRequest) IsEmpty() bool {
	return (r.Title == nil || *r.Title == "") && (r.Description == nil || *r.Description == "")
}

// EnrollmentView is one roster line of a course.
type EnrollmentView struct {
	enrollment.Enrollment
	Student identity.View `json:"student"`
}

// View is a course as returned to a particular viewer. Admins get the full
// roster in Enrollments; everyone else gets only their own line.
type View struct {
	Course
	Owner       identity.View    `json:"owner"`
	Enrollments []EnrollmentView `json:"enrollments"`
}
