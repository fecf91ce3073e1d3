package enrollment

import (
	"fmt"
	"time"

	"github.com/geocoder89/coursehub/internal/apperr"
)

// Enrollment is binary presence of a student in a course. There is no
// update; it is inserted by enroll and deleted by unenroll.
type Enrollment struct {
	ID         int64     `json:"id"`
	StudentID  int64     `json:"studentId"`
	CourseID   int64     `json:"courseId"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

var (
	ErrNotFound        = fmt.Errorf("%w: enrollment not found", apperr.ErrNotFound)
	ErrAlreadyEnrolled = fmt.Errorf("%w: already enrolled in this course", apperr.ErrConflict)
	ErrNotEnrolled     = fmt.Errorf("%w: not enrolled in this course", apperr.ErrBadRequest)
	ErrRequesterGone   = fmt.Errorf("%w: your account no longer exists", apperr.ErrBadRequest)
	// ErrVanished is returned when a delete affected no rows after the
	// existence check succeeded, i.e. a concurrent unenroll won.
	ErrVanished = fmt.Errorf("%w: enrollment vanished during unenroll", apperr.ErrInternal)
)

func New(studentID, courseID int64) Enrollment {
	return Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		EnrolledAt: time.Now().UTC(),
	}
}
