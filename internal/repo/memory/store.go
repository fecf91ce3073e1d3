package memory

import (
	"sync"

	"github.com/geocoder89/coursehub/internal/domain/course"
	"github.com/geocoder89/coursehub/internal/domain/enrollment"
	"github.com/geocoder89/coursehub/internal/domain/identity"
)

type enrollmentKey struct {
	studentID int64
	courseID  int64
}

// DB is an in-process stand-in for the Postgres schema. One lock guards all
// tables so the unique and foreign-key rules hold the same way they do in
// the database, including ON DELETE CASCADE.
type DB struct {
	mu sync.RWMutex

	seq         int64
	identities  map[int64]identity.Credential
	courses     map[int64]course.Course
	enrollments map[enrollmentKey]enrollment.Enrollment
}

func New() *DB {
	return &DB{
		identities:  make(map[int64]identity.Credential),
		courses:     make(map[int64]course.Course),
		enrollments: make(map[enrollmentKey]enrollment.Enrollment),
	}
}

func (d *DB) nextID() int64 {
	d.seq++
	return d.seq
}

func (d *DB) Identities() *IdentitiesRepo   { return &IdentitiesRepo{db: d} }
func (d *DB) Courses() *CoursesRepo         { return &CoursesRepo{db: d} }
func (d *DB) Enrollments() *EnrollmentsRepo { return &EnrollmentsRepo{db: d} }

// dropCourse must be called with mu held.
func (d *DB) dropCourse(id int64) {
	delete(d.courses, id)
	for k := range d.enrollments {
		if k.courseID == id {
			delete(d.enrollments, k)
		}
	}
}
