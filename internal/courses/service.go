package courses

import (
	"context"
	"fmt"
	"strings"

	"github.com/geocoder89/coursehub/internal/actorctx"
	"github.com/geocoder89/coursehub/internal/apperr"
	"github.com/geocoder89/coursehub/internal/domain/course"
	"github.com/geocoder89/coursehub/internal/domain/identity"
)

var (
	ErrNoChanges = fmt.Errorf("%w: at least one of title or description must be provided", apperr.ErrValidation)
	ErrNotOwner  = fmt.Errorf("%w: only the course owner or an admin can change this course", apperr.ErrForbidden)
)

type Store interface {
	Create(ctx context.Context, in course.Course) (course.Course, error)
	GetByID(ctx context.Context, id int64) (course.Course, error)
	List(ctx context.Context) ([]course.Course, error)
	ListByStudent(ctx context.Context, studentID int64) ([]course.Course, error)
	Update(ctx context.Context, id int64, req course.UpdateCourseRequest) (course.Course, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, req course.CreateCourseRequest, p actorctx.Principal) (course.Course, error) {
	return s.store.Create(ctx, course.Course{
		OwnerID:     p.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
	})
}

func (s *Service) Update(ctx context.Context, id int64, req course.UpdateCourseRequest, p actorctx.Principal) (course.Course, error) {
	if req.IsEmpty() {
		return course.Course{}, ErrNoChanges
	}
	if err := s.authorize(ctx, id, p); err != nil {
		return course.Course{}, err
	}
	return s.store.Update(ctx, id, req)
}

func (s *Service) Delete(ctx context.Context, id int64, p actorctx.Principal) error {
	if err := s.authorize(ctx, id, p); err != nil {
		return err
	}

	n, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return course.ErrNotFound
	}
	return nil
}

// authorize lets admins change any course and instructors only their own.
func (s *Service) authorize(ctx context.Context, id int64, p actorctx.Principal) error {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if p.IsAdmin() {
		return nil
	}
	if p.Role == identity.RoleInstructor && c.OwnerID == p.ID {
		return nil
	}
	return ErrNotOwner
}
