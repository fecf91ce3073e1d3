package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/coursehub/internal/actorctx"
	"github.com/geocoder89/coursehub/internal/config"
	"github.com/geocoder89/coursehub/internal/domain/course"
	"github.com/gin-gonic/gin"
)

type CourseWriter interface {
	Create(ctx context.Context, req course.CreateCourseRequest, p actorctx.Principal) (course.Course, error)
	Update(ctx context.Context, id int64, req course.UpdateCourseRequest, p actorctx.Principal) (course.Course, error)
	Delete(ctx context.Context, id int64, p actorctx.Principal) error
}

type CourseReader interface {
	ListVisible(ctx context.Context, p actorctx.Principal) ([]course.View, error)
	FindOne(ctx context.Context, courseID int64, p actorctx.Principal) (course.View, error)
}

type CoursesHandler struct {
	writer CourseWriter
	reader CourseReader
}

func NewCoursesHandler(w CourseWriter, r CourseReader) *CoursesHandler {
	return &CoursesHandler{writer: w, reader: r}
}

func (h *CoursesHandler) CreateCourse(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}

	var req course.CreateCourseRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	c, err := h.writer.Create(cctx, req, p)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, c)
}

func (h *CoursesHandler) ListCourses(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	views, err := h.reader.ListVisible(cctx, p)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": views,
		"count": len(views),
	})
}

func (h *CoursesHandler) GetCourse(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	v, err := h.reader.FindOne(cctx, id, p)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, v)
}

func (h *CoursesHandler) UpdateCourse(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	var req course.UpdateCourseRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	c, err := h.writer.Update(cctx, id, req, p)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, c)
}

func (h *CoursesHandler) DeleteCourse(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.writer.Delete(cctx, id, p); err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
