package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/coursehub/internal/actorctx"
	"github.com/geocoder89/coursehub/internal/config"
	"github.com/geocoder89/coursehub/internal/domain/enrollment"
	"github.com/gin-gonic/gin"
)

type Enroller interface {
	Enroll(ctx context.Context, courseID int64, p actorctx.Principal) (enrollment.Enrollment, error)
	Unenroll(ctx context.Context, courseID int64, p actorctx.Principal) error
}

type EnrollmentsHandler struct {
	enroller Enroller
}

func NewEnrollmentsHandler(e Enroller) *EnrollmentsHandler {
	return &EnrollmentsHandler{enroller: e}
}

func (h *EnrollmentsHandler) Enroll(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	e, err := h.enroller.Enroll(cctx, courseID, p)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, e)
}

func (h *EnrollmentsHandler) Unenroll(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.enroller.Unenroll(cctx, courseID, p); err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
