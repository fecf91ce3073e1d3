package handlers

import (
	"net/http"
	"strconv"

	"github.com/geocoder89/coursehub/internal/actorctx"
	"github.com/gin-gonic/gin"
)

func pathID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(ctx, "id must be a positive integer", gin.H{"id": ctx.Param("id")})
		return 0, false
	}
	return id, true
}

// principal is only absent when a route was mounted without the auth gate.
func principal(ctx *gin.Context) (actorctx.Principal, bool) {
	p, ok := actorctx.PrincipalFrom(ctx.Request.Context())
	if !ok {
		RespondError(ctx, http.StatusInternalServerError, "identity_missing", "Missing identity context", nil)
	}
	return p, ok
}
