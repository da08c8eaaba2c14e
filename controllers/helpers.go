package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/board/middleware"
	"github.com/cppla/board/services"
	"github.com/cppla/board/utils"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// respondError writes a service error with its status, or a 500 with fallback code and message.
func respondError(ctx *gin.Context, err error, fallbackCode int, fallbackMsg string) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		utils.Error(ctx, statusFor(svcErr.Kind), svcErr.Code, svcErr.Message)
		return
	}
	utils.Sugar.Errorw(fallbackMsg, "route", ctx.FullPath(), "err", err)
	utils.Error(ctx, http.StatusInternalServerError, fallbackCode, fallbackMsg)
}

func statusFor(kind error) int {
	switch {
	case errors.Is(kind, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(kind, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(kind, services.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parsePagination reads page and limit. Missing values take defaults, limit is capped,
// anything that is not a positive integer is rejected.
func parsePagination(pageStr, limitStr string) (int, int, bool) {
	page, limit := defaultPage, defaultLimit
	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p < 1 {
			return 0, 0, false
		}
		page = p
	}
	if limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 {
			return 0, 0, false
		}
		limit = min(l, maxLimit)
	}
	return page, limit, true
}

func parseID(ctx *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(param), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid "+param)
		return 0, false
	}
	return uint(id), true
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok && id > 0
}

// requireUser returns the authenticated user id or answers 401.
func requireUser(ctx *gin.Context) (uint, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return userID, ok
}
