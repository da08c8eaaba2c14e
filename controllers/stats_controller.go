package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/board/services"
	"github.com/cppla/board/utils"
)

// StatsController provides board statistics.
type StatsController struct {
	stats *services.StatsService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(stats *services.StatsService) *StatsController {
	return &StatsController{stats: stats}
}

// GetStats returns counts of active users, posts, comments and likes.
func (s *StatsController) GetStats(ctx *gin.Context) {
	st, err := s.stats.Totals(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, 50060, "failed to load stats")
		return
	}
	utils.Success(ctx, st)
}
