package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/pdftoolkit/utils"
)

// StatsController reports aggregate processing statistics from the operation ledger.
type StatsController struct {
	ledger utils.Ledger
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(ledger utils.Ledger) *StatsController {
	return &StatsController{ledger: ledger}
}

// GetStats returns totals and per-operation counts.
func (s *StatsController) GetStats(ctx *gin.Context) {
	summary, err := s.ledger.Summary(ctx.Request.Context())
	if err != nil {
		utils.L().Sugar().Warnf("stats summary failed: %v", err)
		utils.Fail(ctx, http.StatusInternalServerError, utils.NewToolkitError(utils.CodeInternal, "Failed to load statistics"))
		return
	}
	utils.Success(ctx, gin.H{"stats": summary})
}
