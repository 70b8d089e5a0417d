package server

import (
	"net/http"
	"strconv"

	analyticsdomain "github.com/clinicore/ledger/internal/analytics/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) GetRevenue(c *gin.Context) {
	var req analyticsdomain.RangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	report, err := s.analyticsSvc.Revenue(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) GetMonthlyTrend(c *gin.Context) {
	months := 0
	if raw := c.Query("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		months = parsed
	}

	trend, err := s.analyticsSvc.MonthlyTrend(c.Request.Context(), months)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": trend})
}

func (s *Server) GetForecast(c *gin.Context) {
	forecast, err := s.analyticsSvc.Forecast(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": forecast})
}

func (s *Server) GetARAging(c *gin.Context) {
	report, err := s.analyticsSvc.ARAging(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) GetProfitAndLoss(c *gin.Context) {
	var req analyticsdomain.RangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	pnl, err := s.analyticsSvc.ProfitAndLoss(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": pnl})
}
