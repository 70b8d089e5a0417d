package server

import (
	"net/http"
	"strings"

	closingdomain "github.com/clinicore/ledger/internal/closing/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) GetDailySummary(c *gin.Context) {
	date := strings.TrimSpace(c.Param("date"))

	summary, err := s.closingSvc.GetDailySummary(c.Request.Context(), date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) CloseDay(c *gin.Context) {
	var req closingdomain.CloseDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.Date = strings.TrimSpace(c.Param("date"))

	closing, err := s.closingSvc.CloseDay(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": closing})
}
