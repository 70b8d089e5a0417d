package server

import (
	"net/http"

	legacydomain "github.com/clinicore/ledger/internal/legacyimport/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ImportLegacyData(c *gin.Context) {
	var req legacydomain.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.legacySvc.Import(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
