package server

import (
	"net/http"

	writeoffdomain "github.com/clinicore/ledger/internal/writeoff/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateWriteOff(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req writeoffdomain.CreateWriteOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.InvoiceID = id

	writeOff, err := s.writeOffSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": writeOff})
}

func (s *Server) ListInvoiceWriteOffs(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	writeOffs, err := s.writeOffSvc.ListByInvoice(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": writeOffs})
}
