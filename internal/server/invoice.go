package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	writeoffdomain "github.com/clinicore/ledger/internal/writeoff/domain"
	"github.com/gin-gonic/gin"
)

type invoiceDetail struct {
	invoicedomain.Invoice
	Payments  []paymentdomain.Payment   `json:"payments"`
	WriteOffs []writeoffdomain.WriteOff `json:"write_offs"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	item, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var req invoicedomain.ListInvoiceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Invoices, "page_info": resp.PageInfo})
}

// GetInvoiceByID returns the invoice with its line items, payments,
// and write-offs, the shape document rendering consumes.
func (s *Server) GetInvoiceByID(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	item, err := s.invoiceSvc.GetByID(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payments, err := s.paymentSvc.ListByInvoice(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	writeOffs, err := s.writeOffSvc.ListByInvoice(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoiceDetail{
		Invoice:   item,
		Payments:  payments,
		WriteOffs: writeOffs,
	}})
}

func (s *Server) CancelInvoice(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.invoiceSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) MarkInvoicesOverdue(c *gin.Context) {
	count, err := s.invoiceSvc.MarkOverdue(c.Request.Context(), s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"marked_overdue": count}})
}

func pathID(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		return 0, ErrInvalidRequest
	}
	return id, nil
}
