package server

import (
	"net/http"
	"time"

	closingdomain "github.com/clinicore/ledger/internal/closing/domain"
	expensedomain "github.com/clinicore/ledger/internal/expense/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateExpenseCategory(c *gin.Context) {
	var req expensedomain.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	category, err := s.expenseSvc.CreateCategory(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": category})
}

func (s *Server) ListExpenseCategories(c *gin.Context) {
	categories, err := s.expenseSvc.ListCategories(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": categories})
}

func (s *Server) CreateExpense(c *gin.Context) {
	var req expensedomain.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	expense, err := s.expenseSvc.CreateExpense(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": expense})
}

func (s *Server) ListExpenses(c *gin.Context) {
	from, err := queryDate(c, "from")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	to, err := queryDate(c, "to")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if from.IsZero() || to.IsZero() || to.Before(from) {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	expenses, err := s.expenseSvc.ListExpenses(c.Request.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": expenses})
}

func queryDate(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(closingdomain.DateLayout, raw)
	if err != nil {
		return time.Time{}, ErrInvalidRequest
	}
	return parsed, nil
}
