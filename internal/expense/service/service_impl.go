// Package service implements the expense ledger.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/ledger/internal/clock"
	expensedomain "github.com/clinicore/ledger/internal/expense/domain"
	"github.com/clinicore/ledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ServiceParam declares dependencies for the expense service.
type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Location *time.Location
}

// Service implements expensedomain.Service.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	loc   *time.Location
}

// NewService builds the expense service.
func NewService(p ServiceParam) expensedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("expense.service"),
		genID: p.GenID,
		clock: p.Clock,
		loc:   p.Location,
	}
}

// CreateCategory inserts a category; the unique index on name turns a
// duplicate into a Conflict.
func (s *Service) CreateCategory(ctx context.Context, req expensedomain.CreateCategoryRequest) (expensedomain.ExpenseCategory, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return expensedomain.ExpenseCategory{}, expensedomain.ErrCategoryNameRequired
	}

	category := expensedomain.ExpenseCategory{
		ID:        s.genID.Generate(),
		Name:      name,
		CreatedAt: s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return expensedomain.ExpenseCategory{}, expensedomain.ErrCategoryExists
		}
		return expensedomain.ExpenseCategory{}, err
	}
	return category, nil
}

// ListCategories returns every category sorted by name.
func (s *Service) ListCategories(ctx context.Context) ([]expensedomain.ExpenseCategory, error) {
	var categories []expensedomain.ExpenseCategory
	err := s.db.WithContext(ctx).
		Order("name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// CreateExpense records a cost entry against an existing category.
func (s *Service) CreateExpense(ctx context.Context, req expensedomain.CreateExpenseRequest) (expensedomain.Expense, error) {
	if req.Amount <= 0 {
		return expensedomain.Expense{}, expensedomain.ErrAmountNotPositive
	}
	if strings.TrimSpace(req.Description) == "" {
		return expensedomain.Expense{}, expensedomain.ErrDescriptionRequired
	}
	if err := s.categoryExists(ctx, s.db, req.CategoryID); err != nil {
		return expensedomain.Expense{}, err
	}

	incurredAt := req.IncurredAt
	if incurredAt.IsZero() {
		incurredAt = s.clock.Now()
	}

	expense := expensedomain.Expense{
		ID:          s.genID.Generate(),
		CategoryID:  req.CategoryID,
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		IncurredAt:  incurredAt,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&expense).Error; err != nil {
		return expensedomain.Expense{}, err
	}
	return expense, nil
}

// ListExpenses returns entries incurred in [from, to), oldest first.
func (s *Service) ListExpenses(ctx context.Context, from, to time.Time) ([]expensedomain.Expense, error) {
	var expenses []expensedomain.Expense
	err := s.db.WithContext(ctx).
		Where("incurred_at >= ? AND incurred_at < ?", from, to).
		Order("incurred_at ASC, id ASC").
		Find(&expenses).Error
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

// UpsertMonthly matches an expense by (category, month, description) in
// the reporting timezone. A match with a stale amount is corrected in
// place; no match creates a new entry dated to the first of the month.
func (s *Service) UpsertMonthly(ctx context.Context, req expensedomain.UpsertMonthlyRequest) (expensedomain.Expense, error) {
	if req.Amount <= 0 {
		return expensedomain.Expense{}, expensedomain.ErrAmountNotPositive
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return expensedomain.Expense{}, expensedomain.ErrDescriptionRequired
	}

	month := req.Month.In(s.loc)
	monthStart := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, s.loc)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var expense expensedomain.Expense
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.categoryExists(ctx, tx, req.CategoryID); err != nil {
			return err
		}

		err := db.LockForUpdate(tx).
			Where("category_id = ? AND description = ?", req.CategoryID, description).
			Where("incurred_at >= ? AND incurred_at < ?", monthStart, monthEnd).
			First(&expense).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			expense = expensedomain.Expense{
				ID:          s.genID.Generate(),
				CategoryID:  req.CategoryID,
				Description: description,
				Amount:      req.Amount,
				IncurredAt:  monthStart,
				CreatedAt:   s.clock.Now(),
			}
			return tx.Create(&expense).Error
		case err != nil:
			return err
		}

		if expense.Amount == req.Amount {
			return nil
		}
		expense.Amount = req.Amount
		return tx.Model(&expensedomain.Expense{}).
			Where("id = ?", expense.ID).
			Update("amount", req.Amount).Error
	})
	if err != nil {
		return expensedomain.Expense{}, err
	}
	return expense, nil
}

func (s *Service) categoryExists(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	var count int64
	err := tx.WithContext(ctx).
		Model(&expensedomain.ExpenseCategory{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return expensedomain.ErrCategoryNotFound
	}
	return nil
}
