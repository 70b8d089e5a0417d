package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/ledger/internal/audit/domain"
	"github.com/clinicore/ledger/internal/observability/obsctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Params declares the dependencies for the audit service.
type Params struct {
	fx.In

	DB   *gorm.DB
	Node *snowflake.Node
	Log  *zap.Logger
}

type service struct {
	db   *gorm.DB
	node *snowflake.Node
	log  *zap.Logger
}

// New builds the audit service.
func New(p Params) domain.Service {
	return &service{
		db:   p.DB,
		node: p.Node,
		log:  p.Log.Named("audit.service"),
	}
}

// Record persists an audit log row. Errors are logged and swallowed so
// the caller's transaction is never rolled back by observability.
func (s *service) Record(ctx context.Context, entry domain.Entry) {
	row := domain.AuditLog{
		ID:         s.node.Generate(),
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		ActorID:    entry.ActorID,
		RequestID:  obsctx.RequestIDFromContext(ctx),
		Metadata:   datatypes.JSONMap(entry.Metadata),
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.log.Error("failed to record audit log",
			zap.String("action", string(entry.Action)),
			zap.String("entity_id", entry.EntityID),
			zap.Error(err),
		)
	}
}
