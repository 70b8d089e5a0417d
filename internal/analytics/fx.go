package analytics

import (
	"github.com/clinicore/ledger/internal/analytics/service"
	"go.uber.org/fx"
)

// Module provides the revenue analytics service.
var Module = fx.Module("analytics",
	fx.Provide(service.NewService),
)
