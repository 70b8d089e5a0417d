package closing

import (
	"github.com/clinicore/ledger/internal/closing/service"
	"go.uber.org/fx"
)

// Module provides the daily closing service.
var Module = fx.Module("closing",
	fx.Provide(service.NewService),
)
