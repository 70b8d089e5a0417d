package writeoff

import (
	"github.com/clinicore/ledger/internal/writeoff/service"
	"go.uber.org/fx"
)

// Module provides the write-off service.
var Module = fx.Module("writeoff",
	fx.Provide(service.NewService),
)
