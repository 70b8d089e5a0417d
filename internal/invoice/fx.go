package invoice

import (
	"github.com/clinicore/ledger/internal/invoice/service"
	"go.uber.org/fx"
)

// Module provides the invoice service.
var Module = fx.Module("invoice",
	fx.Provide(service.NewService),
)
