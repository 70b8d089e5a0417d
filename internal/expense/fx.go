package expense

import (
	"github.com/clinicore/ledger/internal/expense/service"
	"go.uber.org/fx"
)

// Module provides the expense ledger service.
var Module = fx.Module("expense",
	fx.Provide(service.NewService),
)
