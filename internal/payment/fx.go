package payment

import (
	"github.com/clinicore/ledger/internal/payment/service"
	"go.uber.org/fx"
)

// Module provides the payment ledger service.
var Module = fx.Module("payment",
	fx.Provide(service.NewService),
)
