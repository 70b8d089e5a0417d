package audit

import (
	"github.com/clinicore/ledger/internal/audit/service"
	"go.uber.org/fx"
)

// Module provides the audit trail service.
var Module = fx.Module("audit",
	fx.Provide(service.New),
)
