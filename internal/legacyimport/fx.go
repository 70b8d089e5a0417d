package legacyimport

import (
	"github.com/clinicore/ledger/internal/legacyimport/service"
	"go.uber.org/fx"
)

// Module provides the legacy data importer.
var Module = fx.Module("legacyimport",
	fx.Provide(service.NewService),
)
