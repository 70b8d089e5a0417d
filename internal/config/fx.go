package config

import "go.uber.org/fx"

// Module wires application configuration and the reporting timezone.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		ReportingLocation,
	),
)
