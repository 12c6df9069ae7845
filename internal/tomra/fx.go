package tomra

import "go.uber.org/fx"

var Module = fx.Module("tomra",
	fx.Provide(
		NewClient,
	),
)
