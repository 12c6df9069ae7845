package bag

import (
	"go.uber.org/fx"

	"github.com/esani/pantportal/internal/bag/service"
)

var Module = fx.Module("bag",
	fx.Provide(
		service.NewService,
	),
)
