package deposit

import (
	"go.uber.org/fx"

	"github.com/esani/pantportal/internal/deposit/service"
)

var Module = fx.Module("deposit",
	fx.Provide(
		service.NewService,
	),
)
