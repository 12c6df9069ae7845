package machine

import (
	"github.com/esani/pantportal/internal/machine/service"
	"go.uber.org/fx"
)

var Module = fx.Module("machine.service",
	fx.Provide(service.NewService),
)
