package qrcode

import (
	"github.com/esani/pantportal/internal/qrcode/service"
	"go.uber.org/fx"
)

var Module = fx.Module("qrcode.service",
	fx.Provide(service.NewService),
)
