package commission

import (
	"github.com/smallbiznis/crewpay/internal/commission/repository"
	"github.com/smallbiznis/crewpay/internal/commission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commission.service",
	fx.Provide(repository.New),
	fx.Provide(service.NewService),
)
