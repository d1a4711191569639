package job

import (
	"github.com/smallbiznis/crewpay/internal/job/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("job",
	fx.Provide(repository.New),
)
