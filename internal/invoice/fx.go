package invoice

import (
	"github.com/smallbiznis/billdesk/internal/invoice/render"
	"github.com/smallbiznis/billdesk/internal/invoice/repository"
	"github.com/smallbiznis/billdesk/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(render.NewRenderer),
	fx.Provide(service.NewService),
)
