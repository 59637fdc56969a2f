package workspace

import (
	"github.com/smallbiznis/billdesk/internal/workspace/repository"
	"github.com/smallbiznis/billdesk/internal/workspace/service"
	"go.uber.org/fx"
)

var Module = fx.Module("workspace.directory",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
