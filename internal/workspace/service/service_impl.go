package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/smallbiznis/billdesk/internal/workspace/domain"
	"github.com/smallbiznis/billdesk/pkg/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Directory {
	return &Service{
		log:  p.Log.Named("workspace.directory"),
		repo: p.Repo,
	}
}

func (s *Service) WithTx(tx *gorm.DB) domain.Directory {
	return &Service{log: s.log, repo: s.repo.WithTx(tx)}
}

func (s *Service) EnsureWorkspace(ctx context.Context, workspaceID snowflake.ID) error {
	ws, err := s.repo.FindWorkspace(ctx, workspaceID)
	if err != nil {
		return errs.Persistence(err, "find workspace")
	}
	if ws == nil {
		return domain.ErrWorkspaceNotFound
	}
	return nil
}

func (s *Service) EnsureClient(ctx context.Context, workspaceID, clientID snowflake.ID) error {
	client, err := s.repo.FindClient(ctx, workspaceID, clientID)
	if err != nil {
		return errs.Persistence(err, "find client")
	}
	if client == nil {
		return domain.ErrClientNotFound
	}
	return nil
}

func (s *Service) EnsureBiller(ctx context.Context, billerID snowflake.ID) error {
	biller, err := s.repo.FindBiller(ctx, billerID)
	if err != nil {
		return errs.Persistence(err, "find biller")
	}
	if biller == nil {
		return domain.ErrBillerNotFound
	}
	return nil
}

func (s *Service) Services(ctx context.Context, workspaceID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]*domain.Service, error) {
	ids = lo.Uniq(ids)
	if len(ids) == 0 {
		return map[snowflake.ID]*domain.Service{}, nil
	}

	services, err := s.repo.FindServices(ctx, workspaceID, ids)
	if err != nil {
		return nil, errs.Persistence(err, "find services")
	}

	byID := lo.KeyBy(services, func(svc *domain.Service) snowflake.ID { return svc.ID })
	if missing := lo.Filter(ids, func(id snowflake.ID, _ int) bool {
		_, ok := byID[id]
		return !ok
	}); len(missing) > 0 {
		s.log.Debug("unknown services referenced",
			zap.String("workspace_id", workspaceID.String()),
			zap.Int("missing", len(missing)),
		)
		return nil, domain.ErrServiceNotFound
	}
	return byID, nil
}
