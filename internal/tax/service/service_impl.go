package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/smallbiznis/billdesk/internal/clock"
	"github.com/smallbiznis/billdesk/internal/observability/logger"
	"github.com/smallbiznis/billdesk/internal/observability/metrics"
	taxdomain "github.com/smallbiznis/billdesk/internal/tax/domain"
	workspacedomain "github.com/smallbiznis/billdesk/internal/workspace/domain"
	"github.com/smallbiznis/billdesk/pkg/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      taxdomain.Repository
	Directory workspacedomain.Directory
	Clock     clock.Clock      `optional:"true"`
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      taxdomain.Repository
	directory workspacedomain.Directory
	clock     clock.Clock
	metrics   *metrics.Metrics
}

func NewService(p Params) taxdomain.Service {
	if p.Clock == nil {
		p.Clock = clock.System{}
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("tax.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		directory: p.Directory,
		clock:     p.Clock,
		metrics:   p.Metrics,
	}
}

func (s *Service) WithTx(tx *gorm.DB) taxdomain.Service {
	if tx == nil {
		return s
	}
	clone := *s
	clone.db = tx
	clone.repo = s.repo.WithTx(tx)
	clone.directory = s.directory.WithTx(tx)
	return &clone
}

func (s *Service) GetByIDs(ctx context.Context, workspaceID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]taxdomain.Tax, error) {
	ids = lo.Uniq(lo.Compact(ids))
	if workspaceID == 0 || len(ids) == 0 {
		return map[snowflake.ID]taxdomain.Tax{}, nil
	}

	items, err := s.repo.FindByIDs(ctx, workspaceID, ids)
	if err != nil {
		return nil, errs.Persistence(err, "find taxes")
	}
	return lo.KeyBy(items, func(t taxdomain.Tax) snowflake.ID { return t.ID }), nil
}

func (s *Service) ListByWorkspace(ctx context.Context, workspaceID snowflake.ID) ([]taxdomain.Tax, error) {
	if workspaceID == 0 {
		return nil, taxdomain.ErrInvalidWorkspace
	}
	items, err := s.repo.List(ctx, workspaceID)
	if err != nil {
		return nil, errs.Persistence(err, "list taxes")
	}
	if items == nil {
		items = []taxdomain.Tax{}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, workspaceID, id snowflake.ID) (taxdomain.Tax, error) {
	if workspaceID == 0 {
		return taxdomain.Tax{}, taxdomain.ErrInvalidWorkspace
	}
	if id == 0 {
		return taxdomain.Tax{}, taxdomain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, workspaceID, id)
	if err != nil {
		return taxdomain.Tax{}, errs.Persistence(err, "find tax")
	}
	if item == nil {
		return taxdomain.Tax{}, taxdomain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Create(ctx context.Context, req taxdomain.CreateRequest) (tax taxdomain.Tax, err error) {
	defer func() { s.metrics.RecordTaxOperation(ctx, "create", err) }()

	if req.WorkspaceID == 0 {
		return taxdomain.Tax{}, taxdomain.ErrInvalidWorkspace
	}
	if err := s.directory.EnsureWorkspace(ctx, req.WorkspaceID); err != nil {
		return taxdomain.Tax{}, err
	}

	now := s.clock.Now()
	record := taxdomain.Tax{
		ID:          s.genID.Generate(),
		WorkspaceID: req.WorkspaceID,
		Name:        strings.TrimSpace(req.Name),
		Percentage:  req.Percentage,
		IsDefault:   req.IsDefault,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := record.Validate(); err != nil {
		return taxdomain.Tax{}, err
	}

	if err := s.repo.Insert(ctx, &record); err != nil {
		return taxdomain.Tax{}, errs.Persistence(err, "insert tax")
	}

	logger.WithContext(ctx, s.log).Info("tax created",
		zap.String("workspace_id", record.WorkspaceID.String()),
		zap.String("tax_id", record.ID.String()),
	)
	return record, nil
}

// Update edits the definition only. Invoice lines keep the name and
// percentage captured when they were written.
func (s *Service) Update(ctx context.Context, req taxdomain.UpdateRequest) (tax taxdomain.Tax, err error) {
	defer func() { s.metrics.RecordTaxOperation(ctx, "update", err) }()

	item, err := s.Get(ctx, req.WorkspaceID, req.ID)
	if err != nil {
		return taxdomain.Tax{}, err
	}

	if req.Name != nil {
		item.Name = strings.TrimSpace(*req.Name)
	}
	if req.Percentage != nil {
		item.Percentage = *req.Percentage
	}
	if req.IsDefault != nil {
		item.IsDefault = *req.IsDefault
	}
	item.UpdatedAt = s.clock.Now()
	if err := item.Validate(); err != nil {
		return taxdomain.Tax{}, err
	}

	if err := s.repo.Update(ctx, &item); err != nil {
		return taxdomain.Tax{}, errs.Persistence(err, "update tax")
	}
	return item, nil
}

func (s *Service) Delete(ctx context.Context, workspaceID, id snowflake.ID) (err error) {
	defer func() { s.metrics.RecordTaxOperation(ctx, "delete", err) }()

	if workspaceID == 0 {
		return taxdomain.ErrInvalidWorkspace
	}
	if id == 0 {
		return taxdomain.ErrInvalidID
	}

	affected, err := s.repo.Delete(ctx, workspaceID, id)
	if err != nil {
		return errs.Persistence(err, "delete tax")
	}
	if affected == 0 {
		return taxdomain.ErrNotFound
	}

	logger.WithContext(ctx, s.log).Info("tax deleted",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("tax_id", id.String()),
	)
	return nil
}
