package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billdesk/internal/clock"
	"github.com/smallbiznis/billdesk/internal/config"
	"github.com/smallbiznis/billdesk/internal/invoice/calculator"
	invoicedomain "github.com/smallbiznis/billdesk/internal/invoice/domain"
	"github.com/smallbiznis/billdesk/internal/invoice/format"
	"github.com/smallbiznis/billdesk/internal/observability/logger"
	"github.com/smallbiznis/billdesk/internal/observability/metrics"
	taxdomain "github.com/smallbiznis/billdesk/internal/tax/domain"
	workspacedomain "github.com/smallbiznis/billdesk/internal/workspace/domain"
	"github.com/smallbiznis/billdesk/pkg/db"
	"github.com/smallbiznis/billdesk/pkg/db/pagination"
	"github.com/smallbiznis/billdesk/pkg/errs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      invoicedomain.Repository
	Taxes     taxdomain.Service
	Directory workspacedomain.Directory
	Config    *config.InvoicingConfigHolder
	Clock     clock.Clock                `optional:"true"`
	Locker    invoicedomain.SerialLocker `optional:"true"`
	Metrics   *metrics.Metrics           `optional:"true"`
}

// Service is the invoice aggregator. Every write runs in one transaction
// that replaces the invoice lines and recomputes the header totals.
type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      invoicedomain.Repository
	taxes     taxdomain.Service
	directory workspacedomain.Directory
	cfg       *config.InvoicingConfigHolder
	clock     clock.Clock
	locker    invoicedomain.SerialLocker
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

func NewService(p ServiceParam) invoicedomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		taxes:     p.Taxes,
		directory: p.Directory,
		cfg:       p.Config,
		clock:     clk,
		locker:    p.Locker,
		metrics:   p.Metrics,
		tracer:    otel.Tracer("billdesk/invoice"),
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (detail invoicedomain.InvoiceDetail, err error) {
	ctx, span := s.start(ctx, "create", req.WorkspaceID)
	defer func() { s.finish(ctx, span, "create", err) }()

	if req.WorkspaceID == 0 {
		return invoicedomain.InvoiceDetail{}, invoicedomain.ErrInvalidWorkspace
	}
	cfg := s.cfg.Get()
	if err := checkLineCount(len(req.Lines), cfg, true); err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}
	if req.SerialNumber != nil && *req.SerialNumber <= 0 {
		return invoicedomain.InvoiceDetail{}, invoicedomain.ErrInvalidSerial
	}

	now := s.clock.Now()
	issueDate := dateOrDefault(req.IssueDate, clock.Today(s.clock))
	dueDate := dateOrDefault(req.DueDate, issueDate.AddDate(0, 0, cfg.DefaultDueDays))
	if dueDate.Before(issueDate) {
		return invoicedomain.InvoiceDetail{}, invoicedomain.ErrInvalidDueDate
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = cfg.DefaultTitle
	}

	invoice := invoicedomain.Invoice{
		ID:            s.genID.Generate(),
		WorkspaceID:   req.WorkspaceID,
		ClientID:      req.ClientID,
		BillerID:      req.BillerID,
		Title:         title,
		PoSoNumber:    strings.TrimSpace(req.PoSoNumber),
		IssueDate:     issueDate,
		DueDate:       dueDate,
		Description:   strings.TrimSpace(req.Description),
		Subtotal:      decimal.Zero,
		PayableAmount: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if req.SerialNumber == nil && s.locker != nil {
		unlock, err := s.locker.LockSerial(ctx, req.WorkspaceID)
		if err != nil {
			return invoicedomain.InvoiceDetail{}, err
		}
		defer unlock()
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		directory := s.directory.WithTx(tx)
		repo := s.repo.WithTx(tx)

		if err := directory.EnsureWorkspace(ctx, invoice.WorkspaceID); err != nil {
			return err
		}
		if err := directory.EnsureClient(ctx, invoice.WorkspaceID, invoice.ClientID); err != nil {
			return err
		}
		if err := directory.EnsureBiller(ctx, invoice.BillerID); err != nil {
			return err
		}

		if req.SerialNumber != nil {
			invoice.SerialNumber = *req.SerialNumber
		} else {
			next, err := repo.NextSerialNumber(ctx, invoice.WorkspaceID)
			if err != nil {
				return errs.Persistence(err, "next serial number")
			}
			invoice.SerialNumber = next
		}

		if err := repo.InsertInvoice(ctx, &invoice); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return invoicedomain.ErrSerialNumberTaken
			}
			return errs.Persistence(err, "insert invoice")
		}

		return s.replaceLines(ctx, tx, &invoice, req.Lines, now)
	})
	if err != nil {
		return invoicedomain.InvoiceDetail{}, errs.Persistence(err, "create invoice")
	}

	s.metrics.RecordLineItems(ctx, "create", len(req.Lines))
	logger.WithContext(ctx, s.log).Info("invoice created",
		zap.String("workspace_id", invoice.WorkspaceID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.Int64("serial_number", invoice.SerialNumber),
		zap.Int("lines", len(req.Lines)),
	)

	return s.load(ctx, s.repo, invoice.WorkspaceID, invoice.ID)
}

// Update replaces all lines of the invoice and patches the header. Concurrent
// updates of one invoice are not serialized; the last commit wins.
func (s *Service) Update(ctx context.Context, req invoicedomain.UpdateInvoiceRequest) (detail invoicedomain.InvoiceDetail, err error) {
	ctx, span := s.start(ctx, "update", req.WorkspaceID)
	defer func() { s.finish(ctx, span, "update", err) }()

	if req.WorkspaceID == 0 {
		return invoicedomain.InvoiceDetail{}, invoicedomain.ErrInvalidWorkspace
	}
	if req.ID == 0 {
		return invoicedomain.InvoiceDetail{}, invoicedomain.ErrInvalidInvoiceID
	}
	if err := checkLineCount(len(req.Lines), s.cfg.Get(), false); err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		invoice, err := repo.FindInvoice(ctx, req.WorkspaceID, req.ID)
		if err != nil {
			return errs.Persistence(err, "find invoice")
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}

		if err := applyHeaderPatch(invoice, req); err != nil {
			return err
		}
		invoice.UpdatedAt = now
		if err := repo.UpdateHeader(ctx, invoice); err != nil {
			return errs.Persistence(err, "update invoice header")
		}

		// Editing an invoice re-opens it unless the caller says otherwise.
		invoice.IsPaid = lo.FromPtrOr(req.IsPaid, false)
		switch {
		case !invoice.IsPaid:
			invoice.PaidAt = nil
		case invoice.PaidAt == nil:
			invoice.PaidAt = lo.ToPtr(now)
		}

		return s.replaceLines(ctx, tx, invoice, req.Lines, now)
	})
	if err != nil {
		return invoicedomain.InvoiceDetail{}, errs.Persistence(err, "update invoice")
	}

	s.metrics.RecordLineItems(ctx, "update", len(req.Lines))
	logger.WithContext(ctx, s.log).Info("invoice updated",
		zap.String("workspace_id", req.WorkspaceID.String()),
		zap.String("invoice_id", req.ID.String()),
		zap.Int("lines", len(req.Lines)),
	)

	return s.load(ctx, s.repo, req.WorkspaceID, req.ID)
}

func (s *Service) Get(ctx context.Context, workspaceID, invoiceID snowflake.ID) (detail invoicedomain.InvoiceDetail, err error) {
	ctx, span := s.start(ctx, "get", workspaceID)
	defer func() { s.finish(ctx, span, "get", err) }()

	if err := validateIDs(workspaceID, invoiceID); err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}
	return s.load(ctx, s.repo, workspaceID, invoiceID)
}

// Delete removes the invoice together with its lines and their attachments.
func (s *Service) Delete(ctx context.Context, workspaceID, invoiceID snowflake.ID) (err error) {
	ctx, span := s.start(ctx, "delete", workspaceID)
	defer func() { s.finish(ctx, span, "delete", err) }()

	if err := validateIDs(workspaceID, invoiceID); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		invoice, err := repo.FindInvoice(ctx, workspaceID, invoiceID)
		if err != nil {
			return errs.Persistence(err, "find invoice")
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if err := repo.DeleteLines(ctx, invoiceID); err != nil {
			return errs.Persistence(err, "delete invoice lines")
		}
		if _, err := repo.DeleteInvoice(ctx, workspaceID, invoiceID); err != nil {
			return errs.Persistence(err, "delete invoice")
		}
		return nil
	})
	if err != nil {
		return errs.Persistence(err, "delete invoice")
	}

	logger.WithContext(ctx, s.log).Info("invoice deleted",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("invoice_id", invoiceID.String()),
	)
	return nil
}

// MarkAsPaid flags the invoice as paid. Paying twice keeps the first paid_at.
func (s *Service) MarkAsPaid(ctx context.Context, workspaceID, invoiceID snowflake.ID) (invoice invoicedomain.Invoice, err error) {
	ctx, span := s.start(ctx, "mark_paid", workspaceID)
	defer func() { s.finish(ctx, span, "mark_paid", err) }()

	if err := validateIDs(workspaceID, invoiceID); err != nil {
		return invoicedomain.Invoice{}, err
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.FindInvoice(ctx, workspaceID, invoiceID)
		if err != nil {
			return errs.Persistence(err, "find invoice")
		}
		if found == nil {
			return invoicedomain.ErrInvoiceNotFound
		}

		if err := repo.MarkPaid(ctx, &invoicedomain.Invoice{
			ID:          invoiceID,
			WorkspaceID: workspaceID,
			PaidAt:      &now,
			UpdatedAt:   now,
		}); err != nil {
			return errs.Persistence(err, "mark invoice paid")
		}

		found, err = repo.FindInvoice(ctx, workspaceID, invoiceID)
		if err != nil {
			return errs.Persistence(err, "find invoice")
		}
		if found == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		invoice = *found
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, errs.Persistence(err, "mark invoice paid")
	}
	return invoice, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (resp invoicedomain.ListInvoiceResponse, err error) {
	ctx, span := s.start(ctx, "list", req.WorkspaceID)
	defer func() { s.finish(ctx, span, "list", err) }()

	if req.WorkspaceID == 0 {
		return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidWorkspace
	}

	limit := req.Size()
	filter := invoicedomain.ListFilter{
		IsPaid:   req.IsPaid,
		ClientID: req.ClientID,
		Limit:    limit + 1,
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPageToken
		}
		if _, err := snowflake.ParseString(cursor.ID); err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPageToken
		}
		filter.After = cursor
	}

	items, err := s.repo.ListInvoices(ctx, req.WorkspaceID, filter)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, errs.Persistence(err, "list invoices")
	}

	items, pageInfo, err := pagination.BuildCursorPageInfo(items, limit, func(inv *invoicedomain.Invoice) pagination.Cursor {
		return pagination.Cursor{ID: inv.ID.String()}
	})
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}
	return invoicedomain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

func (s *Service) Summary(ctx context.Context, workspaceID, invoiceID snowflake.ID) (summary []invoicedomain.TaxSummaryLine, err error) {
	ctx, span := s.start(ctx, "summary", workspaceID)
	defer func() { s.finish(ctx, span, "summary", err) }()

	if err := validateIDs(workspaceID, invoiceID); err != nil {
		return nil, err
	}

	invoice, err := s.repo.FindInvoice(ctx, workspaceID, invoiceID)
	if err != nil {
		return nil, errs.Persistence(err, "find invoice")
	}
	if invoice == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}

	lines, err := s.repo.ListLines(ctx, invoiceID)
	if err != nil {
		return nil, errs.Persistence(err, "list invoice lines")
	}
	return Summarize(lines), nil
}

// replaceLines deletes the current lines of invoice, prices and writes the
// requested ones and stores the new totals. It must run inside tx.
func (s *Service) replaceLines(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, inputs []invoicedomain.LineInput, now time.Time) error {
	repo := s.repo.WithTx(tx)

	for i, in := range inputs {
		if in.ServiceID == 0 {
			return errors.Wrapf(invoicedomain.ErrInvalidLineItem, "line %d: service is required", i+1)
		}
	}
	services, err := s.directory.WithTx(tx).Services(ctx, invoice.WorkspaceID,
		lo.Map(inputs, func(in invoicedomain.LineInput, _ int) snowflake.ID { return in.ServiceID }))
	if err != nil {
		return err
	}

	taxes, err := s.taxes.WithTx(tx).GetByIDs(ctx, invoice.WorkspaceID,
		lo.FlatMap(inputs, func(in invoicedomain.LineInput, _ int) []snowflake.ID { return in.TaxIDs }))
	if err != nil {
		return err
	}
	percentages := lo.MapValues(taxes, func(t taxdomain.Tax, _ snowflake.ID) decimal.Decimal { return t.Percentage })

	if err := repo.DeleteLines(ctx, invoice.ID); err != nil {
		return errs.Persistence(err, "delete invoice lines")
	}

	results := make([]calculator.Result, 0, len(inputs))
	for i, in := range inputs {
		res, err := calculator.Compute(in.UnitPrice, in.Quantity, in.TaxIDs, percentages)
		if err != nil {
			return errors.Wrapf(err, "line %d", i+1)
		}

		code := strings.TrimSpace(in.Code)
		if code == "" {
			code = services[in.ServiceID].Code
		}
		line := invoicedomain.InvoiceLine{
			ID:            s.genID.Generate(),
			WorkspaceID:   invoice.WorkspaceID,
			InvoiceID:     invoice.ID,
			ServiceID:     in.ServiceID,
			Position:      i + 1,
			Date:          datePtr(in.Date),
			Code:          code,
			UnitPrice:     in.UnitPrice,
			Quantity:      in.Quantity,
			Amount:        res.Subtotal,
			TaxPercentage: res.TaxPercentage,
			CreatedAt:     now,
		}
		if err := repo.InsertLine(ctx, &line); err != nil {
			return errs.Persistence(err, "insert invoice line")
		}

		attachments := lo.Map(res.AppliedTaxIDs, func(taxID snowflake.ID, _ int) invoicedomain.InvoiceLineTax {
			return invoicedomain.InvoiceLineTax{
				ID:            s.genID.Generate(),
				InvoiceLineID: line.ID,
				TaxID:         taxID,
				TaxName:       taxes[taxID].Name,
				Percentage:    taxes[taxID].Percentage,
				CreatedAt:     now,
			}
		})
		if err := repo.InsertLineTaxes(ctx, attachments); err != nil {
			return errs.Persistence(err, "insert invoice line taxes")
		}

		results = append(results, res)
	}

	totals := calculator.Sum(results)
	invoice.Subtotal = totals.Subtotal
	invoice.PayableAmount = totals.Payable
	invoice.UpdatedAt = now
	if err := repo.UpdateTotals(ctx, invoice); err != nil {
		return errs.Persistence(err, "update invoice totals")
	}
	return nil
}

func (s *Service) load(ctx context.Context, repo invoicedomain.Repository, workspaceID, invoiceID snowflake.ID) (invoicedomain.InvoiceDetail, error) {
	invoice, err := repo.FindInvoice(ctx, workspaceID, invoiceID)
	if err != nil {
		return invoicedomain.InvoiceDetail{}, errs.Persistence(err, "find invoice")
	}
	if invoice == nil {
		return invoicedomain.InvoiceDetail{}, invoicedomain.ErrInvoiceNotFound
	}

	lines, err := repo.ListLines(ctx, invoiceID)
	if err != nil {
		return invoicedomain.InvoiceDetail{}, errs.Persistence(err, "list invoice lines")
	}

	number, err := format.Number(s.cfg.Get().NumberTemplate, invoice.IssueDate, invoice.SerialNumber)
	if err != nil {
		// A bad template must not hide the invoice.
		logger.WithContext(ctx, s.log).Warn("invoice number not rendered", zap.Error(err))
		number = ""
	}

	return invoicedomain.InvoiceDetail{
		Invoice: *invoice,
		Number:  number,
		Lines:   lines,
		Summary: Summarize(lines),
	}, nil
}

func (s *Service) start(ctx context.Context, op string, workspaceID snowflake.ID) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "invoice."+op)
	span.SetAttributes(attribute.String("workspace_id", workspaceID.String()))
	return ctx, span
}

func (s *Service) finish(ctx context.Context, span trace.Span, op string, err error) {
	if err != nil {
		span.SetAttributes(attribute.String("error.code", errs.Classify(err)))
		span.SetStatus(codes.Error, errs.Reason(err))
	}
	span.End()
	s.metrics.RecordInvoiceOperation(ctx, op, err)
}

func checkLineCount(n int, cfg config.InvoicingConfig, requireOne bool) error {
	if requireOne && n == 0 {
		return invoicedomain.ErrNoLineItems
	}
	if n > cfg.MaxLineItems {
		return invoicedomain.ErrTooManyLineItems
	}
	return nil
}

func applyHeaderPatch(invoice *invoicedomain.Invoice, req invoicedomain.UpdateInvoiceRequest) error {
	if req.Title != nil {
		if title := strings.TrimSpace(*req.Title); title != "" {
			invoice.Title = title
		}
	}
	if req.PoSoNumber != nil {
		invoice.PoSoNumber = strings.TrimSpace(*req.PoSoNumber)
	}
	if req.Description != nil {
		invoice.Description = strings.TrimSpace(*req.Description)
	}
	if req.IssueDate != nil {
		invoice.IssueDate = toDate(*req.IssueDate)
	}
	if req.DueDate != nil {
		invoice.DueDate = toDate(*req.DueDate)
	}
	if toDate(invoice.DueDate).Before(toDate(invoice.IssueDate)) {
		return invoicedomain.ErrInvalidDueDate
	}
	return nil
}

func validateIDs(workspaceID, invoiceID snowflake.ID) error {
	if workspaceID == 0 {
		return invoicedomain.ErrInvalidWorkspace
	}
	if invoiceID == 0 {
		return invoicedomain.ErrInvalidInvoiceID
	}
	return nil
}

// toDate truncates t to its calendar day in UTC.
func toDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateOrDefault(t *time.Time, def time.Time) time.Time {
	if t == nil || t.IsZero() {
		return def
	}
	return toDate(*t)
}

func datePtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	return lo.ToPtr(toDate(*t))
}
