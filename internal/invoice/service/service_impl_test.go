package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billdesk/internal/clock"
	"github.com/smallbiznis/billdesk/internal/config"
	"github.com/smallbiznis/billdesk/internal/invoice/calculator"
	invoicedomain "github.com/smallbiznis/billdesk/internal/invoice/domain"
	"github.com/smallbiznis/billdesk/internal/invoice/repository"
	"github.com/smallbiznis/billdesk/internal/migration"
	"github.com/smallbiznis/billdesk/internal/observability/metrics"
	taxdomain "github.com/smallbiznis/billdesk/internal/tax/domain"
	taxrepo "github.com/smallbiznis/billdesk/internal/tax/repository"
	taxsvc "github.com/smallbiznis/billdesk/internal/tax/service"
	workspacedomain "github.com/smallbiznis/billdesk/internal/workspace/domain"
	workspacerepo "github.com/smallbiznis/billdesk/internal/workspace/repository"
	workspacesvc "github.com/smallbiznis/billdesk/internal/workspace/service"
	"github.com/smallbiznis/billdesk/pkg/db/pagination"
	"github.com/smallbiznis/billdesk/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	svc      invoicedomain.Service
	taxes    taxdomain.Service
	ws       snowflake.ID
	otherWS  snowflake.ID
	client   snowflake.ID
	biller   snowflake.ID
	design   workspacedomain.Service
	hosting  workspacedomain.Service
	foreign  workspacedomain.Service
	vat      taxdomain.Tax
	cityTax  taxdomain.Tax
	stateTax taxdomain.Tax
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{db: db, node: node, clock: clock.NewFakeClock(time.Date(2024, 5, 10, 15, 4, 5, 0, time.UTC))}

	ws := workspacedomain.Workspace{ID: node.Generate(), Name: "Acme"}
	other := workspacedomain.Workspace{ID: node.Generate(), Name: "Globex"}
	biller := workspacedomain.Biller{ID: node.Generate(), Name: "Jo", Email: "jo@acme.test"}
	client := workspacedomain.Client{ID: node.Generate(), WorkspaceID: ws.ID, Name: "Initech"}
	require.NoError(t, db.Create(&ws).Error)
	require.NoError(t, db.Create(&other).Error)
	require.NoError(t, db.Create(&biller).Error)
	require.NoError(t, db.Create(&client).Error)
	f.ws, f.otherWS, f.biller, f.client = ws.ID, other.ID, biller.ID, client.ID

	f.design = workspacedomain.Service{ID: node.Generate(), WorkspaceID: ws.ID, Name: "Design", Code: "DSG", UnitPrice: decimal.RequireFromString("500")}
	f.hosting = workspacedomain.Service{ID: node.Generate(), WorkspaceID: ws.ID, Name: "Hosting", Code: "HST", UnitPrice: decimal.RequireFromString("300")}
	f.foreign = workspacedomain.Service{ID: node.Generate(), WorkspaceID: other.ID, Name: "Consulting", Code: "CNS", UnitPrice: decimal.RequireFromString("100")}
	require.NoError(t, db.Create(&f.design).Error)
	require.NoError(t, db.Create(&f.hosting).Error)
	require.NoError(t, db.Create(&f.foreign).Error)

	log := zap.NewNop()
	directory := workspacesvc.New(workspacesvc.Params{Log: log, Repo: workspacerepo.Provide(db)})
	f.taxes = taxsvc.NewService(taxsvc.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Repo:      taxrepo.NewRepository(db),
		Directory: directory,
		Metrics:   metrics.NewNoop(),
	})
	f.svc = NewService(ServiceParam{
		DB:        db,
		Log:       log,
		GenID:     node,
		Repo:      repository.NewRepository(db),
		Taxes:     f.taxes,
		Directory: directory,
		Config:    config.NewStaticInvoicingConfigHolder(config.DefaultInvoicingConfig()),
		Clock:     f.clock,
		Metrics:   metrics.NewNoop(),
	})

	ctx := context.Background()
	f.vat = f.createTax(t, ctx, "VAT", "10")
	f.cityTax = f.createTax(t, ctx, "City", "5")
	f.stateTax = f.createTax(t, ctx, "State", "5")
	return f
}

func (f *fixture) createTax(t *testing.T, ctx context.Context, name, pct string) taxdomain.Tax {
	t.Helper()
	tax, err := f.taxes.Create(ctx, taxdomain.CreateRequest{
		WorkspaceID: f.ws,
		Name:        name,
		Percentage:  decimal.RequireFromString(pct),
	})
	require.NoError(t, err)
	return tax
}

func (f *fixture) createRequest(lines ...invoicedomain.LineInput) invoicedomain.CreateInvoiceRequest {
	issue := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return invoicedomain.CreateInvoiceRequest{
		WorkspaceID: f.ws,
		ClientID:    f.client,
		BillerID:    f.biller,
		IssueDate:   &issue,
		Lines:       lines,
	}
}

func line(serviceID snowflake.ID, price string, qty int64, taxIDs ...snowflake.ID) invoicedomain.LineInput {
	return invoicedomain.LineInput{
		ServiceID: serviceID,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
		TaxIDs:    taxIDs,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestCreateComputesLinesAndTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	detail, err := f.svc.Create(ctx, f.createRequest(
		line(f.design.ID, "500.00", 1, f.vat.ID),
		line(f.hosting.ID, "300.00", 2, f.cityTax.ID, f.stateTax.ID),
	))
	require.NoError(t, err)

	assertDecimal(t, "1100", detail.Subtotal)
	assertDecimal(t, "1210", detail.PayableAmount)
	assert.False(t, detail.IsPaid)
	assert.Equal(t, int64(1), detail.SerialNumber)
	assert.Equal(t, "INV-000001", detail.Number)
	assert.Equal(t, "Invoice", detail.Title)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), detail.DueDate.UTC())

	require.Len(t, detail.Lines, 2)
	first, second := detail.Lines[0], detail.Lines[1]
	assert.Equal(t, f.design.ID, first.ServiceID)
	assert.Equal(t, "DSG", first.Code)
	assertDecimal(t, "500", first.Amount)
	assertDecimal(t, "10", first.TaxPercentage)
	assertDecimal(t, "550", first.Payable())

	assertDecimal(t, "600", second.Amount)
	assertDecimal(t, "10", second.TaxPercentage)
	assertDecimal(t, "660", second.Payable())
	require.Len(t, second.Taxes, 2)
	assert.Equal(t, f.cityTax.ID, second.Taxes[0].TaxID)
	assert.Equal(t, "City", second.Taxes[0].TaxName)
	assert.Equal(t, f.stateTax.ID, second.Taxes[1].TaxID)

	require.Len(t, detail.Summary, 3)
	assert.Equal(t, f.vat.ID, detail.Summary[0].TaxID)
	assertDecimal(t, "500", detail.Summary[0].AmountOn)
	assertDecimal(t, "50", detail.Summary[0].TaxAmount)
	assertDecimal(t, "30", detail.Summary[1].TaxAmount)
	assertDecimal(t, "30", detail.Summary[2].TaxAmount)
}

func TestCreateDefaultsHeader(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.createRequest(line(f.design.ID, "10", 1))
	req.IssueDate = nil
	req.Title = "  "
	detail, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "Invoice", detail.Title)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), detail.IssueDate.UTC())
	assert.Equal(t, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), detail.DueDate.UTC())
}

func TestCreateIgnoresUnknownAndDuplicateTaxes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	foreignTax, err := f.taxes.Create(ctx, taxdomain.CreateRequest{WorkspaceID: f.otherWS, Name: "Foreign", Percentage: dec("50")})
	require.NoError(t, err)

	detail, err := f.svc.Create(ctx, f.createRequest(
		line(f.design.ID, "500.00", 1, f.vat.ID, f.vat.ID, snowflake.ID(12345), foreignTax.ID),
	))
	require.NoError(t, err)

	require.Len(t, detail.Lines, 1)
	assertDecimal(t, "10", detail.Lines[0].TaxPercentage)
	require.Len(t, detail.Lines[0].Taxes, 1)
	assertDecimal(t, "550", detail.PayableAmount)
}

func TestCreateValidatesRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tooMany := f.createRequest()
	for i := 0; i <= config.DefaultInvoicingConfig().MaxLineItems; i++ {
		tooMany.Lines = append(tooMany.Lines, line(f.design.ID, "1", 1))
	}
	badDue := f.createRequest(line(f.design.ID, "1", 1))
	badDue.DueDate = lo.ToPtr(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	badSerial := f.createRequest(line(f.design.ID, "1", 1))
	badSerial.SerialNumber = lo.ToPtr(int64(0))
	noWorkspace := f.createRequest(line(f.design.ID, "1", 1))
	noWorkspace.WorkspaceID = 0
	unknownClient := f.createRequest(line(f.design.ID, "1", 1))
	unknownClient.ClientID = f.node.Generate()
	otherClient := f.createRequest(line(f.design.ID, "1", 1))
	otherClient.WorkspaceID = f.otherWS
	unknownBiller := f.createRequest(line(f.design.ID, "1", 1))
	unknownBiller.BillerID = f.node.Generate()

	tests := []struct {
		name    string
		req     invoicedomain.CreateInvoiceRequest
		wantErr error
	}{
		{"no lines", f.createRequest(), invoicedomain.ErrNoLineItems},
		{"too many lines", tooMany, invoicedomain.ErrTooManyLineItems},
		{"due before issue", badDue, invoicedomain.ErrInvalidDueDate},
		{"serial not positive", badSerial, invoicedomain.ErrInvalidSerial},
		{"missing workspace", noWorkspace, invoicedomain.ErrInvalidWorkspace},
		{"unknown client", unknownClient, workspacedomain.ErrClientNotFound},
		{"client of another workspace", otherClient, workspacedomain.ErrClientNotFound},
		{"unknown biller", unknownBiller, workspacedomain.ErrBillerNotFound},
		{"missing service", f.createRequest(line(0, "1", 1)), invoicedomain.ErrInvalidLineItem},
		{"service of another workspace", f.createRequest(line(f.foreign.ID, "1", 1)), workspacedomain.ErrServiceNotFound},
		{"negative price", f.createRequest(line(f.design.ID, "-1", 1)), calculator.ErrInvalidUnitPrice},
		{"zero quantity", f.createRequest(line(f.design.ID, "1", 0)), calculator.ErrInvalidQuantity},
		{"negative price is an invalid line", f.createRequest(line(f.design.ID, "-1", 1)), invoicedomain.ErrInvalidLineItem},
		{"zero quantity is an invalid line", f.createRequest(line(f.design.ID, "1", 0)), invoicedomain.ErrInvalidLineItem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateRollsBackOnInvalidLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.createRequest(
		line(f.design.ID, "500.00", 1, f.vat.ID),
		line(f.hosting.ID, "1.005", 1),
	))
	require.ErrorIs(t, err, calculator.ErrInvalidUnitPrice)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidLineItem)
	assert.True(t, errs.IsValidation(err))

	var invoices, lines, attachments int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Count(&invoices).Error)
	require.NoError(t, f.db.Model(&invoicedomain.InvoiceLine{}).Count(&lines).Error)
	require.NoError(t, f.db.Model(&invoicedomain.InvoiceLineTax{}).Count(&attachments).Error)
	assert.Zero(t, invoices)
	assert.Zero(t, lines)
	assert.Zero(t, attachments)
}

func TestCreateAssignsSerialNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.createRequest(line(f.design.ID, "10", 1)))
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, f.createRequest(line(f.design.ID, "10", 1)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.SerialNumber)
	assert.Equal(t, int64(2), second.SerialNumber)

	taken := f.createRequest(line(f.design.ID, "10", 1))
	taken.SerialNumber = lo.ToPtr(int64(2))
	_, err = f.svc.Create(ctx, taken)
	require.ErrorIs(t, err, invoicedomain.ErrSerialNumberTaken)
	assert.True(t, errs.IsConflict(err))

	explicit := f.createRequest(line(f.design.ID, "10", 1))
	explicit.SerialNumber = lo.ToPtr(int64(40))
	detail, err := f.svc.Create(ctx, explicit)
	require.NoError(t, err)
	assert.Equal(t, "INV-000040", detail.Number)
}

func TestUpdateReplacesLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.createRequest(
		line(f.design.ID, "500.00", 1, f.vat.ID),
		line(f.hosting.ID, "300.00", 2, f.cityTax.ID),
	))
	require.NoError(t, err)
	oldLineIDs := lo.Map(created.Lines, func(l invoicedomain.InvoiceLine, _ int) snowflake.ID { return l.ID })

	updated, err := f.svc.Update(ctx, invoicedomain.UpdateInvoiceRequest{
		WorkspaceID: f.ws,
		ID:          created.ID,
		Title:       lo.ToPtr("Retainer"),
		Lines:       []invoicedomain.LineInput{line(f.hosting.ID, "250.00", 4, f.stateTax.ID)},
	})
	require.NoError(t, err)

	assert.Equal(t, "Retainer", updated.Title)
	assert.Equal(t, created.SerialNumber, updated.SerialNumber)
	require.Len(t, updated.Lines, 1)
	assert.NotContains(t, oldLineIDs, updated.Lines[0].ID)
	assertDecimal(t, "1000", updated.Subtotal)
	assertDecimal(t, "1050", updated.PayableAmount)

	var attachments int64
	require.NoError(t, f.db.Model(&invoicedomain.InvoiceLineTax{}).Count(&attachments).Error)
	assert.Equal(t, int64(1), attachments)
}

func TestUpdateWithNoLinesClearsTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.createRequest(line(f.design.ID, "500.00", 1, f.vat.ID)))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, invoicedomain.UpdateInvoiceRequest{WorkspaceID: f.ws, ID: created.ID})
	require.NoError(t, err)

	assert.Empty(t, updated.Lines)
	assert.Empty(t, updated.Summary)
	assertDecimal(t, "0", updated.Subtotal)
	assertDecimal(t, "0", updated.PayableAmount)

	_, err = f.svc.Get(ctx, f.ws, created.ID)
	require.NoError(t, err)
}

func TestUpdateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.createRequest(line(f.design.ID, "500.00", 1, f.vat.ID)))
	require.NoError(t, err)

	req := invoicedomain.UpdateInvoiceRequest{
		WorkspaceID: f.ws,
		ID:          created.ID,
		Lines: []invoicedomain.LineInput{
			line(f.design.ID, "500.00", 1, f.vat.ID),
			line(f.hosting.ID, "300.00", 2, f.cityTax.ID, f.stateTax.ID),
		},
	}
	first, err := f.svc.Update(ctx, req)
	require.NoError(t, err)
	second, err := f.svc.Update(ctx, req)
	require.NoError(t, err)

	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.True(t, first.PayableAmount.Equal(second.PayableAmount))
	require.Len(t, second.Lines, len(first.Lines))
	for i := range first.Lines {
		assert.True(t, first.Lines[i].Amount.Equal(second.Lines[i].Amount))
		assert.True(t, first.Lines[i].TaxPercentage.Equal(second.Lines[i].TaxPercentage))
	}
	require.Len(t, second.Summary, len(first.Summary))
	for i := range first.Summary {
		assert.Equal(t, first.Summary[i].TaxID, second.Summary[i].TaxID)
		assert.True(t, first.Summary[i].TaxAmount.Equal(second.Summary[i].TaxAmount))
	}
}

func TestUpdatePaidFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.createRequest(line(f.design.ID, "10", 1)))
	require.NoError(t, err)

	paid, err := f.svc.Update(ctx, invoicedomain.UpdateInvoiceRequest{
		WorkspaceID: f.ws,
		ID:          created.ID,
		IsPaid:      lo.ToPtr(true),
		Lines:       []invoicedomain.LineInput{line(f.design.ID, "10", 1)},
	})
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.NotNil(t, paid.PaidAt)

	reopened, err := f.svc.Update(ctx, invoicedomain.UpdateInvoiceRequest{
		WorkspaceID: f.ws,
		ID:          created.ID,
		Lines:       []invoicedomain.LineInput{line(f.design.ID, "10", 1)},
	})
	require.NoError(t, err)
	assert.False(t, reopened.IsPaid)
	assert.Nil(t, reopened.PaidAt)
}

func TestUpdateErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.createRequest(line(f.design.ID, "500.00", 1, f.vat.ID)))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, invoicedomain.UpdateInvoiceRequest{WorkspaceID: f.ws, ID: f.node.Generate()})
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

	_, err = f.svc.Update(ctx, invoicedomain.UpdateInvoiceRequest{WorkspaceID: f.otherWS, ID: created.ID})
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

	_, err = f.svc.Update(ctx, invoicedomain.UpdateInvoiceRequest{
		WorkspaceID: f.ws,
		ID:          created.ID,
		DueDate:     lo.ToPtr(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)),
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidDueDate)

	// A failed update leaves the previous lines in place.
	_, err = f.svc.Update(ctx, invoicedomain.UpdateInvoiceRequest{
		WorkspaceID: f.ws,
		ID:          created.ID,
		Lines:       []invoicedomain.LineInput{line(f.design.ID, "10", 1), line(f.design.ID, "10", -1)},
	})
	assert.ErrorIs(t, err, calculator.ErrInvalidQuantity)

	got, err := f.svc.Get(ctx, f.ws, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, created.Lines[0].ID, got.Lines[0].ID)
	assertDecimal(t, "550", got.PayableAmount)
}

func TestTaxSnapshotSurvivesCatalogChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.createRequest(line(f.design.ID, "500.00", 1, f.vat.ID)))
	require.NoError(t, err)

	_, err = f.taxes.Update(ctx, taxdomain.UpdateRequest{
		WorkspaceID: f.ws,
		ID:          f.vat.ID,
		Name:        lo.ToPtr("VAT 2025"),
		Percentage:  lo.ToPtr(dec("20")),
	})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, f.ws, created.ID)
	require.NoError(t, err)
	assertDecimal(t, "10", got.Lines[0].TaxPercentage)
	require.Len(t, got.Summary, 1)
	assert.Equal(t, "VAT", got.Summary[0].Name)
	assertDecimal(t, "10", got.Summary[0].Percentage)
	assertDecimal(t, "50", got.Summary[0].TaxAmount)

	require.NoError(t, f.taxes.Delete(ctx, f.ws, f.vat.ID))
	summary, err := f.svc.Summary(ctx, f.ws, created.ID)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assertDecimal(t, "50", summary[0].TaxAmount)
}

func TestSummaryMatchesTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.createRequest(
		line(f.design.ID, "500.00", 1, f.vat.ID),
		line(f.hosting.ID, "300.00", 2, f.cityTax.ID, f.stateTax.ID),
		line(f.hosting.ID, "120.00", 3, f.vat.ID, f.cityTax.ID),
	))
	require.NoError(t, err)

	summary, err := f.svc.Summary(ctx, f.ws, created.ID)
	require.NoError(t, err)

	tax := lo.Reduce(summary, func(sum decimal.Decimal, s invoicedomain.TaxSummaryLine, _ int) decimal.Decimal {
		return sum.Add(s.TaxAmount)
	}, decimal.Zero)
	assert.True(t, created.Subtotal.Add(tax).Equal(created.PayableAmount))

	_, err = f.svc.Summary(ctx, f.otherWS, created.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
}

func TestGetIsWorkspaceScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.createRequest(line(f.design.ID, "10", 1)))
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, f.otherWS, created.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
	assert.True(t, errs.IsNotFound(err))

	_, err = f.svc.Get(ctx, f.ws, 0)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidInvoiceID)
}

func TestDeleteRemovesInvoiceAndLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.createRequest(line(f.design.ID, "500.00", 1, f.vat.ID)))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.otherWS, created.ID), invoicedomain.ErrInvoiceNotFound)
	require.NoError(t, f.svc.Delete(ctx, f.ws, created.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, f.ws, created.ID), invoicedomain.ErrInvoiceNotFound)

	_, err = f.svc.Get(ctx, f.ws, created.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

	var lines, attachments int64
	require.NoError(t, f.db.Model(&invoicedomain.InvoiceLine{}).Count(&lines).Error)
	require.NoError(t, f.db.Model(&invoicedomain.InvoiceLineTax{}).Count(&attachments).Error)
	assert.Zero(t, lines)
	assert.Zero(t, attachments)
}

func TestMarkAsPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.createRequest(line(f.design.ID, "10", 1)))
	require.NoError(t, err)

	paid, err := f.svc.MarkAsPaid(ctx, f.ws, created.ID)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)

	again, err := f.svc.MarkAsPaid(ctx, f.ws, created.ID)
	require.NoError(t, err)
	assert.True(t, again.IsPaid)
	require.NotNil(t, again.PaidAt)
	assert.True(t, paid.PaidAt.Equal(*again.PaidAt))
}

// unchangedRowsRepository reports a mark-paid update that changes nothing,
// the way MySQL does for a row that is already paid.
type unchangedRowsRepository struct {
	invoicedomain.Repository
}

func (r unchangedRowsRepository) WithTx(tx *gorm.DB) invoicedomain.Repository {
	return unchangedRowsRepository{Repository: r.Repository.WithTx(tx)}
}

func (unchangedRowsRepository) MarkPaid(context.Context, *invoicedomain.Invoice) error {
	return nil
}

func TestMarkAsPaidTwiceWithoutChangedRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.createRequest(line(f.design.ID, "10", 1)))
	require.NoError(t, err)
	paid, err := f.svc.MarkAsPaid(ctx, f.ws, created.ID)
	require.NoError(t, err)

	svc := f.svc.(*Service)
	svc.repo = unchangedRowsRepository{Repository: svc.repo}

	again, err := svc.MarkAsPaid(ctx, f.ws, created.ID)
	require.NoError(t, err)
	assert.True(t, again.IsPaid)
	require.NotNil(t, again.PaidAt)
	assert.True(t, paid.PaidAt.Equal(*again.PaidAt))

	_, err = svc.MarkAsPaid(ctx, f.ws, f.node.Generate())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
}

func TestMarkAsPaidUnknownInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.createRequest(line(f.design.ID, "10", 1)))
	require.NoError(t, err)

	_, err = f.svc.MarkAsPaid(ctx, f.ws, f.node.Generate())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

	_, err = f.svc.MarkAsPaid(ctx, f.otherWS, created.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

	got, err := f.svc.Get(ctx, f.ws, created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPaid)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []snowflake.ID
	for i := 0; i < 5; i++ {
		detail, err := f.svc.Create(ctx, f.createRequest(line(f.design.ID, "10", 1)))
		require.NoError(t, err)
		ids = append(ids, detail.ID)
	}
	_, err := f.svc.MarkAsPaid(ctx, f.ws, ids[0])
	require.NoError(t, err)

	page, err := f.svc.List(ctx, invoicedomain.ListInvoiceRequest{
		WorkspaceID: f.ws,
		Pagination:  pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, page.Invoices, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, ids[4], page.Invoices[0].ID)
	assert.Equal(t, ids[3], page.Invoices[1].ID)

	var seen []snowflake.ID
	req := invoicedomain.ListInvoiceRequest{WorkspaceID: f.ws, Pagination: pagination.Pagination{PageSize: 2}}
	for {
		page, err := f.svc.List(ctx, req)
		require.NoError(t, err)
		for _, inv := range page.Invoices {
			seen = append(seen, inv.ID)
		}
		if !page.HasMore {
			break
		}
		req.PageToken = page.NextPageToken
	}
	assert.Equal(t, lo.Reverse(append([]snowflake.ID{}, ids...)), seen)

	paid, err := f.svc.List(ctx, invoicedomain.ListInvoiceRequest{WorkspaceID: f.ws, IsPaid: lo.ToPtr(true)})
	require.NoError(t, err)
	require.Len(t, paid.Invoices, 1)
	assert.Equal(t, ids[0], paid.Invoices[0].ID)

	other, err := f.svc.List(ctx, invoicedomain.ListInvoiceRequest{WorkspaceID: f.otherWS})
	require.NoError(t, err)
	assert.Empty(t, other.Invoices)

	_, err = f.svc.List(ctx, invoicedomain.ListInvoiceRequest{
		WorkspaceID: f.ws,
		Pagination:  pagination.Pagination{PageToken: "%%%"},
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPageToken)
}

type countingLocker struct {
	locked, released int
	err              error
}

func (l *countingLocker) LockSerial(ctx context.Context, workspaceID snowflake.ID) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locked++
	return func() { l.released++ }, nil
}

func TestCreateLocksSerialAllocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	locker := &countingLocker{}
	svc := f.svc.(*Service)
	svc.locker = locker

	_, err := svc.Create(ctx, f.createRequest(line(f.design.ID, "10", 1)))
	require.NoError(t, err)
	assert.Equal(t, 1, locker.locked)
	assert.Equal(t, 1, locker.released)

	explicit := f.createRequest(line(f.design.ID, "10", 1))
	explicit.SerialNumber = lo.ToPtr(int64(7))
	_, err = svc.Create(ctx, explicit)
	require.NoError(t, err)
	assert.Equal(t, 1, locker.locked)

	locker.err = errs.Conflict("serial_allocation_busy_test")
	_, err = svc.Create(ctx, f.createRequest(line(f.design.ID, "10", 1)))
	assert.True(t, errs.IsConflict(err))
}
