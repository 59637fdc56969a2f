package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/billdesk/internal/invoice/domain"
	"github.com/smallbiznis/billdesk/pkg/db/pagination"
)

type lineItemRequest struct {
	ServiceID string          `json:"service_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	Date      *string         `json:"date,omitempty"`
	Code      string          `json:"code,omitempty"`
	TaxIDs    []string        `json:"tax_ids,omitempty"`
}

type createInvoiceRequest struct {
	ClientID     string            `json:"client_id"`
	BillerID     string            `json:"biller_id"`
	Title        string            `json:"title"`
	SerialNumber *int64            `json:"serial_number,omitempty"`
	PoSoNumber   string            `json:"po_so_number"`
	IssueDate    *string           `json:"issue_date,omitempty"`
	DueDate      *string           `json:"due_date,omitempty"`
	Description  string            `json:"description"`
	Lines        []lineItemRequest `json:"line_items"`
}

// updateInvoiceRequest replaces every line of the invoice. line_items must be
// present; an explicit empty list clears the invoice.
type updateInvoiceRequest struct {
	Title       *string            `json:"title,omitempty"`
	PoSoNumber  *string            `json:"po_so_number,omitempty"`
	IssueDate   *string            `json:"issue_date,omitempty"`
	DueDate     *string            `json:"due_date,omitempty"`
	Description *string            `json:"description,omitempty"`
	IsPaid      *bool              `json:"is_paid,omitempty"`
	Lines       *[]lineItemRequest `json:"line_items"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	clientID, err := parseSnowflakeID(req.ClientID)
	if err != nil {
		AbortWithError(c, newValidationError("client_id", "invalid_client_id", "invalid client_id"))
		return
	}
	billerID, err := parseSnowflakeID(req.BillerID)
	if err != nil {
		AbortWithError(c, newValidationError("biller_id", "invalid_biller_id", "invalid biller_id"))
		return
	}
	issueDate, err := parseOptionalDate(req.IssueDate)
	if err != nil {
		AbortWithError(c, newValidationError("issue_date", "invalid_issue_date", "invalid issue_date"))
		return
	}
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due_date"))
		return
	}
	lines, err := toLineInputs(req.Lines)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		WorkspaceID:  workspaceID,
		ClientID:     clientID,
		BillerID:     billerID,
		Title:        strings.TrimSpace(req.Title),
		SerialNumber: req.SerialNumber,
		PoSoNumber:   strings.TrimSpace(req.PoSoNumber),
		IssueDate:    issueDate,
		DueDate:      dueDate,
		Description:  strings.TrimSpace(req.Description),
		Lines:        lines,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	workspaceID, invoiceID, ok := invoiceParams(c)
	if !ok {
		return
	}

	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	issueDate, err := parseOptionalDate(req.IssueDate)
	if err != nil {
		AbortWithError(c, newValidationError("issue_date", "invalid_issue_date", "invalid issue_date"))
		return
	}
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due_date"))
		return
	}
	if req.Lines == nil {
		AbortWithError(c, newValidationError("line_items", "line_items_required", "line_items is required"))
		return
	}
	lines, err := toLineInputs(*req.Lines)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invoiceSvc.Update(c.Request.Context(), invoicedomain.UpdateInvoiceRequest{
		WorkspaceID: workspaceID,
		ID:          invoiceID,
		Title:       trimString(req.Title),
		PoSoNumber:  trimString(req.PoSoNumber),
		IssueDate:   issueDate,
		DueDate:     dueDate,
		Description: trimString(req.Description),
		IsPaid:      req.IsPaid,
		Lines:       lines,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	var query struct {
		pagination.Pagination
		IsPaid   string `form:"is_paid"`
		ClientID string `form:"client_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	isPaid, err := parseOptionalBool(query.IsPaid)
	if err != nil {
		AbortWithError(c, newValidationError("is_paid", "invalid_is_paid", "invalid is_paid"))
		return
	}
	clientID, err := parseOptionalSnowflakeID(query.ClientID)
	if err != nil {
		AbortWithError(c, newValidationError("client_id", "invalid_client_id", "invalid client_id"))
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		WorkspaceID: workspaceID,
		IsPaid:      isPaid,
		ClientID:    clientID,
		Pagination:  query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Invoices, "page_info": resp.PageInfo})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	workspaceID, invoiceID, ok := invoiceParams(c)
	if !ok {
		return
	}

	item, err := s.invoiceSvc.Get(c.Request.Context(), workspaceID, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	workspaceID, invoiceID, ok := invoiceParams(c)
	if !ok {
		return
	}

	if err := s.invoiceSvc.Delete(c.Request.Context(), workspaceID, invoiceID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) MarkInvoicePaid(c *gin.Context) {
	workspaceID, invoiceID, ok := invoiceParams(c)
	if !ok {
		return
	}

	item, err := s.invoiceSvc.MarkAsPaid(c.Request.Context(), workspaceID, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) GetInvoiceSummary(c *gin.Context) {
	workspaceID, invoiceID, ok := invoiceParams(c)
	if !ok {
		return
	}

	summary, err := s.invoiceSvc.Summary(c.Request.Context(), workspaceID, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) DownloadInvoicePDF(c *gin.Context) {
	workspaceID, invoiceID, ok := invoiceParams(c)
	if !ok {
		return
	}

	detail, err := s.invoiceSvc.Get(c.Request.Context(), workspaceID, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.renderer.RenderPDF(detail)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	name := detail.Number
	if name == "" {
		name = detail.ID.String()
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", name+".pdf"))
	c.Data(http.StatusOK, "application/pdf", doc)
}

func toLineInputs(items []lineItemRequest) ([]invoicedomain.LineInput, error) {
	lines := make([]invoicedomain.LineInput, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("line_items[%d]", i)

		serviceID, err := parseSnowflakeID(item.ServiceID)
		if err != nil {
			return nil, newValidationError(field+".service_id", "invalid_service_id", "invalid service_id")
		}
		taxIDs, err := parseSnowflakeIDs(item.TaxIDs)
		if err != nil {
			return nil, newValidationError(field+".tax_ids", "invalid_tax_id", "invalid tax id")
		}
		date, err := parseOptionalDate(item.Date)
		if err != nil {
			return nil, newValidationError(field+".date", "invalid_date", "invalid date")
		}

		lines = append(lines, invoicedomain.LineInput{
			ServiceID: serviceID,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Date:      date,
			Code:      strings.TrimSpace(item.Code),
			TaxIDs:    taxIDs,
		})
	}
	return lines, nil
}

func workspaceParam(c *gin.Context) (snowflake.ID, bool) {
	id, err := parseSnowflakeID(c.Param("workspace_id"))
	if err != nil {
		AbortWithError(c, newValidationError("workspace_id", "invalid_workspace_id", "invalid workspace_id"))
		return 0, false
	}
	return id, true
}

func invoiceParams(c *gin.Context) (snowflake.ID, snowflake.ID, bool) {
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return 0, 0, false
	}
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return 0, 0, false
	}
	return workspaceID, id, true
}
