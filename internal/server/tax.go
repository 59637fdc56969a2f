package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/billdesk/internal/tax/domain"
)

type createTaxRequest struct {
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	IsDefault  bool            `json:"is_default"`
}

type updateTaxRequest struct {
	Name       *string          `json:"name,omitempty"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	IsDefault  *bool            `json:"is_default,omitempty"`
}

func (s *Server) CreateTax(c *gin.Context) {
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	var req createTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.taxSvc.Create(c.Request.Context(), taxdomain.CreateRequest{
		WorkspaceID: workspaceID,
		Name:        strings.TrimSpace(req.Name),
		Percentage:  req.Percentage,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListTaxes(c *gin.Context) {
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return
	}

	resp, err := s.taxSvc.ListByWorkspace(c.Request.Context(), workspaceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTax(c *gin.Context) {
	workspaceID, id, ok := taxParams(c)
	if !ok {
		return
	}

	resp, err := s.taxSvc.Get(c.Request.Context(), workspaceID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateTax(c *gin.Context) {
	workspaceID, id, ok := taxParams(c)
	if !ok {
		return
	}

	var req updateTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.taxSvc.Update(c.Request.Context(), taxdomain.UpdateRequest{
		WorkspaceID: workspaceID,
		ID:          id,
		Name:        trimString(req.Name),
		Percentage:  req.Percentage,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteTax(c *gin.Context) {
	workspaceID, id, ok := taxParams(c)
	if !ok {
		return
	}

	if err := s.taxSvc.Delete(c.Request.Context(), workspaceID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// taxParams shares the path layout of invoices: workspace_id then id.
func taxParams(c *gin.Context) (workspaceID, id snowflake.ID, ok bool) {
	return invoiceParams(c)
}
