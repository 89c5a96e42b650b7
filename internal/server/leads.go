package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	distributiondomain "github.com/nordleads/leadflow/internal/distribution/domain"
	historydomain "github.com/nordleads/leadflow/internal/history/domain"
	leaddomain "github.com/nordleads/leadflow/internal/lead/domain"
)

// CreateLead ingests a lead in status "new". Distribution is a separate call;
// intake never charges anyone.
func (s *Server) CreateLead(c *gin.Context) {
	var req leaddomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	lead, err := s.leadSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lead)
}

func (s *Server) GetLead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, leaddomain.ErrInvalidID)
		return
	}

	lead, err := s.leadSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

type updateLeadStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) UpdateLeadStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, leaddomain.ErrInvalidID)
		return
	}

	var req updateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	lead, err := s.leadSvc.UpdateStatus(c.Request.Context(), leaddomain.UpdateStatusRequest{
		LeadID: id,
		Status: leaddomain.LeadStatus(req.Status),
		Actor:  actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

// DistributeLead triggers one distribution attempt for an existing lead.
// Calling it on an already-assigned lead returns the existing assignment.
func (s *Server) DistributeLead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, leaddomain.ErrInvalidID)
		return
	}

	result, err := s.distributionSvc.Distribute(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type assignManuallyRequest struct {
	BuyerID string `json:"buyer_id"`
	Actor   string `json:"actor"`
}

func (s *Server) AssignLeadManually(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, leaddomain.ErrInvalidID)
		return
	}

	var req assignManuallyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	buyerID, ok := parseID(req.BuyerID)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	actor := req.Actor
	if actor == "" {
		if header := actorFrom(c); header != nil {
			actor = *header
		}
	}

	result, err := s.distributionSvc.AssignManually(c.Request.Context(), distributiondomain.ManualAssignRequest{
		LeadID:  id,
		BuyerID: buyerID,
		Actor:   actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) GetLeadEligibility(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, leaddomain.ErrInvalidID)
		return
	}

	lead, err := s.leadSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resolution, err := s.eligibilitySvc.Resolve(c.Request.Context(), lead.Category)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resolution)
}

func (s *Server) ListLeadHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, leaddomain.ErrInvalidID)
		return
	}

	var page struct {
		PageToken string `form:"page_token"`
		PageSize  int32  `form:"page_size,default=25"`
	}
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.historySvc.List(c.Request.Context(), historydomain.ListRequest{
		LeadID:    id,
		PageToken: page.PageToken,
		PageSize:  page.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
