package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	buyerdomain "github.com/nordleads/leadflow/internal/buyer/domain"
)

func (s *Server) CreateBuyer(c *gin.Context) {
	var req buyerdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	buyer, err := s.buyerSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buyer)
}

func (s *Server) GetBuyer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, buyerdomain.ErrInvalidID)
		return
	}

	buyer, err := s.buyerSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, buyer)
}

type topUpRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type topUpResponse struct {
	BuyerID string `json:"buyer_id"`
	Balance int64  `json:"balance"`
}

// TopUpBuyer funds a buyer's budget through the ledger so the movement lands
// in the transaction trail like every other balance change.
func (s *Server) TopUpBuyer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, buyerdomain.ErrInvalidID)
		return
	}

	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	description := req.Description
	if description == "" {
		description = "budget top up"
	}

	balance, err := s.ledgerSvc.TopUp(c.Request.Context(), id, req.Amount, description, actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, topUpResponse{BuyerID: id.String(), Balance: balance})
}

func (s *Server) ListBuyerTransactions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, buyerdomain.ErrInvalidID)
		return
	}

	var query struct {
		Limit int `form:"limit,default=50"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	transactions, err := s.ledgerSvc.ListByBuyer(c.Request.Context(), id, query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}
