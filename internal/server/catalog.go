package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/nordleads/leadflow/internal/catalog/domain"
)

func (s *Server) CreatePackage(c *gin.Context) {
	var req catalogdomain.CreatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	pkg, err := s.catalogSvc.CreatePackage(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pkg)
}

func (s *Server) GetPackage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	pkg, err := s.catalogSvc.GetPackage(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

type createSubscriptionRequest struct {
	BuyerID   string     `json:"buyer_id"`
	PackageID string     `json:"package_id"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

func (s *Server) CreateSubscription(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	buyerID, ok := parseID(req.BuyerID)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	packageID, ok := parseID(req.PackageID)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	sub, err := s.catalogSvc.Subscribe(c.Request.Context(), catalogdomain.SubscribeRequest{
		BuyerID:   buyerID,
		PackageID: packageID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}
