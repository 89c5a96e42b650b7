package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetDistributionStats(c *gin.Context) {
	from, to, ok := dateRange(c, time.Now().UTC())
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	stats, err := s.statsSvc.GetDistributionStats(c.Request.Context(), from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) GetDistributionQueue(c *gin.Context) {
	status, err := s.statsSvc.GetQueueStatus(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
