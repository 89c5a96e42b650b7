package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	settingsdomain "github.com/nordleads/leadflow/internal/settings/domain"
)

func (s *Server) GetSettings(c *gin.Context) {
	settings, err := s.settingsSvc.Snapshot(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) UpdateSettings(c *gin.Context) {
	var req settingsdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.Actor = actorFrom(c)

	settings, err := s.settingsSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
