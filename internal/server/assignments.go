package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	assignmentdomain "github.com/nordleads/leadflow/internal/assignment/domain"
)

func (s *Server) GetAssignment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	assignment, err := s.assignmentSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

func (s *Server) AcceptAssignment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	assignment, err := s.assignmentSvc.Accept(c.Request.Context(), assignmentdomain.AcceptRequest{
		AssignmentID: id,
		Actor:        actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

type rejectAssignmentRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) RejectAssignment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req rejectAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var reason *string
	if trimmed := strings.TrimSpace(req.Reason); trimmed != "" {
		reason = &trimmed
	}

	assignment, err := s.assignmentSvc.Reject(c.Request.Context(), assignmentdomain.RejectRequest{
		AssignmentID: id,
		Reason:       reason,
		Actor:        actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}
