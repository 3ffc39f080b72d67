package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status           string    `json:"status"`
	Uptime           string    `json:"uptime"`
	Started          time.Time `json:"started"`
	LastCompare      time.Time `json:"last_compare,omitempty"`
	Compares         int       `json:"compares"`
	FailedCompares   int       `json:"failed_compares"`
	OpenWebsockets   int       `json:"open_websockets"`
	SavedConditions  int       `json:"saved_conditions"`
	ConditionsStatus string    `json:"conditions_status"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(c *gin.Context) {
	resp := StatusResponse{Status: "running", ConditionsStatus: "ok"}

	conds, err := s.conditions.GetAll(c.Request.Context())
	if err != nil {
		resp.Status = "degraded"
		resp.ConditionsStatus = err.Error()
	}
	resp.SavedConditions = len(conds)

	s.mu.Lock()
	resp.Started = s.started
	resp.Uptime = s.now().Sub(s.started).String()
	resp.LastCompare = s.lastCompare
	resp.Compares = s.compares
	resp.FailedCompares = s.failures
	resp.OpenWebsockets = s.wsOpen
	s.mu.Unlock()

	c.JSON(http.StatusOK, resp)
}
