package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/security"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/response"
)

// SecurityHandler exposes the security posture audit to administrators.
type SecurityHandler struct {
	audit *security.AuditService
}

func NewSecurityHandler(audit *security.AuditService) *SecurityHandler {
	return &SecurityHandler{audit: audit}
}

// Audit runs all posture checks and returns the aggregated result.
func (h *SecurityHandler) Audit(c *gin.Context) {
	result := h.audit.Run(requestContext(c))
	response.Success(c, http.StatusOK, result)
}
