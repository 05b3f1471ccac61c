package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/you/accountsvc/domain"
)

// PolicyHandlers exposes the route policies to administrators
type PolicyHandlers struct {
	policies domain.PolicyService
}

// NewPolicyHandlers creates new policy handlers
func NewPolicyHandlers(policies domain.PolicyService) *PolicyHandlers {
	return &PolicyHandlers{policies: policies}
}

// PolicyRequest names one route policy
type PolicyRequest struct {
	Role     string `json:"role" binding:"required"`
	Resource string `json:"resource" binding:"required"`
	Action   string `json:"action" binding:"required"`
}

// List returns every stored policy
func (h *PolicyHandlers) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"policies": h.policies.GetPolicies()},
	})
}

// Add stores a policy
func (h *PolicyHandlers) Add(c *gin.Context) {
	req, ok := bindPolicy(c)
	if !ok {
		return
	}
	if err := h.policies.AddPolicy(req.Role, req.Resource, req.Action); err != nil {
		_ = c.Error(domain.NewInternalError(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": gin.H{"policy": req}})
}

// Remove deletes a policy
func (h *PolicyHandlers) Remove(c *gin.Context) {
	req, ok := bindPolicy(c)
	if !ok {
		return
	}
	if err := h.policies.RemovePolicy(req.Role, req.Resource, req.Action); err != nil {
		_ = c.Error(domain.NewInternalError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func bindPolicy(c *gin.Context) (PolicyRequest, bool) {
	var req PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.NewBadRequest("Please provide role, resource and action!").WithCause(err))
		return req, false
	}
	if !domain.ValidRole(req.Role) {
		_ = c.Error(domain.NewBadRequest("Role must be one of user, admin!"))
		return req, false
	}
	return req, true
}
