package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/you/accountsvc/internal/http/middleware"
	"github.com/you/accountsvc/internal/mocks"
)

func newPolicyRouter(policies *mocks.MockPolicyService) *gin.Engine {
	h := NewPolicyHandlers(policies)
	r := gin.New()
	r.Use(middleware.ErrorHandler(zerolog.Nop(), false))
	r.GET("/policies", h.List)
	r.POST("/policies", h.Add)
	r.DELETE("/policies", h.Remove)
	return r
}

func TestPolicyHandlers_List(t *testing.T) {
	w := perform(newPolicyRouter(mocks.NewMockPolicyService()), http.MethodGet, "/policies", "")

	assert.Equal(t, http.StatusOK, w.Code)
	policies := decode(t, w)["data"].(map[string]interface{})["policies"].([]interface{})
	assert.Len(t, policies, 2)
}

func TestPolicyHandlers_Add(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		addErr         error
		expectedStatus int
		expectAdded    bool
	}{
		{name: "added", body: `{"role":"user","resource":"/api/v1/users/myProfile","action":"GET"}`, expectedStatus: http.StatusCreated, expectAdded: true},
		{name: "missing field", body: `{"role":"user"}`, expectedStatus: http.StatusBadRequest},
		{name: "unknown role", body: `{"role":"guest","resource":"/x","action":"GET"}`, expectedStatus: http.StatusBadRequest},
		{name: "store failure", body: `{"role":"admin","resource":"/x","action":"GET"}`, addErr: errors.New("db down"), expectedStatus: http.StatusInternalServerError, expectAdded: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policies := mocks.NewMockPolicyService()
			added := false
			policies.AddPolicyFunc = func(role, resource, action string) error {
				added = true
				return tt.addErr
			}

			w := perform(newPolicyRouter(policies), http.MethodPost, "/policies", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectAdded, added)
		})
	}
}

func TestPolicyHandlers_Remove(t *testing.T) {
	policies := mocks.NewMockPolicyService()
	var removed []string
	policies.RemovePolicyFunc = func(role, resource, action string) error {
		removed = []string{role, resource, action}
		return nil
	}

	w := perform(newPolicyRouter(policies), http.MethodDelete, "/policies", `{"role":"user","resource":"/x","action":"GET"}`)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"user", "/x", "GET"}, removed)
}
