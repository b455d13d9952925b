package testinfra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"procflow/domain"
	"procflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

// ExecuteRequest run the request against the router and return status, body
// and headers of the recorded response.
func ExecuteRequest(req *http.Request, router *gin.Engine) (int, string, http.Header) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code, w.Body.String(), w.Header()
}

// BuildSession build an authenticated session of the given actor
func BuildSession(uid types.ID, name string, role domain.Role) *session.Session {
	return &session.Session{
		Token:    "test-token-" + uid.String(),
		Identity: session.Identity{ID: uid, Name: name, Role: role},
		Context:  context.Background(),
	}
}
