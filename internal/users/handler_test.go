package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estetica-academy/presenciales/internal/models"
)

type searcherStub struct {
	gotQuery string
	gotLimit int
	list     []models.UserPublic
}

func (s *searcherStub) Search(ctx context.Context, query string, limit int) ([]models.UserPublic, error) {
	s.gotQuery, s.gotLimit = query, limit
	return s.list, nil
}

func TestSearchPassesQueryAndClampsLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &searcherStub{list: []models.UserPublic{{ID: uuid.New(), Email: "lu@example.com", FullName: "Lu"}}}
	r := gin.New()
	r.GET("/users", NewHandler(stub, nil).Search)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users?search=lu&limit=500", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lu", stub.gotQuery)
	assert.Equal(t, MaxSearchLimit, stub.gotLimit)
	assert.Contains(t, w.Body.String(), "lu@example.com")
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultSearchLimit, ClampLimit(0))
	assert.Equal(t, 5, ClampLimit(5))
	assert.Equal(t, MaxSearchLimit, ClampLimit(51))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% \_off\\`, escapeLike(`50% _off\`))
}
