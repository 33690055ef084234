package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchendiary/kitchen-diary-api/internal/application"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/entity"
	"github.com/kitchendiary/kitchen-diary-api/internal/infrastructure/memory"
)

// asUser stands in for the auth middleware during tests.
func asUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != "" {
			c.Set("userID", id)
		}
		c.Next()
	}
}

func newRecipeRouter(t *testing.T, actorID string) (*gin.Engine, *application.RecipeService, *entity.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := memory.NewUserStore()
	author := &entity.User{ID: actorID, Email: "alice@example.com", Username: "alice", IsVerified: true}
	require.NoError(t, users.Create(author))

	recipes := memory.NewRecipeStore(func(authorID string) string {
		u, _ := users.GetByID(authorID)
		if u == nil {
			return ""
		}
		return u.Username
	})
	svc := application.NewRecipeService(recipes, users, nil, nil, "", nil, "")
	h := NewRecipeHandler(svc, nil)

	r := gin.New()
	r.GET("/recipes", h.ListPublished)
	r.GET("/recipes/:id", h.Get)
	auth := r.Group("/", asUser(actorID))
	auth.POST("/recipes", h.Create)
	auth.PATCH("/recipes/:id", h.Update)
	auth.PUT("/recipes/:id/publish", h.TogglePublish)
	auth.PUT("/recipes/:id/vote", h.Vote)
	return r, svc, author
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func dataField(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Data
}

func TestRecipeHandler_CreateAndGet(t *testing.T) {
	r, _, _ := newRecipeRouter(t, "u1")

	rec := doJSON(r, http.MethodPost, "/recipes", `{"title":"pancakes","ingredients":["flour"],"price_tier":"free"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	data := dataField(t, rec)
	assert.Equal(t, "pancakes", data["title"])
	assert.Equal(t, "alice", data["author"])
	assert.Equal(t, float64(0), data["votes"], "votes travel as a count")

	id, _ := data["id"].(string)
	require.NotEmpty(t, id)

	got := doJSON(r, http.MethodGet, "/recipes/"+id, "")
	assert.Equal(t, http.StatusOK, got.Code)
}

func TestRecipeHandler_UnknownFieldRejected(t *testing.T) {
	r, _, _ := newRecipeRouter(t, "u1")

	rec := doJSON(r, http.MethodPost, "/recipes", `{"title":"pancakes","is_published":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "state flags are not accepted on the payload")

	rec = doJSON(r, http.MethodPost, "/recipes", `{"title":"pancakes","bogus":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecipeHandler_GetMissing(t *testing.T) {
	r, _, _ := newRecipeRouter(t, "u1")

	rec := doJSON(r, http.MethodGet, "/recipes/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecipeHandler_PublishAndVoteFlow(t *testing.T) {
	r, _, _ := newRecipeRouter(t, "u1")

	created := doJSON(r, http.MethodPost, "/recipes", `{"title":"pancakes"}`)
	require.Equal(t, http.StatusCreated, created.Code)
	id := dataField(t, created)["id"].(string)

	published := doJSON(r, http.MethodPut, "/recipes/"+id+"/publish", "")
	require.Equal(t, http.StatusOK, published.Code)
	assert.Equal(t, true, dataField(t, published)["is_published"])

	list := doJSON(r, http.MethodGet, "/recipes", "")
	require.Equal(t, http.StatusOK, list.Code)

	voted := doJSON(r, http.MethodPut, "/recipes/"+id+"/vote", "")
	require.Equal(t, http.StatusOK, voted.Code)
	assert.Equal(t, float64(1), dataField(t, voted)["votes"])

	unvoted := doJSON(r, http.MethodPut, "/recipes/"+id+"/vote", "")
	require.Equal(t, http.StatusOK, unvoted.Code)
	assert.Equal(t, float64(0), dataField(t, unvoted)["votes"])
}

func TestRecipeHandler_AnonymousCreateRejected(t *testing.T) {
	r, _, _ := newRecipeRouter(t, "")

	rec := doJSON(r, http.MethodPost, "/recipes", `{"title":"pancakes"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecipeHandler_PremiumPublishBlocked(t *testing.T) {
	r, _, _ := newRecipeRouter(t, "u1")

	created := doJSON(r, http.MethodPost, "/recipes", `{"title":"truffle pasta","price_tier":"premium"}`)
	require.Equal(t, http.StatusCreated, created.Code)
	id := dataField(t, created)["id"].(string)

	rec := doJSON(r, http.MethodPut, "/recipes/"+id+"/publish", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
