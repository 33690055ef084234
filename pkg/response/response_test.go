package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchendiary/kitchen-diary-api/internal/domain/apperr"
)

func TestStatusForKind(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindNotFound:              http.StatusNotFound,
		apperr.KindUnauthenticated:       http.StatusUnauthorized,
		apperr.KindNotOwner:              http.StatusForbidden,
		apperr.KindAdminRequired:         http.StatusForbidden,
		apperr.KindNotAuthorized:         http.StatusForbidden,
		apperr.KindPremiumRequiresReview: http.StatusForbidden,
		apperr.KindInvalidToken:          http.StatusBadRequest,
		apperr.KindInvalid:               http.StatusBadRequest,
		apperr.KindAlreadyExists:         http.StatusConflict,
		apperr.KindDeliveryFailed:        http.StatusBadGateway,
		apperr.KindInternal:              http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, StatusForKind(kind), "kind %s", kind)
	}
}

func TestFromError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	FromError(ctx, apperr.E(apperr.KindNotOwner, "user not authorized"))

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "user not authorized", body["message"])
}

func TestFromError_HidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	FromError(ctx, assertableInternalErr{})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["message"])
}

type assertableInternalErr struct{}

func (assertableInternalErr) Error() string { return "pq: connection refused on 10.0.0.3" }
