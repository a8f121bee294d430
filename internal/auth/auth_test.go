package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booklend/internal/models"
	"booklend/internal/repositories"
	"booklend/internal/testdb"
)

const secret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	id := uuid.New()
	token, err := IssueToken(secret, id, time.Hour)
	require.NoError(t, err)

	got, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestParseTokenRejects(t *testing.T) {
	id := uuid.New()

	wrongKey, err := IssueToken("another-secret", id, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(secret, wrongKey)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := IssueToken(secret, id, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = ParseToken(secret, badSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken(secret, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = IssueToken("", id, time.Hour)
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tok, err := bearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	tok, err = bearerToken("bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	for _, h := range []string{"", "Bearer", "Bearer  ", "Basic abc", "abc"} {
		_, err := bearerToken(h)
		assert.ErrorIs(t, err, ErrMissingToken, h)
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testdb.Open(t)
	users := repositories.NewUserRepository(db)

	member := testdb.CreateUser(t, db, "member")
	admin := &models.User{Username: "admin", Email: "admin@example.com", IsAdmin: true}
	require.NoError(t, db.Create(admin).Error)
	gone := testdb.CreateUser(t, db, "gone")
	require.NoError(t, db.Delete(&models.User{}, "id = ?", gone.ID).Error)

	r := gin.New()
	api := r.Group("/", RequireAuth(secret, db, users))
	api.GET("/me", func(c *gin.Context) {
		actor, _ := ActorFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.UserID, "admin": actor.IsAdmin})
	})
	api.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func(path string, user *models.User) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if user != nil {
			token, err := IssueToken(secret, user.ID, time.Hour)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do("/me", nil))
	assert.Equal(t, http.StatusOK, do("/me", member))
	assert.Equal(t, http.StatusUnauthorized, do("/me", gone))
	assert.Equal(t, http.StatusUnauthorized, do("/me", &models.User{ID: uuid.New()}))

	assert.Equal(t, http.StatusForbidden, do("/admin", member))
	assert.Equal(t, http.StatusNoContent, do("/admin", admin))
}
