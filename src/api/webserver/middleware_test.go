package webserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func authedRouter(rdb *redis.Client) *gin.Engine {
	r := gin.New()
	r.GET("/whoami", JWTMiddleware(testSecret, rdb), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": c.GetString("uid")})
	})
	return r
}

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestJWTMiddlewareAcceptsValidToken(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	jti := uuid.NewString()
	mock.ExpectExists("revoked:" + jti).SetVal(0)

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "u1", "jti": jti,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	authedRouter(rdb).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u1")
}

func TestJWTMiddlewareRejectsRevokedToken(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	jti := uuid.NewString()
	mock.ExpectExists("revoked:" + jti).SetVal(1)

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "u1", "jti": jti,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	authedRouter(rdb).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddlewareRejectsMissingHeader(t *testing.T) {
	rdb, _ := redismock.NewClientMock()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	authedRouter(rdb).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddlewareRejectsWrongSecret(t *testing.T) {
	rdb, _ := redismock.NewClientMock()

	token := signToken(t, []byte("someone-else"), jwt.MapClaims{
		"sub": "u1", "jti": uuid.NewString(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	authedRouter(rdb).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddlewareRejectsExpiredToken(t *testing.T) {
	rdb, _ := redismock.NewClientMock()

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "u1", "jti": uuid.NewString(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	authedRouter(rdb).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func throttledRouter(rdb *redis.Client) *gin.Engine {
	r := gin.New()
	r.GET("/ping", Throttle(rdb, 60, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestThrottleAllowsUnderLimit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.Regexp().ExpectIncr(`throttle:.+`).SetVal(5)

	w := httptest.NewRecorder()
	throttledRouter(rdb).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestThrottleBlocksOverLimit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.Regexp().ExpectIncr(`throttle:.+`).SetVal(61)

	w := httptest.NewRecorder()
	throttledRouter(rdb).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

// Behind auth the counter keys on the citizen, not the shared IP.
func TestThrottleKeysOnCitizenWhenAuthed(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectIncr("throttle:u1").SetVal(1)
	mock.ExpectExpire("throttle:u1", time.Minute).SetVal(true)

	r := gin.New()
	setUID := func(c *gin.Context) { c.Set("uid", "u1") }
	r.GET("/ping", setUID, Throttle(rdb, 60, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Redis being unreachable must not block writes.
func TestThrottleFailsOpen(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.Regexp().ExpectIncr(`throttle:.+`).SetErr(redis.ErrClosed)

	w := httptest.NewRecorder()
	throttledRouter(rdb).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
