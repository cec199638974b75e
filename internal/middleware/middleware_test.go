package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/summarist/internal/identity"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newProvider() *identity.StaticProvider {
	p := identity.NewStaticProvider()
	p.Register("goodtoken", identity.Identity{UID: "u1", Email: "reader@example.com", DisplayName: "Reader"})
	return p
}

func serve(g *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestVerifyToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"bad format", "BadHeader", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"invalid token", "Bearer forged", http.StatusUnauthorized},
		{"valid token", "Bearer goodtoken", http.StatusOK},
		{"lowercase scheme", "bearer goodtoken", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := gin.New()
			g.GET("/", NewAuthMiddleware(newProvider(), nil).VerifyToken(), func(c *gin.Context) {
				id := IdentityFrom(c)
				require.NotNil(t, id)
				c.JSON(http.StatusOK, gin.H{"uid": c.GetString(ContextUserID), "email": c.GetString(ContextUserEmail), "name": id.DisplayName})
			})
			rw := serve(g, tt.header)
			assert.Equal(t, tt.want, rw.Code)
			if tt.want == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
				assert.Equal(t, "u1", body["uid"])
				assert.Equal(t, "reader@example.com", body["email"])
				assert.Equal(t, "Reader", body["name"])
			}
		})
	}
}

func TestVerifyToken_NoProvider(t *testing.T) {
	g := gin.New()
	g.GET("/", NewAuthMiddleware(nil, nil).VerifyToken(), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusServiceUnavailable, serve(g, "Bearer goodtoken").Code)
}

func TestOptionalToken(t *testing.T) {
	g := gin.New()
	g.GET("/", NewAuthMiddleware(newProvider(), nil).OptionalToken(), func(c *gin.Context) {
		if id := IdentityFrom(c); id != nil {
			c.String(http.StatusOK, id.UID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	assert.Equal(t, "u1", serve(g, "Bearer goodtoken").Body.String())
	assert.Equal(t, "anonymous", serve(g, "").Body.String())
	assert.Equal(t, "anonymous", serve(g, "Bearer forged").Body.String())
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	g := gin.New()
	g.Use(RecoveryMiddleware(zap.New(core)))
	g.GET("/", func(c *gin.Context) { panic("boom") })

	rw := serve(g, "")
	assert.Equal(t, http.StatusInternalServerError, rw.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rw.Body.String())
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Panic recovered", entry.Message)
	assert.NotEmpty(t, entry.ContextMap()["stacktrace"])
}

func TestRequestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	g := gin.New()
	g.Use(RequestID(), RequestLogger(zap.New(core)))
	g.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	g.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	g.GET("/fail", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	for _, p := range []string{"/ok?x=1", "/bad", "/fail"} {
		g.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "x=1", entries[0].ContextMap()["query"])
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestRequestID(t *testing.T) {
	g := gin.New()
	g.Use(RequestID())
	g.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := rw.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, rw.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	rw = httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	assert.Equal(t, "upstream-id", rw.Header().Get(RequestIDHeader))
}

func TestCORSMiddleware(t *testing.T) {
	g := gin.New()
	g.Use(CORSMiddleware("https://summarist.example"))
	g.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://summarist.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)

	assert.Equal(t, http.StatusNoContent, rw.Code)
	assert.Equal(t, "https://summarist.example", rw.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rw.Header().Get("Access-Control-Allow-Credentials"))
}
