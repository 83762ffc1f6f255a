package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seu-repo/vitrina-voz/pkg/config"
)

func preflight(t *testing.T, cfg config.CORSConfig, origin string) *http.Response {
	t.Helper()
	app := fiber.New()
	app.Use(NewCORS(cfg))
	app.Post("/api/v1/voice/command", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/voice/command", nil)
	req.Header.Set(fiber.HeaderOrigin, origin)
	req.Header.Set(fiber.HeaderAccessControlRequestMethod, http.MethodPost)
	req.Header.Set(fiber.HeaderAccessControlRequestHeaders, ClientIDHeader)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestNewCORS_Defaults(t *testing.T) {
	resp := preflight(t, config.CORSConfig{Enabled: true}, "http://localhost:3000")

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Contains(t, resp.Header.Get(fiber.HeaderAccessControlAllowHeaders), ClientIDHeader)
	assert.Equal(t, "86400", resp.Header.Get(fiber.HeaderAccessControlMaxAge))
}

func TestNewCORS_ConfiguredOrigins(t *testing.T) {
	cfg := config.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://tienda.example"},
		MaxAge:         600,
	}

	resp := preflight(t, cfg, "https://tienda.example")
	assert.Equal(t, "https://tienda.example", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "600", resp.Header.Get(fiber.HeaderAccessControlMaxAge))

	resp = preflight(t, cfg, "https://otra.example")
	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}
