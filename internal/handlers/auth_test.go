package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tunewave-backend/config"
	"tunewave-backend/internal/database"
	"tunewave-backend/internal/models"
	"tunewave-backend/internal/utils"
)

const botToken = "12345:test-bot-token"

// signInitData builds Mini App launch data signed the way Telegram does:
// HMAC-SHA256 over the sorted key=value lines, keyed by
// HMAC-SHA256("WebAppData", botToken).
func signInitData(t *testing.T, telegramID int64, authDate time.Time) string {
	t.Helper()
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	values.Set("user", fmt.Sprintf(`{"id":%d,"first_name":"Mod","username":"mod"}`, telegramID))

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	h := hmac.New(sha256.New, secret.Sum(nil))
	h.Write([]byte(strings.Join(lines, "\n")))
	values.Set("hash", hex.EncodeToString(h.Sum(nil)))
	return values.Encode()
}

func newAuthApp(t *testing.T) (*fiber.App, *database.MemoryRepository) {
	t.Helper()
	repo := database.NewMemoryRepository()
	cfg := config.Defaults()
	cfg.JWT.Secret = testSecret
	cfg.Telegram.BotToken = botToken

	h := NewAuthHandler(repo, cfg, zap.NewNop())
	app := fiber.New()
	app.Post("/auth/telegram", h.TelegramLogin)
	app.Post("/auth/refresh", h.RefreshToken)
	return app, repo
}

func saveUser(t *testing.T, repo *database.MemoryRepository, id string, role models.Role, telegramID int64) {
	t.Helper()
	require.NoError(t, repo.SaveUser(context.Background(), &models.User{
		ID: id, Username: id, Role: role, TelegramID: &telegramID, IsActive: true,
	}))
}

func TestTelegramLogin(t *testing.T) {
	app, repo := newAuthApp(t)
	saveUser(t, repo, "mod-1", models.RoleModerator, 1001)
	saveUser(t, repo, "fan-1", models.RoleUser, 2002)

	login := func(header string) (int, map[string]any) {
		req := httptest.NewRequest("POST", "/auth/telegram", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		var out map[string]any
		_ = json.Unmarshal(body, &out)
		return resp.StatusCode, out
	}

	status, out := login("tma " + signInitData(t, 1001, time.Now()))
	require.Equal(t, fiber.StatusOK, status, out)
	access, _ := out["access_token"].(string)
	claims, err := utils.ParseToken(access, testSecret, utils.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "mod-1", claims.UserID)
	assert.Equal(t, models.RoleModerator, claims.Role)

	status, _ = login("tma " + signInitData(t, 2002, time.Now()))
	assert.Equal(t, fiber.StatusForbidden, status, "plain users cannot sign in")

	status, _ = login("tma " + signInitData(t, 3003, time.Now()))
	assert.Equal(t, fiber.StatusForbidden, status, "unknown telegram account")

	status, _ = login("tma " + signInitData(t, 1001, time.Now().Add(-2*time.Hour)))
	assert.Equal(t, fiber.StatusUnauthorized, status, "stale launch data")

	tampered := strings.Replace(signInitData(t, 1001, time.Now()), "Mod", "Eve", 1)
	status, _ = login("tma " + tampered)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = login("Bearer abc")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestRefreshToken(t *testing.T) {
	app, repo := newAuthApp(t)
	saveUser(t, repo, "mod-1", models.RoleModerator, 1001)

	refresh := func(token string) int {
		req := httptest.NewRequest("POST", "/auth/refresh", strings.NewReader(fmt.Sprintf(`{"refresh_token":%q}`, token)))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp.StatusCode
	}

	pair, err := utils.CreateToken("mod-1", models.RoleModerator, testSecret, time.Hour, time.Hour, time.Now())
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, refresh(pair.RefreshToken))
	assert.Equal(t, fiber.StatusUnauthorized, refresh(pair.AccessToken), "access tokens cannot refresh")
	assert.Equal(t, fiber.StatusUnauthorized, refresh("junk"))

	// demoted after the token was issued
	saveUser(t, repo, "mod-1", models.RoleUser, 1001)
	assert.Equal(t, fiber.StatusForbidden, refresh(pair.RefreshToken))
}
