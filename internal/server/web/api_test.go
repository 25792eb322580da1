package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fastkeeper/internal/common"
	"github.com/dmitrijs2005/fastkeeper/internal/server/auth"
	"github.com/dmitrijs2005/fastkeeper/internal/server/models"
	"github.com/dmitrijs2005/fastkeeper/internal/server/services"
)

func bearerToken(t *testing.T, s *Server, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(userID, []byte(s.config.SecretKey), time.Minute)
	require.NoError(t, err)
	return common.AuthScheme + " " + token
}

func doJSON(t *testing.T, s *Server, method, path, token string, payload any) *httpResponse {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(common.AuthHeaderName, token)
	}
	return &httpResponse{t: t, resp: doRequest(t, s, req)}
}

func (r *httpResponse) decodeJSON(code int, out any) {
	r.t.Helper()
	require.Equal(r.t, code, r.resp.StatusCode)
	defer r.resp.Body.Close()
	require.NoError(r.t, json.NewDecoder(r.resp.Body).Decode(out))
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	var got map[string]bool
	doJSON(t, s, fiber.MethodGet, "/healthz", "", nil).decodeJSON(fiber.StatusOK, &got)
	assert.True(t, got["ok"])
}

func TestAPIRegister(t *testing.T) {
	users := &fakeUsers{
		registerFn: func(ctx context.Context, email, name, timezone, password string) (*models.User, error) {
			require.Equal(t, "alice@example.com", email)
			return testUser(), nil
		},
		loginFn: func(ctx context.Context, email, password string) (*services.TokenPair, error) {
			return &services.TokenPair{AccessToken: "acc", RefreshToken: "ref"}, nil
		},
	}
	s := newTestServer(t, users, nil, nil)

	var got struct {
		User         userResponse `json:"user"`
		AccessToken  string       `json:"access_token"`
		RefreshToken string       `json:"refresh_token"`
	}
	doJSON(t, s, fiber.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"email":    "alice@example.com",
		"password": "longenough",
	}).decodeJSON(fiber.StatusCreated, &got)

	assert.Equal(t, "alice@example.com", got.User.Email)
	assert.Equal(t, "acc", got.AccessToken)
	assert.Equal(t, "ref", got.RefreshToken)
}

func TestAPIRegister_Conflict(t *testing.T) {
	users := &fakeUsers{
		registerFn: func(ctx context.Context, email, name, timezone, password string) (*models.User, error) {
			return nil, common.ErrEmailTaken
		},
	}
	s := newTestServer(t, users, nil, nil)

	var got map[string]string
	doJSON(t, s, fiber.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"email":    "taken@example.com",
		"password": "longenough",
	}).decodeJSON(fiber.StatusConflict, &got)
	assert.Equal(t, "email already registered", got["error"])
}

func TestAPIRegister_Validation(t *testing.T) {
	users := &fakeUsers{
		registerFn: func(ctx context.Context, email, name, timezone, password string) (*models.User, error) {
			return nil, models.ValidationErrors{
				{Field: "email", Message: "Enter a valid email address."},
			}
		},
	}
	s := newTestServer(t, users, nil, nil)

	var got struct {
		Errors map[string]string `json:"errors"`
	}
	doJSON(t, s, fiber.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"email": "nope",
	}).decodeJSON(fiber.StatusBadRequest, &got)
	assert.Equal(t, "Enter a valid email address.", got.Errors["email"])
}

func TestAPILogin(t *testing.T) {
	users := &fakeUsers{
		loginFn: func(ctx context.Context, email, password string) (*services.TokenPair, error) {
			if password != "correct" {
				return nil, common.ErrorUnauthorized
			}
			return &services.TokenPair{AccessToken: "acc", RefreshToken: "ref"}, nil
		},
	}
	s := newTestServer(t, users, nil, nil)

	var got tokenResponse
	doJSON(t, s, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"email": "alice@example.com", "password": "correct",
	}).decodeJSON(fiber.StatusOK, &got)
	assert.Equal(t, "acc", got.AccessToken)

	var unauthorized map[string]string
	doJSON(t, s, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"email": "alice@example.com", "password": "wrong",
	}).decodeJSON(fiber.StatusUnauthorized, &unauthorized)
	assert.Equal(t, "unauthorized", unauthorized["error"])
}

func TestAPIRefresh(t *testing.T) {
	users := &fakeUsers{
		refreshFn: func(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
			switch refreshToken {
			case "good":
				return &services.TokenPair{AccessToken: "acc2", RefreshToken: "ref2"}, nil
			case "expired":
				return nil, common.ErrRefreshTokenExpired
			default:
				return nil, common.ErrorUnauthorized
			}
		},
	}
	s := newTestServer(t, users, nil, nil)

	var got tokenResponse
	doJSON(t, s, fiber.MethodPost, "/api/v1/auth/refresh", "", fiber.Map{
		"refresh_token": "good",
	}).decodeJSON(fiber.StatusOK, &got)
	assert.Equal(t, "ref2", got.RefreshToken)

	var expired map[string]string
	doJSON(t, s, fiber.MethodPost, "/api/v1/auth/refresh", "", fiber.Map{
		"refresh_token": "expired",
	}).decodeJSON(fiber.StatusUnauthorized, &expired)

	var unknown map[string]string
	doJSON(t, s, fiber.MethodPost, "/api/v1/auth/refresh", "", fiber.Map{
		"refresh_token": "never-issued",
	}).decodeJSON(fiber.StatusUnauthorized, &unknown)
}

func TestAPIMe(t *testing.T) {
	users := &fakeUsers{
		getFn: func(ctx context.Context, id string) (*models.User, error) {
			require.Equal(t, "u1", id)
			return testUser(), nil
		},
	}
	s := newTestServer(t, users, nil, nil)

	var got userResponse
	doJSON(t, s, fiber.MethodGet, "/api/v1/users/me", bearerToken(t, s, "u1"), nil).
		decodeJSON(fiber.StatusOK, &got)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "Europe/Riga", got.Timezone)
}

func TestAPIMe_TokenRequired(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	var missing map[string]string
	doJSON(t, s, fiber.MethodGet, "/api/v1/users/me", "", nil).
		decodeJSON(fiber.StatusUnauthorized, &missing)
	assert.Equal(t, "missing token", missing["error"])

	var invalid map[string]string
	doJSON(t, s, fiber.MethodGet, "/api/v1/users/me", "Bearer garbage", nil).
		decodeJSON(fiber.StatusUnauthorized, &invalid)
	assert.Equal(t, "invalid token", invalid["error"])

	var scheme map[string]string
	doJSON(t, s, fiber.MethodGet, "/api/v1/users/me", "Basic dXNlcjpwdw==", nil).
		decodeJSON(fiber.StatusUnauthorized, &scheme)
	assert.Equal(t, "invalid token", scheme["error"])
}

func TestAPIUpdateMe_PartialPatch(t *testing.T) {
	var gotName, gotTimezone string
	users := &fakeUsers{
		getFn: func(ctx context.Context, id string) (*models.User, error) {
			return testUser(), nil
		},
		updateFn: func(ctx context.Context, userID, name, timezone string) (*models.User, error) {
			gotName, gotTimezone = name, timezone
			u := testUser()
			u.Name, u.Timezone = name, timezone
			return u, nil
		},
	}
	s := newTestServer(t, users, nil, nil)

	var got userResponse
	doJSON(t, s, fiber.MethodPatch, "/api/v1/users/me", bearerToken(t, s, "u1"), fiber.Map{
		"timezone": "UTC",
	}).decodeJSON(fiber.StatusOK, &got)

	// The omitted name keeps its stored value.
	assert.Equal(t, "Alice", gotName)
	assert.Equal(t, "UTC", gotTimezone)
	assert.Equal(t, "UTC", got.Timezone)
}

func TestAPIProfile(t *testing.T) {
	profile := &models.Profile{
		ID:          "p1",
		UserID:      "u1",
		DisplayName: "Alice",
		AvatarKey:   "avatars/user_u1/avatar.png",
		Configuration: models.Configuration{
			"fasting": {"min_fast_duration": float64(30)},
		},
	}
	profiles := &fakeProfiles{
		getFn: func(ctx context.Context, userID string) (*models.Profile, error) {
			return profile, nil
		},
		avatarURLFn: func(ctx context.Context, p *models.Profile) (string, error) {
			return "/avatars/" + p.AvatarKey, nil
		},
	}
	s := newTestServer(t, nil, nil, profiles)

	var got profileResponse
	doJSON(t, s, fiber.MethodGet, "/api/v1/profile", bearerToken(t, s, "u1"), nil).
		decodeJSON(fiber.StatusOK, &got)

	assert.Equal(t, "Alice", got.DisplayName)
	assert.Equal(t, "/avatars/avatars/user_u1/avatar.png", got.AvatarURL)
	require.Contains(t, got.Configuration, "fasting")
	assert.Equal(t, float64(30), got.Configuration["fasting"]["min_fast_duration"])
}

func TestAPIUpdateProfile_Validation(t *testing.T) {
	profiles := &fakeProfiles{
		updateNameFn: func(ctx context.Context, userID, displayName string) (*models.Profile, error) {
			return nil, models.ValidationErrors{
				{Field: "display_name", Message: "Display name cannot exceed 150 characters."},
			}
		},
	}
	s := newTestServer(t, nil, nil, profiles)

	var got struct {
		Errors map[string]string `json:"errors"`
	}
	doJSON(t, s, fiber.MethodPatch, "/api/v1/profile", bearerToken(t, s, "u1"), fiber.Map{
		"display_name": strings.Repeat("x", 151),
	}).decodeJSON(fiber.StatusBadRequest, &got)
	assert.Equal(t, "Display name cannot exceed 150 characters.", got.Errors["display_name"])
}

func TestAPIUploadAvatar(t *testing.T) {
	var gotData []byte
	profiles := &fakeProfiles{
		updateAvatarFn: func(ctx context.Context, userID string, data []byte) (*models.Profile, error) {
			gotData = data
			return &models.Profile{UserID: userID, DisplayName: "Alice", AvatarKey: "avatars/user_u1/avatar.png"}, nil
		},
		avatarURLFn: func(ctx context.Context, p *models.Profile) (string, error) {
			return "/" + p.AvatarKey, nil
		},
	}
	s := newTestServer(t, nil, nil, profiles)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(fiber.MethodPut, "/api/v1/profile/avatar", &buf)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(common.AuthHeaderName, bearerToken(t, s, "u1"))

	r := &httpResponse{t: t, resp: doRequest(t, s, req)}
	var got profileResponse
	r.decodeJSON(fiber.StatusOK, &got)

	assert.Equal(t, []byte("fake png bytes"), gotData)
	assert.Equal(t, "/avatars/user_u1/avatar.png", got.AvatarURL)
}

func TestAPIUploadAvatar_FileRequired(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	var got map[string]string
	doJSON(t, s, fiber.MethodPut, "/api/v1/profile/avatar", bearerToken(t, s, "u1"), nil).
		decodeJSON(fiber.StatusBadRequest, &got)
	assert.Equal(t, "avatar file is required", got["error"])
}

func TestAPIDeleteAvatar(t *testing.T) {
	deleted := false
	profiles := &fakeProfiles{
		deleteAvatarFn: func(ctx context.Context, userID string) (*models.Profile, error) {
			deleted = true
			return &models.Profile{UserID: userID}, nil
		},
	}
	s := newTestServer(t, nil, nil, profiles)

	r := doJSON(t, s, fiber.MethodDelete, "/api/v1/profile/avatar", bearerToken(t, s, "u1"), nil)
	defer r.resp.Body.Close()
	require.Equal(t, fiber.StatusNoContent, r.resp.StatusCode)
	assert.True(t, deleted)
}

func TestAPIConfiguration(t *testing.T) {
	var gotApp, gotKey string
	var gotValue any
	profiles := &fakeProfiles{
		setConfigFn: func(ctx context.Context, userID, appName, key string, value any) (*models.Profile, error) {
			gotApp, gotKey, gotValue = appName, key, value
			return &models.Profile{
				UserID:        userID,
				Configuration: models.Configuration{appName: {key: value}},
			}, nil
		},
		deleteConfigFn: func(ctx context.Context, userID, appName, key string) (*models.Profile, error) {
			return &models.Profile{UserID: userID, Configuration: models.Configuration{}}, nil
		},
	}
	s := newTestServer(t, nil, nil, profiles)
	token := bearerToken(t, s, "u1")

	var got struct {
		Configuration models.Configuration `json:"configuration"`
	}
	doJSON(t, s, fiber.MethodPost, "/api/v1/profile/configuration", token, fiber.Map{
		"app_name": "nutrition", "key": "daily_calories", "value": 1800,
	}).decodeJSON(fiber.StatusOK, &got)

	assert.Equal(t, "nutrition", gotApp)
	assert.Equal(t, "daily_calories", gotKey)
	assert.Equal(t, float64(1800), gotValue)
	assert.Equal(t, float64(1800), got.Configuration["nutrition"]["daily_calories"])

	var afterDelete struct {
		Configuration models.Configuration `json:"configuration"`
	}
	doJSON(t, s, fiber.MethodDelete, "/api/v1/profile/configuration", token, fiber.Map{
		"app_name": "nutrition", "key": "daily_calories",
	}).decodeJSON(fiber.StatusOK, &afterDelete)
	assert.Empty(t, afterDelete.Configuration)
}

func TestAPIErrorsAreJSON(t *testing.T) {
	fasts := &fakeFasts{}
	s := newTestServer(t, nil, fasts, nil)

	// An unknown API path must come back as JSON, not a rendered page.
	r := doJSON(t, s, fiber.MethodGet, "/api/v1/unknown", "", nil)
	var got map[string]string
	r.decodeJSON(fiber.StatusNotFound, &got)
	assert.NotEmpty(t, got["error"])
}

func TestAPICORSPreflight(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	req := httptest.NewRequest(fiber.MethodOptions, "/api/v1/users/me", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://app.example.com")
	req.Header.Set(fiber.HeaderAccessControlRequestMethod, fiber.MethodGet)
	resp := doRequest(t, s, req)

	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}
