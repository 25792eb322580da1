package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fastkeeper/internal/logging"
	"github.com/dmitrijs2005/fastkeeper/internal/server/config"
	"github.com/dmitrijs2005/fastkeeper/internal/server/models"
	"github.com/dmitrijs2005/fastkeeper/internal/server/services"
)

type fakeUsers struct {
	registerFn func(ctx context.Context, email, name, timezone, password string) (*models.User, error)
	authFn     func(ctx context.Context, email, password string) (*models.User, error)
	loginFn    func(ctx context.Context, email, password string) (*services.TokenPair, error)
	refreshFn  func(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	getFn      func(ctx context.Context, id string) (*models.User, error)
	updateFn   func(ctx context.Context, userID, name, timezone string) (*models.User, error)
}

func (f *fakeUsers) Register(ctx context.Context, email, name, timezone, password string) (*models.User, error) {
	if f.registerFn == nil {
		return nil, errors.New("unexpected Register call")
	}
	return f.registerFn(ctx, email, name, timezone, password)
}

func (f *fakeUsers) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	if f.authFn == nil {
		return nil, errors.New("unexpected Authenticate call")
	}
	return f.authFn(ctx, email, password)
}

func (f *fakeUsers) Login(ctx context.Context, email, password string) (*services.TokenPair, error) {
	if f.loginFn == nil {
		return nil, errors.New("unexpected Login call")
	}
	return f.loginFn(ctx, email, password)
}

func (f *fakeUsers) RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	if f.refreshFn == nil {
		return nil, errors.New("unexpected RefreshToken call")
	}
	return f.refreshFn(ctx, refreshToken)
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.getFn == nil {
		return nil, errors.New("unexpected GetByID call")
	}
	return f.getFn(ctx, id)
}

func (f *fakeUsers) UpdateAccount(ctx context.Context, userID, name, timezone string) (*models.User, error) {
	if f.updateFn == nil {
		return nil, errors.New("unexpected UpdateAccount call")
	}
	return f.updateFn(ctx, userID, name, timezone)
}

type fakeFasts struct {
	startFn     func(ctx context.Context, userID string, startTime time.Time) (*models.Fast, error)
	endFn       func(ctx context.Context, userID, fastID string, endTime time.Time, status models.EmotionalStatus, comments string) (*models.Fast, error)
	updateFn    func(ctx context.Context, userID, fastID string, startTime time.Time, endTime *time.Time, status models.EmotionalStatus, comments string) (*models.Fast, error)
	deleteFn    func(ctx context.Context, userID, fastID string) (bool, error)
	getOwnedFn  func(ctx context.Context, userID, fastID string) (*models.Fast, error)
	activeFn    func(ctx context.Context, userID string) (*models.Fast, error)
	recentFn    func(ctx context.Context, userID string) ([]*models.Fast, error)
	listFn      func(ctx context.Context, userID string, page int) (*services.ListPage, error)
	neighborsFn func(ctx context.Context, userID string, fast *models.Fast) (*models.Fast, *models.Fast, error)
	exportFn    func(ctx context.Context, userID string) ([]*models.Fast, error)
}

func (f *fakeFasts) Start(ctx context.Context, userID string, startTime time.Time) (*models.Fast, error) {
	if f.startFn == nil {
		return nil, errors.New("unexpected Start call")
	}
	return f.startFn(ctx, userID, startTime)
}

func (f *fakeFasts) End(ctx context.Context, userID, fastID string, endTime time.Time, status models.EmotionalStatus, comments string) (*models.Fast, error) {
	if f.endFn == nil {
		return nil, errors.New("unexpected End call")
	}
	return f.endFn(ctx, userID, fastID, endTime, status, comments)
}

func (f *fakeFasts) Update(ctx context.Context, userID, fastID string, startTime time.Time, endTime *time.Time, status models.EmotionalStatus, comments string) (*models.Fast, error) {
	if f.updateFn == nil {
		return nil, errors.New("unexpected Update call")
	}
	return f.updateFn(ctx, userID, fastID, startTime, endTime, status, comments)
}

func (f *fakeFasts) Delete(ctx context.Context, userID, fastID string) (bool, error) {
	if f.deleteFn == nil {
		return false, errors.New("unexpected Delete call")
	}
	return f.deleteFn(ctx, userID, fastID)
}

func (f *fakeFasts) GetOwned(ctx context.Context, userID, fastID string) (*models.Fast, error) {
	if f.getOwnedFn == nil {
		return nil, errors.New("unexpected GetOwned call")
	}
	return f.getOwnedFn(ctx, userID, fastID)
}

func (f *fakeFasts) Active(ctx context.Context, userID string) (*models.Fast, error) {
	if f.activeFn == nil {
		return nil, errors.New("unexpected Active call")
	}
	return f.activeFn(ctx, userID)
}

func (f *fakeFasts) Recent(ctx context.Context, userID string) ([]*models.Fast, error) {
	if f.recentFn == nil {
		return nil, errors.New("unexpected Recent call")
	}
	return f.recentFn(ctx, userID)
}

func (f *fakeFasts) List(ctx context.Context, userID string, page int) (*services.ListPage, error) {
	if f.listFn == nil {
		return nil, errors.New("unexpected List call")
	}
	return f.listFn(ctx, userID, page)
}

func (f *fakeFasts) Neighbors(ctx context.Context, userID string, fast *models.Fast) (*models.Fast, *models.Fast, error) {
	if f.neighborsFn == nil {
		return nil, nil, errors.New("unexpected Neighbors call")
	}
	return f.neighborsFn(ctx, userID, fast)
}

func (f *fakeFasts) Export(ctx context.Context, userID string) ([]*models.Fast, error) {
	if f.exportFn == nil {
		return nil, errors.New("unexpected Export call")
	}
	return f.exportFn(ctx, userID)
}

type fakeProfiles struct {
	getFn          func(ctx context.Context, userID string) (*models.Profile, error)
	updateNameFn   func(ctx context.Context, userID, displayName string) (*models.Profile, error)
	setConfigFn    func(ctx context.Context, userID, appName, key string, value any) (*models.Profile, error)
	deleteConfigFn func(ctx context.Context, userID, appName, key string) (*models.Profile, error)
	updateAvatarFn func(ctx context.Context, userID string, data []byte) (*models.Profile, error)
	deleteAvatarFn func(ctx context.Context, userID string) (*models.Profile, error)
	avatarURLFn    func(ctx context.Context, profile *models.Profile) (string, error)
}

func (f *fakeProfiles) Get(ctx context.Context, userID string) (*models.Profile, error) {
	if f.getFn == nil {
		return nil, errors.New("unexpected Get call")
	}
	return f.getFn(ctx, userID)
}

func (f *fakeProfiles) UpdateDisplayName(ctx context.Context, userID, displayName string) (*models.Profile, error) {
	if f.updateNameFn == nil {
		return nil, errors.New("unexpected UpdateDisplayName call")
	}
	return f.updateNameFn(ctx, userID, displayName)
}

func (f *fakeProfiles) SetConfiguration(ctx context.Context, userID, appName, key string, value any) (*models.Profile, error) {
	if f.setConfigFn == nil {
		return nil, errors.New("unexpected SetConfiguration call")
	}
	return f.setConfigFn(ctx, userID, appName, key, value)
}

func (f *fakeProfiles) DeleteConfiguration(ctx context.Context, userID, appName, key string) (*models.Profile, error) {
	if f.deleteConfigFn == nil {
		return nil, errors.New("unexpected DeleteConfiguration call")
	}
	return f.deleteConfigFn(ctx, userID, appName, key)
}

func (f *fakeProfiles) UpdateAvatar(ctx context.Context, userID string, data []byte) (*models.Profile, error) {
	if f.updateAvatarFn == nil {
		return nil, errors.New("unexpected UpdateAvatar call")
	}
	return f.updateAvatarFn(ctx, userID, data)
}

func (f *fakeProfiles) DeleteAvatar(ctx context.Context, userID string) (*models.Profile, error) {
	if f.deleteAvatarFn == nil {
		return nil, errors.New("unexpected DeleteAvatar call")
	}
	return f.deleteAvatarFn(ctx, userID)
}

func (f *fakeProfiles) AvatarURL(ctx context.Context, profile *models.Profile) (string, error) {
	if f.avatarURLFn == nil {
		return "", nil
	}
	return f.avatarURLFn(ctx, profile)
}

func newTestServer(t *testing.T, users UserService, fasts FastService, profiles ProfileService) *Server {
	t.Helper()

	if users == nil {
		users = &fakeUsers{}
	}
	if fasts == nil {
		fasts = &fakeFasts{}
	}
	if profiles == nil {
		profiles = &fakeProfiles{}
	}

	cfg := &config.Config{}
	cfg.LoadDefaults()
	logger := logging.NewJSONLogger(io.Discard, false)

	return NewServer(cfg, logger, users, fasts, profiles, nil)
}

func testUser() *models.User {
	return &models.User{
		ID:        "u1",
		Email:     "alice@example.com",
		Name:      "Alice",
		Timezone:  "Europe/Riga",
		CreatedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// loginSession signs the user in through the login form and returns the
// session cookie to attach to follow-up requests.
func loginSession(t *testing.T, s *Server, user *models.User) string {
	t.Helper()

	fu, ok := s.users.(*fakeUsers)
	require.True(t, ok, "loginSession needs a fakeUsers service")
	prev := fu.authFn
	fu.authFn = func(ctx context.Context, email, password string) (*models.User, error) {
		return user, nil
	}
	defer func() { fu.authFn = prev }()

	form := url.Values{"email": {user.Email}, "password": {"secret123"}}
	req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	cookie := resp.Header.Get(fiber.HeaderSetCookie)
	require.NotEmpty(t, cookie, "login must set a session cookie")
	return strings.TrimSpace(strings.Split(cookie, ";")[0])
}

func doRequest(t *testing.T, s *Server, req *http.Request) *http.Response {
	t.Helper()
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	return resp
}

// httpResponse wraps a response with assertion helpers for the common
// redirect-or-redisplay outcomes of form posts.
type httpResponse struct {
	t    *testing.T
	resp *http.Response
}

func (r *httpResponse) requireRedirect(location string) {
	r.t.Helper()
	defer r.resp.Body.Close()
	require.Equal(r.t, fiber.StatusFound, r.resp.StatusCode)
	require.Equal(r.t, location, r.resp.Header.Get(fiber.HeaderLocation))
}

func (r *httpResponse) requireStatus(code int) string {
	r.t.Helper()
	require.Equal(r.t, code, r.resp.StatusCode)
	return readBody(r.t, r.resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}
