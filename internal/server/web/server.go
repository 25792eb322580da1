// Package web serves the browser-facing application and the JSON API on a
// single fiber app. Pages are rendered server-side from embedded templates
// and authenticated with a session cookie; the /api/v1 routes speak JSON and
// authenticate with bearer tokens.
package web

import (
	"context"
	"embed"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/template/html/v2"

	"github.com/dmitrijs2005/fastkeeper/internal/logging"
	"github.com/dmitrijs2005/fastkeeper/internal/server/config"
	"github.com/dmitrijs2005/fastkeeper/internal/server/models"
	"github.com/dmitrijs2005/fastkeeper/internal/server/services"
)

//go:embed templates
var templatesFS embed.FS

// UserService is the slice of the account service the HTTP layer consumes.
type UserService interface {
	Register(ctx context.Context, email, name, timezone, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateAccount(ctx context.Context, userID, name, timezone string) (*models.User, error)
}

// FastService is the slice of the fasting service the HTTP layer consumes.
type FastService interface {
	Start(ctx context.Context, userID string, startTime time.Time) (*models.Fast, error)
	End(ctx context.Context, userID, fastID string, endTime time.Time, status models.EmotionalStatus, comments string) (*models.Fast, error)
	Update(ctx context.Context, userID, fastID string, startTime time.Time, endTime *time.Time, status models.EmotionalStatus, comments string) (*models.Fast, error)
	Delete(ctx context.Context, userID, fastID string) (bool, error)
	GetOwned(ctx context.Context, userID, fastID string) (*models.Fast, error)
	Active(ctx context.Context, userID string) (*models.Fast, error)
	Recent(ctx context.Context, userID string) ([]*models.Fast, error)
	List(ctx context.Context, userID string, page int) (*services.ListPage, error)
	Neighbors(ctx context.Context, userID string, fast *models.Fast) (*models.Fast, *models.Fast, error)
	Export(ctx context.Context, userID string) ([]*models.Fast, error)
}

// ProfileService is the slice of the profile service the HTTP layer consumes.
type ProfileService interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	UpdateDisplayName(ctx context.Context, userID, displayName string) (*models.Profile, error)
	SetConfiguration(ctx context.Context, userID, appName, key string, value any) (*models.Profile, error)
	DeleteConfiguration(ctx context.Context, userID, appName, key string) (*models.Profile, error)
	UpdateAvatar(ctx context.Context, userID string, data []byte) (*models.Profile, error)
	DeleteAvatar(ctx context.Context, userID string) (*models.Profile, error)
	AvatarURL(ctx context.Context, profile *models.Profile) (string, error)
}

// Server owns the fiber app, the session store and the services the handlers
// delegate to.
type Server struct {
	config   *config.Config
	logger   logging.Logger
	users    UserService
	fasts    FastService
	profiles ProfileService
	sessions *session.Store
	app      *fiber.App
}

// NewServer builds the app with all routes registered. storage backs the
// session store; pass nil to keep sessions in process memory.
func NewServer(cfg *config.Config, logger logging.Logger, users UserService, fasts FastService, profiles ProfileService, storage fiber.Storage) *Server {
	s := &Server{
		config:   cfg,
		logger:   logger,
		users:    users,
		fasts:    fasts,
		profiles: profiles,
		sessions: newSessionStore(cfg, storage),
	}

	engine := html.NewFileSystem(http.FS(templatesFS), ".html")

	s.app = fiber.New(fiber.Config{
		Views:                 engine,
		ErrorHandler:          s.errorHandler,
		DisableStartupMessage: true,
	})

	s.registerRoutes()
	return s
}

// Run starts listening and blocks until the context is cancelled or the
// listener fails.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			s.logger.Error(ctx, "Error stopping HTTP server", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.config.HTTPAddr)
	return s.app.Listen(s.config.HTTPAddr)
}

// errorHandler is the app-wide fiber error handler. API routes get a JSON
// body, everything else gets the rendered error page.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Error(c.UserContext(), "request failed",
			"method", c.Method(), "path", c.Path(), "error", err.Error())
	}

	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).JSON(fiber.Map{"error": message})
	}

	if renderErr := c.Status(code).Render("templates/error", fiber.Map{
		"Code":    code,
		"Message": message,
	}, "templates/layouts/main"); renderErr != nil {
		return c.SendString(message)
	}
	return nil
}

// renderPage renders a view inside the main layout, folding in any pending
// flash message and the signed-in email, then persists session changes.
// Handlers that call it must not call sess.Save themselves.
func (s *Server) renderPage(c *fiber.Ctx, sess *session.Session, name string, bind fiber.Map) error {
	if bind == nil {
		bind = fiber.Map{}
	}
	if level, message := popFlash(sess); message != "" {
		if _, ok := bind["Flash"]; !ok {
			bind["Flash"] = message
			bind["FlashLevel"] = level
		}
	}
	if email, ok := sess.Get(sessionKeyUserEmail).(string); ok && email != "" {
		bind["UserEmail"] = email
	}
	if err := sess.Save(); err != nil {
		return err
	}
	return c.Render("templates/"+name, bind, "templates/layouts/main")
}
