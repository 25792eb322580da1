package web

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/fastkeeper/internal/common"
	"github.com/dmitrijs2005/fastkeeper/internal/server/auth"
)

const (
	localUserID    = "user_id"
	localRequestID = "request_id"
)

// requestUserID returns the authenticated user id stored by requireUser or
// requireToken. Empty on unauthenticated routes.
func requestUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := uuid.NewString()
		c.Locals(localRequestID, requestID)
		c.Set("X-Request-Id", requestID)

		err := c.Next()

		s.logger.Info(c.UserContext(), "request",
			"request_id", requestID,
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start).String(),
		)
		return err
	}
}

// corsMiddleware opens the JSON API to browser clients on other origins.
// Tokens travel in the Authorization header, so credentials stay disabled.
func (s *Server) corsMiddleware() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     s.config.CORSAllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: false,
	})
}

// rateLimitAuth limits credential endpoints to 10 requests per minute per IP.
func rateLimitAuth() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests")
		},
	})
}

// requireUser guards browser pages. Anonymous visitors are sent to the login
// page instead of getting an error.
func (s *Server) requireUser(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	userID, _ := sess.Get(sessionKeyUserID).(string)
	if userID == "" {
		return c.Redirect("/login")
	}
	c.Locals(localUserID, userID)
	return c.Next()
}

// requireToken guards API routes with a bearer access token.
func (s *Server) requireToken(c *fiber.Ctx) error {
	header := c.Get(common.AuthHeaderName)
	if header == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing token")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], common.AuthScheme) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}

	userID, err := auth.GetUserIDFromToken(parts[1], []byte(s.config.SecretKey))
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}

	c.Locals(localUserID, userID)
	return c.Next()
}
