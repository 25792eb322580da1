package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/dmitrijs2005/fastkeeper/internal/common"
	"github.com/dmitrijs2005/fastkeeper/internal/server/config"
	"github.com/dmitrijs2005/fastkeeper/internal/server/models"
)

// Session keys. active_fast_id is a hint only; activeFast re-validates it
// against the database before trusting it.
const (
	sessionKeyUserID     = "user_id"
	sessionKeyUserEmail  = "user_email"
	sessionKeyActiveFast = "active_fast_id"
	sessionKeyFlash      = "flash"
	sessionKeyFlashLevel = "flash_level"
)

func newSessionStore(cfg *config.Config, storage fiber.Storage) *session.Store {
	sc := session.Config{
		Expiration:     cfg.SessionTTL,
		KeyLookup:      "cookie:fastkeeper_session",
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	}
	if storage != nil {
		sc.Storage = storage
	}
	return session.New(sc)
}

// setFlash queues a one-shot message for the next rendered page. A second
// call before the flash is shown replaces the first.
func setFlash(sess *session.Session, level, message string) {
	sess.Set(sessionKeyFlash, message)
	sess.Set(sessionKeyFlashLevel, level)
}

func popFlash(sess *session.Session) (level, message string) {
	message, _ = sess.Get(sessionKeyFlash).(string)
	level, _ = sess.Get(sessionKeyFlashLevel).(string)
	if message != "" {
		sess.Delete(sessionKeyFlash)
		sess.Delete(sessionKeyFlashLevel)
	}
	if level == "" {
		level = "success"
	}
	return level, message
}

// flashAndRedirect stores a flash message, saves the session and sends the
// browser to location.
func (s *Server) flashAndRedirect(c *fiber.Ctx, sess *session.Session, level, message, location string) error {
	setFlash(sess, level, message)
	if err := sess.Save(); err != nil {
		return err
	}
	return c.Redirect(location)
}

// activeFast resolves the user's running fast, trying the session hint
// before asking the database. A hint that no longer names a running fast
// owned by this user is dropped, and a fresh database answer re-primes it.
func (s *Server) activeFast(c *fiber.Ctx, sess *session.Session, userID string) (*models.Fast, error) {
	ctx := c.UserContext()

	if id, ok := sess.Get(sessionKeyActiveFast).(string); ok && id != "" {
		fast, err := s.fasts.GetOwned(ctx, userID, id)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		if err == nil && fast.IsActive() {
			return fast, nil
		}
		sess.Delete(sessionKeyActiveFast)
	}

	fast, err := s.fasts.Active(ctx, userID)
	if err != nil {
		return nil, err
	}
	if fast != nil {
		sess.Set(sessionKeyActiveFast, fast.ID)
	}
	return fast, nil
}
