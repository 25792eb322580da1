package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/fastkeeper/internal/common"
	"github.com/dmitrijs2005/fastkeeper/internal/server/models"
)

func (s *Server) loginPage(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	if id, _ := sess.Get(sessionKeyUserID).(string); id != "" {
		return c.Redirect("/")
	}
	return s.renderPage(c, sess, "login", nil)
}

func (s *Server) login(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}

	email := c.FormValue("email")
	password := c.FormValue("password")

	user, err := s.users.Authenticate(c.UserContext(), email, password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return s.renderPage(c, sess, "login", fiber.Map{
				"FormError": "Invalid email or password.",
				"Email":     email,
			})
		}
		return err
	}

	// Fresh session id on privilege change.
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(sessionKeyUserID, user.ID)
	sess.Set(sessionKeyUserEmail, user.Email)
	if err := sess.Save(); err != nil {
		return err
	}
	return c.Redirect("/")
}

func (s *Server) logout(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	if err := sess.Destroy(); err != nil {
		return err
	}
	return c.Redirect("/login")
}

func (s *Server) registerPage(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	if id, _ := sess.Get(sessionKeyUserID).(string); id != "" {
		return c.Redirect("/")
	}
	return s.renderPage(c, sess, "register", nil)
}

func (s *Server) register(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}

	email := c.FormValue("email")
	name := c.FormValue("name")
	timezone := c.FormValue("timezone")
	password := c.FormValue("password1")
	confirm := c.FormValue("password2")

	bind := fiber.Map{"Email": email, "Name": name, "Timezone": timezone}

	if password != confirm {
		bind["Errors"] = models.ValidationErrors{
			{Field: "password2", Message: "Passwords do not match."},
		}
		return s.renderPage(c, sess, "register", bind)
	}

	user, err := s.users.Register(c.UserContext(), email, name, timezone, password)
	if err != nil {
		var verrs models.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			bind["Errors"] = verrs
			return s.renderPage(c, sess, "register", bind)
		case errors.Is(err, common.ErrEmailTaken):
			bind["Errors"] = models.ValidationErrors{
				{Field: "email", Message: "A user is already registered with this email address."},
			}
			return s.renderPage(c, sess, "register", bind)
		}
		return err
	}

	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(sessionKeyUserID, user.ID)
	sess.Set(sessionKeyUserEmail, user.Email)
	setFlash(sess, "success", "Welcome to FastKeeper! Your account has been created.")
	if err := sess.Save(); err != nil {
		return err
	}
	return c.Redirect("/")
}
