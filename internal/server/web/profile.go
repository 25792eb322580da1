package web

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/fastkeeper/internal/server/models"
)

func (s *Server) profilePage(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	userID := requestUserID(c)
	ctx := c.UserContext()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return err
	}
	avatarURL, err := s.profiles.AvatarURL(ctx, profile)
	if err != nil {
		return err
	}

	return s.renderPage(c, sess, "profile", fiber.Map{
		"Email":       user.Email,
		"Name":        user.Name,
		"Timezone":    user.Timezone,
		"DisplayName": profile.DisplayName,
		"AvatarURL":   avatarURL,
	})
}

// updateProfile saves the profile form: account name and timezone, the
// display name, and optionally a new or removed avatar image.
func (s *Server) updateProfile(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	userID := requestUserID(c)
	ctx := c.UserContext()

	name := c.FormValue("name")
	timezone := c.FormValue("timezone")
	displayName := c.FormValue("display_name")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	bind := fiber.Map{
		"Email":       user.Email,
		"Name":        name,
		"Timezone":    timezone,
		"DisplayName": displayName,
		"Flash":       "There was an error updating your profile. Please check the form and try again.",
		"FlashLevel":  "error",
	}

	fail := func(err error) error {
		var verrs models.ValidationErrors
		if errors.As(err, &verrs) {
			bind["Errors"] = verrs
			return s.renderPage(c, sess, "profile", bind)
		}
		return err
	}

	if _, err := s.users.UpdateAccount(ctx, userID, name, timezone); err != nil {
		return fail(err)
	}
	if _, err := s.profiles.UpdateDisplayName(ctx, userID, displayName); err != nil {
		return fail(err)
	}

	if fh, err := c.FormFile("avatar"); err == nil && fh != nil && fh.Size > 0 {
		f, err := fh.Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return err
		}
		if _, err := s.profiles.UpdateAvatar(ctx, userID, data); err != nil {
			return fail(err)
		}
	} else if c.FormValue("remove_avatar") != "" {
		if _, err := s.profiles.DeleteAvatar(ctx, userID); err != nil {
			return err
		}
	}

	return s.flashAndRedirect(c, sess, "success", "Profile updated successfully.", "/profile")
}
