package web

import (
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/fastkeeper/internal/common"
	"github.com/dmitrijs2005/fastkeeper/internal/server/models"
	"github.com/dmitrijs2005/fastkeeper/internal/server/services"
)

func (s *Server) healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

// apiError maps service errors onto API status codes. Anything unrecognized
// bubbles up to the app error handler as a 500.
func apiError(c *fiber.Ctx, err error) error {
	var verrs models.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": verrs.Fields()})
	case errors.Is(err, common.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email already registered"})
	case errors.Is(err, common.ErrActiveFastExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "an active fast already exists"})
	case errors.Is(err, common.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict"})
	case errors.Is(err, common.ErrorNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrInvalidToken):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	return err
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Timezone:  u.Timezone,
		CreatedAt: u.CreatedAt,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func newTokenResponse(pair *services.TokenPair) tokenResponse {
	return tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
}

type profileResponse struct {
	DisplayName   string               `json:"display_name"`
	AvatarURL     string               `json:"avatar_url,omitempty"`
	Configuration models.Configuration `json:"configuration"`
}

func (s *Server) newProfileResponse(c *fiber.Ctx, p *models.Profile) (profileResponse, error) {
	url, err := s.profiles.AvatarURL(c.UserContext(), p)
	if err != nil {
		return profileResponse{}, err
	}
	return profileResponse{
		DisplayName:   p.DisplayName,
		AvatarURL:     url,
		Configuration: p.Configuration,
	}, nil
}

func (s *Server) apiRegister(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Timezone string `json:"timezone"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	user, err := s.users.Register(c.UserContext(), req.Email, req.Name, req.Timezone, req.Password)
	if err != nil {
		return apiError(c, err)
	}
	pair, err := s.users.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return apiError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":          newUserResponse(user),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (s *Server) apiLogin(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	pair, err := s.users.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(newTokenResponse(pair))
}

func (s *Server) apiRefresh(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	pair, err := s.users.RefreshToken(c.UserContext(), req.RefreshToken)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(newTokenResponse(pair))
}

func (s *Server) apiMe(c *fiber.Ctx) error {
	user, err := s.users.GetByID(c.UserContext(), requestUserID(c))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(newUserResponse(user))
}

// apiUpdateMe patches the account. Absent fields keep their current value.
func (s *Server) apiUpdateMe(c *fiber.Ctx) error {
	var req struct {
		Name     *string `json:"name"`
		Timezone *string `json:"timezone"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	userID := requestUserID(c)
	user, err := s.users.GetByID(c.UserContext(), userID)
	if err != nil {
		return apiError(c, err)
	}

	name, timezone := user.Name, user.Timezone
	if req.Name != nil {
		name = *req.Name
	}
	if req.Timezone != nil {
		timezone = *req.Timezone
	}

	user, err = s.users.UpdateAccount(c.UserContext(), userID, name, timezone)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(newUserResponse(user))
}

func (s *Server) apiProfile(c *fiber.Ctx) error {
	profile, err := s.profiles.Get(c.UserContext(), requestUserID(c))
	if err != nil {
		return apiError(c, err)
	}
	resp, err := s.newProfileResponse(c, profile)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (s *Server) apiUpdateProfile(c *fiber.Ctx) error {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	profile, err := s.profiles.UpdateDisplayName(c.UserContext(), requestUserID(c), req.DisplayName)
	if err != nil {
		return apiError(c, err)
	}
	resp, err := s.newProfileResponse(c, profile)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// apiUploadAvatar replaces the avatar with the multipart "avatar" file.
func (s *Server) apiUploadAvatar(c *fiber.Ctx) error {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "avatar file is required")
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return err
	}

	profile, err := s.profiles.UpdateAvatar(c.UserContext(), requestUserID(c), data)
	if err != nil {
		return apiError(c, err)
	}
	resp, err := s.newProfileResponse(c, profile)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (s *Server) apiDeleteAvatar(c *fiber.Ctx) error {
	if _, err := s.profiles.DeleteAvatar(c.UserContext(), requestUserID(c)); err != nil {
		return apiError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) apiSetConfiguration(c *fiber.Ctx) error {
	var req struct {
		AppName string `json:"app_name"`
		Key     string `json:"key"`
		Value   any    `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	profile, err := s.profiles.SetConfiguration(c.UserContext(), requestUserID(c), req.AppName, req.Key, req.Value)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"configuration": profile.Configuration})
}

// apiDeleteConfiguration removes one key, or a whole application section
// when key is empty.
func (s *Server) apiDeleteConfiguration(c *fiber.Ctx) error {
	var req struct {
		AppName string `json:"app_name"`
		Key     string `json:"key"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	profile, err := s.profiles.DeleteConfiguration(c.UserContext(), requestUserID(c), req.AppName, req.Key)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"configuration": profile.Configuration})
}
