package web

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/fastkeeper/internal/common"
	"github.com/dmitrijs2005/fastkeeper/internal/server/models"
)

// datetimeLocalFormat is the value format of <input type="datetime-local">.
const datetimeLocalFormat = "2006-01-02T15:04"

// parseDateTimeLocal accepts the browser's datetime-local value, with or
// without a seconds component. Times are naive and read in server time.
func parseDateTimeLocal(raw string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", raw, time.Local); err == nil {
		return t, nil
	}
	return time.ParseInLocation(datetimeLocalFormat, raw, time.Local)
}

func (s *Server) dashboard(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	userID := requestUserID(c)

	active, err := s.activeFast(c, sess, userID)
	if err != nil {
		return err
	}
	recent, err := s.fasts.Recent(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return s.renderPage(c, sess, "dashboard", fiber.Map{
		"ActiveFast": active,
		"Recent":     recent,
		"Now":        time.Now(),
	})
}

// timer renders the bare elapsed-time fragment the dashboard polls.
func (s *Server) timer(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	userID := requestUserID(c)

	active, err := s.activeFast(c, sess, userID)
	if err != nil {
		return err
	}
	if err := sess.Save(); err != nil {
		return err
	}

	return c.Render("templates/partials/timer", fiber.Map{
		"ActiveFast": active,
		"Now":        time.Now(),
	})
}

func (s *Server) startFastPage(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	return s.renderPage(c, sess, "fast_start", fiber.Map{
		"StartTime": time.Now().Format(datetimeLocalFormat),
	})
}

func (s *Server) startFast(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	userID := requestUserID(c)

	raw := c.FormValue("start_time")
	bind := fiber.Map{
		"StartTime":  raw,
		"Flash":      "There was an error starting your fast. Please check the form and try again.",
		"FlashLevel": "error",
	}

	startTime, err := parseDateTimeLocal(raw)
	if err != nil {
		bind["Errors"] = models.ValidationErrors{
			{Field: "start_time", Message: "Enter a valid date and time."},
		}
		return s.renderPage(c, sess, "fast_start", bind)
	}

	fast, err := s.fasts.Start(c.UserContext(), userID, startTime)
	if err != nil {
		var verrs models.ValidationErrors
		switch {
		case errors.Is(err, common.ErrActiveFastExists):
			bind["FormError"] = "You already have an active fast. Please end your current fast before starting a new one."
		case errors.As(err, &verrs):
			bind["Errors"] = verrs
		default:
			return err
		}
		return s.renderPage(c, sess, "fast_start", bind)
	}

	sess.Set(sessionKeyActiveFast, fast.ID)
	return s.flashAndRedirect(c, sess, "success",
		"Fast started successfully! Your fasting timer is now running.", "/")
}

func (s *Server) endFastPage(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	userID := requestUserID(c)

	active, err := s.activeFast(c, sess, userID)
	if err != nil {
		return err
	}
	if active == nil {
		return s.flashAndRedirect(c, sess, "error", "You don't have an active fast to end.", "/")
	}

	return s.renderPage(c, sess, "fast_end", fiber.Map{
		"Fast":     active,
		"EndTime":  time.Now().Format(datetimeLocalFormat),
		"Status":   models.EmotionalStatus(""),
		"Statuses": models.EmotionalStatuses,
		"Now":      time.Now(),
	})
}

func (s *Server) endFast(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	userID := requestUserID(c)

	active, err := s.activeFast(c, sess, userID)
	if err != nil {
		return err
	}
	if active == nil {
		return s.flashAndRedirect(c, sess, "error", "You don't have an active fast to end.", "/")
	}

	rawEnd := c.FormValue("end_time")
	status := models.EmotionalStatus(c.FormValue("emotional_status"))
	comments := c.FormValue("comments")

	bind := fiber.Map{
		"Fast":       active,
		"EndTime":    rawEnd,
		"Status":     status,
		"Comments":   comments,
		"Statuses":   models.EmotionalStatuses,
		"Now":        time.Now(),
		"Flash":      "There was an error ending your fast. Please check the form and try again.",
		"FlashLevel": "error",
	}

	endTime, err := parseDateTimeLocal(rawEnd)
	if err != nil {
		bind["Errors"] = models.ValidationErrors{
			{Field: "end_time", Message: "Enter a valid date and time."},
		}
		return s.renderPage(c, sess, "fast_end", bind)
	}

	fast, err := s.fasts.End(c.UserContext(), userID, active.ID, endTime, status, comments)
	if err != nil {
		var verrs models.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			bind["Errors"] = verrs
			return s.renderPage(c, sess, "fast_end", bind)
		case errors.Is(err, common.ErrConflict):
			sess.Delete(sessionKeyActiveFast)
			return s.flashAndRedirect(c, sess, "error", "This fast has already been ended.", "/")
		case errors.Is(err, common.ErrorNotFound):
			sess.Delete(sessionKeyActiveFast)
			return s.flashAndRedirect(c, sess, "error", "The fast you're trying to end no longer exists.", "/")
		}
		return err
	}

	sess.Delete(sessionKeyActiveFast)
	return s.flashAndRedirect(c, sess, "success",
		fmt.Sprintf("Fast completed successfully! Duration: %s", fast.DurationHours()), "/")
}

func (s *Server) listFasts(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	userID := requestUserID(c)

	page, err := s.fasts.List(c.UserContext(), userID, c.QueryInt("page", 1))
	if err != nil {
		return err
	}

	pages := make([]int, page.TotalPages)
	for i := range pages {
		pages[i] = i + 1
	}

	return s.renderPage(c, sess, "fast_list", fiber.Map{
		"Page":  page,
		"Pages": pages,
		"Now":   time.Now(),
	})
}

func (s *Server) fastDetail(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	userID := requestUserID(c)

	fast, err := s.fasts.GetOwned(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fiber.ErrNotFound
		}
		return err
	}

	prev, next, err := s.fasts.Neighbors(c.UserContext(), userID, fast)
	if err != nil {
		return err
	}

	return s.renderPage(c, sess, "fast_detail", fiber.Map{
		"Fast": fast,
		"Prev": prev,
		"Next": next,
		"Now":  time.Now(),
	})
}

func (s *Server) editFastPage(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	userID := requestUserID(c)

	fast, err := s.fasts.GetOwned(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fiber.ErrNotFound
		}
		return err
	}

	endTime := ""
	if fast.EndTime != nil {
		endTime = fast.EndTime.Format(datetimeLocalFormat)
	}

	return s.renderPage(c, sess, "fast_edit", fiber.Map{
		"Fast":      fast,
		"StartTime": fast.StartTime.Format(datetimeLocalFormat),
		"EndTime":   endTime,
		"Status":    fast.EmotionalStatus,
		"Comments":  fast.Comments,
		"Statuses":  models.EmotionalStatuses,
	})
}

func (s *Server) editFast(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	userID := requestUserID(c)
	fastID := c.Params("id")

	rawStart := c.FormValue("start_time")
	rawEnd := c.FormValue("end_time")
	status := models.EmotionalStatus(c.FormValue("emotional_status"))
	comments := c.FormValue("comments")

	bind := fiber.Map{
		"StartTime":  rawStart,
		"EndTime":    rawEnd,
		"Status":     status,
		"Comments":   comments,
		"Statuses":   models.EmotionalStatuses,
		"Flash":      "There was an error updating your fast. Please check the form and try again.",
		"FlashLevel": "error",
	}

	var parseErrs models.ValidationErrors
	startTime, err := parseDateTimeLocal(rawStart)
	if err != nil {
		parseErrs = append(parseErrs, &models.ValidationError{
			Field: "start_time", Message: "Enter a valid date and time.",
		})
	}
	var endTime *time.Time
	if rawEnd != "" {
		t, err := parseDateTimeLocal(rawEnd)
		if err != nil {
			parseErrs = append(parseErrs, &models.ValidationError{
				Field: "end_time", Message: "Enter a valid date and time.",
			})
		} else {
			endTime = &t
		}
	}
	if len(parseErrs) > 0 {
		bind["Errors"] = parseErrs
		return s.renderPage(c, sess, "fast_edit", bind)
	}

	fast, err := s.fasts.Update(c.UserContext(), userID, fastID, startTime, endTime, status, comments)
	if err != nil {
		var verrs models.ValidationErrors
		switch {
		case errors.Is(err, common.ErrActiveFastExists):
			bind["FormError"] = "You already have an active fast. Please end your current fast before starting a new one."
			return s.renderPage(c, sess, "fast_edit", bind)
		case errors.As(err, &verrs):
			bind["Errors"] = verrs
			return s.renderPage(c, sess, "fast_edit", bind)
		case errors.Is(err, common.ErrorNotFound):
			return s.flashAndRedirect(c, sess, "error",
				"The fast you're trying to update no longer exists.", "/fasts")
		}
		return err
	}

	// The edit may have started or stopped this fast; drop the hint and let
	// the next page re-resolve it.
	sess.Delete(sessionKeyActiveFast)
	return s.flashAndRedirect(c, sess, "success", "Fast updated successfully!", "/fasts/"+fast.ID)
}

func (s *Server) deleteFastPage(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	userID := requestUserID(c)

	fast, err := s.fasts.GetOwned(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fiber.ErrNotFound
		}
		return err
	}

	return s.renderPage(c, sess, "fast_delete", fiber.Map{
		"Fast": fast,
		"Now":  time.Now(),
	})
}

func (s *Server) deleteFast(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	userID := requestUserID(c)

	wasActive, err := s.fasts.Delete(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fiber.ErrNotFound
		}
		return err
	}

	if wasActive {
		sess.Delete(sessionKeyActiveFast)
	}
	return s.flashAndRedirect(c, sess, "success", "Fast deleted successfully.", "/fasts")
}
