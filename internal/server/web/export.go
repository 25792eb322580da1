package web

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// exportTimeLayout is the timestamp format used in CSV exports.
const exportTimeLayout = "2006-01-02 15:04:05"

func exportFileName(ext string) string {
	return fmt.Sprintf("fasting_data_%s%s", time.Now().Format("20060102"), ext)
}

// exportCSV streams the user's full fasting history as a CSV download.
// Active fasts report their elapsed time so far in the duration column.
func (s *Server) exportCSV(c *fiber.Ctx) error {
	list, err := s.fasts.Export(c.UserContext(), requestUserID(c))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	records := [][]string{
		{"Start Time", "End Time", "Duration (hours)", "Status", "Emotional Status", "Comments"},
	}
	now := time.Now()
	for _, f := range list {
		end, status, duration := "", "Active", f.ElapsedHours(now)
		if f.EndTime != nil {
			end = f.EndTime.Format(exportTimeLayout)
			status = "Completed"
			duration = f.DurationHours()
		}
		records = append(records, []string{
			f.StartTime.Format(exportTimeLayout),
			end,
			duration,
			status,
			f.EmotionalStatus.Display(),
			f.Comments,
		})
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", exportFileName(".csv")))
	return c.Send(buf.Bytes())
}

type exportedFast struct {
	ID                     string     `json:"id"`
	StartTime              time.Time  `json:"start_time"`
	EndTime                *time.Time `json:"end_time"`
	DurationSeconds        int64      `json:"duration_seconds"`
	IsActive               bool       `json:"is_active"`
	EmotionalStatus        string     `json:"emotional_status"`
	EmotionalStatusDisplay string     `json:"emotional_status_display"`
	Comments               string     `json:"comments"`
}

type exportPayload struct {
	ExportedAt time.Time      `json:"exported_at"`
	UserEmail  string         `json:"user_email"`
	TotalFasts int            `json:"total_fasts"`
	Fasts      []exportedFast `json:"fasts"`
}

func (s *Server) exportJSON(c *fiber.Ctx) error {
	userID := requestUserID(c)
	ctx := c.UserContext()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	list, err := s.fasts.Export(ctx, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	payload := exportPayload{
		ExportedAt: now,
		UserEmail:  user.Email,
		TotalFasts: len(list),
		Fasts:      make([]exportedFast, 0, len(list)),
	}
	for _, f := range list {
		seconds := f.DurationSeconds()
		if f.IsActive() {
			seconds = f.ElapsedSeconds(now)
		}
		payload.Fasts = append(payload.Fasts, exportedFast{
			ID:                     f.ID,
			StartTime:              f.StartTime,
			EndTime:                f.EndTime,
			DurationSeconds:        seconds,
			IsActive:               f.IsActive(),
			EmotionalStatus:        string(f.EmotionalStatus),
			EmotionalStatusDisplay: f.EmotionalStatus.Display(),
			Comments:               f.Comments,
		})
	}

	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", exportFileName(".json")))
	return c.JSON(payload)
}
