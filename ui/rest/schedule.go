package rest

import (
	"strconv"
	"time"

	"github.com/contentops/scheduler/scheduling/application"
	"github.com/contentops/scheduler/scheduling/domain"
	"github.com/gofiber/fiber/v2"
)

// ScheduleHandler exposes the scheduling engine to the admin layer. It is a
// thin adapter: all rules live in the services.
type ScheduleHandler struct {
	scheduler *application.SchedulingService
	templates *application.TemplateService
	stats     *application.StatsService
}

func NewScheduleHandler(
	scheduler *application.SchedulingService,
	templates *application.TemplateService,
	stats *application.StatsService,
) *ScheduleHandler {
	return &ScheduleHandler{scheduler: scheduler, templates: templates, stats: stats}
}

func (h *ScheduleHandler) Register(router fiber.Router) {
	g := router.Group("/schedules")
	g.Post("/", h.CreateSchedule)
	g.Get("/", h.ListSchedules)
	g.Get("/statistics", h.Statistics)
	g.Get("/calendar", h.Calendar)
	g.Get("/suggested-times", h.SuggestedTimes)
	g.Get("/analytics", h.Analytics)
	g.Get("/histories", h.AllHistories)
	g.Get("/:id", h.GetSchedule)
	g.Put("/:id", h.UpdateSchedule)
	g.Post("/:id/cancel", h.CancelSchedule)
	g.Post("/:id/execute", h.ExecuteSchedule)
	g.Delete("/:id", h.DeleteSchedule)
	g.Get("/:id/history", h.History)

	t := router.Group("/templates")
	t.Post("/", h.CreateTemplate)
	t.Get("/", h.ListTemplates)
	t.Get("/:id", h.GetTemplate)
	t.Put("/:id", h.UpdateTemplate)
	t.Delete("/:id", h.DeleteTemplate)
	t.Post("/:id/apply", h.ApplyTemplate)
}

func (h *ScheduleHandler) CreateSchedule(c *fiber.Ctx) error {
	var req domain.CreateScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	sched, err := h.scheduler.Create(c.Context(), req, actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sched)
}

func (h *ScheduleHandler) ListSchedules(c *fiber.Ctx) error {
	filter := domain.ScheduleFilter{
		ContentType: domain.ContentType(c.Query("content_type")),
		ContentID:   c.Query("content_id"),
		Status:      domain.ScheduleStatus(c.Query("status")),
		Limit:       c.QueryInt("limit"),
		Offset:      c.QueryInt("offset"),
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = t
		}
	}
	if v := c.Query("until"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Until = t
		}
	}

	schedules, err := h.scheduler.List(c.Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(schedules)
}

func (h *ScheduleHandler) GetSchedule(c *fiber.Ctx) error {
	sched, err := h.scheduler.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sched)
}

func (h *ScheduleHandler) UpdateSchedule(c *fiber.Ctx) error {
	var req domain.UpdateScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	sched, err := h.scheduler.Update(c.Context(), c.Params("id"), req, actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sched)
}

func (h *ScheduleHandler) CancelSchedule(c *fiber.Ctx) error {
	if err := h.scheduler.Cancel(c.Context(), c.Params("id"), actorFrom(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"cancelled": true})
}

func (h *ScheduleHandler) ExecuteSchedule(c *fiber.Ctx) error {
	force := c.QueryBool("force")
	ok, msg, err := h.scheduler.Execute(c.Context(), c.Params("id"), actorFrom(c), force)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"executed": ok, "message": msg})
}

func (h *ScheduleHandler) DeleteSchedule(c *fiber.Ctx) error {
	if err := h.scheduler.Delete(c.Context(), c.Params("id"), actorFrom(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

func (h *ScheduleHandler) History(c *fiber.Ctx) error {
	entries, err := h.scheduler.History(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entries)
}

func (h *ScheduleHandler) AllHistories(c *fiber.Ctx) error {
	filter := domain.HistoryFilter{
		ScheduleID: c.Query("schedule_id"),
		Action:     domain.HistoryAction(c.Query("action")),
		Limit:      c.QueryInt("limit"),
	}
	if v := c.Query("success"); v != "" {
		b := v == "true" || v == "1"
		filter.Success = &b
	}

	entries, err := h.scheduler.AllHistories(c.Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entries)
}

func (h *ScheduleHandler) Statistics(c *fiber.Ctx) error {
	stats, err := h.stats.Statistics(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

func (h *ScheduleHandler) Calendar(c *fiber.Ctx) error {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "year is required"})
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "month must be 1-12"})
	}

	events, err := h.stats.Calendar(c.Context(), year, time.Month(month))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(events)
}

func (h *ScheduleHandler) SuggestedTimes(c *fiber.Ctx) error {
	ct := domain.ContentType(c.Query("content_type"))
	if ct == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content_type is required"})
	}

	suggestions, err := h.stats.SuggestedTimes(c.Context(), ct)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(suggestions)
}

func (h *ScheduleHandler) Analytics(c *fiber.Ctx) error {
	report, err := h.stats.AnalyticsReport(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

func (h *ScheduleHandler) CreateTemplate(c *fiber.Ctx) error {
	var req domain.CreateTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	tpl, err := h.templates.Create(c.Context(), req, actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tpl)
}

func (h *ScheduleHandler) ListTemplates(c *fiber.Ctx) error {
	templates, err := h.templates.List(c.Context(), c.QueryBool("active_only"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(templates)
}

func (h *ScheduleHandler) GetTemplate(c *fiber.Ctx) error {
	tpl, err := h.templates.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tpl)
}

func (h *ScheduleHandler) UpdateTemplate(c *fiber.Ctx) error {
	var tpl domain.Template
	if err := c.BodyParser(&tpl); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	tpl.ID = c.Params("id")

	updated, err := h.templates.Update(c.Context(), tpl)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

func (h *ScheduleHandler) DeleteTemplate(c *fiber.Ctx) error {
	if err := h.templates.Delete(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

func (h *ScheduleHandler) ApplyTemplate(c *fiber.Ctx) error {
	type applyRequest struct {
		ContentType   domain.ContentType            `json:"content_type"`
		ContentID     string                        `json:"content_id"`
		ScheduledTime time.Time                     `json:"scheduled_time"`
		Overrides     domain.ApplyTemplateOverrides `json:"overrides"`
	}
	var req applyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	sched, err := h.templates.Apply(c.Context(),
		c.Params("id"), req.ContentType, req.ContentID, req.ScheduledTime, req.Overrides, actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sched)
}
