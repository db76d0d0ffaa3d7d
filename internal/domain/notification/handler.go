package notification

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/spineclinic/intake/internal/platform/auth"
	"github.com/spineclinic/intake/pkg/pagination"
)

// Handler provides HTTP handlers for the notification domain.
type Handler struct {
	svc      *Service
	notifier *Notifier
}

// NewHandler creates a new notification handler. notifier may be nil in
// tests; it is only used to push edit-request decisions live.
func NewHandler(svc *Service, notifier *Notifier) *Handler {
	return &Handler{svc: svc, notifier: notifier}
}

// RegisterRoutes registers all notification routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleAssistant, auth.RoleDoctor))
	staff.GET("/notifications", h.List)
	staff.GET("/notifications/unread-count", h.UnreadCount)
	staff.POST("/notifications/:id/read", h.MarkRead)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.POST("/notifications/:id/respond", h.Respond)
}

func (h *Handler) List(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	unreadOnly := c.QueryParam("unread") == "true"

	items, total, err := h.svc.ListForUser(c.Request().Context(), userID, unreadOnly, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list notifications")
	}
	if items == nil {
		items = []*Notification{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UnreadCount(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	count, err := h.svc.CountUnread(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to count notifications")
	}
	return c.JSON(http.StatusOK, map[string]int{"unread": count})
}

func (h *Handler) MarkRead(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.MarkRead(c.Request().Context(), userID, id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type respondRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

func (h *Handler) Respond(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
	}
	var req respondRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())

	decision, err := h.svc.RespondToEditRequest(c.Request().Context(), doctorID, id, req.Approve, req.Note)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if h.notifier != nil {
		h.notifier.PushDecision(decision)
	}
	return c.JSON(http.StatusOK, decision)
}
