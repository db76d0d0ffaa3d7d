package patient

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/spineclinic/intake/internal/platform/auth"
	"github.com/spineclinic/intake/pkg/pagination"
)

// EditRequestNotifier posts a durable edit-request notification to the
// reviewing doctor. Failures are swallowed by the implementation.
type EditRequestNotifier interface {
	EditRequested(ctx context.Context, doctorID, assistantID, patientID uuid.UUID, reason string, changes map[string]interface{})
}

// Handler provides HTTP handlers for the patient intake domain.
type Handler struct {
	svc      *Service
	notifier EditRequestNotifier
}

// NewHandler creates a new patient domain handler.
func NewHandler(svc *Service, notifier EditRequestNotifier) *Handler {
	return &Handler{svc: svc, notifier: notifier}
}

// RegisterRoutes registers all patient routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleAssistant, auth.RoleDoctor))
	staff.GET("/patients", h.List)
	staff.GET("/patients/:id", h.Get)

	assistant := api.Group("", auth.RequireRole(auth.RoleAssistant))
	assistant.POST("/patients", h.Create)
	assistant.PUT("/patients/:id", h.Update)
	assistant.POST("/patients/:id/edit-request", h.RequestEdit)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.POST("/patients/:id/status", h.SetStatus)
}

func (h *Handler) Create(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	createdBy := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.Create(c.Request().Context(), &p, createdBy); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	// Doctors see their own panel by default.
	if auth.RoleFromContext(ctx) == auth.RoleDoctor && c.QueryParam("all") == "" {
		items, total, err := h.svc.ListByDoctor(ctx, auth.UserIDFromContext(ctx), pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}

	items, total, err := h.svc.List(ctx, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.Update(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetStatus(c.Request().Context(), id, req.Status); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"id": id.String(), "status": req.Status})
}

type editRequest struct {
	Reason  string                 `json:"reason"`
	Changes map[string]interface{} `json:"changes,omitempty"`
}

// RequestEdit asks the reviewing doctor for permission to edit a locked
// record. The doctor answers through the notification respond endpoint.
func (h *Handler) RequestEdit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req editRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Reason == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reason is required")
	}

	ctx := c.Request().Context()
	p, err := h.svc.Get(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if p.Status == StatusPending {
		return echo.NewHTTPError(http.StatusBadRequest, "patient is still editable; no request needed")
	}

	h.notifier.EditRequested(ctx, p.AssignedDoctorID, auth.UserIDFromContext(ctx), p.ID, req.Reason, req.Changes)
	return c.JSON(http.StatusAccepted, map[string]string{"status": "requested"})
}
