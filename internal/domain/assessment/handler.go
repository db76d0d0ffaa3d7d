package assessment

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/spineclinic/intake/internal/platform/auth"
	"github.com/spineclinic/intake/internal/triage"
	"github.com/spineclinic/intake/pkg/pagination"
)

// Handler provides HTTP handlers for the assessment domain.
type Handler struct {
	svc *Service
}

// NewHandler creates a new assessment handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers all assessment routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleAssistant, auth.RoleDoctor))
	staff.GET("/patients/:id/assessment", h.GetForPatient)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.GET("/assessments", h.List)
	doctor.POST("/patients/:id/assessment/feedback", h.SubmitFeedback)
}

// assessmentResponse pairs the opaque AI document with its typed summary
// so clients don't re-implement field extraction.
type assessmentResponse struct {
	*Assessment
	Summary triage.ResponseView `json:"summary"`
}

func (h *Handler) GetForPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	a, err := h.svc.GetForPatient(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "no assessment for patient")
	}
	return c.JSON(http.StatusOK, assessmentResponse{
		Assessment: a,
		Summary:    triage.ViewResponse(a.AIResponse),
	})
}

func (h *Handler) List(c echo.Context) error {
	doctorID := auth.UserIDFromContext(c.Request().Context())
	pg := pagination.FromContext(c)

	items, total, err := h.svc.ListByDoctor(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list assessments")
	}
	if items == nil {
		items = []*Assessment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type feedbackRequest struct {
	IsAccurate         bool     `json:"isAccurate"`
	CorrectionReason   *string  `json:"correctionReason"`
	CorrectedDiagnosis []string `json:"correctedDiagnosis"`
}

func (h *Handler) SubmitFeedback(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var req feedbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())

	a, err := h.svc.SubmitFeedback(c.Request().Context(), doctorID, patientID, Feedback{
		IsAccurate:         req.IsAccurate,
		CorrectionReason:   req.CorrectionReason,
		CorrectedDiagnosis: req.CorrectedDiagnosis,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}
