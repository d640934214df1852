package handler

import (
	"errors"
	"net/http"

	"clinicash/internal/apierror"
	"clinicash/internal/dto"
	"clinicash/internal/middleware"
	"clinicash/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CashSessionHandler struct{ svc service.CashSessionService }

func NewCashSessionHandler(svc service.CashSessionService) *CashSessionHandler {
	return &CashSessionHandler{svc: svc}
}

// writeSessionError maps service sentinel errors to HTTP statuses. Anything
// unrecognized is delegated to the error middleware as a 500.
func writeSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrClinicNotFound):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, service.ErrSessionNotOpen),
		errors.Is(err, service.ErrEarlierSessionOpen),
		errors.Is(err, service.ErrSessionNotClosed),
		errors.Is(err, service.ErrOpenSessionExists):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, service.ErrSystemIDMissing):
		// Broken auth/session configuration, not a caller mistake.
		c.JSON(http.StatusInternalServerError, apierror.New(err.Error()))
	default:
		_ = c.Error(err)
	}
}

// Open godoc
// @Summary Abre una nueva sesión de caja
// @Tags cash-sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenCashSessionRequest true "Datos de apertura"
// @Success 201 {object} dto.CashSessionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/cash-sessions [post]
func (h *CashSessionHandler) Open(c *gin.Context) {
	var req dto.OpenCashSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID de usuario inválido"))
		return
	}

	resp, err := h.svc.Open(c.Request.Context(), userID, req)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Close godoc
// @Summary Cierra una sesión de caja (arqueo, conciliación de deudas y cascada de saldos)
// @Tags cash-sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesión"
// @Param body body dto.CloseCashSessionRequest true "Declaración de cierre"
// @Success 200 {object} dto.CashSessionResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/cash-sessions/{id}/close [post]
func (h *CashSessionHandler) Close(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.CloseCashSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	// counted_cash must be present, but 0 is a valid count.
	if req.CountedCash == nil {
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(map[string]string{"CountedCash": "required"}))
		return
	}
	claims := middleware.GetClaims(c)
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID de usuario inválido"))
		return
	}

	resp, err := h.svc.Close(c.Request.Context(), sessionID, userID, req)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reconcile marks a CLOSED session as RECONCILED after supervisor review.
func (h *CashSessionHandler) Reconcile(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.ReconcileCashSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	userID, _ := uuid.Parse(claims.UserID)

	resp, err := h.svc.Reconcile(c.Request.Context(), sessionID, userID, req)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reopen reverts a CLOSED session to OPEN, un-accounting its tickets.
func (h *CashSessionHandler) Reopen(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	claims := middleware.GetClaims(c)
	userID, _ := uuid.Parse(claims.UserID)

	resp, err := h.svc.Reopen(c.Request.Context(), sessionID, userID)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetDetail godoc
// @Summary Obtiene el detalle de una sesión de caja
// @Tags cash-sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesión"
// @Success 200 {object} dto.CashSessionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash-sessions/{id} [get]
func (h *CashSessionHandler) GetDetail(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	resp, err := h.svc.GetDetail(c.Request.Context(), sessionID)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List returns the paginated session history for a clinic.
func (h *CashSessionHandler) List(c *gin.Context) {
	var filter dto.CashSessionFilter
	if !bindQueryAndValidate(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetActive returns the currently open session for a clinic (and optional
// terminal), or 404 when none is open.
func (h *CashSessionHandler) GetActive(c *gin.Context) {
	clinicID, err := uuid.Parse(c.Query("clinic_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("clinic_id inválido"))
		return
	}
	var posTerminalID *uuid.UUID
	if raw := c.Query("pos_terminal_id"); raw != "" {
		tid, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("pos_terminal_id inválido"))
			return
		}
		posTerminalID = &tid
	}

	resp, err := h.svc.GetActive(c.Request.Context(), clinicID, posTerminalID)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, apierror.New("Sin sesión de caja activa"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CountOpen returns how many sessions remain OPEN for a clinic.
func (h *CashSessionHandler) CountOpen(c *gin.Context) {
	clinicID, err := uuid.Parse(c.Query("clinic_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("clinic_id inválido"))
		return
	}
	count, err := h.svc.CountOpen(c.Request.Context(), clinicID)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
