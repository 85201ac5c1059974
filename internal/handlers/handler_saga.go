package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/finflowhq/finflow_backend/internal/apperrors"
	portssvc "github.com/finflowhq/finflow_backend/internal/core/ports/services"
	"github.com/finflowhq/finflow_backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// sagaHandler exposes read and cancel operations on workflow instances.
type sagaHandler struct {
	sagaService portssvc.SagaSvcFacade
}

func newSagaHandler(sagaService portssvc.SagaSvcFacade) *sagaHandler {
	return &sagaHandler{
		sagaService: sagaService,
	}
}

func (h *sagaHandler) getSagaStatus(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	sagaID := c.Param("sagaID")

	status, err := h.sagaService.GetSagaStatus(c.Request.Context(), sagaID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Saga not found"})
			return
		}
		logger.Error("Failed to get saga status", slog.String("saga_id", sagaID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve saga"})
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *sagaHandler) cancelSaga(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	sagaID := c.Param("sagaID")

	err := h.sagaService.CancelSaga(c.Request.Context(), sagaID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Saga not found"})
		case errors.Is(err, apperrors.ErrInvalidState):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to cancel saga", slog.String("saga_id", sagaID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel saga"})
		}
		return
	}

	logger.Info("Saga cancellation requested", slog.String("saga_id", sagaID))
	c.JSON(http.StatusAccepted, gin.H{"sagaId": sagaID, "message": "Cancellation requested"})
}

func registerSagaRoutes(rg *gin.RouterGroup, sagaService portssvc.SagaSvcFacade) {
	h := newSagaHandler(sagaService)
	sagas := rg.Group("/sagas")
	{
		sagas.GET("/:sagaID", h.getSagaStatus)
		sagas.POST("/:sagaID/cancel", h.cancelSaga)
	}
}
