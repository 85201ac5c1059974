package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/finflowhq/finflow_backend/internal/apperrors"
	portssvc "github.com/finflowhq/finflow_backend/internal/core/ports/services"
	"github.com/finflowhq/finflow_backend/internal/dto"
	"github.com/finflowhq/finflow_backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// transactionHandler handles HTTP requests for user transactions.
type transactionHandler struct {
	transactionService portssvc.TransactionSvcFacade
}

func newTransactionHandler(transactionService portssvc.TransactionSvcFacade) *transactionHandler {
	return &transactionHandler{
		transactionService: transactionService,
	}
}

func (h *transactionHandler) createTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	createReq := dto.CreateTransactionRequest{}
	if err := c.ShouldBindJSON(&createReq); err != nil {
		logger.Error("Failed to bind JSON for CreateTransaction", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	userID := callerUserID(c)
	logger = logger.With(slog.String("user_id", userID))

	resp, err := h.transactionService.CreateTransaction(c.Request.Context(), createReq, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error creating transaction", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to create transaction", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create transaction"})
		}
		return
	}

	logger.Info("Transaction workflow finished", slog.String("saga_id", resp.SagaID), slog.String("status", resp.Status))
	c.JSON(http.StatusCreated, resp)
}

func (h *transactionHandler) reverseTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	journalID := c.Param("journalID")
	if journalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Journal ID is required"})
		return
	}

	userID := callerUserID(c)
	logger = logger.With(slog.String("user_id", userID), slog.String("journal_id", journalID))

	resp, err := h.transactionService.ReverseTransaction(c.Request.Context(), journalID, userID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			logger.Warn("Journal not found for reversal")
			c.JSON(http.StatusNotFound, gin.H{"error": "Journal not found"})
		case errors.Is(err, apperrors.ErrInvalidState), errors.Is(err, apperrors.ErrValidation):
			logger.Warn("Journal not reversible", slog.String("error", err.Error()))
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to reverse transaction", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reverse transaction"})
		}
		return
	}

	logger.Info("Reversal workflow finished", slog.String("saga_id", resp.SagaID), slog.String("status", resp.Status))
	c.JSON(http.StatusOK, resp)
}

// callerUserID identifies the requester from the X-User-ID header. Requests
// arrive from a trusted gateway that has already authenticated the user.
func callerUserID(c *gin.Context) string {
	if userID := c.GetHeader("X-User-ID"); userID != "" {
		return userID
	}
	return "system"
}

func registerTransactionRoutes(rg *gin.RouterGroup, transactionService portssvc.TransactionSvcFacade) {
	h := newTransactionHandler(transactionService)
	txns := rg.Group("/transactions")
	{
		txns.POST("", h.createTransaction)
		txns.POST("/:journalID/reverse", h.reverseTransaction)
	}
}
