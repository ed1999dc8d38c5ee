package handler

import (
	"net/http"

	"shadowpaths-server/internal/middleware"
	"shadowpaths-server/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// getLibrary возвращает витрину каталога с прогрессом читателя.
func (h *APIHandler) getLibrary(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	entries, err := h.catalog.Library(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("Error building library", zap.Stringer("userID", userID), zap.Error(err))
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, libraryResponse{Stories: entries})
}

// getProfile возвращает аккаунт с актуальными счетчиками, медалями и трофеями.
func (h *APIHandler) getProfile(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	user, err := h.stats.GetProfile(c.Request().Context(), userID)
	if err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error loading profile", zap.Stringer("userID", userID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// popNotifications отдает и очищает накопленные попапы о наградах.
func (h *APIHandler) popNotifications(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	notifications, err := h.play.PopNotifications(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("Error popping notifications", zap.Stringer("userID", userID), zap.Error(err))
		return handleServiceError(c, err)
	}
	if notifications == nil {
		notifications = []models.RewardNotification{}
	}
	return c.JSON(http.StatusOK, notificationsResponse{Notifications: notifications})
}

// getStory возвращает играбельную историю вместе с прогрессом читателя.
func (h *APIHandler) getStory(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	st, entry, err := h.play.GetStory(c.Request().Context(), userID, storyID)
	if err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error getting story", zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, storyWithProgressResponse{Story: st, Progress: entry})
}

// visitNode переносит указатель продолжения читателя на узел.
func (h *APIHandler) visitNode(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	var req visitNodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.play.VisitNode(c.Request().Context(), userID, storyID, req.NodeID); err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error visiting node", zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.String("nodeID", req.NodeID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// visitEnding фиксирует достижение концовки.
func (h *APIHandler) visitEnding(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}
	endingID := c.Param("ending_id")

	first, err := h.play.VisitEnding(c.Request().Context(), userID, storyID, endingID)
	if err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error visiting ending", zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.String("endingID", endingID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	if first {
		endingsDiscoveredTotal.Inc()
	}
	return c.JSON(http.StatusOK, visitEndingResponse{FirstDiscovery: first})
}

// unlockChoice проводит покупку платного выбора.
func (h *APIHandler) unlockChoice(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}
	nodeID := c.Param("node_id")
	choiceID := c.Param("choice_id")

	outcome, err := h.play.UnlockChoice(c.Request().Context(), userID, storyID, nodeID, choiceID)
	if err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error unlocking choice",
				zap.Stringer("userID", userID), zap.Stringer("storyID", storyID),
				zap.String("nodeID", nodeID), zap.String("choiceID", choiceID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	if !outcome.AlreadyUnlocked {
		choicesUnlockedTotal.Inc()
	}
	return c.JSON(http.StatusOK, unlockResponse{
		AlreadyUnlocked: outcome.AlreadyUnlocked,
		Charged:         outcome.Charged,
		NewBalance:      outcome.NewBalance,
	})
}
