package handler

import (
	"context"
	"net/http"
	"strings"

	"shadowpaths-server/internal/models"
	"shadowpaths-server/internal/story"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// adminListStories возвращает сводки историй по фильтру из query-параметров:
// status (список через запятую), origin, author_id.
func (h *APIHandler) adminListStories(c echo.Context) error {
	filter := models.StoryFilter{}

	if statusParam := c.QueryParam("status"); statusParam != "" {
		for _, s := range strings.Split(statusParam, ",") {
			filter.Statuses = append(filter.Statuses, models.StoryStatus(strings.TrimSpace(s)))
		}
	}
	if origin := c.QueryParam("origin"); origin != "" {
		filter.Origin = models.StoryOrigin(origin)
	}
	if authorParam := c.QueryParam("author_id"); authorParam != "" {
		authorID, err := uuid.Parse(authorParam)
		if err != nil {
			return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid author_id format"})
		}
		filter.AuthorID = &authorID
	}

	summaries, err := h.admin.ListStories(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("Error listing stories", zap.Error(err))
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, summaries)
}

func (h *APIHandler) adminGetStory(c echo.Context) error {
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	st, err := h.admin.GetStory(c.Request().Context(), storyID)
	if err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error getting story", zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *APIHandler) adminSaveStory(c echo.Context) error {
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	var draft models.Story
	if err := c.Bind(&draft); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	st, err := h.admin.SaveStory(c.Request().Context(), storyID, &draft)
	if err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error saving story", zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *APIHandler) adminDeleteStory(c echo.Context) error {
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	if err := h.admin.DeleteStory(c.Request().Context(), storyID); err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error deleting story", zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *APIHandler) adminImportSeed(c echo.Context) error {
	var seed story.SeedStory
	if err := c.Bind(&seed); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid seed JSON: " + err.Error()})
	}

	st, err := h.admin.ImportSeed(c.Request().Context(), seed)
	if err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error importing seed story", zap.String("title", seed.Title), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *APIHandler) adminUpdateStatus(c echo.Context) error {
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.admin.UpdateStatus(c.Request().Context(), storyID, models.StoryStatus(req.Status)); err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error updating story status", zap.Stringer("storyID", storyID), zap.String("status", req.Status), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *APIHandler) adminSetCatalogOrder(c echo.Context) error {
	var req catalogOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID in order list: " + raw})
		}
		ids = append(ids, id)
	}

	if err := h.admin.SetCatalogOrder(c.Request().Context(), ids); err != nil {
		h.logger.Error("Error setting catalog order", zap.Int("count", len(ids)), zap.Error(err))
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *APIHandler) adminTakeInReview(c echo.Context) error {
	return h.reviewTransition(c, h.admin.TakeInReview)
}

func (h *APIHandler) adminApproveStory(c echo.Context) error {
	return h.reviewTransition(c, h.admin.ApproveStory)
}

func (h *APIHandler) adminRejectStory(c echo.Context) error {
	return h.reviewTransition(c, h.admin.RejectStory)
}

// reviewTransition - общий каркас для переходов модерации.
func (h *APIHandler) reviewTransition(c echo.Context, fn func(ctx context.Context, storyID uuid.UUID) error) error {
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	if err := fn(c.Request().Context(), storyID); err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error transitioning review status", zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *APIHandler) adminListUsers(c echo.Context) error {
	users, err := h.admin.ListUsers(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		h.logger.Error("Error listing users", zap.Error(err))
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *APIHandler) adminUpdateUser(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid user ID format"})
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.admin.UpdateUser(c.Request().Context(), userID, req.Username, req.Email, models.Role(req.Role), req.Currency); err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error updating user", zap.Stringer("userID", userID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// adminClearProgress сбрасывает прогресс читателя по истории.
func (h *APIHandler) adminClearProgress(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid user ID format"})
	}
	storyID, err := uuid.Parse(c.Param("story_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	if err := h.admin.ClearProgress(c.Request().Context(), userID, storyID); err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error clearing progress", zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
