package handler

import (
	"net/http"

	"shadowpaths-server/internal/middleware"
	"shadowpaths-server/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// editorContext извлекает авторизованного автора и id истории из запроса.
func (h *APIHandler) editorContext(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	authorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}
	return authorID, storyID, nil
}

func (h *APIHandler) createDraft(c echo.Context) error {
	authorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	var req createDraftRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	st, err := h.editor.CreateDraft(c.Request().Context(), authorID, req.Title)
	if err != nil {
		h.logger.Error("Error creating draft", zap.Stringer("authorID", authorID), zap.Error(err))
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *APIHandler) listMyStories(c echo.Context) error {
	authorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	summaries, err := h.editor.ListByAuthor(c.Request().Context(), authorID)
	if err != nil {
		h.logger.Error("Error listing author stories", zap.Stringer("authorID", authorID), zap.Error(err))
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, summaries)
}

func (h *APIHandler) getMyStory(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	st, err := h.editor.GetForAuthor(c.Request().Context(), authorID, storyID)
	if err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error loading author story", zap.Stringer("authorID", authorID), zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *APIHandler) autosave(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	var draft models.Story
	if err := c.Bind(&draft); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	st, err := h.editor.Autosave(c.Request().Context(), authorID, storyID, &draft)
	if err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error autosaving story", zap.Stringer("authorID", authorID), zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *APIHandler) addNode(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	var req addNodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	node, err := h.editor.AddNode(c.Request().Context(), authorID, storyID, models.Node{ID: req.ID, Text: req.Text})
	if err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error adding node", zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, node)
}

func (h *APIHandler) renameNode(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	var req renameRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.editor.RenameNode(c.Request().Context(), authorID, storyID, c.Param("node_id"), req.NewID); err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error renaming node", zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *APIHandler) deleteNode(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	if err := h.editor.DeleteNode(c.Request().Context(), authorID, storyID, c.Param("node_id")); err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error deleting node", zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *APIHandler) addEnding(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	var req addEndingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ending, err := h.editor.AddEnding(c.Request().Context(), authorID, storyID, models.Ending{
		ID:    req.ID,
		Label: req.Label,
		Type:  models.EndingType(req.Type),
		Text:  req.Text,
	})
	if err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error adding ending", zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, ending)
}

func (h *APIHandler) renameEnding(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	var req renameRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.editor.RenameEnding(c.Request().Context(), authorID, storyID, c.Param("ending_id"), req.NewID); err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error renaming ending", zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *APIHandler) deleteEnding(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	if err := h.editor.DeleteEnding(c.Request().Context(), authorID, storyID, c.Param("ending_id")); err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error deleting ending", zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *APIHandler) addChoice(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	var req choiceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	choice, err := h.editor.AddChoice(c.Request().Context(), authorID, storyID,
		c.Param("node_id"), req.Label, req.NextNodeID, req.Locked, req.UnlockCost)
	if err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error adding choice", zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, choice)
}

func (h *APIHandler) updateChoice(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	var req choiceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.editor.UpdateChoice(c.Request().Context(), authorID, storyID,
		c.Param("node_id"), c.Param("choice_id"), req.Label, req.NextNodeID, req.Locked, req.UnlockCost); err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error updating choice", zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *APIHandler) deleteChoice(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	if err := h.editor.DeleteChoice(c.Request().Context(), authorID, storyID,
		c.Param("node_id"), c.Param("choice_id")); err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error deleting choice", zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *APIHandler) reorderNodes(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	var req reorderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.editor.ReorderNodes(c.Request().Context(), authorID, storyID, req.IDs); err != nil {
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *APIHandler) reorderEndings(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	var req reorderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.editor.ReorderEndings(c.Request().Context(), authorID, storyID, req.IDs); err != nil {
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *APIHandler) setStart(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	var req setStartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.editor.SetStart(c.Request().Context(), authorID, storyID, req.NodeID); err != nil {
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *APIHandler) submitStory(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	if err := h.editor.Submit(c.Request().Context(), authorID, storyID); err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error submitting story", zap.Stringer("authorID", authorID), zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	storiesSubmittedTotal.Inc()
	return c.NoContent(http.StatusNoContent)
}

func (h *APIHandler) withdrawStory(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	if err := h.editor.SetPrivate(c.Request().Context(), authorID, storyID); err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error withdrawing story", zap.Stringer("authorID", authorID), zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *APIHandler) uploadImage(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Missing 'file' form field"})
	}
	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Cannot read uploaded file"})
	}
	defer src.Close()

	title := c.FormValue("title")
	asset, err := h.editor.UploadImage(c.Request().Context(), authorID, storyID, fileHeader.Filename, src, title)
	if err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error uploading image", zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, asset)
}

func (h *APIHandler) deleteImage(c echo.Context) error {
	authorID, storyID, err := h.editorContext(c)
	if err != nil {
		return err
	}

	if err := h.editor.DeleteImage(c.Request().Context(), authorID, storyID, c.Param("storage_id")); err != nil {
		if !isExpectedServiceError(err) {
			h.logger.Error("Error deleting image", zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
