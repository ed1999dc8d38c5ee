package handler

import (
	"errors"
	"net/http"

	"shadowpaths-server/internal/middleware"
	"shadowpaths-server/internal/models"
	"shadowpaths-server/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// APIError представляет стандартизированный ответ об ошибке.
type APIError struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// CustomValidator адаптирует go-playground/validator под echo.Validator.
type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// NewValidator создает валидатор запросов для echo.
func NewValidator() echo.Validator {
	return &CustomValidator{validator: validator.New()}
}

// APIHandler обрабатывает HTTP запросы платформы историй.
type APIHandler struct {
	catalog   service.CatalogService
	play      service.PlayService
	editor    service.EditorService
	admin     service.AdminService
	stats     service.StatsService
	jwtSecret string
	logger    *zap.Logger
}

// NewAPIHandler создает новый APIHandler.
func NewAPIHandler(
	catalog service.CatalogService,
	play service.PlayService,
	editor service.EditorService,
	admin service.AdminService,
	stats service.StatsService,
	jwtSecret string,
	logger *zap.Logger,
) *APIHandler {
	return &APIHandler{
		catalog:   catalog,
		play:      play,
		editor:    editor,
		admin:     admin,
		stats:     stats,
		jwtSecret: jwtSecret,
		logger:    logger.Named("APIHandler"),
	}
}

// RegisterRoutes регистрирует маршруты сервера.
func (h *APIHandler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	authMiddleware := middleware.JWTAuthMiddleware(h.jwtSecret)

	// --- Читательский API ---
	api := e.Group("/api", authMiddleware)
	api.GET("/library", h.getLibrary)
	api.GET("/profile", h.getProfile)
	api.GET("/notifications", h.popNotifications)

	storiesGroup := api.Group("/stories")
	{
		storiesGroup.GET("/:id", h.getStory)
		storiesGroup.POST("/:id/visit", h.visitNode)
		storiesGroup.POST("/:id/endings/:ending_id/visit", h.visitEnding)
		storiesGroup.POST("/:id/nodes/:node_id/choices/:choice_id/unlock", h.unlockChoice)
	}

	// --- Авторский редактор ---
	editorGroup := api.Group("/editor/stories")
	{
		editorGroup.POST("", h.createDraft)
		editorGroup.GET("", h.listMyStories)
		editorGroup.GET("/:id", h.getMyStory)
		editorGroup.PUT("/:id", h.autosave)

		editorGroup.POST("/:id/nodes", h.addNode)
		editorGroup.PUT("/:id/nodes/:node_id/rename", h.renameNode)
		editorGroup.DELETE("/:id/nodes/:node_id", h.deleteNode)

		editorGroup.POST("/:id/endings", h.addEnding)
		editorGroup.PUT("/:id/endings/:ending_id/rename", h.renameEnding)
		editorGroup.DELETE("/:id/endings/:ending_id", h.deleteEnding)

		editorGroup.POST("/:id/nodes/:node_id/choices", h.addChoice)
		editorGroup.PUT("/:id/nodes/:node_id/choices/:choice_id", h.updateChoice)
		editorGroup.DELETE("/:id/nodes/:node_id/choices/:choice_id", h.deleteChoice)

		editorGroup.PUT("/:id/node-order", h.reorderNodes)
		editorGroup.PUT("/:id/ending-order", h.reorderEndings)
		editorGroup.PUT("/:id/start", h.setStart)

		editorGroup.POST("/:id/submit", h.submitStory)
		editorGroup.POST("/:id/withdraw", h.withdrawStory)

		editorGroup.POST("/:id/images", h.uploadImage)
		editorGroup.DELETE("/:id/images/:storage_id", h.deleteImage)
	}

	// --- Админка ---
	adminGroup := api.Group("/admin", middleware.AdminOnlyMiddleware())
	{
		adminGroup.GET("/stories", h.adminListStories)
		adminGroup.GET("/stories/:id", h.adminGetStory)
		adminGroup.PUT("/stories/:id", h.adminSaveStory)
		adminGroup.DELETE("/stories/:id", h.adminDeleteStory)
		adminGroup.POST("/stories/import", h.adminImportSeed)
		adminGroup.PUT("/stories/:id/status", h.adminUpdateStatus)
		adminGroup.PUT("/stories/order", h.adminSetCatalogOrder)

		adminGroup.POST("/stories/:id/review", h.adminTakeInReview)
		adminGroup.POST("/stories/:id/approve", h.adminApproveStory)
		adminGroup.POST("/stories/:id/reject", h.adminRejectStory)

		adminGroup.GET("/users", h.adminListUsers)
		adminGroup.PUT("/users/:id", h.adminUpdateUser)
		adminGroup.DELETE("/users/:user_id/progress/:story_id", h.adminClearProgress)
	}
}

// handleServiceError переводит ошибки сервисов в HTTP статусы.
func handleServiceError(c echo.Context, err error) error {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusUnprocessableEntity, APIError{
			Message: "Story validation failed",
			Details: verr.Messages,
		})
	}
	var fundsErr *models.InsufficientFundsError
	if errors.As(err, &fundsErr) {
		insufficientFundsTotal.Inc()
		return c.JSON(http.StatusPaymentRequired, APIError{Message: fundsErr.Error()})
	}

	var statusCode int
	var apiErr APIError
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		apiErr = APIError{Message: "Unauthorized"}
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
		apiErr = APIError{Message: "Forbidden"}
	case errors.Is(err, service.ErrStoryNotPlayable):
		// Невидимые для читателя истории неотличимы от несуществующих
		statusCode = http.StatusNotFound
		apiErr = APIError{Message: "Story not found"}
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrStoryNotFound),
		errors.Is(err, models.ErrNodeNotFound),
		errors.Is(err, models.ErrEndingNotFound),
		errors.Is(err, models.ErrChoiceNotFound),
		errors.Is(err, models.ErrUserNotFound):
		statusCode = http.StatusNotFound
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrIDConflict),
		errors.Is(err, service.ErrStoryNotEditable),
		errors.Is(err, service.ErrInvalidStatusTransition):
		statusCode = http.StatusConflict
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrEmptyID), errors.Is(err, models.ErrBadRequest):
		statusCode = http.StatusBadRequest
		apiErr = APIError{Message: err.Error()}
	default:
		statusCode = http.StatusInternalServerError
		apiErr = APIError{Message: "Internal server error"}
	}
	return c.JSON(statusCode, apiErr)
}

// isExpectedServiceError отсекает ожидаемые ошибки от тех, что стоит логировать.
func isExpectedServiceError(err error) bool {
	var verr *models.ValidationError
	var fundsErr *models.InsufficientFundsError
	return errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrStoryNotFound) ||
		errors.Is(err, models.ErrNodeNotFound) ||
		errors.Is(err, models.ErrEndingNotFound) ||
		errors.Is(err, models.ErrChoiceNotFound) ||
		errors.Is(err, models.ErrUserNotFound) ||
		errors.Is(err, models.ErrForbidden) ||
		errors.Is(err, models.ErrIDConflict) ||
		errors.Is(err, models.ErrEmptyID) ||
		errors.Is(err, service.ErrStoryNotPlayable) ||
		errors.Is(err, service.ErrStoryNotEditable) ||
		errors.Is(err, service.ErrInvalidStatusTransition) ||
		errors.As(err, &verr) ||
		errors.As(err, &fundsErr)
}
