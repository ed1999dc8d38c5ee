package handler

import (
	"shadowpaths-server/internal/models"
	"shadowpaths-server/internal/service"
)

// --- Запросы ---

type createDraftRequest struct {
	Title string `json:"title"`
}

type visitNodeRequest struct {
	NodeID string `json:"node_id" validate:"required"`
}

type renameRequest struct {
	NewID string `json:"new_id" validate:"required"`
}

type addNodeRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type addEndingRequest struct {
	ID    string `json:"id" validate:"required"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Text  string `json:"text"`
}

type choiceRequest struct {
	Label      string `json:"label" validate:"required"`
	NextNodeID string `json:"next_node_id"`
	Locked     bool   `json:"locked"`
	UnlockCost int    `json:"unlock_cost" validate:"min=0"`
}

type reorderRequest struct {
	IDs []string `json:"ids" validate:"required"`
}

type setStartRequest struct {
	NodeID string `json:"node_id" validate:"required"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type catalogOrderRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

type updateUserRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,oneof=user admin"`
	Currency int    `json:"currency" validate:"min=0"`
}

// --- Ответы ---

type storyWithProgressResponse struct {
	Story    *models.Story         `json:"story"`
	Progress *models.ProgressEntry `json:"progress"`
}

type libraryResponse struct {
	Stories []service.LibraryEntry `json:"stories"`
}

type notificationsResponse struct {
	Notifications []models.RewardNotification `json:"notifications"`
}

type unlockResponse struct {
	AlreadyUnlocked bool `json:"alreadyUnlocked"`
	Charged         int  `json:"charged"`
	NewBalance      int  `json:"newBalance"`
}

type visitEndingResponse struct {
	FirstDiscovery bool `json:"firstDiscovery"`
}
