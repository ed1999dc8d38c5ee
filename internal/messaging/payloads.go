package messaging

import "github.com/google/uuid"

// RecomputeTaskPayload описывает задачу пересчета производной статистики.
// Либо StoryID (пересчитать всех читателей истории после правки), либо
// явный список UserIDs (например, собранный до удаления истории).
type RecomputeTaskPayload struct {
	TaskID  string      `json:"taskId"`
	StoryID *uuid.UUID  `json:"storyId,omitempty"`
	UserIDs []uuid.UUID `json:"userIds,omitempty"`
	Reason  string      `json:"reason,omitempty"` // свободный текст для логов
}
