package service

import "errors"

// Ошибки уровня сервисов. Репозитории отдают свои (models.Err*), здесь
// живут нарушения бизнес-правил.
var (
	// ErrStoryNotPlayable - история не опубликована, играть нельзя.
	ErrStoryNotPlayable = errors.New("story is not playable")

	// ErrStoryNotEditable - история не в редактируемом статусе; сначала
	// нужно вернуть ее в private.
	ErrStoryNotEditable = errors.New("story is not editable in its current status")

	// ErrInvalidStatusTransition - запрошенный переход статуса не входит в
	// рабочий процесс рецензирования.
	ErrInvalidStatusTransition = errors.New("invalid story status transition")
)
