package models

import (
	"time"

	"github.com/google/uuid"
)

// StoryStatus определяет жизненный цикл истории в каталоге.
// Совпадает с типом ENUM 'story_status' в БД.
type StoryStatus string

const (
	StatusPublic      StoryStatus = "public"       // Видна всем читателям
	StatusComingSoon  StoryStatus = "coming_soon"  // Анонсирована, но еще не играбельна
	StatusPrivate     StoryStatus = "private"      // Доступна только автору
	StatusPending     StoryStatus = "pending"      // Отправлена на модерацию
	StatusUnderReview StoryStatus = "under_review" // Взята модератором в работу
	StatusInvisible   StoryStatus = "invisible"    // Скрыта из каталога (системный черновик)
)

// StoryOrigin distinguishes curated catalog stories from user-authored ones.
// The origin decides which currency pool gates locked choices and whether the
// review workflow applies.
type StoryOrigin string

const (
	OriginSystem StoryOrigin = "system"
	OriginUser   StoryOrigin = "user"
)

// CurrencyKind names one of the two user balances. The pools never
// cross-subsidize each other.
type CurrencyKind string

const (
	CurrencyReader CurrencyKind = "currency"
	CurrencyAuthor CurrencyKind = "author_currency"
)

// CurrencyFor returns the balance that pays for locked choices in a story of
// this origin.
func (o StoryOrigin) CurrencyFor() CurrencyKind {
	if o == OriginUser {
		return CurrencyAuthor
	}
	return CurrencyReader
}

// EndingType classifies an ending; the taxonomy drives medal scoring.
type EndingType string

const (
	EndingTrue   EndingType = "true"
	EndingDeath  EndingType = "death"
	EndingSecret EndingType = "secret"
	EndingOther  EndingType = "other"
)

// NormalizeEndingType maps unrecognized values to EndingOther instead of
// failing, matching the schema default.
func NormalizeEndingType(v string) EndingType {
	switch EndingType(v) {
	case EndingTrue, EndingDeath, EndingSecret, EndingOther:
		return EndingType(v)
	default:
		return EndingOther
	}
}

// DefaultNodeColor - цвет рамки узла по умолчанию в визуальном редакторе.
const DefaultNodeColor = "twilight"

// NodeColors is the fixed palette the editor offers. Cosmetic only.
var NodeColors = []string{"twilight", "ember", "moss", "dusk", "rose", "slate"}

// NormalizeNodeColor falls back to the default for anything outside the palette.
func NormalizeNodeColor(v string) string {
	for _, c := range NodeColors {
		if v == c {
			return v
		}
	}
	return DefaultNodeColor
}

// StoryCategories is the allow-list for catalog tags. Unknown tags are
// silently dropped during normalization.
var StoryCategories = []string{"fantasy", "horror", "mystery", "romance", "sci-fi", "adventure"}

// FilterCategories keeps only allow-listed tags, collapsing duplicates while
// preserving first-seen order.
func FilterCategories(tags []string) []string {
	allowed := make(map[string]bool, len(StoryCategories))
	for _, c := range StoryCategories {
		allowed[c] = true
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		if allowed[t] && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Position is a 2D editor coordinate. Cosmetic, persisted for the visual
// graph editor. A nil *Position means "not placed yet" and gets an
// auto-layout slot.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Choice is a directed edge from a node to another node or to an ending.
// ID is a stable internal identifier, distinct from the label, so edits can
// locate the edge after the label text changes.
type Choice struct {
	ID         string `json:"_id"`
	Label      string `json:"label"`
	NextNodeID string `json:"nextNodeId"` // may reference an ending despite the name
	Locked     bool   `json:"locked"`
	UnlockCost int    `json:"unlockCost"`
}

// CoerceCost enforces the cost invariant: never negative, and always zero
// while the choice is unlocked.
func (c *Choice) CoerceCost() {
	if c.UnlockCost < 0 {
		c.UnlockCost = 0
	}
	if !c.Locked {
		c.UnlockCost = 0
	}
}

// Node is a passage of story text; a non-terminal graph vertex. Its ID is an
// author-chosen string used as the graph key, not a database-generated key.
type Node struct {
	ID       string    `json:"_id"`
	Text     string    `json:"text"`
	Image    string    `json:"image,omitempty"`
	Notes    string    `json:"notes,omitempty"` // private author notes
	Color    string    `json:"color"`
	Position *Position `json:"position,omitempty"`
	Choices  []Choice  `json:"choices"`
}

// FindChoice locates a choice by its internal identifier, never by label or
// position.
func (n *Node) FindChoice(choiceID string) *Choice {
	for i := range n.Choices {
		if n.Choices[i].ID == choiceID {
			return &n.Choices[i]
		}
	}
	return nil
}

// Ending is a terminal graph vertex. Same rename/delete cascade semantics as
// Node except endings have no outgoing choices.
type Ending struct {
	ID       string     `json:"_id"`
	Label    string     `json:"label"`
	Type     EndingType `json:"type"`
	Text     string     `json:"text"`
	Image    string     `json:"image,omitempty"`
	Notes    string     `json:"notes,omitempty"`
	Position *Position  `json:"position,omitempty"`
}

// ImageAsset is an entry of the story's image library. The server stores only
// the triple and never inspects file bytes.
type ImageAsset struct {
	URL       string `json:"url"`
	StorageID string `json:"storageId"`
	Title     string `json:"title"`
}

// Story is the aggregate root: the whole graph (nodes, endings, choices) is
// one document and the unit of consistency. There is no sub-document
// transaction boundary weaker than "rewrite the whole story".
type Story struct {
	ID           uuid.UUID    `json:"id" db:"id"`
	Title        string       `json:"title" db:"title"`
	Description  string       `json:"description" db:"description"`
	Notes        string       `json:"notes,omitempty" db:"notes"`
	CoverImage   string       `json:"coverImage,omitempty" db:"cover_image"`
	Status       StoryStatus  `json:"status" db:"status"`
	Origin       StoryOrigin  `json:"origin" db:"origin"`
	AuthorID     *uuid.UUID   `json:"authorId,omitempty" db:"author_id"` // nil для системных историй
	Categories   []string     `json:"categories" db:"categories"`
	StartNodeID  string       `json:"startNodeId" db:"start_node_id"` // "" means no start pointer
	DisplayOrder int          `json:"displayOrder" db:"display_order"`
	Nodes        []Node       `json:"nodes"`
	Endings      []Ending     `json:"endings"`
	Images       []ImageAsset `json:"images"`
	CreatedAt    time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time    `json:"updatedAt" db:"updated_at"`
}

// FindNode returns the node with the given id, or nil.
func (s *Story) FindNode(id string) *Node {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i]
		}
	}
	return nil
}

// FindEnding returns the ending with the given id, or nil.
func (s *Story) FindEnding(id string) *Ending {
	for i := range s.Endings {
		if s.Endings[i].ID == id {
			return &s.Endings[i]
		}
	}
	return nil
}

// HasEntity reports whether any node or ending carries the id. Used for
// rename-collision checks and destination resolution.
func (s *Story) HasEntity(id string) bool {
	return s.FindNode(id) != nil || s.FindEnding(id) != nil
}

// EffectiveStartNodeID resolves the landing entry point: the stored pointer
// when set, otherwise the first node in author order.
func (s *Story) EffectiveStartNodeID() string {
	if s.StartNodeID != "" {
		return s.StartNodeID
	}
	if len(s.Nodes) > 0 {
		return s.Nodes[0].ID
	}
	return ""
}

// StoryFilter describes the equality/set-membership filters the catalog and
// recomputation components need. Nothing richer is required of the storage
// layer.
type StoryFilter struct {
	Statuses []StoryStatus
	Origin   StoryOrigin
	AuthorID *uuid.UUID
}

// StorySummary is the concise listing view used by the library catalog.
type StorySummary struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	Title        string      `json:"title" db:"title"`
	Description  string      `json:"description" db:"description"`
	CoverImage   string      `json:"coverImage,omitempty" db:"cover_image"`
	Status       StoryStatus `json:"status" db:"status"`
	Origin       StoryOrigin `json:"origin" db:"origin"`
	AuthorID     *uuid.UUID  `json:"authorId,omitempty" db:"author_id"`
	DisplayOrder int         `json:"displayOrder" db:"display_order"`
	EndingsTotal int         `json:"endingsTotal" db:"endings_total"`
	CreatedAt    time.Time   `json:"createdAt" db:"created_at"`
}
