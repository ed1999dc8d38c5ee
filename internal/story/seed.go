package story

import (
	"shadowpaths-server/internal/models"

	"github.com/google/uuid"
)

// SeedChoice - вариант выбора в формате bulk-импорта.
type SeedChoice struct {
	Label string `json:"label"`
	Next  string `json:"next"`
}

// SeedNode - узел в формате bulk-импорта.
type SeedNode struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Choices []SeedChoice `json:"choices"`
}

// SeedEnding - концовка в формате bulk-импорта.
type SeedEnding struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Text  string `json:"text"`
}

// SeedStory is the literal JSON shape accepted for bulk story creation.
// Richer per-entity fields of the interactive editor (position, color,
// locks) default when absent.
type SeedStory struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	CoverImage  string       `json:"coverImage,omitempty"`
	StartNodeID string       `json:"startNodeId"`
	Nodes       []SeedNode   `json:"nodes"`
	Endings     []SeedEnding `json:"endings"`
}

// FromSeed converts a seed payload into a structurally valid Story, or
// returns the cumulative validation errors without building anything.
// Imported stories land in the curated catalog as invisible until an
// administrator flips their status.
func FromSeed(seed SeedStory) (*models.Story, error) {
	s := &models.Story{
		ID:          uuid.New(),
		Title:       seed.Title,
		Description: seed.Description,
		CoverImage:  seed.CoverImage,
		Status:      models.StatusInvisible,
		Origin:      models.OriginSystem,
		StartNodeID: seed.StartNodeID,
		Categories:  []string{},
		Images:      []models.ImageAsset{},
	}
	for _, sn := range seed.Nodes {
		n := models.Node{
			ID:      sn.ID,
			Text:    sn.Text,
			Color:   models.DefaultNodeColor,
			Choices: make([]models.Choice, 0, len(sn.Choices)),
		}
		for _, sc := range sn.Choices {
			n.Choices = append(n.Choices, models.Choice{
				ID:         uuid.NewString(),
				Label:      sc.Label,
				NextNodeID: sc.Next,
			})
		}
		s.Nodes = append(s.Nodes, n)
	}
	for _, se := range seed.Endings {
		s.Endings = append(s.Endings, models.Ending{
			ID:    se.ID,
			Label: se.Label,
			Type:  models.NormalizeEndingType(se.Type),
			Text:  se.Text,
		})
	}

	// Bulk import is strict: duplicate ids fail instead of being renamed, and
	// every destination must resolve.
	if errs := Validate(s, ValidateOptions{RequireComplete: true, RequireResolvedDestinations: true}); len(errs) > 0 {
		return nil, &models.ValidationError{Messages: errs}
	}
	Normalize(s)
	return s, nil
}
