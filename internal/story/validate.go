package story

import (
	"fmt"
	"strings"

	"shadowpaths-server/internal/models"
)

// ValidateOptions selects which rules apply to the current save path.
// Autosave drafts are tolerant of dangling destinations and empty graphs;
// submit/publish is not.
type ValidateOptions struct {
	// RequireComplete demands at least one node and one ending. Enforced at
	// author-save time; a freshly created empty draft is exempt.
	RequireComplete bool
	// RequireResolvedDestinations rejects choices whose destination does not
	// resolve to an existing node or ending. Always on at submit/publish.
	RequireResolvedDestinations bool
}

// Validate собирает ВСЕ ошибки, не останавливаясь на первой, и ничего не
// мутирует. Пустой результат означает, что историю можно сохранять.
func Validate(s *models.Story, opts ValidateOptions) []string {
	var errs []string

	if strings.TrimSpace(s.Title) == "" {
		errs = append(errs, "Title is required.")
	}

	seen := make(map[string]string, len(s.Nodes)+len(s.Endings)) // id -> kind
	for i := range s.Nodes {
		n := &s.Nodes[i]
		label := n.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		if strings.TrimSpace(n.ID) == "" {
			errs = append(errs, fmt.Sprintf("Node %s needs a non-blank id.", label))
		} else if kind, dup := seen[n.ID]; dup {
			errs = append(errs, fmt.Sprintf("Duplicate id %q (already used by a %s).", n.ID, kind))
		} else {
			seen[n.ID] = "node"
		}
		if strings.TrimSpace(n.Text) == "" {
			errs = append(errs, fmt.Sprintf("Node %s needs body text.", label))
		}
		for j := range n.Choices {
			c := &n.Choices[j]
			if strings.TrimSpace(c.Label) == "" {
				errs = append(errs, fmt.Sprintf("Node %s: choice %d needs a label.", label, j+1))
			}
			if strings.TrimSpace(c.NextNodeID) == "" {
				errs = append(errs, fmt.Sprintf("Node %s: choice %d needs a destination.", label, j+1))
			}
		}
	}
	for i := range s.Endings {
		e := &s.Endings[i]
		label := e.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		if strings.TrimSpace(e.ID) == "" {
			errs = append(errs, fmt.Sprintf("Ending %s needs a non-blank id.", label))
		} else if kind, dup := seen[e.ID]; dup {
			errs = append(errs, fmt.Sprintf("Duplicate id %q (already used by a %s).", e.ID, kind))
		} else {
			seen[e.ID] = "ending"
		}
	}

	if opts.RequireComplete {
		if len(s.Nodes) == 0 {
			errs = append(errs, "A story needs at least one node.")
		}
		if len(s.Endings) == 0 {
			errs = append(errs, "A story needs at least one ending.")
		}
	}

	if opts.RequireResolvedDestinations {
		for i := range s.Nodes {
			for j := range s.Nodes[i].Choices {
				dest := s.Nodes[i].Choices[j].NextNodeID
				if strings.TrimSpace(dest) != "" && !s.HasEntity(dest) {
					errs = append(errs, fmt.Sprintf("Node %s: choice %d points at %q, which does not exist.", s.Nodes[i].ID, j+1, dest))
				}
			}
		}
	}

	if s.StartNodeID != "" && s.FindNode(s.StartNodeID) == nil {
		errs = append(errs, fmt.Sprintf("Start node %q does not exist.", s.StartNodeID))
	}

	return errs
}

// Normalize приводит произвольный авторский ввод к структурно корректному
// виду: enum'ы, категории, стоимости, цвета, позиции и указатель старта.
// Вызывается ПОСЛЕ успешной валидации; не возвращает ошибок.
func Normalize(s *models.Story) {
	s.Title = strings.TrimSpace(s.Title)
	s.Categories = models.FilterCategories(s.Categories)

	for i := range s.Nodes {
		n := &s.Nodes[i]
		n.ID = SanitizeEntityID(n.ID)
		if n.Choices == nil {
			n.Choices = []models.Choice{}
		}
		for j := range n.Choices {
			c := &n.Choices[j]
			c.Label = strings.TrimSpace(c.Label)
			c.NextNodeID = SanitizeEntityID(c.NextNodeID)
			c.CoerceCost()
		}
	}
	for i := range s.Endings {
		e := &s.Endings[i]
		e.ID = SanitizeEntityID(e.ID)
		e.Type = models.NormalizeEndingType(string(e.Type))
		if e.Label == "" {
			e.Label = e.ID
		}
	}

	EnsurePositions(s)

	// Start pointer repair: keep a valid explicit start, otherwise default to
	// the first node in author order; with no nodes it stays empty.
	if s.StartNodeID == "" || s.FindNode(s.StartNodeID) == nil {
		if len(s.Nodes) > 0 {
			s.StartNodeID = s.Nodes[0].ID
		} else {
			s.StartNodeID = ""
		}
	}
}
