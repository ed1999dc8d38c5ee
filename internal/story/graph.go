package story

import (
	"shadowpaths-server/internal/models"
)

// ReachableFrom returns the set of node and ending ids reachable from the
// given entry point by following choices, including the entry itself when it
// exists. Locked choices count as edges; reachability is structural, not a
// player-visibility question.
func ReachableFrom(s *models.Story, startID string) map[string]bool {
	visited := make(map[string]bool)
	if startID == "" || !s.HasEntity(startID) {
		return visited
	}
	stack := []string{startID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		node := s.FindNode(id)
		if node == nil {
			continue // endings are terminal
		}
		for _, c := range node.Choices {
			if c.NextNodeID != "" && !visited[c.NextNodeID] && s.HasEntity(c.NextNodeID) {
				stack = append(stack, c.NextNodeID)
			}
		}
	}
	return visited
}

// HasPathToEndingType reports whether the start of the story can reach at
// least one ending of the given type.
func HasPathToEndingType(s *models.Story, t models.EndingType) bool {
	reachable := ReachableFrom(s, s.EffectiveStartNodeID())
	for i := range s.Endings {
		if s.Endings[i].Type == t && reachable[s.Endings[i].ID] {
			return true
		}
	}
	return false
}

// OrphanNodeIDs lists nodes unreachable from the start pointer. Purely
// informational; the editor may surface these to the author.
func OrphanNodeIDs(s *models.Story) []string {
	reachable := ReachableFrom(s, s.EffectiveStartNodeID())
	var orphans []string
	for i := range s.Nodes {
		if !reachable[s.Nodes[i].ID] {
			orphans = append(orphans, s.Nodes[i].ID)
		}
	}
	return orphans
}

// InboundChoiceCount counts edges pointing at the given node or ending id.
func InboundChoiceCount(s *models.Story, id string) int {
	count := 0
	for i := range s.Nodes {
		for j := range s.Nodes[i].Choices {
			if s.Nodes[i].Choices[j].NextNodeID == id {
				count++
			}
		}
	}
	return count
}
