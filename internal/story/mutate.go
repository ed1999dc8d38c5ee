// Package story contains the pure graph algebra of the application: mutation
// operations that keep a Story aggregate referentially intact under
// structural edits, validation/normalization of author input, and read-only
// structural queries. Nothing here performs I/O; callers persist the whole
// aggregate afterwards.
package story

import (
	"fmt"
	"strings"

	"shadowpaths-server/internal/models"

	"github.com/google/uuid"
)

// Auto-layout constants for entities that arrive without an editor position.
// Nodes fill a 5-column grid, endings a 4-column grid below the node rows.
const (
	layoutOriginX  = 160
	layoutOriginY  = 160
	layoutSpacingX = 240
	layoutSpacingY = 200
	nodeColumns    = 5
	endingColumns  = 4
)

// SanitizeEntityID collapses exotic whitespace and trims the ends. IDs are
// author-chosen strings that double as graph keys, so they must compare
// exactly.
func SanitizeEntityID(value string) string {
	value = strings.ReplaceAll(value, "\u00a0", " ")
	for strings.Contains(value, "  ") {
		value = strings.ReplaceAll(value, "  ", " ")
	}
	return strings.TrimSpace(value)
}

// GenerateEntityID returns a fresh identifier unique among the story's nodes
// and endings, retrying until collision-free.
func GenerateEntityID(s *models.Story, prefix string) string {
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s-%d", prefix, counter)
		if !s.HasEntity(candidate) {
			return candidate
		}
	}
}

func nodeLayoutSlot(index int) *models.Position {
	return &models.Position{
		X: layoutOriginX + float64(index%nodeColumns)*layoutSpacingX,
		Y: layoutOriginY + float64(index/nodeColumns)*layoutSpacingY,
	}
}

func endingLayoutSlot(index, nodeRows int) *models.Position {
	return &models.Position{
		X: layoutOriginX + float64(index%endingColumns)*layoutSpacingX,
		Y: layoutOriginY + float64(nodeRows+1+index/endingColumns)*layoutSpacingY,
	}
}

// AddNode inserts a node at the front of the node list (most recently added
// first). A blank id gets a generated one; color and position default when
// unspecified. The first node of a story becomes its start.
func AddNode(s *models.Story, n models.Node) (*models.Node, error) {
	n.ID = SanitizeEntityID(n.ID)
	if n.ID == "" {
		n.ID = GenerateEntityID(s, "passage")
	} else if s.HasEntity(n.ID) {
		return nil, models.ErrIDConflict
	}
	n.Color = models.NormalizeNodeColor(n.Color)
	if n.Position == nil {
		n.Position = nodeLayoutSlot(len(s.Nodes))
	}
	if n.Choices == nil {
		n.Choices = []models.Choice{}
	}
	for i := range n.Choices {
		n.Choices[i].CoerceCost()
	}

	s.Nodes = append([]models.Node{n}, s.Nodes...)
	if s.StartNodeID == "" {
		s.StartNodeID = n.ID
	}
	return &s.Nodes[0], nil
}

// RenameNode changes a node's identifier and rewrites every inbound edge and
// the start pointer in the same pass, so no choice is ever left pointing at
// the vanished id. A rename onto an existing node/ending id is rejected
// instead of silently merging two vertices' inbound edges.
func RenameNode(s *models.Story, oldID, newID string) error {
	newID = SanitizeEntityID(newID)
	if newID == "" {
		return models.ErrEmptyID
	}
	node := s.FindNode(oldID)
	if node == nil {
		return models.ErrNodeNotFound
	}
	if newID == oldID {
		return nil
	}
	if s.HasEntity(newID) {
		return models.ErrIDConflict
	}

	node.ID = newID
	rewriteDestinations(s, oldID, newID)
	if s.StartNodeID == oldID {
		s.StartNodeID = newID
	}
	return nil
}

// DeleteNode removes the node and prunes every choice that pointed at it;
// dangling edges are never left behind. A deleted start clears the start
// pointer.
func DeleteNode(s *models.Story, nodeID string) error {
	idx := -1
	for i := range s.Nodes {
		if s.Nodes[i].ID == nodeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.ErrNodeNotFound
	}
	s.Nodes = append(s.Nodes[:idx], s.Nodes[idx+1:]...)
	pruneDestinations(s, nodeID)
	if s.StartNodeID == nodeID {
		s.StartNodeID = ""
	}
	return nil
}

// AddEnding mirrors AddNode for terminal vertices. Endings never become the
// start pointer.
func AddEnding(s *models.Story, e models.Ending) (*models.Ending, error) {
	e.ID = SanitizeEntityID(e.ID)
	if e.ID == "" {
		e.ID = GenerateEntityID(s, "ending")
	} else if s.HasEntity(e.ID) {
		return nil, models.ErrIDConflict
	}
	if e.Label == "" {
		e.Label = e.ID
	}
	e.Type = models.NormalizeEndingType(string(e.Type))
	if e.Position == nil {
		nodeRows := (len(s.Nodes) + nodeColumns - 1) / nodeColumns
		if nodeRows == 0 {
			nodeRows = 1
		}
		e.Position = endingLayoutSlot(len(s.Endings), nodeRows)
	}

	s.Endings = append([]models.Ending{e}, s.Endings...)
	return &s.Endings[0], nil
}

// RenameEnding rewrites inbound choices like RenameNode but never touches the
// start pointer.
func RenameEnding(s *models.Story, oldID, newID string) error {
	newID = SanitizeEntityID(newID)
	if newID == "" {
		return models.ErrEmptyID
	}
	ending := s.FindEnding(oldID)
	if ending == nil {
		return models.ErrEndingNotFound
	}
	if newID == oldID {
		return nil
	}
	if s.HasEntity(newID) {
		return models.ErrIDConflict
	}
	ending.ID = newID
	rewriteDestinations(s, oldID, newID)
	return nil
}

// DeleteEnding removes the ending and prunes inbound choices.
func DeleteEnding(s *models.Story, endingID string) error {
	idx := -1
	for i := range s.Endings {
		if s.Endings[i].ID == endingID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.ErrEndingNotFound
	}
	s.Endings = append(s.Endings[:idx], s.Endings[idx+1:]...)
	pruneDestinations(s, endingID)
	return nil
}

// AddChoice appends an edge to the node, assigning the stable internal
// identifier and enforcing the cost invariant.
func AddChoice(n *models.Node, label, nextNodeID string, locked bool, unlockCost int) *models.Choice {
	c := models.Choice{
		ID:         uuid.NewString(),
		Label:      label,
		NextNodeID: nextNodeID,
		Locked:     locked,
		UnlockCost: unlockCost,
	}
	c.CoerceCost()
	n.Choices = append(n.Choices, c)
	return &n.Choices[len(n.Choices)-1]
}

// UpdateChoice locates the edge by its internal identifier and replaces its
// mutable fields, re-applying the cost invariant.
func UpdateChoice(n *models.Node, choiceID, label, nextNodeID string, locked bool, unlockCost int) error {
	c := n.FindChoice(choiceID)
	if c == nil {
		return models.ErrChoiceNotFound
	}
	c.Label = label
	c.NextNodeID = nextNodeID
	c.Locked = locked
	c.UnlockCost = unlockCost
	c.CoerceCost()
	return nil
}

// DeleteChoice removes the edge by its internal identifier.
func DeleteChoice(n *models.Node, choiceID string) error {
	for i := range n.Choices {
		if n.Choices[i].ID == choiceID {
			n.Choices = append(n.Choices[:i], n.Choices[i+1:]...)
			return nil
		}
	}
	return models.ErrChoiceNotFound
}

// ReorderNodes replaces the stored author order with the given sequence.
// Ids with no matching node are dropped; nodes missing from the sequence
// keep their relative order at the tail, so a stale reorder request can
// never lose entities.
func ReorderNodes(s *models.Story, idsInOrder []string) {
	byID := make(map[string]int, len(s.Nodes))
	for i := range s.Nodes {
		byID[s.Nodes[i].ID] = i
	}
	ordered := make([]models.Node, 0, len(s.Nodes))
	taken := make(map[string]bool, len(s.Nodes))
	for _, id := range idsInOrder {
		if i, ok := byID[id]; ok && !taken[id] {
			taken[id] = true
			ordered = append(ordered, s.Nodes[i])
		}
	}
	for i := range s.Nodes {
		if !taken[s.Nodes[i].ID] {
			ordered = append(ordered, s.Nodes[i])
		}
	}
	s.Nodes = ordered
}

// ReorderEndings mirrors ReorderNodes for endings.
func ReorderEndings(s *models.Story, idsInOrder []string) {
	byID := make(map[string]int, len(s.Endings))
	for i := range s.Endings {
		byID[s.Endings[i].ID] = i
	}
	ordered := make([]models.Ending, 0, len(s.Endings))
	taken := make(map[string]bool, len(s.Endings))
	for _, id := range idsInOrder {
		if i, ok := byID[id]; ok && !taken[id] {
			taken[id] = true
			ordered = append(ordered, s.Endings[i])
		}
	}
	for i := range s.Endings {
		if !taken[s.Endings[i].ID] {
			ordered = append(ordered, s.Endings[i])
		}
	}
	s.Endings = ordered
}

// SetDisplayOrder assigns a dense 0..N-1 order to the stories in the given
// sequence; stories absent from the sequence keep their slot after the
// ordered ones. Used as the catalog's default sort key.
func SetDisplayOrder(stories []*models.Story, orderedIDs []uuid.UUID) {
	pos := 0
	seen := make(map[uuid.UUID]bool, len(orderedIDs))
	byID := make(map[uuid.UUID]*models.Story, len(stories))
	for _, st := range stories {
		byID[st.ID] = st
	}
	for _, id := range orderedIDs {
		st, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		st.DisplayOrder = pos
		pos++
	}
	for _, st := range stories {
		if !seen[st.ID] {
			st.DisplayOrder = pos
			pos++
		}
	}
}

// EnsurePositions back-fills missing editor positions with auto-layout slots
// and normalizes colors. Idempotent; placed entities are left untouched.
func EnsurePositions(s *models.Story) {
	for i := range s.Nodes {
		if s.Nodes[i].Position == nil {
			s.Nodes[i].Position = nodeLayoutSlot(i)
		}
		s.Nodes[i].Color = models.NormalizeNodeColor(s.Nodes[i].Color)
	}
	nodeRows := (len(s.Nodes) + nodeColumns - 1) / nodeColumns
	if nodeRows == 0 {
		nodeRows = 1
	}
	for i := range s.Endings {
		if s.Endings[i].Position == nil {
			s.Endings[i].Position = endingLayoutSlot(i, nodeRows)
		}
	}
}

func rewriteDestinations(s *models.Story, oldID, newID string) {
	for i := range s.Nodes {
		for j := range s.Nodes[i].Choices {
			if s.Nodes[i].Choices[j].NextNodeID == oldID {
				s.Nodes[i].Choices[j].NextNodeID = newID
			}
		}
	}
}

func pruneDestinations(s *models.Story, id string) {
	for i := range s.Nodes {
		kept := s.Nodes[i].Choices[:0]
		for _, c := range s.Nodes[i].Choices {
			if c.NextNodeID != id {
				kept = append(kept, c)
			}
		}
		s.Nodes[i].Choices = kept
	}
}
