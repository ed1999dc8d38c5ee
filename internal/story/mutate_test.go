package story

import (
	"testing"

	"shadowpaths-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStory builds a small intact graph:
// intro -> {fork, finale}; fork -> finale; finale is an ending.
func testStory() *models.Story {
	return &models.Story{
		Title:       "Test Story",
		StartNodeID: "intro",
		Nodes: []models.Node{
			{
				ID:   "intro",
				Text: "You wake up.",
				Choices: []models.Choice{
					{ID: "c1", Label: "Go left", NextNodeID: "fork"},
					{ID: "c2", Label: "Give up", NextNodeID: "finale"},
				},
			},
			{
				ID:   "fork",
				Text: "A fork in the road.",
				Choices: []models.Choice{
					{ID: "c3", Label: "Onward", NextNodeID: "finale"},
				},
			},
		},
		Endings: []models.Ending{
			{ID: "finale", Label: "The End", Type: models.EndingOther, Text: "It is over."},
		},
	}
}

func TestSanitizeEntityID(t *testing.T) {
	assert.Equal(t, "cave entrance", SanitizeEntityID("  cave  entrance  "))
	assert.Equal(t, "a b c", SanitizeEntityID("a    b  c"))
	assert.Equal(t, "", SanitizeEntityID("   "))
}

func TestAddNode(t *testing.T) {
	t.Run("generates id, defaults and start pointer", func(t *testing.T) {
		s := &models.Story{}
		n, err := AddNode(s, models.Node{})
		require.NoError(t, err)

		assert.Equal(t, "passage-1", n.ID)
		assert.Equal(t, models.DefaultNodeColor, n.Color)
		require.NotNil(t, n.Position)
		assert.Equal(t, float64(160), n.Position.X)
		assert.Equal(t, float64(160), n.Position.Y)
		assert.Equal(t, "passage-1", s.StartNodeID, "first node becomes the start")
	})

	t.Run("generated ids skip taken ones", func(t *testing.T) {
		s := testStory()
		_, err := AddNode(s, models.Node{ID: "passage-1", Text: "x"})
		require.NoError(t, err)

		n, err := AddNode(s, models.Node{})
		require.NoError(t, err)
		assert.Equal(t, "passage-2", n.ID)
	})

	t.Run("prepends to the node list", func(t *testing.T) {
		s := testStory()
		_, err := AddNode(s, models.Node{ID: "newest", Text: "x"})
		require.NoError(t, err)
		assert.Equal(t, "newest", s.Nodes[0].ID)
		assert.Equal(t, "intro", s.StartNodeID, "existing start is kept")
	})

	t.Run("rejects duplicate id against nodes and endings", func(t *testing.T) {
		s := testStory()
		_, err := AddNode(s, models.Node{ID: "intro"})
		assert.ErrorIs(t, err, models.ErrIDConflict)
		_, err = AddNode(s, models.Node{ID: "finale"})
		assert.ErrorIs(t, err, models.ErrIDConflict)
	})
}

func TestRenameNode(t *testing.T) {
	t.Run("rewrites inbound edges and start pointer", func(t *testing.T) {
		s := testStory()
		require.NoError(t, RenameNode(s, "intro", "prologue"))

		assert.Nil(t, s.FindNode("intro"))
		require.NotNil(t, s.FindNode("prologue"))
		assert.Equal(t, "prologue", s.StartNodeID)
	})

	t.Run("rewrites edges pointing at the renamed node", func(t *testing.T) {
		s := testStory()
		require.NoError(t, RenameNode(s, "fork", "crossroads"))
		assert.Equal(t, "crossroads", s.Nodes[0].Choices[0].NextNodeID)
	})

	t.Run("rejects collision with existing id", func(t *testing.T) {
		s := testStory()
		assert.ErrorIs(t, RenameNode(s, "intro", "fork"), models.ErrIDConflict)
		assert.ErrorIs(t, RenameNode(s, "intro", "finale"), models.ErrIDConflict)
	})

	t.Run("rename to same id is a no-op", func(t *testing.T) {
		s := testStory()
		require.NoError(t, RenameNode(s, "intro", "intro"))
		assert.Equal(t, "intro", s.StartNodeID)
	})

	t.Run("blank and unknown ids", func(t *testing.T) {
		s := testStory()
		assert.ErrorIs(t, RenameNode(s, "intro", "   "), models.ErrEmptyID)
		assert.ErrorIs(t, RenameNode(s, "ghost", "x"), models.ErrNodeNotFound)
	})
}

func TestDeleteNode(t *testing.T) {
	t.Run("prunes inbound edges and clears start", func(t *testing.T) {
		s := testStory()
		require.NoError(t, DeleteNode(s, "intro"))

		assert.Nil(t, s.FindNode("intro"))
		assert.Equal(t, "", s.StartNodeID)
	})

	t.Run("edges into the deleted node vanish", func(t *testing.T) {
		s := testStory()
		require.NoError(t, DeleteNode(s, "fork"))

		intro := s.FindNode("intro")
		require.NotNil(t, intro)
		require.Len(t, intro.Choices, 1)
		assert.Equal(t, "finale", intro.Choices[0].NextNodeID)
	})

	t.Run("unknown node", func(t *testing.T) {
		s := testStory()
		assert.ErrorIs(t, DeleteNode(s, "ghost"), models.ErrNodeNotFound)
	})
}

func TestEndingOperations(t *testing.T) {
	t.Run("add defaults label to id and never takes start", func(t *testing.T) {
		s := &models.Story{}
		e, err := AddEnding(s, models.Ending{Type: "bogus"})
		require.NoError(t, err)

		assert.Equal(t, "ending-1", e.ID)
		assert.Equal(t, "ending-1", e.Label)
		assert.Equal(t, models.EndingOther, e.Type, "unknown type normalizes to other")
		assert.Equal(t, "", s.StartNodeID)
	})

	t.Run("rename rewrites edges but not start", func(t *testing.T) {
		s := testStory()
		require.NoError(t, RenameEnding(s, "finale", "the-end"))

		assert.Equal(t, "the-end", s.Nodes[0].Choices[1].NextNodeID)
		assert.Equal(t, "the-end", s.Nodes[1].Choices[0].NextNodeID)
		assert.Equal(t, "intro", s.StartNodeID)
	})

	t.Run("delete prunes every inbound edge", func(t *testing.T) {
		s := testStory()
		require.NoError(t, DeleteEnding(s, "finale"))

		assert.Len(t, s.FindNode("intro").Choices, 1)
		assert.Empty(t, s.FindNode("fork").Choices)
	})
}

func TestChoiceOperations(t *testing.T) {
	t.Run("add assigns internal id and coerces cost", func(t *testing.T) {
		s := testStory()
		n := s.FindNode("intro")

		c := AddChoice(n, "Sneak", "fork", true, -5)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, 0, c.UnlockCost, "negative cost clamps to zero")

		c2 := AddChoice(n, "Bribe", "fork", false, 30)
		assert.Equal(t, 0, c2.UnlockCost, "unlocked choice carries no cost")
	})

	t.Run("update addresses the edge by internal id", func(t *testing.T) {
		s := testStory()
		n := s.FindNode("intro")
		require.NoError(t, UpdateChoice(n, "c1", "Run left", "finale", true, 15))

		c := n.FindChoice("c1")
		assert.Equal(t, "Run left", c.Label)
		assert.Equal(t, "finale", c.NextNodeID)
		assert.Equal(t, 15, c.UnlockCost)

		assert.ErrorIs(t, UpdateChoice(n, "nope", "x", "y", false, 0), models.ErrChoiceNotFound)
	})

	t.Run("delete by internal id", func(t *testing.T) {
		s := testStory()
		n := s.FindNode("intro")
		require.NoError(t, DeleteChoice(n, "c1"))
		assert.Len(t, n.Choices, 1)
		assert.ErrorIs(t, DeleteChoice(n, "c1"), models.ErrChoiceNotFound)
	})
}

func TestReorderNodes(t *testing.T) {
	s := testStory()

	// Unknown ids are dropped, unmentioned nodes keep their slot at the tail.
	ReorderNodes(s, []string{"fork", "ghost"})
	require.Len(t, s.Nodes, 2)
	assert.Equal(t, "fork", s.Nodes[0].ID)
	assert.Equal(t, "intro", s.Nodes[1].ID)
}

func TestEnsurePositions(t *testing.T) {
	s := testStory()
	s.Nodes[0].Position = &models.Position{X: 42, Y: 42}
	s.Nodes[0].Color = "ember"
	s.Nodes[1].Color = "not-a-color"

	EnsurePositions(s)

	assert.Equal(t, float64(42), s.Nodes[0].Position.X, "placed node untouched")
	assert.Equal(t, "ember", s.Nodes[0].Color)
	require.NotNil(t, s.Nodes[1].Position)
	assert.Equal(t, float64(160+240), s.Nodes[1].Position.X, "second column slot")
	assert.Equal(t, models.DefaultNodeColor, s.Nodes[1].Color)
	require.NotNil(t, s.Endings[0].Position)
}
