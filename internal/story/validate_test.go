package story

import (
	"testing"

	"shadowpaths-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Run("intact story passes strict validation", func(t *testing.T) {
		s := testStory()
		errs := Validate(s, ValidateOptions{RequireComplete: true, RequireResolvedDestinations: true})
		assert.Empty(t, errs)
	})

	t.Run("collects every error instead of stopping at the first", func(t *testing.T) {
		s := &models.Story{
			Title: "   ",
			Nodes: []models.Node{
				{ID: "", Text: ""},
				{ID: "dup", Text: "a"},
				{ID: "dup", Text: "b"},
			},
		}
		errs := Validate(s, ValidateOptions{})
		assert.GreaterOrEqual(t, len(errs), 4, "title, blank id, blank text, duplicate id")
	})

	t.Run("duplicate id across nodes and endings", func(t *testing.T) {
		s := testStory()
		s.Endings = append(s.Endings, models.Ending{ID: "intro", Label: "x"})
		errs := Validate(s, ValidateOptions{})
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "intro")
	})

	t.Run("dangling destination only fails when resolution is required", func(t *testing.T) {
		s := testStory()
		s.Nodes[0].Choices[0].NextNodeID = "nowhere"

		assert.Empty(t, Validate(s, ValidateOptions{}), "drafts tolerate dangling edges")
		errs := Validate(s, ValidateOptions{RequireResolvedDestinations: true})
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "nowhere")
	})

	t.Run("completeness", func(t *testing.T) {
		s := &models.Story{Title: "t"}
		errs := Validate(s, ValidateOptions{RequireComplete: true})
		assert.Len(t, errs, 2, "needs a node and an ending")
	})

	t.Run("stale start pointer", func(t *testing.T) {
		s := testStory()
		s.StartNodeID = "ghost"
		errs := Validate(s, ValidateOptions{})
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "ghost")
	})
}

func TestNormalize(t *testing.T) {
	t.Run("repairs start pointer to first node", func(t *testing.T) {
		s := testStory()
		s.StartNodeID = "ghost"
		Normalize(s)
		assert.Equal(t, "intro", s.StartNodeID)
	})

	t.Run("filters categories and coerces costs", func(t *testing.T) {
		s := testStory()
		s.Categories = []string{"horror", "cooking", "horror", "fantasy"}
		s.Nodes[0].Choices[0].Locked = false
		s.Nodes[0].Choices[0].UnlockCost = 50

		Normalize(s)

		assert.Equal(t, []string{"horror", "fantasy"}, s.Categories)
		assert.Equal(t, 0, s.Nodes[0].Choices[0].UnlockCost)
	})

	t.Run("ending defaults", func(t *testing.T) {
		s := testStory()
		s.Endings[0].Label = ""
		s.Endings[0].Type = "weird"
		Normalize(s)
		assert.Equal(t, "finale", s.Endings[0].Label)
		assert.Equal(t, models.EndingOther, s.Endings[0].Type)
	})
}

func TestFromSeed(t *testing.T) {
	seed := SeedStory{
		Title:       "Seeded",
		Description: "imported",
		StartNodeID: "start",
		Nodes: []SeedNode{
			{ID: "start", Text: "begin", Choices: []SeedChoice{{Label: "end it", Next: "done"}}},
		},
		Endings: []SeedEnding{
			{ID: "done", Label: "Done", Type: "true", Text: "over"},
		},
	}

	t.Run("builds an invisible curated story", func(t *testing.T) {
		s, err := FromSeed(seed)
		require.NoError(t, err)

		assert.Equal(t, models.StatusInvisible, s.Status)
		assert.Equal(t, models.OriginSystem, s.Origin)
		assert.Equal(t, "start", s.StartNodeID)
		require.Len(t, s.Nodes, 1)
		assert.NotEmpty(t, s.Nodes[0].Choices[0].ID, "choices get internal ids")
		assert.Equal(t, models.EndingTrue, s.Endings[0].Type)
		require.NotNil(t, s.Nodes[0].Position, "normalization placed the node")
	})

	t.Run("rejects unresolved destinations", func(t *testing.T) {
		bad := seed
		bad.Nodes = []SeedNode{{ID: "start", Text: "x", Choices: []SeedChoice{{Label: "go", Next: "missing"}}}}

		_, err := FromSeed(bad)
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.NotEmpty(t, verr.Messages)
	})
}

func TestGraphQueries(t *testing.T) {
	s := testStory()
	orphan := models.Node{ID: "island", Text: "unreachable"}
	s.Nodes = append(s.Nodes, orphan)

	reachable := ReachableFrom(s, "intro")
	assert.True(t, reachable["fork"])
	assert.True(t, reachable["finale"])
	assert.False(t, reachable["island"])

	assert.Equal(t, []string{"island"}, OrphanNodeIDs(s))
	assert.Equal(t, 2, InboundChoiceCount(s, "finale"))
	assert.False(t, HasPathToEndingType(s, models.EndingTrue))
	assert.True(t, HasPathToEndingType(s, models.EndingOther))
}
