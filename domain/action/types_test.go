package action

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemValidate(t *testing.T) {
	valid := Item{
		Type:     TypeUI,
		Scenario: ScenarioFeatureProduct,
		Payload:  "best seller",
		Content:  "Feature the best seller on the landing page",
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name    string
		mutate  func(*Item)
		wantErr string
	}{
		{
			name:    "unknown type",
			mutate:  func(i *Item) { i.Type = "email" },
			wantErr: "invalid action type",
		},
		{
			name:    "unknown scenario",
			mutate:  func(i *Item) { i.Scenario = "free-money" },
			wantErr: "invalid action scenario",
		},
		{
			name:    "blank content",
			mutate:  func(i *Item) { i.Content = "   " },
			wantErr: "content is empty",
		},
		{
			name:    "oversized content",
			mutate:  func(i *Item) { i.Content = strings.Repeat("x", MaxContentLen+1) },
			wantErr: "exceeds",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := valid
			tc.mutate(&item)
			err := item.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestContentLengthCountsRunes(t *testing.T) {
	item := Item{
		Type:     TypeChat,
		Scenario: ScenarioChatbotGuidedResponse,
		Content:  strings.Repeat("日", MaxContentLen),
	}
	assert.NoError(t, item.Validate(), "multibyte content at the rune limit should pass")
}

func TestScenarioWhitelistCoversTaxonomy(t *testing.T) {
	for _, sc := range []Scenario{
		ScenarioFeatureProduct,
		ScenarioCategoryDiscount,
		ScenarioCategoryCoupon,
		ScenarioTimeSale,
		ScenarioChatbotStartExample,
		ScenarioChatbotGuidedResponse,
	} {
		item := Item{Type: TypeUI, Scenario: sc, Content: "do the thing"}
		assert.NoErrorf(t, item.Validate(), "scenario %s should validate", sc)
	}
}
