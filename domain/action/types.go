package action

import (
	"fmt"
	"strings"
)

// Type tags where a next-action executes.
type Type string

const (
	TypeUI           Type = "ui"
	TypeChat         Type = "chat"
	TypeStartExample Type = "start-example"
)

// Scenario is the fixed taxonomy of deployable levers. The generator may
// only choose from this whitelist.
type Scenario string

const (
	ScenarioFeatureProduct        Scenario = "feature-product"
	ScenarioCategoryDiscount      Scenario = "category-discount"
	ScenarioCategoryCoupon        Scenario = "category-coupon"
	ScenarioTimeSale              Scenario = "time-sale"
	ScenarioChatbotStartExample   Scenario = "chatbot-start-example"
	ScenarioChatbotGuidedResponse Scenario = "chatbot-guided-response"
)

// Fixed lever magnitudes. These are business constants, not tunables.
const (
	CategoryDiscountPercent = 10
	CategoryCouponPercent   = 15
	TimeSaleMinutes         = 30
)

// MaxItems bounds how many actions one board may propose.
const MaxItems = 4

// MaxContentLen bounds the human-readable action string.
const MaxContentLen = 120

// Item is one concrete next-action proposal for a board.
type Item struct {
	Type     Type     `json:"type"`
	Scenario Scenario `json:"scenario"`
	Payload  string   `json:"payload"`
	Content  string   `json:"content"`
}

// Insight is the cached natural-language summary for one board.
type Insight struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

var validTypes = map[Type]bool{
	TypeUI:           true,
	TypeChat:         true,
	TypeStartExample: true,
}

var validScenarios = map[Scenario]bool{
	ScenarioFeatureProduct:        true,
	ScenarioCategoryDiscount:      true,
	ScenarioCategoryCoupon:        true,
	ScenarioTimeSale:              true,
	ScenarioChatbotStartExample:   true,
	ScenarioChatbotGuidedResponse: true,
}

// Validate checks an item against the taxonomy and length bounds.
func (i Item) Validate() error {
	if !validTypes[i.Type] {
		return fmt.Errorf("invalid action type %q", i.Type)
	}
	if !validScenarios[i.Scenario] {
		return fmt.Errorf("invalid action scenario %q", i.Scenario)
	}
	if strings.TrimSpace(i.Content) == "" {
		return fmt.Errorf("action content is empty")
	}
	if len([]rune(i.Content)) > MaxContentLen {
		return fmt.Errorf("action content exceeds %d chars", MaxContentLen)
	}
	return nil
}
