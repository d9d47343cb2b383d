package compose

import (
	"encoding/json"
	"fmt"

	"github.com/faneasy/faneasy-server/internal/models"
)

// Placeholder stands in for a block that could not be rendered
type Placeholder struct {
	Placeholder  bool   `json:"placeholder"`
	Reason       string `json:"reason"`
	OriginalType string `json:"originalType"`
}

// MarshalJSON keeps the placeholder marker set without requiring callers
// to initialize it.
func (p Placeholder) MarshalJSON() ([]byte, error) {
	type alias Placeholder
	a := alias(p)
	a.Placeholder = true
	return json.Marshal(a)
}

// HeroContent renders a hero banner. A missing buttonText simply omits
// the call-to-action.
type HeroContent struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ButtonText  string `json:"buttonText,omitempty"`
	ButtonLink  string `json:"buttonLink,omitempty"`
	HasCTA      bool   `json:"hasCta"`
}

// ImageContent renders a single image
type ImageContent struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// Feature is one cell of a feature grid
type Feature struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// FeatureGridContent renders a titled feature grid
type FeatureGridContent struct {
	Title    string    `json:"title,omitempty"`
	Features []Feature `json:"features"`
}

// PricingPlan is one column of a pricing table
type PricingPlan struct {
	Name        string   `json:"name"`
	Price       string   `json:"price"`
	Features    []string `json:"features,omitempty"`
	Highlighted bool     `json:"highlighted,omitempty"`
}

// PricingTableContent renders a pricing table
type PricingTableContent struct {
	Title string        `json:"title,omitempty"`
	Plans []PricingPlan `json:"plans"`
}

// FAQItem is one independently collapsible question. Items default to
// collapsed.
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Open     bool   `json:"open"`
}

// FAQContent renders a FAQ list
type FAQContent struct {
	Title string    `json:"title,omitempty"`
	Items []FAQItem `json:"items"`
}

// Stat is one value/label pair of a stat strip
type Stat struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// StatStripContent renders a stat strip
type StatStripContent struct {
	Stats []Stat `json:"stats"`
}

// Testimonial is one carousel entry
type Testimonial struct {
	Quote  string `json:"quote"`
	Author string `json:"author"`
	Role   string `json:"role,omitempty"`
}

// TestimonialContent renders a testimonial carousel
type TestimonialContent struct {
	Items []Testimonial `json:"items"`
}

// LeadFormContent delegates submission to the external intake endpoint.
// The engine treats submission as fire-and-forget; persistence and
// notification live with the collaborator.
type LeadFormContent struct {
	Title      string   `json:"title,omitempty"`
	ButtonText string   `json:"buttonText,omitempty"`
	Plans      []string `json:"plans,omitempty"`
}

// SpacerContent renders fixed vertical space
type SpacerContent struct {
	Height int `json:"height"`
}

// DividerContent renders a horizontal rule
type DividerContent struct{}

type renderFunc func(raw json.RawMessage, theme Theme) (interface{}, error)

// renderers is the closed dispatch table of supported block types.
var renderers = map[models.BlockType]renderFunc{
	models.BlockHero:         renderHero,
	models.BlockRichText:     renderRichText,
	models.BlockImage:        renderImage,
	models.BlockFeatureGrid:  renderFeatureGrid,
	models.BlockPricingTable: renderPricingTable,
	models.BlockFAQ:          renderFAQ,
	models.BlockStatStrip:    renderStatStrip,
	models.BlockTestimonials: renderTestimonials,
	models.BlockLeadForm:     renderLeadForm,
	models.BlockSpacer:       renderSpacer,
	models.BlockDivider:      renderDivider,
}

// decode unmarshals a payload strictly enough to catch shape mismatches.
func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode block payload: %w", err)
	}
	return nil
}

func renderHero(raw json.RawMessage, _ Theme) (interface{}, error) {
	var c HeroContent
	if err := decode(raw, &c); err != nil {
		return nil, err
	}
	c.HasCTA = c.ButtonText != ""
	return c, nil
}

func renderImage(raw json.RawMessage, _ Theme) (interface{}, error) {
	var c ImageContent
	if err := decode(raw, &c); err != nil {
		return nil, err
	}
	if c.URL == "" {
		return nil, fmt.Errorf("image block requires a url")
	}
	return c, nil
}

func renderFeatureGrid(raw json.RawMessage, _ Theme) (interface{}, error) {
	var c FeatureGridContent
	if err := decode(raw, &c); err != nil {
		return nil, err
	}
	if c.Features == nil {
		c.Features = []Feature{}
	}
	return c, nil
}

func renderPricingTable(raw json.RawMessage, _ Theme) (interface{}, error) {
	var c PricingTableContent
	if err := decode(raw, &c); err != nil {
		return nil, err
	}
	if c.Plans == nil {
		c.Plans = []PricingPlan{}
	}
	return c, nil
}

func renderFAQ(raw json.RawMessage, _ Theme) (interface{}, error) {
	var c FAQContent
	if err := decode(raw, &c); err != nil {
		return nil, err
	}
	// Collapsed by default regardless of stored state.
	for i := range c.Items {
		c.Items[i].Open = false
	}
	if c.Items == nil {
		c.Items = []FAQItem{}
	}
	return c, nil
}

func renderStatStrip(raw json.RawMessage, _ Theme) (interface{}, error) {
	var c StatStripContent
	if err := decode(raw, &c); err != nil {
		return nil, err
	}
	if c.Stats == nil {
		c.Stats = []Stat{}
	}
	return c, nil
}

func renderTestimonials(raw json.RawMessage, _ Theme) (interface{}, error) {
	var c TestimonialContent
	if err := decode(raw, &c); err != nil {
		return nil, err
	}
	if c.Items == nil {
		c.Items = []Testimonial{}
	}
	return c, nil
}

func renderLeadForm(raw json.RawMessage, _ Theme) (interface{}, error) {
	var c LeadFormContent
	if err := decode(raw, &c); err != nil {
		return nil, err
	}
	if c.ButtonText == "" {
		c.ButtonText = "Send"
	}
	return c, nil
}

func renderSpacer(raw json.RawMessage, _ Theme) (interface{}, error) {
	var c SpacerContent
	if err := decode(raw, &c); err != nil {
		return nil, err
	}
	if c.Height <= 0 {
		c.Height = 32
	}
	return c, nil
}

func renderDivider(raw json.RawMessage, _ Theme) (interface{}, error) {
	return DividerContent{}, nil
}
