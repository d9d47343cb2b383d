package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BlockType identifies a content block's payload shape
type BlockType string

const (
	BlockHero         BlockType = "hero"
	BlockRichText     BlockType = "rich-text"
	BlockImage        BlockType = "image"
	BlockFeatureGrid  BlockType = "feature-grid"
	BlockPricingTable BlockType = "pricing-table"
	BlockFAQ          BlockType = "faq"
	BlockStatStrip    BlockType = "stat-strip"
	BlockTestimonials BlockType = "testimonial-carousel"
	BlockLeadForm     BlockType = "lead-capture-form"
	BlockSpacer       BlockType = "spacer"
	BlockDivider      BlockType = "divider"
)

// BlockSettings are shared across all block types. The zero value renders
// a visible block with default spacing.
type BlockSettings struct {
	IsHidden        bool   `json:"isHidden,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	TextColor       string `json:"textColor,omitempty"`
	PaddingTop      int    `json:"paddingTop,omitempty"`
	PaddingBottom   int    `json:"paddingBottom,omitempty"`
	MaxWidth        string `json:"maxWidth,omitempty"`
	Animation       string `json:"animation,omitempty"`
}

// ContentBlock is one typed, positionable segment of a page. Content is a
// tagged payload whose shape depends on Type; the renderer must verify the
// shape rather than assume it.
type ContentBlock struct {
	ID       uuid.UUID       `json:"id"`
	Type     BlockType       `json:"type"`
	Order    int             `json:"order"`
	Content  json.RawMessage `json:"content"`
	Settings BlockSettings   `json:"settings"`
}

// BlockList is the ordered block collection stored as a JSONB column
type BlockList []ContentBlock

// Value implements driver.Valuer
func (b BlockList) Value() (driver.Value, error) {
	if b == nil {
		return json.Marshal([]ContentBlock{})
	}
	return json.Marshal([]ContentBlock(b))
}

// Scan implements sql.Scanner
func (b *BlockList) Scan(value interface{}) error {
	if value == nil {
		*b = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	default:
		return fmt.Errorf("unsupported type for BlockList: %T", value)
	}
}

// PageDocument holds one tenant's ordered block collection. Created with a
// default block set when the site is provisioned; deleted only with the
// site itself.
type PageDocument struct {
	SiteID    string    `json:"siteId" db:"site_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Blocks BlockList `json:"blocks" db:"blocks"`
}

// DefaultBlocks builds the starter block set for a freshly provisioned site.
func DefaultBlocks(siteName string) BlockList {
	hero, _ := json.Marshal(map[string]string{
		"title":       siteName,
		"description": "Welcome to " + siteName,
	})
	form, _ := json.Marshal(map[string]string{
		"title":      "Get in touch",
		"buttonText": "Send",
	})

	return BlockList{
		{ID: uuid.New(), Type: BlockHero, Order: 1, Content: hero},
		{ID: uuid.New(), Type: BlockDivider, Order: 2, Content: json.RawMessage(`{}`)},
		{ID: uuid.New(), Type: BlockLeadForm, Order: 3, Content: form},
	}
}
