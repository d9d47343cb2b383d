package compose

import (
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/faneasy/faneasy-server/internal/models"
)

// Theme carries tenant-level styling supplied from outside the engine.
// Blocks reference it; they never hard-code theme values.
type Theme struct {
	AccentColor string `json:"accentColor,omitempty"`
	FontFamily  string `json:"fontFamily,omitempty"`
}

// Layout is the uniform container wrapper derived from block settings. It
// is identical across all block types.
type Layout struct {
	PaddingTop      int    `json:"paddingTop"`
	PaddingBottom   int    `json:"paddingBottom"`
	MaxWidth        string `json:"maxWidth"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	TextColor       string `json:"textColor,omitempty"`
	// Animation is the entrance animation triggered on viewport
	// visibility; empty means none.
	Animation string `json:"animation,omitempty"`
}

// RenderedBlock is one composed page segment
type RenderedBlock struct {
	ID      uuid.UUID   `json:"id"`
	Type    string      `json:"type"`
	Layout  Layout      `json:"layout"`
	Content interface{} `json:"content"`
}

// RenderedPage is the composed page
type RenderedPage struct {
	Theme  Theme           `json:"theme"`
	Blocks []RenderedBlock `json:"blocks"`
}

const (
	defaultPaddingTop    = 48
	defaultPaddingBottom = 48
	defaultMaxWidth      = "lg"
)

// Render composes a block list into a page. Hidden blocks are dropped,
// the rest are stable-sorted by order (equal orders keep their input
// position), wrapped in a uniform layout container, and dispatched to a
// type-specific renderer. A malformed or unknown block degrades to a
// placeholder; rendering never fails wholesale.
func Render(blocks []models.ContentBlock, theme Theme) *RenderedPage {
	visible := make([]models.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		if !b.Settings.IsHidden {
			visible = append(visible, b)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Order < visible[j].Order
	})

	page := &RenderedPage{
		Theme:  theme,
		Blocks: make([]RenderedBlock, 0, len(visible)),
	}

	for _, b := range visible {
		content := renderContent(b, theme)
		page.Blocks = append(page.Blocks, RenderedBlock{
			ID:      b.ID,
			Type:    string(b.Type),
			Layout:  layoutFor(b.Settings),
			Content: content,
		})
	}

	return page
}

// layoutFor derives the shared container parameters from block settings.
func layoutFor(s models.BlockSettings) Layout {
	l := Layout{
		PaddingTop:      s.PaddingTop,
		PaddingBottom:   s.PaddingBottom,
		MaxWidth:        s.MaxWidth,
		BackgroundColor: s.BackgroundColor,
		TextColor:       s.TextColor,
		Animation:       s.Animation,
	}
	if l.PaddingTop == 0 {
		l.PaddingTop = defaultPaddingTop
	}
	if l.PaddingBottom == 0 {
		l.PaddingBottom = defaultPaddingBottom
	}
	if l.MaxWidth == "" {
		l.MaxWidth = defaultMaxWidth
	}
	return l
}

// renderContent dispatches the inner content by type. Unknown types and
// payloads that do not match their declared type come back as a clearly
// labeled placeholder.
func renderContent(b models.ContentBlock, theme Theme) interface{} {
	renderer, ok := renderers[b.Type]
	if !ok {
		log.Debug().Str("type", string(b.Type)).Str("block", b.ID.String()).Msg("Unsupported block type")
		return Placeholder{
			Reason:       "unsupported block type",
			OriginalType: string(b.Type),
		}
	}

	content, err := renderer(b.Content, theme)
	if err != nil {
		log.Warn().Err(err).Str("type", string(b.Type)).Str("block", b.ID.String()).Msg("Malformed block content")
		return Placeholder{
			Reason:       "malformed block content",
			OriginalType: string(b.Type),
		}
	}

	return content
}
