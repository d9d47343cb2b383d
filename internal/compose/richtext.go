package compose

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// RichTextNode is one node of a structured rich-text document. The stored
// form is data, never executable markup; serialization escapes every text
// and attribute value.
type RichTextNode struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	Level    int            `json:"level,omitempty"`
	Href     string         `json:"href,omitempty"`
	Bold     bool           `json:"bold,omitempty"`
	Italic   bool           `json:"italic,omitempty"`
	Children []RichTextNode `json:"children,omitempty"`
}

// RichTextContent carries the stored document plus its safe serialized
// form.
type RichTextContent struct {
	Document RichTextNode `json:"document"`
	HTML     string       `json:"html"`
}

func renderRichText(raw json.RawMessage, _ Theme) (interface{}, error) {
	var c RichTextContent
	if err := decode(raw, &c); err != nil {
		return nil, err
	}
	if c.Document.Type == "" && len(c.Document.Children) == 0 {
		return nil, fmt.Errorf("rich-text block requires a document")
	}

	var sb strings.Builder
	writeNode(&sb, c.Document)
	c.HTML = sb.String()
	return c, nil
}

func writeNode(sb *strings.Builder, n RichTextNode) {
	switch n.Type {
	case "", "doc":
		writeChildren(sb, n)
	case "paragraph":
		sb.WriteString("<p>")
		writeChildren(sb, n)
		sb.WriteString("</p>")
	case "heading":
		level := n.Level
		if level < 1 || level > 6 {
			level = 2
		}
		fmt.Fprintf(sb, "<h%d>", level)
		writeChildren(sb, n)
		fmt.Fprintf(sb, "</h%d>", level)
	case "bullet-list":
		sb.WriteString("<ul>")
		writeChildren(sb, n)
		sb.WriteString("</ul>")
	case "ordered-list":
		sb.WriteString("<ol>")
		writeChildren(sb, n)
		sb.WriteString("</ol>")
	case "list-item":
		sb.WriteString("<li>")
		writeChildren(sb, n)
		sb.WriteString("</li>")
	case "quote":
		sb.WriteString("<blockquote>")
		writeChildren(sb, n)
		sb.WriteString("</blockquote>")
	case "link":
		fmt.Fprintf(sb, `<a href="%s" rel="noopener">`, html.EscapeString(safeHref(n.Href)))
		writeChildren(sb, n)
		sb.WriteString("</a>")
	case "text":
		writeText(sb, n)
	default:
		// Unknown node kinds degrade to their text content.
		writeText(sb, n)
		writeChildren(sb, n)
	}
}

func writeChildren(sb *strings.Builder, n RichTextNode) {
	if n.Text != "" && n.Type != "text" && len(n.Children) == 0 {
		writeText(sb, n)
		return
	}
	for _, child := range n.Children {
		writeNode(sb, child)
	}
}

func writeText(sb *strings.Builder, n RichTextNode) {
	text := html.EscapeString(n.Text)
	if n.Bold {
		text = "<strong>" + text + "</strong>"
	}
	if n.Italic {
		text = "<em>" + text + "</em>"
	}
	sb.WriteString(text)
}

// safeHref rejects script-bearing URL schemes.
func safeHref(href string) string {
	trimmed := strings.TrimSpace(strings.ToLower(href))
	if strings.HasPrefix(trimmed, "javascript:") || strings.HasPrefix(trimmed, "data:") {
		return "#"
	}
	return href
}
