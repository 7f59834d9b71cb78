package gmail

import (
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	gmailv1 "google.golang.org/api/gmail/v1"
)

// maxPartDepth bounds the payload walk; Gmail never nests this deep.
const maxPartDepth = 50

// NormalizeHeaders builds a lookup keyed by lower-cased header name. Later
// headers overwrite earlier ones with the same name.
func NormalizeHeaders(headers []*gmailv1.MessagePartHeader) map[string]string {
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		if h == nil {
			continue
		}
		out[strings.ToLower(h.Name)] = h.Value
	}
	return out
}

// ResolveBody returns the most representative renderable body of a payload.
// A payload with its own body data is a single-part message and wins outright.
// Otherwise the first text/html part found depth-first is returned. Plain text
// alternatives are never selected.
func ResolveBody(payload *gmailv1.MessagePart) (string, error) {
	if payload == nil {
		return "", nil
	}
	if payload.Body != nil && payload.Body.Data != "" {
		return decodeBody(payload.Body.Data)
	}
	return htmlFromParts(payload.Parts, 1)
}

func htmlFromParts(parts []*gmailv1.MessagePart, depth int) (string, error) {
	if depth > maxPartDepth {
		return "", fmt.Errorf("payload nested deeper than %d parts: %w", maxPartDepth, ErrUpstream)
	}
	for _, part := range parts {
		if part == nil {
			continue
		}
		if part.MimeType == "text/html" && part.Body != nil && part.Body.Data != "" {
			return decodeBody(part.Body.Data)
		}
		if len(part.Parts) > 0 {
			body, err := htmlFromParts(part.Parts, depth+1)
			if err != nil {
				return "", err
			}
			if body != "" {
				return body, nil
			}
		}
	}
	return "", nil
}

// decodeBody accepts Gmail's base64url as well as standard base64, padded or not.
func decodeBody(data string) (string, error) {
	for _, enc := range []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	} {
		if b, err := enc.DecodeString(data); err == nil {
			return string(b), nil
		}
	}
	return "", fmt.Errorf("decode body data: %w", ErrUpstream)
}

// HTMLToText renders an HTML body as readable plain text. Input without markup
// is returned trimmed.
func HTMLToText(body string) string {
	if !strings.Contains(body, "<") {
		return strings.TrimSpace(body)
	}
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return strings.TrimSpace(body)
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "head", "noscript", "title":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte(' ')
				}
				b.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "br", "p", "div", "tr", "li", "h1", "h2", "h3", "h4", "h5", "h6":
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte('\n')
				}
			}
		}
	}
	walk(doc)

	result := b.String()
	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(result)
}
