package gmail

import (
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strings"

	"inboxsweep/internal/model"
)

var headerTokenPattern = regexp.MustCompile(`<([^>]+)>`)

// bodyLinkPatterns are applied in order; each captures an href value that
// contains one of the unsubscribe-like terms.
var bodyLinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)href=["']([^"']*unsubscribe[^"']*)["']`),
	regexp.MustCompile(`(?i)href=["']([^"']*opt[_-]?out[^"']*)["']`),
	regexp.MustCompile(`(?i)href=["']([^"']*remove[_-]?me[^"']*)["']`),
	regexp.MustCompile(`(?i)href=["']([^"']*manage[_-]?subscription[^"']*)["']`),
}

// ExtractUnsubscribeLinks returns the unsubscribe links of a message: every
// HTTP entry of the List-Unsubscribe header first, then HTTP hrefs scanned out
// of an HTML body. Body hits are deduplicated among themselves; header hits
// are kept as listed.
func ExtractUnsubscribeLinks(headers map[string]string, body string) []model.UnsubscribeLink {
	var links []model.UnsubscribeLink

	if value, ok := headers["list-unsubscribe"]; ok {
		for _, m := range headerTokenPattern.FindAllStringSubmatch(value, -1) {
			if url := m[1]; strings.HasPrefix(url, "http") {
				links = append(links, model.UnsubscribeLink{Source: model.SourceHeader, URL: url})
			}
		}
	}

	if !strings.Contains(body, "<html") {
		return links
	}
	seen := make(map[string]struct{})
	for _, pattern := range bodyLinkPatterns {
		for _, m := range pattern.FindAllStringSubmatch(body, -1) {
			url := m[1]
			if !strings.HasPrefix(url, "http") {
				continue
			}
			if _, dup := seen[url]; dup {
				continue
			}
			seen[url] = struct{}{}
			links = append(links, model.UnsubscribeLink{Source: model.SourceBody, URL: url})
		}
	}
	return links
}

func OpenBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	// Validate URL scheme to prevent command injection
	lower := strings.ToLower(url)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return fmt.Errorf("refusing to open non-HTTP URL: %s", url)
	}

	return exec.Command(cmd, args...).Start()
}
