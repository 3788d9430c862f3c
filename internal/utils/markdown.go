package utils

import (
	"encoding/json"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/Use-Tusk/tusk-harness/internal/styles"
)

var (
	rendererOnce   sync.Once
	cachedRenderer *glamour.TermRenderer
	rendererErr    error
)

func markdownRenderer() (*glamour.TermRenderer, error) {
	rendererOnce.Do(func() {
		baseStyle := "dark"
		if !styles.HasDarkBackground {
			baseStyle = "light"
		}
		overrides, err := json.Marshal(map[string]any{
			"document":   map[string]any{"margin": 0},
			"code_block": map[string]any{"margin": 0},
			"heading":    map[string]any{"color": styles.PrimaryColor},
		})
		if err != nil {
			rendererErr = err
			return
		}
		cachedRenderer, rendererErr = glamour.NewTermRenderer(
			glamour.WithStandardStyle(baseStyle),
			glamour.WithWordWrap(90),
			glamour.WithStylesFromJSONBytes(overrides),
		)
	})
	return cachedRenderer, rendererErr
}

// RenderMarkdown renders help text for the terminal. Plain markdown is
// returned when colors are off or stdout is not a terminal.
func RenderMarkdown(markdown string) string {
	if styles.NoColor() || !IsTerminal() {
		return markdown
	}
	renderer, err := markdownRenderer()
	if err != nil {
		return markdown
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return rendered
}
