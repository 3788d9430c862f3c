package log

import (
	"github.com/Use-Tusk/tusk-harness/internal/styles"
)

func renderError(msg string) string {
	return styles.Render(styles.ErrorStyle, msg)
}

func renderWarning(msg string) string {
	return styles.Render(styles.WarningStyle, msg)
}

func renderSuccess(msg string) string {
	return styles.Render(styles.SuccessStyle, msg)
}

func renderDim(msg string) string {
	return styles.Render(styles.DimStyle, msg)
}
