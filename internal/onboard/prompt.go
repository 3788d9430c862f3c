package onboard

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/Use-Tusk/tusk-harness/internal/styles"
)

// Prompt asks for the answers interactively, starting from the values in a.
func Prompt(a *Answers) error {
	port := strconv.Itoa(a.Port)
	mockPort := strconv.Itoa(a.MockPort)
	managed := a.StartCommand != ""

	validatePort := func(s string) error {
		_, err := parsePort(s)
		return err
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Service hostname").
				Description("Where scenario requests are sent.").
				Value(&a.Hostname),
			huh.NewInput().
				Title("Service port").
				Value(&port).
				Validate(validatePort),
			huh.NewConfirm().
				Title("Should the harness start the service?").
				Description("Otherwise it must already be running when scenarios run.").
				Value(&managed),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Start command").
				Description("Run through the shell. HTTP_PROXY points at the mock server.").
				Placeholder("npm run start").
				Value(&a.StartCommand),
		).WithHideFunc(func() bool { return !managed }),
		huh.NewGroup(
			huh.NewInput().
				Title("Scenario directory").
				Value(&a.ScenariosDir),
			huh.NewInput().
				Title("Mock server port").
				Description("Outbound calls of the service are answered here.").
				Value(&mockPort).
				Validate(validatePort),
		),
	).WithTheme(styles.HuhTheme())

	if err := form.Run(); err != nil {
		return err
	}

	a.Port, _ = parsePort(port)
	a.MockPort, _ = parsePort(mockPort)
	a.Hostname = strings.TrimSpace(a.Hostname)
	if !managed {
		a.StartCommand = ""
	}
	return nil
}
