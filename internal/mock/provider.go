package mock

// Provider is a custom mock that is set up before a test request executes and
// torn down after it was validated, whether or not the test passed.
type Provider interface {
	Setup()
	Teardown()
}

// ProviderFuncs adapts a pair of functions to Provider. Nil functions are skipped.
type ProviderFuncs struct {
	SetupFunc    func()
	TeardownFunc func()
}

func (p ProviderFuncs) Setup() {
	if p.SetupFunc != nil {
		p.SetupFunc()
	}
}

func (p ProviderFuncs) Teardown() {
	if p.TeardownFunc != nil {
		p.TeardownFunc()
	}
}
