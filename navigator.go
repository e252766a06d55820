package lumio

// Navigator receives the two navigation side effects the core depends on:
// the login view after an unrecoverable 401 or forced logout, and the home
// view after a 403. The router itself is the application's concern.
type Navigator interface {
	ToLogin()
	ToHome()
}

// NoOpNavigator ignores navigation requests. It is the default for headless
// use of the SDK.
type NoOpNavigator struct{}

// ToLogin implements [Navigator].
func (NoOpNavigator) ToLogin() {}

// ToHome implements [Navigator].
func (NoOpNavigator) ToHome() {}

// FuncNavigator adapts two callbacks into a [Navigator]. Nil callbacks are
// skipped.
type FuncNavigator struct {
	Login func()
	Home  func()
}

// ToLogin implements [Navigator].
func (n FuncNavigator) ToLogin() {
	if n.Login != nil {
		n.Login()
	}
}

// ToHome implements [Navigator].
func (n FuncNavigator) ToHome() {
	if n.Home != nil {
		n.Home()
	}
}
