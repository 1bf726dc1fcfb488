package domain

// Application locations used in redirect intents.
const (
	PathHome     = "/"
	PathLogin    = "/login"
	PathCart     = "/cart"
	PathCheckout = "/checkout"
	PathProfile  = "/profile"
	PathOrders   = "/orders"
	PathAddress  = "/address"
)

// Address form origins.
const (
	FromCheckout = "checkout"
	FromProfile  = "profile"
)

// Redirect is a navigation intent. From is the location to come back to,
// empty when there is none.
type Redirect struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
}

// LoginRedirect asks the UI to log in and return to from.
func LoginRedirect(from string) Redirect {
	return Redirect{To: PathLogin, From: from}
}

// AddressReturn is where the address form leads after save or cancel.
func AddressReturn(from string) Redirect {
	switch from {
	case FromCheckout:
		return Redirect{To: PathCheckout}
	case FromProfile:
		return Redirect{To: PathProfile}
	default:
		return Redirect{To: PathHome}
	}
}
