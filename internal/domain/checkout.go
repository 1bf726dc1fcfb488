package domain

// Step is a checkout attempt state.
type Step int

const (
	StepSelectAddress Step = iota
	StepReviewOrder
)

func (s Step) String() string {
	switch s {
	case StepSelectAddress:
		return "select_address"
	case StepReviewOrder:
		return "review_order"
	default:
		return "unknown"
	}
}

// CheckoutState is the observable state of one checkout attempt.
type CheckoutState struct {
	Step            Step
	SelectedAddress *Address
	Cart            Cart
	Addresses       []Address
}

// Clone returns a deep copy.
func (s CheckoutState) Clone() CheckoutState {
	out := CheckoutState{
		Step: s.Step,
		Cart: s.Cart.Clone(),
	}
	if s.SelectedAddress != nil {
		a := *s.SelectedAddress
		out.SelectedAddress = &a
	}
	if s.Addresses != nil {
		out.Addresses = append([]Address(nil), s.Addresses...)
	}
	return out
}
