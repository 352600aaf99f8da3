package order

// Decide is the only rule for payment driven transitions. It is pure so the
// repository can call it while holding the row lock.
func Decide(current, target Outcome) Transition {
	t := Transition{From: current, To: current}

	switch {
	case current == target:
		t.Reason = ReasonDuplicate
	case current.Status.Fulfilled():
		t.Reason = ReasonFulfilled
	case target.PaymentStatus.rank() <= current.PaymentStatus.rank():
		t.Reason = ReasonRegression
	default:
		t.To = target
		t.Applied = true
		t.Reason = ReasonApplied
	}

	return t
}
