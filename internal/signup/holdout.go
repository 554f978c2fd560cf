package signup

import "github.com/timboisvert/cocoscout-sub005/internal/model"

// ApplyHoldout marks every descriptor whose position is an exact
// multiple of the holdout interval as held, carrying the holdout
// reason. A nil holdout (or an interval below 2, which would hold
// everything or divide by zero) leaves the template untouched. The
// input slice is not modified; a new slice is returned so callers can
// diff against the original.
func ApplyHoldout(descs []SlotDescriptor, h *model.Holdout) []SlotDescriptor {
	out := make([]SlotDescriptor, len(descs))
	copy(out, descs)
	if h == nil || h.IntervalN < 2 {
		return out
	}
	for i := range out {
		if out[i].Position%h.IntervalN == 0 {
			reason := h.Reason
			out[i].Held = true
			out[i].HeldReason = &reason
		}
	}
	return out
}
