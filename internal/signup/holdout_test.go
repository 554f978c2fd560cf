package signup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

func descriptors(n int) []SlotDescriptor {
	out := make([]SlotDescriptor, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, SlotDescriptor{Position: uint32(i), Capacity: 1})
	}
	return out
}

func TestApplyHoldout_EveryNth(t *testing.T) {
	h := &model.Holdout{IntervalN: 3, Reason: "walk-ins"}
	out := ApplyHoldout(descriptors(7), h)
	require.Len(t, out, 7)

	for _, d := range out {
		if d.Position%3 == 0 {
			assert.True(t, d.Held, "position %d should be held", d.Position)
			require.NotNil(t, d.HeldReason)
			assert.Equal(t, "walk-ins", *d.HeldReason)
		} else {
			assert.False(t, d.Held, "position %d should not be held", d.Position)
			assert.Nil(t, d.HeldReason)
		}
	}
}

func TestApplyHoldout_NilPolicyLeavesTemplateAlone(t *testing.T) {
	out := ApplyHoldout(descriptors(4), nil)
	for _, d := range out {
		assert.False(t, d.Held)
	}
}

func TestApplyHoldout_IntervalBelowTwoIgnored(t *testing.T) {
	out := ApplyHoldout(descriptors(4), &model.Holdout{IntervalN: 1, Reason: "x"})
	for _, d := range out {
		assert.False(t, d.Held)
	}
}

func TestApplyHoldout_DoesNotMutateInput(t *testing.T) {
	in := descriptors(6)
	_ = ApplyHoldout(in, &model.Holdout{IntervalN: 2, Reason: "x"})
	for _, d := range in {
		assert.False(t, d.Held)
	}
}
