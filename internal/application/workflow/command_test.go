package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommandRoundTrip(t *testing.T) {
	cmds := []Command{
		ApprovePayment{ID: "s1"},
		RejectPayment{ID: "s1"},
		ApproveMedia{ID: "m1"},
		RejectMedia{ID: "m1"},
		ChooseRootFolder{ID: "m1", Index: 2},
	}
	for _, cmd := range cmds {
		assert.Equal(t, cmd, ParseCommand(CallbackData(cmd)))
	}
}

func TestParseCommandMalformed(t *testing.T) {
	inputs := []string{
		"",
		"ap",
		"ap:",
		"bogus:s1",
		"cr:m1",
		"cr:m1:notanumber",
		"cr:m1:-1",
		"cr:m1:2:extra",
	}
	for _, in := range inputs {
		_, ok := ParseCommand(in).(Unknown)
		assert.True(t, ok, "expected Unknown for %q", in)
	}
}
