package workflow

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is the closed set of actions an inline-keyboard callback can
// carry. The wire format is "action:id" with an optional third segment.
type Command interface {
	isCommand()
}

type ApprovePayment struct{ ID string }
type RejectPayment struct{ ID string }
type ApproveMedia struct{ ID string }
type RejectMedia struct{ ID string }

// ChooseRootFolder carries an index into the folder list frozen in the
// pending selection, not a path, so callback data stays short.
type ChooseRootFolder struct {
	ID    string
	Index int
}

// Unknown is anything that does not parse. Handlers acknowledge it without
// touching any state.
type Unknown struct{ Raw string }

func (ApprovePayment) isCommand()   {}
func (RejectPayment) isCommand()    {}
func (ApproveMedia) isCommand()     {}
func (RejectMedia) isCommand()      {}
func (ChooseRootFolder) isCommand() {}
func (Unknown) isCommand()          {}

const (
	actionApprovePayment = "ap"
	actionRejectPayment  = "rp"
	actionApproveMedia   = "am"
	actionRejectMedia    = "rm"
	actionChooseRoot     = "cr"
)

// CallbackData renders a command into its callback string.
func CallbackData(cmd Command) string {
	switch c := cmd.(type) {
	case ApprovePayment:
		return actionApprovePayment + ":" + c.ID
	case RejectPayment:
		return actionRejectPayment + ":" + c.ID
	case ApproveMedia:
		return actionApproveMedia + ":" + c.ID
	case RejectMedia:
		return actionRejectMedia + ":" + c.ID
	case ChooseRootFolder:
		return fmt.Sprintf("%s:%s:%d", actionChooseRoot, c.ID, c.Index)
	default:
		return ""
	}
}

// ParseCommand decodes callback data. Anything malformed comes back as
// Unknown rather than an error.
func ParseCommand(data string) Command {
	parts := strings.Split(data, ":")
	if len(parts) < 2 || parts[1] == "" {
		return Unknown{Raw: data}
	}
	action, id := parts[0], parts[1]

	switch action {
	case actionApprovePayment:
		return ApprovePayment{ID: id}
	case actionRejectPayment:
		return RejectPayment{ID: id}
	case actionApproveMedia:
		return ApproveMedia{ID: id}
	case actionRejectMedia:
		return RejectMedia{ID: id}
	case actionChooseRoot:
		if len(parts) != 3 {
			return Unknown{Raw: data}
		}
		idx, err := strconv.Atoi(parts[2])
		if err != nil || idx < 0 {
			return Unknown{Raw: data}
		}
		return ChooseRootFolder{ID: id, Index: idx}
	default:
		return Unknown{Raw: data}
	}
}
