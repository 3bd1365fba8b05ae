package domain

import "strings"

type PolicyName string

const (
	PolicyLink          PolicyName = "antilink"
	PolicyImpersonation PolicyName = "antibot"
)

type Action string

const (
	ActionNone   Action = ""
	ActionDelete Action = "delete"
	ActionRemove Action = "remove"
	ActionWarn   Action = "warn"
)

// ParseAction normalises a stored action value. Anything unrecognised maps to
// delete, the least disruptive enforcement.
func ParseAction(raw string) Action {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionRemove:
		return ActionRemove
	case ActionWarn:
		return ActionWarn
	default:
		return ActionDelete
	}
}

func (a Action) Valid() bool {
	return a == ActionDelete || a == ActionRemove || a == ActionWarn
}

// PolicySetting is the per-conversation configuration of one policy.
type PolicySetting struct {
	Enabled bool
	Action  Action
}

// PolicyDecision is the outcome of evaluating one policy against one event.
type PolicyDecision struct {
	Policy  PolicyName
	Matched bool
	Action  Action
	Reason  string
}

type GroupEvent string

const (
	GroupEventWelcome GroupEvent = "welcome"
	GroupEventGoodbye GroupEvent = "goodbye"
)

// MuteSchedule holds the daily close/open times ("HH:MM") of a group.
type MuteSchedule struct {
	ConversationID string
	MuteAt         string
	UnmuteAt       string
}
