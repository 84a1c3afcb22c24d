// Package command decodes inbound triggers into typed intake commands.
package command

// Action names recognized by the parser, before any configured prefix.
const (
	ActionPoll    = "POLL"
	ActionEnable  = "ENABLE"
	ActionDisable = "DISABLE"
)

// ParamAccount is the trigger parameter that names the target account.
const ParamAccount = "account"

// Kind classifies a Command.
type Kind int

// Command kinds.
const (
	KindIgnore Kind = iota
	KindPoll
	KindSetEnabled
)

func (k Kind) String() string {
	switch k {
	case KindIgnore:
		return "ignore"
	case KindPoll:
		return "poll"
	case KindSetEnabled:
		return "set_enabled"
	default:
		return "unknown"
	}
}

// Command is the typed form of a trigger. Account is meaningful only when
// HasAccount is true; a SetEnabled without an account applies globally.
type Command struct {
	Kind       Kind
	Account    string
	HasAccount bool
	Enabled    bool
}

// Global reports whether the command is a SetEnabled with no account.
func (c Command) Global() bool {
	return c.Kind == KindSetEnabled && !c.HasAccount
}

// Parser maps triggers to commands. Prefix qualifies every action name, so
// with Prefix "com.example.mail." the poll action is "com.example.mail.POLL".
type Parser struct {
	Prefix string
}

// Parse returns exactly one command for any trigger. Unrecognized actions
// map to KindIgnore; Parse never fails.
func (p Parser) Parse(t Trigger) Command {
	switch t.Action {
	case p.Prefix + ActionPoll:
		return Command{Kind: KindPoll}
	case p.Prefix + ActionEnable:
		return setEnabled(t, true)
	case p.Prefix + ActionDisable:
		return setEnabled(t, false)
	default:
		return Command{Kind: KindIgnore}
	}
}

func setEnabled(t Trigger, enabled bool) Command {
	cmd := Command{Kind: KindSetEnabled, Enabled: enabled}

	// Only a missing parameter means global. The name is matched byte for
	// byte, so an empty one names no account.
	if name, ok := t.Params[ParamAccount]; ok {
		cmd.Account = name
		cmd.HasAccount = true
	}

	return cmd
}
