package alarm

import "strings"

// Command is an operator command understood by the controller.
type Command string

const (
	// CommandArm enables sensor monitoring.
	CommandArm Command = "arm"
	// CommandDisarm disables monitoring and silences the alarm.
	CommandDisarm Command = "disarm"
)

// ParseCommand matches text case-insensitively and exactly against the known commands.
// Surrounding whitespace is ignored. Anything else is not a command.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)

	switch {
	case strings.EqualFold(text, string(CommandArm)):
		return CommandArm, true
	case strings.EqualFold(text, string(CommandDisarm)):
		return CommandDisarm, true
	default:
		return "", false
	}
}
