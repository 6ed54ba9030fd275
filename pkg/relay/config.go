// Copyright 2024-2026 Aiku AI

package relay

// Config holds the relay core configuration.
type Config struct {
	// CommandPrefix introduces operator commands in message content.
	CommandPrefix string `yaml:"command_prefix"`
	// Admins are the user IDs allowed to declare and tear down pairs.
	Admins []string `yaml:"admins"`

	// AcceptEmoji and RejectEmoji are the two confirmation affordances
	// attached to pairing prompts.
	AcceptEmoji string `yaml:"accept_emoji"`
	RejectEmoji string `yaml:"reject_emoji"`
	// SuccessEmoji and FailureEmoji mark per-destination relay outcomes
	// on the source message.
	SuccessEmoji string `yaml:"relay_success_emoji"`
	FailureEmoji string `yaml:"relay_failure_emoji"`
}

// applyDefaults fills in the conventional emoji names and command prefix.
func (c *Config) applyDefaults() {
	if c.CommandPrefix == "" {
		c.CommandPrefix = "!"
	}
	if c.AcceptEmoji == "" {
		c.AcceptEmoji = "white_check_mark"
	}
	if c.RejectEmoji == "" {
		c.RejectEmoji = "x"
	}
	if c.SuccessEmoji == "" {
		c.SuccessEmoji = "envelope_with_arrow"
	}
	if c.FailureEmoji == "" {
		c.FailureEmoji = "warning"
	}
}

// IsAdmin reports whether a user may run pair management commands.
func (c *Config) IsAdmin(userID string) bool {
	for _, admin := range c.Admins {
		if admin == userID {
			return true
		}
	}
	return false
}
