// Package commands describes slash commands kept in the bot registry.
package commands

import tele "gopkg.in/telebot.v4"

// Command is a registered slash command.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands are wrapped with the admin check and left out of the public menu.
	AdminOnly bool
	Hidden    bool
	Aliases   []string
}

// Public reports whether the command belongs in the menu shown to every user.
func (c Command) Public() bool { return !c.AdminOnly && !c.Hidden }
