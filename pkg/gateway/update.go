// Package gateway turns inbound chat updates into agent turns: it enforces
// authorization, handles bot commands, filters group chatter and rate limits
// each chat.
package gateway

import (
	"strconv"
	"strings"
)

// Update is one inbound message, independent of the chat transport.
// Positive chat ids are private chats, negative ones are groups.
type Update struct {
	ChatID      int64
	UserID      int64
	Text        string
	ReplyToText string
	BotUsername string
}

func (u Update) IsGroup() bool {
	return u.ChatID < 0
}

func (u Update) ChatKey() string {
	return strconv.FormatInt(u.ChatID, 10)
}

// Command returns the bot command in Text without its leading slash and any
// @botname suffix, or "" if Text is not a command.
func (u Update) Command() string {
	text := strings.TrimSpace(u.Text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0][1:]
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}

// Mention returns Text with the bot mention removed and whether the bot was
// mentioned at all.
func (u Update) Mention() (string, bool) {
	if u.BotUsername == "" {
		return u.Text, false
	}
	tag := "@" + strings.TrimPrefix(u.BotUsername, "@")
	if !strings.Contains(u.Text, tag) {
		return u.Text, false
	}
	return strings.TrimSpace(strings.ReplaceAll(u.Text, tag, "")), true
}

type Reply struct {
	ChatID int64
	Text   string
}
