package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	StartText         = "Hi! I'm your AI assistant. Mention me with @ to get a response."
	ClearedText       = "Conversation history cleared."
	NotAuthorizedText = "You are not authorized to use this command."
	RateLimitedText   = "Too many requests. Please wait a moment."
)

// Responder is the agent as seen by the gateway.
type Responder interface {
	Respond(ctx context.Context, chatID string, userText string, replyContext *string) string
	Clear(chatID string)
}

type Gateway struct {
	responder     Responder
	auth          *Authorizer
	contextWindow int
	limit         rate.Limit
	burst         int

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
}

type Option func(*Gateway)

// WithContextWindow sets the window size reported by /help.
func WithContextWindow(n int) Option {
	return func(g *Gateway) { g.contextWindow = n }
}

func WithRateLimit(perSecond float64, burst int) Option {
	return func(g *Gateway) {
		g.limit = rate.Limit(perSecond)
		g.burst = burst
	}
}

func New(responder Responder, auth *Authorizer, opts ...Option) *Gateway {
	g := &Gateway{
		responder: responder,
		auth:      auth,
		limit:     rate.Limit(1.0),
		burst:     5,
		limiters:  map[int64]*rate.Limiter{},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Gateway) Authorizer() *Authorizer {
	return g.auth
}

// Handle processes u. The returned bool is false when the bot stays silent.
func (g *Gateway) Handle(ctx context.Context, u Update) (Reply, bool) {
	reply := func(text string) (Reply, bool) {
		return Reply{ChatID: u.ChatID, Text: text}, true
	}

	switch u.Command() {
	case "":
	case "start":
		return reply(StartText)
	case "help":
		return reply(g.helpText())
	case "authorize":
		return reply(g.auth.AuthorizeGroup(u))
	case "clear":
		if !g.auth.IsAuthorized(u) {
			return reply(NotAuthorizedText)
		}
		g.responder.Clear(u.ChatKey())
		log.Info().Int64("chat_id", u.ChatID).Msg("gateway: history cleared")
		return reply(ClearedText)
	default:
		return Reply{}, false
	}

	if !g.auth.IsAuthorized(u) {
		log.Info().Int64("chat_id", u.ChatID).Int64("user_id", u.UserID).Msg("gateway: ignoring unauthorized message")
		return Reply{}, false
	}

	text := u.Text
	if u.IsGroup() {
		var mentioned bool
		text, mentioned = u.Mention()
		if !mentioned {
			return Reply{}, false
		}
	} else {
		text, _ = u.Mention()
	}
	if strings.TrimSpace(text) == "" {
		return Reply{}, false
	}

	if !g.allow(u.ChatID) {
		log.Warn().Int64("chat_id", u.ChatID).Msg("gateway: rate limited")
		return reply(RateLimitedText)
	}

	var replyContext *string
	if strings.TrimSpace(u.ReplyToText) != "" {
		rc := u.ReplyToText
		replyContext = &rc
	}
	return reply(g.responder.Respond(ctx, u.ChatKey(), text, replyContext))
}

func (g *Gateway) allow(chatID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.limiters[chatID]
	if !ok {
		l = rate.NewLimiter(g.limit, g.burst)
		g.limiters[chatID] = l
	}
	return l.Allow()
}

func (g *Gateway) helpText() string {
	text := "Available commands:\n" +
		"/start - Start the bot\n" +
		"/help - Show this help message\n" +
		"/authorize - Authorize this group to use the bot\n" +
		"/clear - Clear conversation history\n"
	if g.contextWindow > 0 {
		text += fmt.Sprintf("\nCurrent context window: %d messages", g.contextWindow)
	} else {
		text += "\nCurrent context window: unlimited"
	}
	return text
}
