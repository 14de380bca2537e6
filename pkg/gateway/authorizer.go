package gateway

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Authorizer decides who may talk to the bot. Private chats are open to the
// authorized user only. Groups must be authorized by that user first, after
// which any member may use the bot.
type Authorizer struct {
	userID int64
	mu     sync.RWMutex
	groups map[int64]bool
}

func NewAuthorizer(userID int64, groups ...int64) *Authorizer {
	a := &Authorizer{userID: userID, groups: map[int64]bool{}}
	for _, g := range groups {
		a.groups[g] = true
	}
	return a
}

func (a *Authorizer) IsAuthorized(u Update) bool {
	if !u.IsGroup() {
		return a.userID != 0 && u.UserID == a.userID
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.groups[u.ChatID]
}

// AuthorizeGroup handles /authorize and returns the text to reply with.
func (a *Authorizer) AuthorizeGroup(u Update) string {
	log.Info().Int64("user_id", u.UserID).Int64("chat_id", u.ChatID).Msg("gateway: authorization attempt")
	if a.userID == 0 || u.UserID != a.userID {
		log.Warn().Int64("user_id", u.UserID).Int64("chat_id", u.ChatID).Msg("gateway: unauthorized user tried to authorize chat")
		return NotAuthorizedText
	}
	if !u.IsGroup() {
		return "This command can only be used in groups."
	}

	a.mu.Lock()
	a.groups[u.ChatID] = true
	a.mu.Unlock()
	log.Info().Int64("chat_id", u.ChatID).Msg("gateway: group authorized")
	return fmt.Sprintf("This group is now authorized to use the bot. Group ID: %d", u.ChatID)
}

func (a *Authorizer) Groups() []int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ret := make([]int64, 0, len(a.groups))
	for g := range a.groups {
		ret = append(ret, g)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}
