// Package gate restricts bot usage to members of a configured channel.
package gate

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/devmike09/Converter-Bot/internal/logger"
)

// MembershipOracle answers live membership lookups. *tgbotapi.BotAPI
// satisfies it.
type MembershipOracle interface {
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Gate checks channel membership before any interaction is served. Lookups
// happen on every entry point; nothing is cached, so a user who leaves the
// channel is locked out on their next message.
type Gate struct {
	oracle  MembershipOracle
	channel string
}

// New builds a gate for the configured channel. An empty channel disables
// gating entirely.
func New(oracle MembershipOracle, channel string) *Gate {
	return &Gate{
		oracle:  oracle,
		channel: strings.TrimSpace(channel),
	}
}

// Enabled reports whether a channel requirement is configured.
func (g *Gate) Enabled() bool {
	return g.channel != ""
}

// Allow reports whether the user may use the bot right now. When the lookup
// fails or returns a status this code does not recognize, the user is denied
// rather than silently let through.
func (g *Gate) Allow(userID int64) bool {
	if !g.Enabled() {
		return true
	}

	member, err := g.oracle.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: g.chatConfig(userID),
	})
	if err != nil {
		logger.Warn("Membership lookup failed, denying access", map[string]interface{}{
			"user_id": userID,
			"channel": g.channel,
			"error":   err.Error(),
		})
		return false
	}

	switch member.Status {
	case "member", "administrator", "creator":
		return true
	case "restricted":
		// Restricted users are still in the channel unless they left it.
		return member.IsMember
	case "left", "kicked":
		return false
	default:
		logger.Warn("Unrecognized membership status, denying access", map[string]interface{}{
			"user_id": userID,
			"channel": g.channel,
			"status":  member.Status,
		})
		return false
	}
}

// chatConfig addresses the channel either by numeric chat ID or by @username.
func (g *Gate) chatConfig(userID int64) tgbotapi.ChatConfigWithUser {
	if id, err := strconv.ParseInt(g.channel, 10, 64); err == nil {
		return tgbotapi.ChatConfigWithUser{ChatID: id, UserID: userID}
	}
	username := g.channel
	if !strings.HasPrefix(username, "@") {
		username = "@" + username
	}
	return tgbotapi.ChatConfigWithUser{SuperGroupUsername: username, UserID: userID}
}

// ChannelURL returns the public t.me link for the join button, or an empty
// string when the channel is addressed by numeric ID and has no public link.
func (g *Gate) ChannelURL() string {
	if !g.Enabled() {
		return ""
	}
	if _, err := strconv.ParseInt(g.channel, 10, 64); err == nil {
		return ""
	}
	return "https://t.me/" + strings.TrimPrefix(g.channel, "@")
}
