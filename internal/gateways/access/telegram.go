package access

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

type chatMemberGetter interface {
	GetChatMember(ctx context.Context, params *telego.GetChatMemberParams) (telego.ChatMember, error)
}

// TelegramGate requires membership in a channel. The bot must be an
// administrator of that channel for getChatMember to work.
type TelegramGate struct {
	api     chatMemberGetter
	channel telego.ChatID
}

// NewTelegramGate accepts a numeric channel id or an @username.
func NewTelegramGate(api chatMemberGetter, channel string) *TelegramGate {
	return &TelegramGate{api: api, channel: ParseChatID(channel)}
}

func (g *TelegramGate) IsSubscribed(ctx context.Context, userID int64) (bool, error) {
	member, err := g.api.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: g.channel,
		UserID: userID,
	})
	if err != nil {
		return false, fmt.Errorf("get chat member %d in %s: %w", userID, g.channel, err)
	}

	switch member.MemberStatus() {
	case telego.MemberStatusCreator, telego.MemberStatusAdministrator, telego.MemberStatusMember:
		return true, nil
	default:
		return false, nil
	}
}

// ParseChatID turns "-100123" into a numeric id and anything else into a
// username id with a leading @.
func ParseChatID(s string) telego.ChatID {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return tu.ID(id)
	}
	if len(s) > 0 && s[0] != '@' {
		s = "@" + s
	}
	return tu.Username(s)
}
