package access

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

type memberGetter interface {
	GetMember(guildID snowflake.ID, userID snowflake.ID, opts ...rest.RequestOpt) (*discord.Member, error)
}

// DiscordGate requires membership in a guild and, when RoleID is set, that
// role.
type DiscordGate struct {
	api     memberGetter
	guildID snowflake.ID
	roleID  snowflake.ID
}

func NewDiscordGate(api memberGetter, guildID, roleID snowflake.ID) *DiscordGate {
	return &DiscordGate{api: api, guildID: guildID, roleID: roleID}
}

func (g *DiscordGate) IsSubscribed(ctx context.Context, userID int64) (bool, error) {
	member, err := g.api.GetMember(g.guildID, snowflake.ID(userID), rest.WithCtx(ctx))
	if err != nil {
		var restErr *rest.Error
		if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("get member %d in guild %s: %w", userID, g.guildID, err)
	}

	if g.roleID == 0 {
		return true, nil
	}
	return slices.Contains(member.RoleIDs, g.roleID), nil
}
