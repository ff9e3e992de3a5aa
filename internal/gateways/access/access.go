// Package access decides whether a user may draw cards, usually by checking a
// channel subscription or guild membership on the chat platform.
package access

import "context"

// AllowAll admits every user. Meant for local development.
type AllowAll struct{}

func (AllowAll) IsSubscribed(context.Context, int64) (bool, error) {
	return true, nil
}
