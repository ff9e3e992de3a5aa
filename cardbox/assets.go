package cardbox

import (
	"context"
	"fmt"

	"github.com/cardbox-bot/cardbox/internal/gateways/assets"
)

// OpenAssets builds the configured asset backend. Local folders are listed
// fresh on every call; the Spaces bucket sits behind the listing cache.
func OpenAssets(ctx context.Context, cfg AssetsConfig) (assets.Store, error) {
	switch cfg.Backend {
	case BackendFS:
		return assets.NewFileStore(cfg.Root), nil
	case BackendSpaces:
		spaces, err := assets.NewSpacesStore(ctx, cfg.Spaces)
		if err != nil {
			return nil, fmt.Errorf("failed to create spaces store: %w", err)
		}
		return assets.NewCachedStore(spaces, cfg.CacheSize, cfg.CacheTTL.Duration), nil
	default:
		return nil, fmt.Errorf("unknown assets backend %q", cfg.Backend)
	}
}
