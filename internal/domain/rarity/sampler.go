package rarity

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrNoAssets is returned when the chosen tier has no usable image.
var ErrNoAssets = errors.New("no card assets available")

var supportedExtensions = []string{".png", ".jpg", ".jpeg", ".gif"}

// AssetSource enumerates the asset identifiers stored in a tier folder and
// confirms a chosen one is still there.
type AssetSource interface {
	List(ctx context.Context, folder string) ([]string, error)
	Stat(ctx context.Context, assetPath string) error
}

// Draw is the outcome of one sampling round.
type Draw struct {
	Tier Tier
	Name string
	Path string
}

type Sampler struct {
	table  *Table
	assets AssetSource

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Sampler)

// WithRand replaces the random source, mainly for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(s *Sampler) {
		s.rng = rng
	}
}

func NewSampler(table *Table, assets AssetSource, opts ...Option) *Sampler {
	now := uint64(time.Now().UnixNano())
	s := &Sampler{
		table:  table,
		assets: assets,
		rng:    rand.New(rand.NewPCG(now, now>>17|1)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PickTier performs the weighted choice. Zero-weight tiers are never returned.
func (s *Sampler) PickTier() Tier {
	s.mu.Lock()
	r := s.rng.Float64() * s.table.TotalWeight()
	s.mu.Unlock()

	var cumulative float64
	var last Tier
	for _, info := range s.table.entries {
		if info.Weight <= 0 {
			continue
		}
		cumulative += info.Weight
		last = info.Tier
		if r < cumulative {
			return info.Tier
		}
	}
	// float rounding can leave r == total
	return last
}

// Sample picks a tier, then one supported image from that tier's folder.
// There is no fallback to another tier when the folder is empty or the chosen
// image has disappeared since it was listed.
func (s *Sampler) Sample(ctx context.Context) (Draw, error) {
	tier := s.PickTier()
	info, _ := s.table.Get(tier)

	listed, err := s.assets.List(ctx, info.Folder)
	if err != nil {
		return Draw{}, fmt.Errorf("%w: list %q: %v", ErrNoAssets, info.Folder, err)
	}

	images := make([]string, 0, len(listed))
	for _, p := range listed {
		if SupportedImage(p) {
			images = append(images, p)
		}
	}
	if len(images) == 0 {
		return Draw{}, fmt.Errorf("%w: folder %q is empty", ErrNoAssets, info.Folder)
	}

	s.mu.Lock()
	chosen := images[s.rng.IntN(len(images))]
	s.mu.Unlock()

	if err := s.assets.Stat(ctx, chosen); err != nil {
		return Draw{}, fmt.Errorf("%w: %q: %v", ErrNoAssets, chosen, err)
	}

	return Draw{Tier: tier, Name: DisplayName(chosen), Path: chosen}, nil
}

func SupportedImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, supported := range supportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// DisplayName is the file name without directory and extension.
func DisplayName(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
