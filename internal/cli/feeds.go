package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/pkgscout/pkgscout/pkg/cache"
	"github.com/pkgscout/pkgscout/pkg/config"
	"github.com/pkgscout/pkgscout/pkg/feed"
	"github.com/pkgscout/pkgscout/pkg/feed/aggregate"
	"github.com/pkgscout/pkgscout/pkg/registry/crates"
	"github.com/pkgscout/pkgscout/pkg/registry/npm"
	"github.com/pkgscout/pkgscout/pkg/registry/packagist"
)

// newBackend creates the cache backend selected by the config.
// noCache forces the null backend regardless of configuration.
func newBackend(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr: cfg.Cache.RedisAddr,
			DB:   cfg.Cache.RedisDB,
		})
	default:
		return cache.NewFileCache(cfg.Cache.Dir)
	}
}

// buildFeeds constructs one feed per enabled source, preserving config
// order. If only is non-empty, sources not named in it are skipped.
func buildFeeds(cfg *config.Config, backend cache.Cache, only []string) ([]feed.Feed, error) {
	var feeds []feed.Feed
	for _, src := range cfg.Enabled() {
		if len(only) > 0 && !slices.Contains(only, src.Name) {
			continue
		}
		f, err := newSourceFeed(src, cfg, backend)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, f)
	}
	if len(feeds) == 0 {
		return nil, fmt.Errorf("no sources selected")
	}
	return feeds, nil
}

func newSourceFeed(src config.Source, cfg *config.Config, backend cache.Cache) (feed.Feed, error) {
	ttl := cfg.Cache.TTL.Duration
	url := src.URL
	switch src.Kind {
	case config.KindNPM:
		if url == "" {
			url = npm.DefaultBaseURL
		}
		return npm.NewWithBaseURL(src.Name, url, backend, ttl), nil
	case config.KindCrates:
		if url == "" {
			url = crates.DefaultBaseURL
		}
		return crates.NewWithBaseURL(src.Name, url, backend, ttl), nil
	case config.KindPackagist:
		if url == "" {
			url = packagist.DefaultBaseURL
		}
		return packagist.NewWithBaseURL(src.Name, url, backend, ttl), nil
	}
	return nil, fmt.Errorf("unknown source kind %q", src.Kind)
}

// buildAggregate wires the configured sources into a single composite feed.
// The returned config is the one the feeds were built from.
func (c *CLI) buildAggregate(ctx context.Context, noCache bool, only []string) (*aggregate.Aggregator, cache.Cache, *config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	backend, err := newBackend(ctx, cfg, noCache)
	if err != nil {
		return nil, nil, nil, err
	}
	feeds, err := buildFeeds(cfg, backend, only)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}
	agg, err := aggregate.New(feeds...)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}
	return agg, backend, cfg, nil
}
