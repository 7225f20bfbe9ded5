package main

import (
	"context"
	"fmt"

	"github.com/sinclairtarget/git-loc/internal/cache"
	cacheBackends "github.com/sinclairtarget/git-loc/internal/cache/backends"
	"github.com/sinclairtarget/git-loc/internal/config"
	"github.com/sinclairtarget/git-loc/internal/git/revision"
)

func warnFail(err error) cache.Cache {
	logger().Warn(
		fmt.Sprintf("failed to initialize cache: %v", err),
	)
	logger().Warn("disabling caching")
	return cache.NewCache(cacheBackends.NoopBackend{})
}

// getCache returns an opened cache for the configured backend. Problems
// setting up the cache disable caching rather than failing the run.
func getCache(cfg *config.Config, disabled bool) cache.Cache {
	if disabled || !cfg.CachingEnabled() {
		logger().Debug("caching disabled")
		return cache.NewCache(cacheBackends.NoopBackend{})
	}

	c, err := newCache(cfg)
	if err != nil {
		return warnFail(err)
	}

	err = c.Open()
	if err != nil {
		return warnFail(err)
	}

	logger().Debug("cache initialized", "backend", c.Name())
	return c
}

func newCache(cfg *config.Config) (cache.Cache, error) {
	dir, err := cfg.CacheDir()
	if err != nil {
		return cache.Cache{}, err
	}

	backend, err := cacheBackends.New(
		cfg.Cache.Backend,
		cacheBackends.Options{Dir: dir, MaxVariants: cfg.Cache.MaxVariants},
	)
	if err != nil {
		return cache.Cache{}, err
	}

	return cache.NewCache(backend), nil
}

// The "cache clear" subcommand removes every cached snapshot for the project,
// whatever configuration it was computed with.
func clearCache(ctx context.Context, configPath string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error running \"cache clear\": %w", err)
		}
	}()

	logger().Debug("called clearCache()", "configPath", configPath)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Cache.Backend == cacheBackends.NoopBackendName {
		fmt.Println("No cache backend configured.")
		return nil
	}

	repo, err := openRepo(ctx, cfg)
	if err != nil {
		return err
	}

	c, err := newCache(cfg)
	if err != nil {
		return err
	}

	err = c.Open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	err = c.Clear(repo.ID())
	if err != nil {
		return err
	}

	fmt.Printf(
		"Cleared %s cache for project %s.\n",
		c.Name(),
		revision.Short(repo.ID()),
	)
	return nil
}
