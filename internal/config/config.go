/*
* Loads the git-loc configuration file.
 */
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sinclairtarget/git-loc/internal/authors"
	"github.com/sinclairtarget/git-loc/internal/selection"
)

var (
	ErrInvalidBlacklist   = errors.New("invalid blacklist pattern")
	ErrInvalidAlias       = errors.New("invalid author alias")
	ErrInvalidBackend     = errors.New("unknown cache backend")
	ErrInvalidWorkers     = errors.New("workers must not be negative")
	ErrInvalidMaxVariants = errors.New("cache max_variants must be at least 1")
)

const (
	EnvPrefix          = "GITLOC"
	DefaultConfigName  = ".git-loc"
	DefaultProjectDir  = "."
	DefaultBackend     = "bolt"
	DefaultMaxVariants = 8
)

// Names accepted for cache.backend.
var Backends = []string{"bolt", "sqlite", "gob", "json", "none"}

type Config struct {
	ProjectDir    string        `mapstructure:"project_dir" yaml:"project_dir"`
	ProjectFiles  ProjectFiles  `mapstructure:"project_files" yaml:"project_files"`
	AuthorMapping authors.Table `mapstructure:"author_mapping" yaml:"author_mapping"`
	Workers       int           `mapstructure:"workers" yaml:"workers"`
	Blame         BlameConfig   `mapstructure:"blame" yaml:"blame"`
	Cache         CacheConfig   `mapstructure:"cache" yaml:"cache"`

	// Path of the file the configuration was read from, if any.
	Source string `mapstructure:"-" yaml:"-"`

	blacklist selection.Blacklist
}

type ProjectFiles struct {
	Blacklist []string `mapstructure:"blacklist" yaml:"blacklist"`
}

type BlameConfig struct {
	IgnoreWhitespace bool `mapstructure:"ignore_whitespace" yaml:"ignore_whitespace"`
	UseIgnoreRevs    bool `mapstructure:"use_ignore_revs" yaml:"use_ignore_revs"`
}

type CacheConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Backend     string `mapstructure:"backend" yaml:"backend"`
	Dir         string `mapstructure:"dir" yaml:"dir"`
	MaxVariants int    `mapstructure:"max_variants" yaml:"max_variants"`
}

// Loads configuration from the YAML file at path, then applies GITLOC_*
// environment overrides.
//
// When path is empty, a .git-loc.yml in the working directory is used if one
// exists; otherwise only defaults and the environment apply.
func Load(path string) (_ *Config, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("failed to load configuration: %w", err)
		}
	}()

	loadEnvFiles()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err = v.ReadInConfig()
	if err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}

		logger().Debug("no config file found, using defaults")
		err = nil
	}

	var cfg Config
	err = v.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}

	cfg.Source = v.ConfigFileUsed()
	logger().Debug("loaded config", "source", cfg.Source)

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("project_dir", DefaultProjectDir)
	v.SetDefault("project_files.blacklist", []string{})
	v.SetDefault("author_mapping", []map[string]string{})
	v.SetDefault("workers", 0)
	v.SetDefault("blame.ignore_whitespace", true)
	v.SetDefault("blame.use_ignore_revs", false)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", DefaultBackend)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.max_variants", DefaultMaxVariants)
}

// Local overrides are loaded first; godotenv never overwrites a variable that
// is already set, so earlier files win.
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}

		if err := godotenv.Load(file); err != nil {
			logger().Warn("could not load env file", "file", file, "err", err)
		}
	}
}

// Checks the configuration and compiles the blacklist. Load calls this; it
// only needs calling directly for a Config built by hand.
func (c *Config) Validate() error {
	blacklist, err := selection.Compile(c.ProjectFiles.Blacklist)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBlacklist, err)
	}
	c.blacklist = blacklist

	for i, alias := range c.AuthorMapping {
		if alias.Author == "" || alias.MapTo == "" {
			return fmt.Errorf(
				"%w: entry %d needs both author and map_to",
				ErrInvalidAlias,
				i,
			)
		}
	}

	for _, author := range c.AuthorMapping.Duplicates() {
		logger().Warn(
			"author appears more than once in author_mapping, first entry wins",
			"author",
			author,
		)
	}

	if c.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}

	if !slices.Contains(Backends, c.Cache.Backend) {
		return fmt.Errorf(
			"%w: %q (expected one of %s)",
			ErrInvalidBackend,
			c.Cache.Backend,
			strings.Join(Backends, ", "),
		)
	}

	if c.Cache.MaxVariants < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxVariants, c.Cache.MaxVariants)
	}

	return nil
}

func (c *Config) Blacklist() selection.Blacklist {
	return c.blacklist
}

// Number of files blamed at once.
func (c *Config) WorkerCount() int {
	if c.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}

	return c.Workers
}

func (c *Config) CachingEnabled() bool {
	return c.Cache.Enabled && c.Cache.Backend != "none"
}

// Directory under which cache backends keep their files.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}

	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user cache dir: %w", err)
	}

	return filepath.Join(dir, "git-loc"), nil
}
