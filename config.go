package main

import (
	"fmt"
	"os"

	"github.com/sinclairtarget/git-loc/internal/config"
)

// Prints the configuration after defaults and environment overrides are
// applied.
func showConfig(configPath string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error running \"config\": %w", err)
		}
	}()

	logger().Debug("called showConfig()", "configPath", configPath)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Source != "" {
		fmt.Printf("# %s\n", cfg.Source)
	}

	return config.Dump(os.Stdout, cfg)
}
