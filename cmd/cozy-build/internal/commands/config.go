package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type ConfigCmd struct {
	SettingsFlags `embed:""`

	out io.Writer
}

func (c *ConfigCmd) Run(ctx context.Context, globals *Globals) error {
	resolved, err := c.resolve(globals)
	if err != nil {
		return fmt.Errorf("failed to resolve settings: %w", err)
	}

	out := c.out
	if out == nil {
		out = os.Stdout
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(resolved.Configuration()); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return enc.Close()
}
