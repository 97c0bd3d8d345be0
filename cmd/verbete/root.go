package main

import (
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/verbetes/verbete-server/internal/config"
	"github.com/verbetes/verbete-server/internal/di"
)

// commandContext builds the service container lazily from the global flags.
type commandContext struct {
	dataPath string
	store    string
	envFile  string
	logLevel string

	injector *do.RootScope
}

// configArgs turns the global flags into config.LoadConfig arguments.
// Unset flags fall through to the environment.
func (c *commandContext) configArgs() []string {
	var args []string
	for _, f := range []struct{ name, value string }{
		{"data-path", c.dataPath},
		{"store", c.store},
		{"env-file", c.envFile},
		{"log-level", c.logLevel},
	} {
		if f.value != "" {
			args = append(args, "-"+f.name, f.value)
		}
	}
	// Tables go to stdout next to the logs; plain text keeps them apart.
	return append(args, "-log-format", "text")
}

func (c *commandContext) container() *do.RootScope {
	if c.injector == nil {
		c.injector = di.NewContainer(c.configArgs(), version)
	}
	return c.injector
}

func (c *commandContext) config() (*config.Config, error) {
	return do.Invoke[*config.Config](c.container())
}

func (c *commandContext) shutdown() {
	if c.injector != nil {
		_ = c.injector.Shutdown()
		c.injector = nil
	}
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "verbete",
		Short:         "Maintenance commands for the verbete server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.dataPath, "data-path", "", "Directory holding the database, search index and keys")
	flags.StringVar(&ctx.store, "store", "", "Store driver (sqlite, badger)")
	flags.StringVar(&ctx.envFile, "env-file", "", "Path to .env file")
	flags.StringVar(&ctx.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newFixContentCommand(ctx))
	rootCmd.AddCommand(newReindexCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))

	return rootCmd
}
