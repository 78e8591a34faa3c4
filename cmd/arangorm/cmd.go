package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pay-theory/arangorm"
	"github.com/pay-theory/arangorm/internal/logging"
	"github.com/pay-theory/arangorm/pkg/model"
	"github.com/pay-theory/arangorm/pkg/session"
)

// cli holds the state shared by the subcommands
type cli struct {
	out    io.Writer
	flags  *viper.Viper
	logger *zap.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out, flags: viper.New()}

	cobra.EnableCommandSorting = false
	rootCmd := &cobra.Command{
		Use:           "arangorm",
		Short:         "Compile LoopBack-style filters to AQL and query ArangoDB",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.flags.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			c.logger = logging.NewWithWriter(os.Stderr, c.flags.GetBool("debug"), c.flags.GetBool("json-logs"))
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (yaml or json)")
	pf.String("url", "", "server URL, overrides the config file")
	pf.String("models", "", "model definitions file (yaml)")
	pf.Bool("debug", false, "log queries and bind variables")
	pf.Bool("json-logs", false, "log as json")

	rootCmd.AddCommand(c.compileCmd())
	rootCmd.AddCommand(c.matchCmd())
	rootCmd.AddCommand(c.pingCmd())
	rootCmd.AddCommand(c.aqlCmd())
	rootCmd.SetOut(out)

	return rootCmd
}

// config loads the connection config and applies flag overrides
func (c *cli) config() (*session.Config, error) {
	cfg, err := session.LoadConfig(c.flags.GetString("config"))
	if err != nil {
		return nil, err
	}
	if u := c.flags.GetString("url"); u != "" {
		cfg.URL = u
	}
	if c.flags.GetBool("debug") {
		cfg.Debug = true
	}
	return cfg, nil
}

// models reads the definitions named by --models
func (c *cli) models() ([]*model.Definition, error) {
	path := c.flags.GetString("models")
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return model.LoadDefinitions(f)
}

// open connects, unless lazy, and defines the models
func (c *cli) open(lazy bool) (*arangorm.DB, *session.Config, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, nil, err
	}
	cfg.LazyConnect = lazy
	c.logger.Debug("connecting", zap.String("address", cfg.Redacted()))

	db, err := arangorm.New(cfg, arangorm.WithLogger(c.logger))
	if err != nil {
		return nil, nil, err
	}

	defs, err := c.models()
	if err != nil {
		return nil, nil, err
	}
	for _, def := range defs {
		if err := db.Define(def); err != nil {
			return nil, nil, err
		}
	}
	return db, cfg, nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseJSONFlag(fs *pflag.FlagSet, name string) (map[string]any, error) {
	raw, _ := fs.GetString(name)
	if raw == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return out, nil
}
