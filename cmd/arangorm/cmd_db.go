package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pay-theory/arangorm/pkg/core"
)

func (c *cli) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the database answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, cfg, err := c.open(true)
			if err != nil {
				return err
			}
			defer db.Disconnect()
			if err := db.Ping(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.out, "ok %s\n", cfg.Redacted())
			return err
		},
	}
}

func (c *cli) aqlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aql QUERY",
		Short: "Run a raw AQL query and print the rows as JSON",
		Long: `Run a raw AQL query and print the rows as JSON.
Bind "?" placeholders with repeated --param flags (each parsed as JSON,
falling back to a string) or named @placeholders with --bind.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := aqlParams(cmd)
			if err != nil {
				return err
			}
			db, _, err := c.open(false)
			if err != nil {
				return err
			}
			defer db.Disconnect()

			res, err := db.ExecuteAQL(args[0], params, &core.AQLOptions{})
			if err != nil {
				return err
			}
			return c.printJSON(res.Rows)
		},
	}
	cmd.Flags().StringArray("param", nil, "positional parameter, repeatable")
	cmd.Flags().String("bind", "", "named parameters as a JSON object")
	return cmd
}

func aqlParams(cmd *cobra.Command) (any, error) {
	named, err := parseJSONFlag(cmd.Flags(), "bind")
	if err != nil {
		return nil, err
	}
	positional, _ := cmd.Flags().GetStringArray("param")
	switch {
	case named != nil && len(positional) > 0:
		return nil, fmt.Errorf("--param and --bind cannot be combined")
	case named != nil:
		return named, nil
	case len(positional) > 0:
		out := make([]any, len(positional))
		for i, raw := range positional {
			var v any
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				v = raw
			}
			out[i] = v
		}
		return out, nil
	default:
		return nil, nil
	}
}
