package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pay-theory/arangorm/pkg/codec"
	"github.com/pay-theory/arangorm/pkg/model"
	"github.com/pay-theory/arangorm/pkg/query"
)

func (c *cli) compileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile MODEL",
		Short: "Print the AQL and bind variables a filter compiles to",
		Long: `Print the AQL and bind variables a filter compiles to.
No connection is made. Models come from the --models file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.compile(cmd, args[0])
		},
	}
	cmd.Flags().String("filter", "", `filter as JSON, e.g. {"where":{"age":{"gt":30}},"limit":10}`)
	cmd.Flags().String("update", "", "compile an update with this record as JSON")
	return cmd
}

// definition loads the --models file and returns the named model
func (c *cli) definition(name string) (*model.Definition, error) {
	defs, err := c.models()
	if err != nil {
		return nil, err
	}
	registry := model.NewRegistry()
	for _, def := range defs {
		if err := registry.Define(def); err != nil {
			return nil, err
		}
	}
	return registry.Get(name)
}

func (c *cli) compile(cmd *cobra.Command, modelName string) error {
	def, err := c.definition(modelName)
	if err != nil {
		return err
	}

	raw, err := parseJSONFlag(cmd.Flags(), "filter")
	if err != nil {
		return err
	}
	filter, err := query.ParseFilter(raw)
	if err != nil {
		return err
	}

	update, err := parseJSONFlag(cmd.Flags(), "update")
	if err != nil {
		return err
	}

	assembler := query.NewAssembler(c.logger)
	var compiled *query.Compiled
	if update != nil {
		fields, err := codec.EncodeFields(def, update)
		if err != nil {
			return err
		}
		compiled, err = assembler.AssembleUpdate(def, filter, fields)
		if err != nil {
			return err
		}
	} else if compiled, err = assembler.Assemble(def, filter); err != nil {
		return err
	}

	out := map[string]any{
		"query":    compiled.Query,
		"bindVars": compiled.Params,
	}
	if compiled.Index != nil {
		out["index"] = fmt.Sprintf("%s %v", compiled.Index.Type, compiled.Index.Fields)
	}
	return c.printJSON(out)
}
