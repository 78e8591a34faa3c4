package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pay-theory/arangorm/pkg/codec"
	"github.com/pay-theory/arangorm/pkg/model"
	"github.com/pay-theory/arangorm/pkg/query"
)

func (c *cli) matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match MODEL",
		Short: "Print the documents of a JSON file that a filter selects",
		Long: `Print the documents of a JSON file that a filter selects.
The file holds an array of stored documents. Only the where clause is
applied; no connection is made.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.match(cmd, args[0])
		},
	}
	cmd.Flags().String("filter", "", "filter as JSON")
	cmd.Flags().String("docs", "", "JSON file with an array of documents")
	return cmd
}

func (c *cli) match(cmd *cobra.Command, modelName string) error {
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
	preds, err := query.ParseWhere(filter.Where)
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("docs")
	if path == "" {
		return fmt.Errorf("--docs is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var docs []map[string]any
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("--docs: %w", err)
	}

	out := make([]model.Record, 0, len(docs))
	for _, doc := range docs {
		ok, err := query.Evaluate(def, preds, doc)
		if err != nil {
			return err
		}
		if ok {
			out = append(out, codec.DecodeRecord(def, doc))
		}
	}
	return c.printJSON(out)
}
