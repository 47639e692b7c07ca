package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fellnerd/dimetrics-mcp-server/internal/apperr"
	"github.com/fellnerd/dimetrics-mcp-server/internal/entries"
	"github.com/fellnerd/dimetrics-mcp-server/internal/query"
	"github.com/fellnerd/dimetrics-mcp-server/internal/types"
)

func entriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entries",
		Aliases: []string{"entry"},
		Short:   "List, read and modify entries of a resource",
	}
	cmd.AddCommand(entriesListCmd())
	cmd.AddCommand(entriesGetCmd())
	cmd.AddCommand(entriesCreateCmd())
	cmd.AddCommand(entriesUpdateCmd())
	cmd.AddCommand(entriesDeleteCmd())
	return cmd
}

func entriesListCmd() *cobra.Command {
	var (
		search    string
		pageSize  int
		page      int
		ordering  string
		filters   string
		filter    string
		aggregate string
	)

	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "List entries with filters and aggregations",
		Long: `List entries of a resource.

Examples:
  # Equality filter
  dimetricsctl entries list lau6_RunEntries --filters '{"training_type":"dauerlauf"}'

  # Directus filter tree
  dimetricsctl entries list orders --filter '{"_and":[{"state":{"_eq":"ok"}},{"amount":{"_gte":10}}]}'

  # Aggregations
  dimetricsctl entries list lau6_RunEntries --aggregate '{"sum":"distance_km","count":"name"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			simple, err := query.ParseSimpleFilter([]byte(filters))
			if err != nil {
				return fmt.Errorf("--filters: %w", err)
			}
			tree, err := query.ParseFilter([]byte(filter))
			if err != nil {
				return fmt.Errorf("--filter: %w", err)
			}
			agg, err := query.ParseAggregation([]byte(aggregate))
			if err != nil {
				return fmt.Errorf("--aggregate: %w", err)
			}

			svc, err := entryService()
			if err != nil {
				return err
			}
			opts := entries.ListOptions{
				Search:    search,
				PageSize:  &pageSize,
				Page:      &page,
				Ordering:  ordering,
				Filters:   simple,
				Filter:    tree,
				Aggregate: agg,
			}

			res, err := svc.List(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), res, outputFmt)
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Free-text search")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "Entries per page, 0 for the backend default")
	cmd.Flags().IntVar(&page, "page", 1, "1-based page number")
	cmd.Flags().StringVar(&ordering, "ordering", "", "Field to order by, prefix - for descending")
	cmd.Flags().StringVar(&filters, "filters", "", "Equality filters as a JSON object")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Directus filter tree as JSON")
	cmd.Flags().StringVarP(&aggregate, "aggregate", "a", "", "Aggregations as JSON, e.g. {\"sum\":\"amount\"}")
	return cmd
}

func entriesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <resource> <entry-id>",
		Short: "Show one entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := entryService()
			if err != nil {
				return err
			}
			entry, err := svc.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), entry, outputFmt)
		},
	}
}

func entriesCreateCmd() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "create <resource>",
		Short: "Create an entry from a JSON object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseData(data)
			if err != nil {
				return err
			}
			svc, err := entryService()
			if err != nil {
				return err
			}
			entry, err := svc.Create(cmd.Context(), args[0], fields)
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), entry, outputFmt)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "Entry fields as a JSON object")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func entriesUpdateCmd() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "update <resource> <entry-id>",
		Short: "Change only the given fields of an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseData(data)
			if err != nil {
				return err
			}
			svc, err := entryService()
			if err != nil {
				return err
			}
			res, err := svc.Update(cmd.Context(), args[0], args[1], fields)
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), res, outputFmt)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "Fields to change as a JSON object")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func entriesDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <resource> <entry-id>",
		Short: "Irreversibly delete an entry",
		Long: `Irreversibly delete an entry.

Nothing is sent to the API unless --yes is given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := entryService()
			if err != nil {
				return err
			}
			res, err := svc.Delete(cmd.Context(), args[0], args[1], yes)
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), res, outputFmt)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")
	return cmd
}

func parseData(raw string) (map[string]any, error) {
	var out map[string]any
	if err := types.DecodeJSON([]byte(raw), &out); err != nil || out == nil {
		return nil, apperr.New(apperr.InvalidArgument, "--data must be a JSON object")
	}
	return out, nil
}
