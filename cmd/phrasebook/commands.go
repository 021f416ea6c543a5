package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/smith3v/tg-phrasebook/pkg/categories"
	"github.com/smith3v/tg-phrasebook/pkg/importexport"
	"github.com/smith3v/tg-phrasebook/pkg/learning"
	"github.com/smith3v/tg-phrasebook/pkg/phrases"
	"github.com/smith3v/tg-phrasebook/pkg/ui"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import pairs from a .csv or .xlsx file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := importexport.FormatFor(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			result, err := importexport.Import(cmd.Context(), format, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d pairs, skipped %d, malformed %d\n",
				result.Imported, result.Skipped, result.Malformed)
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Export every pair to a .csv or .xlsx file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := importexport.FormatFor(args[0])
			if err != nil {
				return err
			}
			data, count, err := importexport.Export(cmd.Context(), format)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d pairs to %s\n", count, args[0])
			return nil
		},
	}
}

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List and maintain categories",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories with their pair counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, summary := range categories.Summaries(cmd.Context()) {
				fmt.Fprintf(w, "%s\t%d\n", summary.Name, summary.Pairs)
			}
			return w.Flush()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a category, merging into new if it exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := categories.Rename(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", args[0], args[1])
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "merge <a> <b> <merged>",
		Short: "Merge two categories into one",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := categories.Merge(cmd.Context(), args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %s and %s into %s\n", args[0], args[1], args[2])
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a category; its pairs are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := categories.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	})
	return cmd
}

func progressCmd() *cobra.Command {
	var difficult, best int
	cmd := &cobra.Command{
		Use:   "progress [category]",
		Short: "Show learned pairs per category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			names := categories.All(ctx)
			if len(args) == 1 {
				names = []string{args[0]}
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, name := range names {
				fmt.Fprintf(w, "%s\t%s\n", name, ui.FormatProgress(learning.Aggregate(ctx, name)))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			printRanked(ctx, out, "Most difficult:", difficult, learning.MostDifficult)
			printRanked(ctx, out, "Best known:", best, learning.MostSuccessful)
			return nil
		},
	}
	cmd.Flags().IntVar(&difficult, "difficult", 0, "also list the N most missed pairs")
	cmd.Flags().IntVar(&best, "best", 0, "also list the N best known pairs")
	return cmd
}

func printRanked(ctx context.Context, out io.Writer, title string, limit int, rank func(context.Context, int) []learning.PairStat) {
	if limit <= 0 {
		return
	}
	stats := rank(ctx, limit)
	if len(stats) > 0 {
		fmt.Fprintln(out, "\n"+title)
	}
	for _, stat := range stats {
		fmt.Fprintf(out, "#%d %s → %s (missed %d, knew %d)\n",
			stat.PairID, stat.Source, stat.Target, stat.FailureCount, stat.SuccessCount)
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <category>",
		Short: "Forget learning progress for every pair in a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := learning.ResetProgress(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d pairs in %s\n", count, args[0])
			return nil
		},
	}
}

func pairsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pairs",
		Short: "Add, list and delete translation pairs",
	}

	var names []string
	add := &cobra.Command{
		Use:   "add <source> <target>",
		Short: "Save a translation pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pair, err := phrases.Add(cmd.Context(), args[0], args[1], names)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderPairLine(*pair))
			return nil
		},
	}
	add.Flags().StringSliceVar(&names, "category", nil, "category of the pair (repeatable)")
	cmd.AddCommand(add)

	var (
		search string
		limit  int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List pairs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pairs := phrases.Recent(ctx, limit)
			if strings.TrimSpace(search) != "" {
				pairs = phrases.Search(ctx, search)
			}
			for _, pair := range pairs {
				fmt.Fprintln(cmd.OutOrStdout(), ui.RenderPairLine(pair))
			}
			return nil
		},
	}
	list.Flags().StringVar(&search, "search", "", "only pairs containing this text")
	list.Flags().IntVar(&limit, "limit", phrases.DefaultListLimit, "maximum number of pairs")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a pair with its categories and progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(strings.TrimPrefix(args[0], "#"), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid pair id %q", args[0])
			}
			if err := phrases.Delete(cmd.Context(), uint(id)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted #%d\n", id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "tag <id> <category>...",
		Short: "Replace the categories of a pair",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(strings.TrimPrefix(args[0], "#"), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid pair id %q", args[0])
			}
			if phrases.Get(cmd.Context(), uint(id)) == nil {
				return phrases.ErrNotFound
			}
			if err := categories.Set(cmd.Context(), uint(id), args[1:]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "#%d: %s\n", id, strings.Join(categories.For(cmd.Context(), uint(id)), ", "))
			return nil
		},
	})
	return cmd
}
