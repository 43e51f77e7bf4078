package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vbonduro/wastecapture/internal/auth"
	"github.com/vbonduro/wastecapture/internal/domain"
	"github.com/vbonduro/wastecapture/internal/location"
	"github.com/vbonduro/wastecapture/internal/web"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "wastecapture",
		Short:        "Capture, classify and record waste items",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newItemsCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the capture HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			photos, err := a.photoStore()
			if err != nil {
				return err
			}
			classifier, err := newClassifier(a.cfg, photos, a.logger)
			if err != nil {
				return err
			}
			locator, err := newLocator(a.cfg, a.logger)
			if err != nil {
				return err
			}

			server := web.NewServer(a.items, photos, auth.NewSessions(), newWorkflowFactory(a, classifier, locator), a.logger)
			defer server.Close()

			if err := server.ListenAndServe(cmd.Context(), a.cfg.ListenAddr); err != nil {
				a.logger.Error("server error", "error", err)
				return err
			}
			return nil
		},
	}
}

func newItemsCmd() *cobra.Command {
	items := &cobra.Command{
		Use:   "items",
		Short: "Inspect and manage stored items",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored items, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			list := a.items.List(cmd.Context())
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			return printItems(cmd.OutOrStdout(), list)
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print items as JSON")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.items.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete item: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear items without --yes")
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.items.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear items: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cleared all items")
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting every item")

	items.AddCommand(list, del, clearCmd)
	return items
}

func printItems(w io.Writer, items []domain.CapturedItem) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCAPTURED\tWASTE TYPE\tVOLUME\tWEIGHT\tLOCATION")
	for _, it := range items {
		loc := ""
		if it.Location != nil {
			loc = location.ShortLocation(*it.Location)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.CapturedAt.Local().Format(time.DateTime), it.WasteType, it.Volume, it.Weight, loc)
	}
	return tw.Flush()
}
