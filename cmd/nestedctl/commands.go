package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"sort"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

//go:embed regions.yaml
var regionsYAML []byte

type rootOptions struct {
	configPath string
	database   string
	table      string
	log        logr.Logger
}

// config loads the config file and applies the flags that were set.
func (r *rootOptions) config(cmd *cobra.Command) (Config, error) {
	cfg, err := loadConfig(r.configPath)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("db") {
		cfg.Database = r.database
	}
	if cmd.Flags().Changed("table") {
		cfg.Table = r.table
	}
	return cfg, nil
}

func (r *rootOptions) open(cmd *cobra.Command) (*app, error) {
	cfg, err := r.config(cmd)
	if err != nil {
		return nil, err
	}
	return openApp(cmd.Context(), cfg, r.log)
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{log: klog.NewKlogr()}

	cmd := &cobra.Command{
		Use:           "nestedctl",
		Short:         "Manage nested interval trees stored in SQLite",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	cmd.PersistentFlags().AddGoFlagSet(fs)
	cmd.PersistentFlags().StringVar(&o.configPath, "config", "", "path to the YAML config file")
	cmd.PersistentFlags().StringVar(&o.database, "db", "", "SQLite dsn, overrides the config")
	cmd.PersistentFlags().StringVar(&o.table, "table", "", "table name, overrides the config")

	cmd.AddCommand(
		newLoadCmd(o),
		newPrintCmd(o),
		newMoveCmd(o),
		newQueryCmd(o),
		newDemoCmd(o),
	)
	return cmd
}

func newLoadCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load [tree.yaml]",
		Short: "Append the nodes of a YAML tree file as new roots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := loadTree(args[0])
			if err != nil {
				return err
			}
			a, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			added, err := a.load(cmd.Context(), nodes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d entries\n", len(added))
			return nil
		},
	}
}

func newPrintCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "print",
		Short: "Print every entry in document order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.print(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newMoveCmd(o *rootOptions) *cobra.Command {
	var under string
	cmd := &cobra.Command{
		Use:   "move [name]",
		Short: "Move the subtree of name behind the last child of --under, or behind the last root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			moved, err := a.moveUnder(cmd.Context(), args[0], under)
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), moved, false)
		},
	}
	cmd.Flags().StringVar(&under, "under", "", "name of the new parent, empty for a new root")
	return cmd
}

func newQueryCmd(o *rootOptions) *cobra.Command {
	kinds := make([]string, 0, len(queries))
	for k := range queries {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	return &cobra.Command{
		Use:       "query [kind] [name]",
		Short:     "List the entries related to name",
		Long:      fmt.Sprintf("List the entries related to name. Kinds: %v", kinds),
		Args:      cobra.ExactArgs(2),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.query(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), entries, false)
		},
	}
}

func newDemoCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Build the regions sample in memory and move R2-1 under R2-4",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("db") {
				cfg.Database = ":memory:"
			}
			return runDemo(cmd, cfg, o.log)
		},
	}
}

func runDemo(cmd *cobra.Command, cfg Config, log logr.Logger) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	nodes, err := parseTree(regionsYAML)
	if err != nil {
		return err
	}
	a, err := openApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.load(ctx, nodes); err != nil {
		return err
	}
	fmt.Fprintln(w, "# before")
	if err := a.print(ctx, w); err != nil {
		return err
	}

	if _, err := a.moveUnder(ctx, "R2-1", "R2-4"); err != nil {
		return err
	}
	fmt.Fprintln(w, "# after moving R2-1 under R2-4")
	if err := a.print(ctx, w); err != nil {
		return err
	}

	fmt.Fprintln(w, "# ancestors of R2-1-1-3-1")
	entries, err := a.query(ctx, "ancestors", "R2-1-1-3-1")
	if err != nil {
		return err
	}
	return printEntries(w, entries, false)
}
