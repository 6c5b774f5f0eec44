// cmd/workflow-submit/root.go
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"workflow-submit/internal/server"
	"workflow-submit/pkg/registry"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	opts := submitOptions{}

	rootCmd := &cobra.Command{
		Use:   "workflow-submit",
		Short: "Submit a training workflow for an annotation task",
		Long: `workflow-submit lists the workflow templates of the catalog, loads the
parameters of the chosen template and submits it for a task. Small or empty
datasets ask for confirmation first; pass --yes to accept automatically.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			s := &submitter{
				config:  a.orchestratorConfig(),
				catalog: a.catalog,
				obs:     a.obs,
				log:     a.log,
				prompt:  surveyPrompter{},
				out:     cmd.OutOrStdout(),
			}
			return s.run(cmd.Context(), opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is configs/config.yaml)")

	rootCmd.Flags().StringVar(&opts.taskID, "task", "", "task id to submit for")
	rootCmd.Flags().StringVar(&opts.taskName, "task-name", "", "task name, for logs")
	rootCmd.Flags().StringVar(&opts.template, "template", "", "workflow template uid (prompted when empty)")
	rootCmd.Flags().StringArrayVar(&opts.params, "param", nil, "parameter override name=value (repeatable)")
	rootCmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "confirm small-dataset prompts automatically")
	_ = rootCmd.MarkFlagRequired("task")

	rootCmd.AddCommand(newTemplatesCmd(), newServeCmd(), newRegistryCmd())
	return rootCmd
}

func newTemplatesCmd() *cobra.Command {
	var withVersions bool

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the workflow templates of the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			templates, err := a.catalog.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "UID\tNAME\tVERSION")
			for _, tpl := range templates {
				fmt.Fprintf(w, "%s\t%s\t%s\n", tpl.UID, tpl.Name, tpl.Version)
				if !withVersions {
					continue
				}
				versions, err := a.client.ListVersions(cmd.Context(), tpl.UID)
				if err != nil {
					a.log.Warn("failed to list versions", map[string]interface{}{"uid": tpl.UID, "error": err.Error()})
					continue
				}
				for _, v := range versions {
					marker := ""
					if v.IsLatest {
						marker = " (latest)"
					}
					fmt.Fprintf(w, "\t\t%s%s\n", v.Version, marker)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&withVersions, "versions", false, "also list every version")
	return cmd
}

func newServeCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP dialog host",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			if address == "" {
				address = a.cfg.Server.Address
			}
			return server.New(a.orchestratorConfig(), a.catalog, a.obs, a.log).Run(ctx, address)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "listen address (overrides server.address)")
	return cmd
}

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage catalog endpoint definitions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "export <path>",
		Short: "Write the built-in endpoint registry to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := registry.Save(registry.Default(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry written to %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate <path>",
		Short: "Check an endpoint registry file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(args[0])
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := reg.Check(); err != nil {
				return fmt.Errorf("registry validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Registry validation passed.")
			return nil
		},
	})
	return cmd
}
