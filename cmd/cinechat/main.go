package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cinechat/internal/config"
	"cinechat/internal/gateway"
	"cinechat/internal/setup"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "cinechat",
		Short:         "Chat with a movie assistant that can look up showtimes and buy tickets",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return gateway.New(configPath).Run(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the JSON config file (default "+config.DefaultPath+")")

	root.AddCommand(
		&cobra.Command{
			Use:   "ask <message>",
			Short: "Run a single chat turn and print the reply",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return gateway.New(configPath).Execute(cmd.Context(), strings.Join(args, " "))
			},
		},
		&cobra.Command{
			Use:   "setup",
			Short: "Choose a model provider and write the config file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path := configPath
				if path == "" {
					path = config.DefaultPath
				}
				base, err := config.Load(configPath)
				if err != nil {
					base = config.Default()
				}
				cfg, err := setup.Run(base, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Configured %s/%s. Run `cinechat` to start chatting.\n", cfg.Provider, cfg.Model)
				return nil
			},
		},
	)
	return root
}
