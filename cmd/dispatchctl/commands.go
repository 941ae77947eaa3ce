package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"invocation-adapter/internal/config"
	"invocation-adapter/internal/logging"
	"invocation-adapter/pkg/lambda"
	"invocation-adapter/pkg/server"

	"github.com/spf13/cobra"
)

var logLevel string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dispatchctl",
		Short:         "Classify and invoke functions with raw invocation envelopes",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(newClassifyCmd(), newInvokeCmd(), newFunctionsCmd())
	return root
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [file]",
		Short: "Print the invocation origin of an envelope",
		Long:  `Reads an envelope from file (or stdin when omitted or "-") and prints void, invalid, direct, batch or gateway.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := readEnvelope(cmd, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), lambda.Classify(envelope))
			return nil
		},
	}
}

func newInvokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invoke <function> [file]",
		Short: "Run a registered function against an envelope",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := newContainer(cmd)
			if err != nil {
				return err
			}
			defer container.Close()

			h, err := container.Handler(args[0])
			if err != nil {
				return err
			}

			envelope, err := readEnvelope(cmd, args[1:])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			out, err := h.Invoke(ctx, envelope)
			if err != nil {
				return fmt.Errorf("%s failed: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func newFunctionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List registered functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := newContainer(cmd)
			if err != nil {
				return err
			}
			defer container.Close()

			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(container.Functions(), "\n"))
			return nil
		},
	}
}

func newContainer(cmd *cobra.Command) (*server.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Log.Level = logLevel

	logger, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return server.NewContainerWithLogger(cfg, logger), nil
}

func readEnvelope(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read envelope from stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read envelope: %w", err)
	}
	return data, nil
}
