package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// ValidLogLevels は--log-levelに指定できる値。
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// RootOptions は全サブコマンド共通のフラグを保持する。
type RootOptions struct {
	LogLevel string
	Out      io.Writer
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := NewRootCommand(w)
	cmd.SetArgs(args)
	return cmd.Execute()
}

// NewRootCommand はstorefrontのルートコマンドを生成する。
// サブコマンド省略時はserveとして起動する。
func NewRootCommand(w io.Writer) *cobra.Command {
	opts := &RootOptions{Out: w}

	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront session and cart service",
		Long: `storefront keeps the logged-in user and the shopping cart of a storefront
client, backed by a durable key/value store, and serves them over a local HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.LogLevel != "" && !isValidLogLevel(opts.LogLevel) {
				return fmt.Errorf("invalid log level %q: must be one of %v", opts.LogLevel, ValidLogLevels)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error); overrides LOG_LEVEL")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newHealthcheckCommand())

	return cmd
}

func newServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(opts)
		},
	}
}

func newMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply storage schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(opts.Out, opts.LogLevel)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runMigrate(cfg)
		},
	}
}

// newHealthcheckCommand は軽量サブコマンドのため、フル初期化をスキップする。
func newHealthcheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe /health of a running server (for container health checks)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			port := os.Getenv("SERVER_PORT")
			if port == "" {
				port = "8080"
			}
			return runHealthcheck(port)
		},
	}
}

func serve(opts *RootOptions) error {
	cfg, err := Init(opts.Out, opts.LogLevel)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", "serve"),
		slog.String("port", cfg.ServerPort),
		slog.String("store_api_base_url", cfg.StoreAPIBaseURL),
		slog.String("storage_driver", cfg.StorageDriver),
	)
	return runServe(cfg)
}

// isValidLogLevel は指定されたログレベルが許可された値かを判定する。
func isValidLogLevel(level string) bool {
	level = strings.ToLower(level)
	for _, l := range ValidLogLevels {
		if l == level {
			return true
		}
	}
	return false
}
