// Package cli はコマンドラインインターフェースを提供する。
package cli

import (
	"github.com/spf13/cobra"

	"github.com/yuu1111/LiveNotifier/internal/config"
)

// Execute はコマンドを実行する。
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "live-notifier",
		Short:         "SHOWROOM / IDN / TikTok の配信開始・終了をTelegramに通知する",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd.Context(), configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "設定ファイルのパス")

	rootCmd.AddCommand(
		newRunCmd(&configPath),
		newEntityCmd(&configPath),
		newCheckCmd(&configPath),
	)

	return rootCmd
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "監視を開始する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd.Context(), *configPath)
		},
	}
}
