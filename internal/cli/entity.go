package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuu1111/LiveNotifier/internal/config"
)

func newEntityCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entity",
		Aliases: []string{"entities"},
		Short:   "監視対象を管理する",
	}

	cmd.AddCommand(
		newEntityListCmd(configPath),
		newEntityAddCmd(configPath),
		newEntityRemoveCmd(configPath),
	)
	return cmd
}

func newEntityListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "監視対象を一覧表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read(*configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cfg.EntityCount() == 0 {
				_, _ = fmt.Fprintln(out, "監視対象が登録されていません")
				return nil
			}

			for _, group := range config.Groups() {
				list, _ := cfg.Entities(group)
				_, _ = fmt.Fprintf(out, "%s (%d件, %s間隔)\n", group, len(list), cfg.Interval(group))
				for _, id := range list {
					_, _ = fmt.Fprintf(out, "  %s\n", id)
				}
			}
			return nil
		},
	}
}

func newEntityAddCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "add <platform> <id>",
		Short:     "監視対象を追加する",
		Example:   "  live-notifier entity add showroom 317727\n  live-notifier entity add idn jkt48_freya",
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Groups(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.AddEntity(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(*configPath, cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s に %s を追加しました\n", args[0], args[1])
			return nil
		},
	}
}

func newEntityRemoveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "remove <platform> <id>",
		Aliases:   []string{"rm"},
		Short:     "監視対象を削除する",
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Groups(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.RemoveEntity(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(*configPath, cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s から %s を削除しました\n", args[0], args[1])
			return nil
		},
	}
}

func newCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "設定ファイルを検証する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "設定OK: 監視対象 %d件, ストア %s\n", cfg.EntityCount(), cfg.Store.Driver)
			return nil
		},
	}
}
