package app

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/hitoshi/playerapi/internal/config"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
	// CommandGrantClaim はユーザーにクレームを付与する。
	CommandGrantClaim Command = "grant-claim"
	// CommandGrantRole はユーザーをロールに追加する。
	CommandGrantRole Command = "grant-role"
)

// NewRootCmd はplayerapiのルートコマンドを生成する。
// サブコマンドを省略した場合はserveとして動作する。
// wはログとコマンド出力の書き込み先。
func NewRootCmd(w io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "playerapi",
		Short:         "Player registry API with bearer-token authentication",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withConfig(w, CommandServe, runServe)
		},
	}
	root.SetOut(w)

	root.AddCommand(newServeCmd(w))
	root.AddCommand(newMigrateCmd(w))
	root.AddCommand(newHealthcheckCmd())
	root.AddCommand(newGrantClaimCmd(w))
	root.AddCommand(newGrantRoleCmd(w))

	return root
}

func newServeCmd(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandServe),
		Short: "Start the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withConfig(w, CommandServe, runServe)
		},
	}
}

func newMigrateCmd(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandMigrate),
		Short: "Apply all pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withConfig(w, CommandMigrate, runMigrate)
		},
	}
}

// newHealthcheckCmd は軽量サブコマンドのため、設定の読み込みをスキップする。
func newHealthcheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandHealthcheck),
		Short: "Probe the local /health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHealthcheck(healthcheckPort())
		},
	}
}

func newGrantClaimCmd(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandGrantClaim) + " <email> <type> <value>",
		Short: "Grant a claim to a user",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(w, CommandGrantClaim, func(cfg *config.Config) error {
				return runGrantClaim(cmd.Context(), cfg, args[0], args[1], args[2])
			})
		},
	}
}

func newGrantRoleCmd(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandGrantRole) + " <email> <role>",
		Short: "Add a user to a role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(w, CommandGrantRole, func(cfg *config.Config) error {
				return runGrantRole(cmd.Context(), cfg, args[0], args[1])
			})
		},
	}
}
