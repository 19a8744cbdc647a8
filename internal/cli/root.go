// Package cli wires the cobra command surface to the run pipeline. Inputs
// arrive as flags for local runs or as INPUT_* environment variables when
// running as a GitHub Actions step.
package cli

import (
	"context"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/releaserun/version-badge-action/internal/actions"
	"github.com/releaserun/version-badge-action/internal/config"
	"github.com/releaserun/version-badge-action/internal/githost"
	"github.com/releaserun/version-badge-action/internal/logging"
	"github.com/releaserun/version-badge-action/internal/reconcile"
)

// New builds the root command.
func New(rep *actions.Reporter) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "version-badge-action",
		Short: "Keep releaserun version badges in a README in sync via a pull request",
		Long: `version-badge-action renders releaserun version-status badges for a
tracked product list, splices them into the marker-delimited region of a
README, and publishes the change as a pull request instead of committing
to the default branch directly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v, rep)
		},
	}

	flags := cmd.Flags()
	flags.String("products", "", "newline-delimited name[:version] product entries")
	flags.String("products-file", "", "YAML products manifest, merged after inline entries")
	flags.String("badge-types", "", "comma-delimited badge categories (default health)")
	flags.String("readme-path", config.DefaultReadmePath, "target document inside the workspace")
	flags.String("style", "flat", "badge render style")
	flags.String("link-to", "badge-page", "what each badge links to")
	flags.String("pr-title", config.DefaultPRTitle, "commit message and pull request title")
	flags.String("pr-branch", config.DefaultBranch, "working branch name")
	flags.String("github-token", "", "bearer credential (falls back to GITHUB_TOKEN)")
	flags.String("badge-service-url", "", "badge-service origin override")
	flags.Bool("dry-run", false, "render and splice locally without remote mutation")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("INPUT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

func run(ctx context.Context, v *viper.Viper, rep *actions.Reporter) error {
	// Local development convenience, a no-op on CI runners.
	_ = godotenv.Load()

	cfg, err := config.Load(v, config.EnvFromOS(), rep)
	if err != nil {
		return err
	}

	rep.Mask(cfg.Token)

	var host githost.Host
	if !cfg.DryRun {
		host = githost.NewGitHub(ctx, cfg.Token, cfg.Owner, cfg.Repo)
	}

	driver := &reconcile.Driver{
		Host:   host,
		Report: rep,
		Log:    *logging.Default(),
	}
	return driver.Run(ctx, cfg)
}
