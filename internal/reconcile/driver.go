// Package reconcile drives a single run: render badge markup, splice it
// into the README, and converge the remote working branch and pull request
// on the result. Every run re-derives remote state; the branch and PR on
// the hosting platform are the only durable store.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/releaserun/version-badge-action/internal/actions"
	"github.com/releaserun/version-badge-action/internal/badge"
	"github.com/releaserun/version-badge-action/internal/config"
	"github.com/releaserun/version-badge-action/internal/errs"
	"github.com/releaserun/version-badge-action/internal/githost"
	"github.com/releaserun/version-badge-action/internal/splice"
)

// Driver orchestrates one reconciliation run. Host may be nil for dry
// runs, which never reach a remote call.
type Driver struct {
	Host   githost.Host
	Report *actions.Reporter
	Log    zerolog.Logger
}

// Run executes the full pipeline. Remote calls are strictly sequential:
// each step's outcome feeds the next step's request.
func (d *Driver) Run(ctx context.Context, cfg *config.Config) error {
	if len(cfg.Products) == 0 {
		d.Report.Warningf("no valid products configured, nothing to do")
		return nil
	}

	markup := badge.Render(cfg.Products, cfg.Categories, cfg.Style, cfg.LinkMode, cfg.BadgeBaseURL)
	count := badge.Count(cfg.Products, cfg.Categories)
	d.Report.Output("markup", markup)
	d.Report.Output("badge-count", strconv.Itoa(count))
	d.Log.Info().Int("badges", count).Int("products", len(cfg.Products)).Msg("rendered badge markup")

	raw, err := os.ReadFile(cfg.ReadmePath)
	if err != nil {
		return &errs.IOError{Op: "read", Path: cfg.ReadmePath, Err: err}
	}
	doc := string(raw)

	if region, ok := splice.ManagedRegion(doc); ok {
		existing := splice.ExtractBadges([]byte(region))
		d.Log.Debug().Int("existing_badges", len(existing)).Msg("audited managed region")
	}

	res := splice.Splice(doc, markup)
	if !res.MarkersFound {
		d.Report.Noticef("no badge markers found in %s, nothing to do", cfg.ReadmePath)
		return nil
	}
	if !res.Changed {
		d.Log.Info().Msg("document already up to date")
	}

	if cfg.DryRun {
		d.Log.Info().Bool("changed", res.Changed).Msg("dry run, skipping document write and remote reconciliation")
		return nil
	}

	if err := os.WriteFile(cfg.ReadmePath, []byte(res.Content), 0644); err != nil {
		return &errs.IOError{Op: "write", Path: cfg.ReadmePath, Err: err}
	}

	d.Report.Output("pr-branch", cfg.Branch)

	base := d.resolveBase(ctx, cfg)

	tip, err := d.Host.GetRef(ctx, base)
	if err != nil {
		return fmt.Errorf("failed to resolve tip of %s: %w", base, err)
	}

	if err := d.ensureBranch(ctx, cfg.Branch, tip); err != nil {
		return err
	}

	if err := d.commit(ctx, cfg, cfg.RepoRelPath, res.Content); err != nil {
		return err
	}

	pr, err := d.ensurePull(ctx, cfg, base)
	if err != nil {
		return err
	}

	d.Report.Output("pr-number", strconv.Itoa(pr.Number))
	d.Report.Output("pr-url", pr.URL)
	d.Log.Info().Int("pr", pr.Number).Str("url", pr.URL).Msg("reconciliation complete")
	return nil
}

// resolveBase determines the default branch, falling back to the
// locally-known ref and finally a hardcoded name. Failure here is a
// warning, not an abort.
func (d *Driver) resolveBase(ctx context.Context, cfg *config.Config) string {
	base, err := d.Host.DefaultBranch(ctx)
	if err == nil && base != "" {
		return base
	}

	fallback := cfg.BaseFallback
	if fallback == "" {
		fallback = config.FallbackBase
	}
	d.Report.Warningf("could not resolve default branch (%v), assuming %s", err, fallback)
	return fallback
}

// ensureBranch converges the working branch on the tip commit without ever
// forcing: create, then non-force update, then delete and recreate.
// Recreation discards commits that existed only on the working branch;
// they are disposable automation artifacts.
func (d *Driver) ensureBranch(ctx context.Context, branch, tip string) error {
	err := d.Host.CreateRef(ctx, branch, tip)
	if err == nil {
		d.Log.Info().Str("branch", branch).Msg("created working branch")
		return nil
	}
	if !errors.Is(err, errs.ErrRefExists) {
		return &errs.StepError{Step: "branch creation", Err: err}
	}

	err = d.Host.UpdateRef(ctx, branch, tip, false)
	if err == nil {
		d.Log.Info().Str("branch", branch).Msg("fast-forwarded working branch")
		return nil
	}
	if !errors.Is(err, errs.ErrNotFastForward) {
		return &errs.StepError{Step: "branch update", Err: err}
	}

	d.Log.Warn().Str("branch", branch).Msg("working branch has diverged, recreating at base tip")
	if err := d.Host.DeleteRef(ctx, branch); err != nil {
		return &errs.StepError{
			Step: "branch recreation",
			Err:  fmt.Errorf("could not delete diverged branch %q, delete it manually and re-run: %w", branch, err),
		}
	}
	if err := d.Host.CreateRef(ctx, branch, tip); err != nil {
		return &errs.StepError{
			Step: "branch recreation",
			Err:  fmt.Errorf("could not recreate branch %q after deletion, delete it manually and re-run: %w", branch, err),
		}
	}
	d.Log.Info().Str("branch", branch).Msg("recreated working branch")
	return nil
}

// commit writes the document to the working branch through the contents
// API, matching the current revision SHA to prevent lost updates. One
// retry re-fetches the SHA; a second failure propagates.
func (d *Driver) commit(ctx context.Context, cfg *config.Config, path, content string) error {
	sha := d.fileSHA(ctx, path, cfg.Branch)

	err := d.Host.PutFile(ctx, path, cfg.Branch, cfg.PRTitle, content, sha)
	if err == nil {
		return nil
	}

	d.Log.Warn().Err(err).Msg("commit rejected, retrying with a fresh revision")
	sha = d.fileSHA(ctx, path, cfg.Branch)
	if err := d.Host.PutFile(ctx, path, cfg.Branch, cfg.PRTitle, content, sha); err != nil {
		return &errs.StepError{Step: "commit", Err: err}
	}
	return nil
}

// fileSHA fetches the file's revision marker on the branch. Absence means
// the file does not exist there yet, which signals create semantics.
func (d *Driver) fileSHA(ctx context.Context, path, branch string) string {
	info, err := d.Host.GetFile(ctx, path, branch)
	if err != nil {
		if !errors.Is(err, errs.ErrFileNotFound) {
			d.Log.Debug().Err(err).Msg("could not read file revision, assuming new file")
		}
		return ""
	}
	return info.SHA
}

// ensurePull converges the pull request: update the open one in place or
// create a new one. Title and body are written unconditionally on every
// successful run, without diffing. Failure here is hard: the commit has
// already landed and the operator needs to know.
func (d *Driver) ensurePull(ctx context.Context, cfg *config.Config, base string) (*githost.PullRequest, error) {
	head := cfg.Owner + ":" + cfg.Branch
	body := prBody(cfg)

	pulls, err := d.Host.ListOpenPulls(ctx, head)
	if err != nil {
		return nil, &errs.StepError{Step: "pull request lookup", Committed: true, Err: err}
	}

	if len(pulls) > 0 {
		pr, err := d.Host.UpdatePull(ctx, pulls[0].Number, cfg.PRTitle, body)
		if err != nil {
			return nil, &errs.StepError{Step: "pull request update", Committed: true, Err: err}
		}
		return pr, nil
	}

	pr, err := d.Host.CreatePull(ctx, cfg.PRTitle, body, cfg.Branch, base)
	if err != nil {
		return nil, &errs.StepError{Step: "pull request creation", Committed: true, Err: err}
	}
	return pr, nil
}

// prBody builds the deterministic pull request body.
func prBody(cfg *config.Config) string {
	var b strings.Builder
	b.WriteString("Automated update of releaserun version badges.\n\nTracked products:\n")
	for _, p := range cfg.Products {
		if p.Pinned() {
			fmt.Fprintf(&b, "- %s %s\n", p.Name, p.Version)
		} else {
			fmt.Fprintf(&b, "- %s (latest)\n", p.Name)
		}
	}
	fmt.Fprintf(&b, "\n%d badge(s) rendered.\n", badge.Count(cfg.Products, cfg.Categories))
	return b.String()
}
