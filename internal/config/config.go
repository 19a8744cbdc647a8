// Package config normalizes and validates the action's input surface.
// Validation is two-tier: malformed product and category entries are dropped
// with a warning, while bad style, link-mode, URL, path, or branch values
// abort the run before any remote call.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/releaserun/version-badge-action/internal/actions"
	"github.com/releaserun/version-badge-action/internal/errs"
	"github.com/releaserun/version-badge-action/internal/models"
)

const (
	// DefaultBadgeOrigin is the badge-service origin used when no override
	// is configured.
	DefaultBadgeOrigin = "https://badges.releaserun.dev"

	// BadgeRootDomain is the only domain (or parent of subdomains) a
	// badge-service override may point at.
	BadgeRootDomain = "releaserun.dev"

	// MaxProducts caps the tracked product list.
	MaxProducts = 50

	// LatestVersion is the input sentinel for an unpinned product.
	LatestVersion = "latest"

	DefaultReadmePath = "README.md"
	DefaultBranch     = "releaserun/update-badges"
	DefaultPRTitle    = "chore: update releaserun version badges"
	FallbackBase      = "main"
)

var (
	nameRe    = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
	versionRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)
)

// Env holds the ambient process state the action consumes. It is resolved
// once and passed explicitly so the core logic is testable without
// environment mutation.
type Env struct {
	Token      string // GITHUB_TOKEN fallback credential
	Workspace  string // GITHUB_WORKSPACE checkout root
	Repository string // GITHUB_REPOSITORY owner/name slug
	RefName    string // GITHUB_REF_NAME, default-branch fallback
}

// EnvFromOS captures the relevant environment variables.
func EnvFromOS() Env {
	return Env{
		Token:      os.Getenv("GITHUB_TOKEN"),
		Workspace:  os.Getenv("GITHUB_WORKSPACE"),
		Repository: os.Getenv("GITHUB_REPOSITORY"),
		RefName:    os.Getenv("GITHUB_REF_NAME"),
	}
}

// Config is the fully validated run configuration.
type Config struct {
	Products     []models.Product
	Categories   []models.BadgeCategory
	Style        models.RenderStyle
	LinkMode     models.LinkMode
	BadgeBaseURL string
	ReadmePath   string // absolute, inside the workspace root
	RepoRelPath  string // workspace-relative, slash-separated, for the contents API
	Branch       string
	PRTitle      string
	Token        string
	Owner        string
	Repo         string
	BaseFallback string // locally-known default branch, may be empty
	DryRun       bool
}

// Load builds a Config from viper-bound inputs and the captured
// environment. Partial-input problems are reported through rep and the
// offending entries dropped; everything else returns a fatal error.
func Load(v *viper.Viper, env Env, rep *actions.Reporter) (*Config, error) {
	cfg := &Config{
		PRTitle:      v.GetString("pr-title"),
		DryRun:       v.GetBool("dry-run"),
		BaseFallback: env.RefName,
	}
	if cfg.PRTitle == "" {
		cfg.PRTitle = DefaultPRTitle
	}

	lines, err := productLines(v.GetString("products"), v.GetString("products-file"))
	if err != nil {
		return nil, err
	}
	cfg.Products = parseProducts(lines, rep)

	cfg.Categories = parseCategories(v.GetString("badge-types"))

	style := models.RenderStyle(strings.TrimSpace(v.GetString("style")))
	if style == "" {
		style = models.StyleFlat
	}
	if !style.Valid() {
		return nil, errs.NewConfigError("style", string(style), "must be one of flat, flat-square, plastic, for-the-badge")
	}
	cfg.Style = style

	mode := models.LinkMode(strings.TrimSpace(v.GetString("link-to")))
	if mode == "" {
		mode = models.LinkBadgePage
	}
	if !mode.Valid() {
		return nil, errs.NewConfigError("link-to", string(mode), "must be one of badge-page, releaserun-home, badge-image")
	}
	cfg.LinkMode = mode

	cfg.BadgeBaseURL, err = badgeBaseURL(v.GetString("badge-service-url"))
	if err != nil {
		return nil, err
	}

	workspace := env.Workspace
	if workspace == "" {
		workspace, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
	}
	if workspace, err = filepath.Abs(workspace); err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	readme := v.GetString("readme-path")
	if readme == "" {
		readme = DefaultReadmePath
	}
	cfg.ReadmePath, err = ResolveDocPath(workspace, readme)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(workspace, cfg.ReadmePath)
	if err != nil {
		return nil, errs.NewConfigError("readme-path", readme, "must be inside the workspace root")
	}
	cfg.RepoRelPath = filepath.ToSlash(rel)

	branch := v.GetString("pr-branch")
	if branch == "" {
		branch = DefaultBranch
	}
	if err := ValidateBranch(branch); err != nil {
		return nil, err
	}
	cfg.Branch = branch

	cfg.Token = v.GetString("github-token")
	if cfg.Token == "" {
		cfg.Token = env.Token
	}
	if cfg.Token == "" && !cfg.DryRun {
		return nil, errs.NewConfigError("github-token", "", "no token input and GITHUB_TOKEN is unset")
	}

	if !cfg.DryRun {
		owner, repo, ok := strings.Cut(env.Repository, "/")
		if !ok || owner == "" || repo == "" {
			return nil, errs.NewConfigError("GITHUB_REPOSITORY", env.Repository, "expected owner/name slug")
		}
		cfg.Owner, cfg.Repo = owner, repo
	}

	return cfg, nil
}

// productLines merges the inline newline-delimited product input with the
// optional YAML manifest, inline entries first.
func productLines(inline, manifestPath string) ([]string, error) {
	var lines []string
	for _, l := range strings.Split(inline, "\n") {
		if s := strings.TrimSpace(l); s != "" {
			lines = append(lines, s)
		}
	}
	if manifestPath != "" {
		entries, err := LoadManifest(manifestPath)
		if err != nil {
			return nil, err
		}
		lines = append(lines, entries...)
	}
	return lines, nil
}

// parseProducts validates each name[:version] line, dropping malformed
// entries with a warning and truncating the list to MaxProducts.
func parseProducts(lines []string, rep *actions.Reporter) []models.Product {
	if len(lines) > MaxProducts {
		rep.Warningf("product list truncated to the first %d of %d entries", MaxProducts, len(lines))
		lines = lines[:MaxProducts]
	}

	var products []models.Product
	for _, line := range lines {
		name, version, _ := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		version = strings.TrimSpace(version)

		if !nameRe.MatchString(name) {
			rep.Warningf("skipping product entry %q: invalid product name", line)
			continue
		}
		if version == LatestVersion {
			version = ""
		}
		if version != "" && !versionRe.MatchString(version) {
			rep.Warningf("skipping product entry %q: invalid version", line)
			continue
		}
		products = append(products, models.Product{Name: name, Version: version})
	}
	return products
}

// parseCategories filters the comma-separated category list against the
// known set, case-insensitively and preserving first-occurrence order.
// An empty result falls back to "health" by design, without a warning.
func parseCategories(raw string) []models.BadgeCategory {
	var cats []models.BadgeCategory
	seen := map[models.BadgeCategory]bool{}
	for _, part := range strings.Split(raw, ",") {
		c := models.BadgeCategory(strings.ToLower(strings.TrimSpace(part)))
		if !c.Valid() || seen[c] {
			continue
		}
		seen[c] = true
		cats = append(cats, c)
	}
	if len(cats) == 0 {
		cats = []models.BadgeCategory{models.CategoryHealth}
	}
	return cats
}

// badgeBaseURL validates the optional badge-service override. The host must
// be the designated root domain or a strict subdomain of it; the suffix
// comparison is anchored at a label boundary so root.com.evil.com never
// passes for root.com.
func badgeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultBadgeOrigin, nil
	}

	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return "", errs.NewConfigError("badge-service-url", raw, "must be an absolute URL")
	}
	if u.Scheme != "https" {
		return "", errs.NewConfigError("badge-service-url", raw, "scheme must be https")
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", errs.NewConfigError("badge-service-url", raw, "missing host")
	}
	if host == "localhost" || net.ParseIP(host) != nil {
		return "", errs.NewConfigError("badge-service-url", raw, "IP literals and localhost are not allowed")
	}
	if host != BadgeRootDomain && !strings.HasSuffix(host, "."+BadgeRootDomain) {
		return "", errs.NewConfigError("badge-service-url", raw, "host must be "+BadgeRootDomain+" or a subdomain of it")
	}

	return strings.TrimRight(raw, "/"), nil
}

// ResolveDocPath resolves rel against the workspace root and rejects any
// path that escapes it.
func ResolveDocPath(workspace, rel string) (string, error) {
	absWorkspace, err := filepath.Abs(workspace)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	path := rel
	if !filepath.IsAbs(path) {
		path = filepath.Join(absWorkspace, path)
	}
	path = filepath.Clean(path)

	inside, err := filepath.Rel(absWorkspace, path)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", errs.NewConfigError("readme-path", rel, "must be inside the workspace root")
	}
	return path, nil
}

// ValidateBranch enforces the git ref-name rules the action relies on to
// avoid ref injection.
func ValidateBranch(name string) error {
	bad := func(msg string) error {
		return errs.NewConfigError("pr-branch", name, msg)
	}
	if name == "" {
		return bad("must not be empty")
	}
	if strings.Contains(name, "..") {
		return bad("must not contain '..'")
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return bad("must not start or end with '/'")
	}
	if strings.HasSuffix(name, ".lock") {
		return bad("must not end with '.lock'")
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return bad("must not contain control characters")
		}
		if strings.ContainsRune(" ~^:?*[\\", r) {
			return bad(fmt.Sprintf("must not contain %q", r))
		}
	}
	return nil
}
