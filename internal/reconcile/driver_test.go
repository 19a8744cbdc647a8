package reconcile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/releaserun/version-badge-action/internal/actions"
	"github.com/releaserun/version-badge-action/internal/config"
	"github.com/releaserun/version-badge-action/internal/errs"
	"github.com/releaserun/version-badge-action/internal/githost"
	"github.com/releaserun/version-badge-action/internal/logging"
	"github.com/releaserun/version-badge-action/internal/models"
	"github.com/releaserun/version-badge-action/internal/splice"
)

// fakeHost is an in-memory Host whose failure behavior is scripted per
// scenario. Every call is recorded for ordering assertions.
type fakeHost struct {
	calls  []string
	forced []bool // force flag of each UpdateRef call

	defaultBranch    string
	defaultBranchErr error

	refs         map[string]string // branch -> sha
	diverged     bool              // non-force updates of the working branch fail
	deleteErr    error
	recreateErr  error // CreateRef failure after a DeleteRef
	deleted      bool
	putErrs      []error // popped per PutFile call
	putSHAs      []string
	putContents  []string
	fileSHA      string // returned by GetFile for the working branch, "" means absent
	pulls        []githost.PullRequest
	listErr      error
	createPRErr  error
	updatePRErr  error
	updatedPulls int
	createdPulls int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		defaultBranch: "main",
		refs:          map[string]string{"main": "basesha"},
	}
}

func (f *fakeHost) record(name string) { f.calls = append(f.calls, name) }

func (f *fakeHost) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeHost) DefaultBranch(ctx context.Context) (string, error) {
	f.record("default-branch")
	return f.defaultBranch, f.defaultBranchErr
}

func (f *fakeHost) GetRef(ctx context.Context, branch string) (string, error) {
	f.record("get-ref")
	sha, ok := f.refs[branch]
	if !ok {
		return "", errs.ErrRefNotFound
	}
	return sha, nil
}

func (f *fakeHost) CreateRef(ctx context.Context, branch, sha string) error {
	f.record("create-ref")
	if _, ok := f.refs[branch]; ok {
		return errs.ErrRefExists
	}
	if f.deleted && f.recreateErr != nil {
		return f.recreateErr
	}
	f.refs[branch] = sha
	return nil
}

func (f *fakeHost) UpdateRef(ctx context.Context, branch, sha string, force bool) error {
	f.record("update-ref")
	f.forced = append(f.forced, force)
	if f.diverged && !force {
		return errs.ErrNotFastForward
	}
	f.refs[branch] = sha
	return nil
}

func (f *fakeHost) DeleteRef(ctx context.Context, branch string) error {
	f.record("delete-ref")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.refs, branch)
	f.deleted = true
	return nil
}

func (f *fakeHost) GetFile(ctx context.Context, path, ref string) (*githost.FileInfo, error) {
	f.record("get-file")
	if f.fileSHA == "" {
		return nil, errs.ErrFileNotFound
	}
	return &githost.FileInfo{SHA: f.fileSHA}, nil
}

func (f *fakeHost) PutFile(ctx context.Context, path, branch, message, content, sha string) error {
	f.record("put-file")
	f.putSHAs = append(f.putSHAs, sha)
	f.putContents = append(f.putContents, content)
	if len(f.putErrs) > 0 {
		err := f.putErrs[0]
		f.putErrs = f.putErrs[1:]
		return err
	}
	return nil
}

func (f *fakeHost) ListOpenPulls(ctx context.Context, head string) ([]githost.PullRequest, error) {
	f.record("list-pulls")
	return f.pulls, f.listErr
}

func (f *fakeHost) CreatePull(ctx context.Context, title, body, head, base string) (*githost.PullRequest, error) {
	f.record("create-pull")
	if f.createPRErr != nil {
		return nil, f.createPRErr
	}
	f.createdPulls++
	return &githost.PullRequest{Number: 7, URL: "https://github.com/acme/widgets/pull/7", Title: title, Body: body}, nil
}

func (f *fakeHost) UpdatePull(ctx context.Context, number int, title, body string) (*githost.PullRequest, error) {
	f.record("update-pull")
	if f.updatePRErr != nil {
		return nil, f.updatePRErr
	}
	f.updatedPulls++
	return &githost.PullRequest{Number: number, URL: fmt.Sprintf("https://github.com/acme/widgets/pull/%d", number), Title: title, Body: body}, nil
}

func testConfig(t *testing.T, readme string) *config.Config {
	t.Helper()
	ws := t.TempDir()
	path := filepath.Join(ws, "README.md")
	require.NoError(t, os.WriteFile(path, []byte(readme), 0644))

	return &config.Config{
		Products: []models.Product{
			{Name: "python", Version: "3.12"},
			{Name: "node", Version: "20"},
		},
		Categories:   []models.BadgeCategory{models.CategoryHealth, models.CategoryEOL},
		Style:        models.StyleFlat,
		LinkMode:     models.LinkBadgePage,
		BadgeBaseURL: config.DefaultBadgeOrigin,
		ReadmePath:   path,
		RepoRelPath:  "README.md",
		Branch:       "releaserun/update-badges",
		PRTitle:      config.DefaultPRTitle,
		Owner:        "acme",
		Repo:         "widgets",
	}
}

const markedReadme = "# Widgets\n\n" + splice.StartMarker + "\nplaceholder\n" + splice.EndMarker + "\n"

func newDriver(host githost.Host) (*Driver, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &Driver{
		Host:   host,
		Report: &actions.Reporter{Out: buf},
		Log:    logging.New(io.Discard),
	}, buf
}

func TestRunBranchAbsent(t *testing.T) {
	host := newFakeHost()
	d, _ := newDriver(host)
	cfg := testConfig(t, markedReadme)

	require.NoError(t, d.Run(context.Background(), cfg))

	assert.Equal(t, 1, host.count("create-ref"))
	assert.Zero(t, host.count("update-ref"))
	assert.Zero(t, host.count("delete-ref"))
	assert.Equal(t, "basesha", host.refs[cfg.Branch])
}

func TestRunBranchFastForward(t *testing.T) {
	host := newFakeHost()
	host.refs["releaserun/update-badges"] = "oldsha"
	d, _ := newDriver(host)
	cfg := testConfig(t, markedReadme)

	require.NoError(t, d.Run(context.Background(), cfg))

	assert.Equal(t, 1, host.count("create-ref"))
	assert.Equal(t, 1, host.count("update-ref"))
	assert.Zero(t, host.count("delete-ref"))
	for _, force := range host.forced {
		assert.False(t, force, "no call may pass force:true")
	}
}

func TestRunBranchDiverged(t *testing.T) {
	host := newFakeHost()
	host.refs["releaserun/update-badges"] = "divergedsha"
	host.diverged = true
	d, _ := newDriver(host)
	cfg := testConfig(t, markedReadme)

	require.NoError(t, d.Run(context.Background(), cfg))

	assert.Equal(t, 2, host.count("create-ref"), "initial attempt plus recreate")
	assert.Equal(t, 1, host.count("update-ref"))
	assert.Equal(t, 1, host.count("delete-ref"))
	for _, force := range host.forced {
		assert.False(t, force, "divergence must never be resolved with a force update")
	}
	assert.Equal(t, "basesha", host.refs[cfg.Branch])
}

func TestRunBranchRecreateFailure(t *testing.T) {
	host := newFakeHost()
	host.refs["releaserun/update-badges"] = "divergedsha"
	host.diverged = true
	host.recreateErr = errors.New("boom")
	d, _ := newDriver(host)
	cfg := testConfig(t, markedReadme)

	err := d.Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), cfg.Branch)
	assert.Contains(t, err.Error(), "manually")
	assert.Zero(t, host.count("put-file"), "no commit after branch recreation failure")
}

func TestRunBranchDeleteFailure(t *testing.T) {
	host := newFakeHost()
	host.refs["releaserun/update-badges"] = "divergedsha"
	host.diverged = true
	host.deleteErr = errors.New("protected")
	d, _ := newDriver(host)

	err := d.Run(context.Background(), testConfig(t, markedReadme))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manually")
}

func TestRunCommitRetry(t *testing.T) {
	host := newFakeHost()
	host.fileSHA = "filesha1"
	host.putErrs = []error{errors.New("sha mismatch")}
	d, _ := newDriver(host)

	require.NoError(t, d.Run(context.Background(), testConfig(t, markedReadme)))

	assert.Equal(t, 2, host.count("put-file"), "exactly one retry")
	assert.Equal(t, 2, host.count("get-file"), "retry re-fetches the revision marker")
	assert.Equal(t, []string{"filesha1", "filesha1"}, host.putSHAs)
}

func TestRunCommitRetryExhausted(t *testing.T) {
	host := newFakeHost()
	host.putErrs = []error{errors.New("first"), errors.New("second")}
	d, _ := newDriver(host)

	err := d.Run(context.Background(), testConfig(t, markedReadme))
	require.Error(t, err)

	var step *errs.StepError
	require.ErrorAs(t, err, &step)
	assert.Equal(t, "commit", step.Step)
	assert.Equal(t, 2, host.count("put-file"))
	assert.Zero(t, host.count("list-pulls"), "PR step never reached")
}

func TestRunFileAbsentUsesCreateSemantics(t *testing.T) {
	host := newFakeHost()
	d, _ := newDriver(host)

	require.NoError(t, d.Run(context.Background(), testConfig(t, markedReadme)))

	require.Len(t, host.putSHAs, 1)
	assert.Empty(t, host.putSHAs[0], "absent file commits without a revision marker")
}

func TestRunCreatesPull(t *testing.T) {
	host := newFakeHost()
	d, buf := newDriver(host)

	require.NoError(t, d.Run(context.Background(), testConfig(t, markedReadme)))

	assert.Equal(t, 1, host.createdPulls)
	assert.Zero(t, host.updatedPulls)
	assert.NotContains(t, buf.String(), "::error::")
}

func TestRunUpdatesExistingPull(t *testing.T) {
	host := newFakeHost()
	host.pulls = []githost.PullRequest{{Number: 3, URL: "https://github.com/acme/widgets/pull/3"}}
	d, _ := newDriver(host)

	require.NoError(t, d.Run(context.Background(), testConfig(t, markedReadme)))

	assert.Zero(t, host.createdPulls, "never duplicate an open pull request")
	assert.Equal(t, 1, host.updatedPulls)
}

func TestRunUnchangedContentStillCommitsAndUpdatesPull(t *testing.T) {
	host := newFakeHost()
	host.pulls = []githost.PullRequest{{Number: 3}}
	d, _ := newDriver(host)
	cfg := testConfig(t, markedReadme)

	// First run settles the document.
	require.NoError(t, d.Run(context.Background(), cfg))
	firstContent := host.putContents[0]

	// Second run: splice reports changed=false but the commit and the PR
	// update still happen, with byte-identical content.
	require.NoError(t, d.Run(context.Background(), cfg))
	require.Len(t, host.putContents, 2)
	assert.Equal(t, firstContent, host.putContents[1])
	assert.Equal(t, 2, host.updatedPulls, "title/body are rewritten every successful run, without diffing")
	assert.Zero(t, host.createdPulls)
}

func TestRunPullFailureReportsCommitted(t *testing.T) {
	host := newFakeHost()
	host.createPRErr = errors.New("forbidden")
	d, _ := newDriver(host)

	err := d.Run(context.Background(), testConfig(t, markedReadme))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already committed")

	var step *errs.StepError
	require.ErrorAs(t, err, &step)
	assert.True(t, step.Committed)
}

func TestRunDefaultBranchFallback(t *testing.T) {
	host := newFakeHost()
	host.defaultBranchErr = errors.New("api down")
	host.refs["develop"] = "devsha"
	d, buf := newDriver(host)
	cfg := testConfig(t, markedReadme)
	cfg.BaseFallback = "develop"

	require.NoError(t, d.Run(context.Background(), cfg))

	assert.Contains(t, buf.String(), "::warning::")
	assert.Equal(t, "devsha", host.refs[cfg.Branch], "branch created at the fallback base tip")
}

func TestRunBaseTipFailureIsFatal(t *testing.T) {
	host := newFakeHost()
	host.defaultBranch = "gone"
	d, _ := newDriver(host)

	err := d.Run(context.Background(), testConfig(t, markedReadme))
	require.Error(t, err)
	assert.Zero(t, host.count("create-ref"))
}

func TestRunMarkersAbsent(t *testing.T) {
	host := newFakeHost()
	d, buf := newDriver(host)
	cfg := testConfig(t, "# No markers here\n")

	require.NoError(t, d.Run(context.Background(), cfg))

	assert.Empty(t, host.calls, "no remote call when markers are absent")
	assert.Contains(t, buf.String(), "::notice::")

	data, err := os.ReadFile(cfg.ReadmePath)
	require.NoError(t, err)
	assert.Equal(t, "# No markers here\n", string(data))
}

func TestRunNoProducts(t *testing.T) {
	host := newFakeHost()
	d, buf := newDriver(host)
	cfg := testConfig(t, markedReadme)
	cfg.Products = nil

	require.NoError(t, d.Run(context.Background(), cfg), "empty remainder exits cleanly")
	assert.Empty(t, host.calls)
	assert.Contains(t, buf.String(), "::warning::")
}

func TestRunDryRun(t *testing.T) {
	d, _ := newDriver(nil)
	cfg := testConfig(t, markedReadme)
	cfg.DryRun = true

	require.NoError(t, d.Run(context.Background(), cfg))

	data, err := os.ReadFile(cfg.ReadmePath)
	require.NoError(t, err)
	assert.Equal(t, markedReadme, string(data), "dry run leaves the document untouched")
}

func TestRunWritesSplicedDocument(t *testing.T) {
	host := newFakeHost()
	d, _ := newDriver(host)
	cfg := testConfig(t, markedReadme)

	require.NoError(t, d.Run(context.Background(), cfg))

	data, err := os.ReadFile(cfg.ReadmePath)
	require.NoError(t, err)
	doc := string(data)

	region, ok := splice.ManagedRegion(doc)
	require.True(t, ok)
	assert.NotContains(t, region, "placeholder")

	lines := strings.Split(strings.Trim(region, "\n"), "\n")
	require.Len(t, lines, 2, "one badge line per product")
	for _, line := range lines {
		assert.Equal(t, 2, strings.Count(line, "[!["), "two badge units per line")
	}

	// Remote commit content matches the local document byte for byte.
	require.Len(t, host.putContents, 1)
	assert.Equal(t, doc, host.putContents[0])
}

func TestRunMissingDocumentIsFatal(t *testing.T) {
	host := newFakeHost()
	d, _ := newDriver(host)
	cfg := testConfig(t, markedReadme)
	cfg.ReadmePath = filepath.Join(t.TempDir(), "absent.md")

	err := d.Run(context.Background(), cfg)
	require.Error(t, err)

	var ioErr *errs.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, cfg.ReadmePath, ioErr.Path)
	assert.Empty(t, host.calls)
}
