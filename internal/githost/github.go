package githost

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/releaserun/version-badge-action/internal/errs"
)

// GitHub implements Host against the GitHub REST API for a single
// repository.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHub builds a GitHub host using a bearer token.
func NewGitHub(ctx context.Context, token, owner, repo string) *GitHub {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	return &GitHub{
		client: github.NewClient(tc),
		owner:  owner,
		repo:   repo,
	}
}

// DefaultBranch returns the repository's configured default branch.
func (g *GitHub) DefaultBranch(ctx context.Context) (string, error) {
	repo, _, err := g.client.Repositories.Get(ctx, g.owner, g.repo)
	if err != nil {
		return "", fmt.Errorf("failed to get repository metadata: %w", err)
	}
	return repo.GetDefaultBranch(), nil
}

// GetRef returns the commit SHA the branch head points at.
func (g *GitHub) GetRef(ctx context.Context, branch string) (string, error) {
	ref, _, err := g.client.Git.GetRef(ctx, g.owner, g.repo, "heads/"+branch)
	if err != nil {
		if hasStatus(err, http.StatusNotFound) {
			return "", errs.ErrRefNotFound
		}
		return "", fmt.Errorf("failed to get ref %s: %w", branch, err)
	}
	return ref.GetObject().GetSHA(), nil
}

// CreateRef creates the branch at the given commit.
func (g *GitHub) CreateRef(ctx context.Context, branch, sha string) error {
	ref := &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: github.String(sha)},
	}
	if _, _, err := g.client.Git.CreateRef(ctx, g.owner, g.repo, ref); err != nil {
		if hasStatus(err, http.StatusUnprocessableEntity) {
			return errs.ErrRefExists
		}
		return fmt.Errorf("failed to create ref %s: %w", branch, err)
	}
	return nil
}

// UpdateRef moves the branch head to the given commit.
func (g *GitHub) UpdateRef(ctx context.Context, branch, sha string, force bool) error {
	ref := &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: github.String(sha)},
	}
	if _, _, err := g.client.Git.UpdateRef(ctx, g.owner, g.repo, ref, force); err != nil {
		if hasStatus(err, http.StatusUnprocessableEntity) {
			return errs.ErrNotFastForward
		}
		return fmt.Errorf("failed to update ref %s: %w", branch, err)
	}
	return nil
}

// DeleteRef deletes the branch.
func (g *GitHub) DeleteRef(ctx context.Context, branch string) error {
	if _, err := g.client.Git.DeleteRef(ctx, g.owner, g.repo, "heads/"+branch); err != nil {
		return fmt.Errorf("failed to delete ref %s: %w", branch, err)
	}
	return nil
}

// GetFile returns the file's decoded content and revision SHA on the ref.
func (g *GitHub) GetFile(ctx context.Context, path, ref string) (*FileInfo, error) {
	file, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		if hasStatus(err, http.StatusNotFound) {
			return nil, errs.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get %s on %s: %w", path, ref, err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s on %s is not a file", path, ref)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s on %s: %w", path, ref, err)
	}
	return &FileInfo{SHA: file.GetSHA(), Content: content}, nil
}

// PutFile creates or updates the file on the branch through the contents
// API, which rejects the write when sha no longer matches the current
// revision.
func (g *GitHub) PutFile(ctx context.Context, path, branch, message, content, sha string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
		Branch:  github.String(branch),
	}

	var err error
	if sha == "" {
		_, _, err = g.client.Repositories.CreateFile(ctx, g.owner, g.repo, path, opts)
	} else {
		opts.SHA = github.String(sha)
		_, _, err = g.client.Repositories.UpdateFile(ctx, g.owner, g.repo, path, opts)
	}
	if err != nil {
		return fmt.Errorf("failed to commit %s to %s: %w", path, branch, err)
	}
	return nil
}

// ListOpenPulls returns open pull requests whose source is head.
func (g *GitHub) ListOpenPulls(ctx context.Context, head string) ([]PullRequest, error) {
	prs, _, err := g.client.PullRequests.List(ctx, g.owner, g.repo, &github.PullRequestListOptions{
		State: "open",
		Head:  head,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests for %s: %w", head, err)
	}

	out := make([]PullRequest, 0, len(prs))
	for _, pr := range prs {
		out = append(out, PullRequest{
			Number: pr.GetNumber(),
			URL:    pr.GetHTMLURL(),
			Title:  pr.GetTitle(),
			Body:   pr.GetBody(),
		})
	}
	return out, nil
}

// CreatePull opens a pull request from head onto base.
func (g *GitHub) CreatePull(ctx context.Context, title, body, head, base string) (*PullRequest, error) {
	pr, _, err := g.client.PullRequests.Create(ctx, g.owner, g.repo, &github.NewPullRequest{
		Title: github.String(title),
		Body:  github.String(body),
		Head:  github.String(head),
		Base:  github.String(base),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request from %s: %w", head, err)
	}
	return &PullRequest{Number: pr.GetNumber(), URL: pr.GetHTMLURL(), Title: pr.GetTitle(), Body: pr.GetBody()}, nil
}

// UpdatePull replaces the title and body of an existing pull request.
func (g *GitHub) UpdatePull(ctx context.Context, number int, title, body string) (*PullRequest, error) {
	pr, _, err := g.client.PullRequests.Edit(ctx, g.owner, g.repo, number, &github.PullRequest{
		Title: github.String(title),
		Body:  github.String(body),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update pull request #%d: %w", number, err)
	}
	return &PullRequest{Number: pr.GetNumber(), URL: pr.GetHTMLURL(), Title: pr.GetTitle(), Body: pr.GetBody()}, nil
}

// hasStatus reports whether err is a GitHub API error with the given
// HTTP status.
func hasStatus(err error, status int) bool {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode == status
	}
	return false
}
