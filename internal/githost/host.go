// Package githost abstracts the source-control hosting API behind a narrow
// interface so the reconciler's state machine can be tested against an
// in-memory fake.
package githost

import "context"

// FileInfo describes a file revision on a ref.
type FileInfo struct {
	SHA     string
	Content string
}

// PullRequest describes an open pull request.
type PullRequest struct {
	Number int
	URL    string
	Title  string
	Body   string
}

// Host is the remote hosting collaborator. Implementations map provider
// error responses onto the errs package sentinels where the reconciler
// recovers locally (ErrRefNotFound, ErrRefExists, ErrNotFastForward,
// ErrFileNotFound).
type Host interface {
	// DefaultBranch returns the repository's configured default branch.
	DefaultBranch(ctx context.Context) (string, error)

	// GetRef returns the commit SHA the branch head points at.
	GetRef(ctx context.Context, branch string) (string, error)

	// CreateRef creates the branch at the given commit.
	CreateRef(ctx context.Context, branch, sha string) error

	// UpdateRef moves the branch head to the given commit. With force
	// false the update is rejected unless it is a fast-forward.
	UpdateRef(ctx context.Context, branch, sha string, force bool) error

	// DeleteRef deletes the branch.
	DeleteRef(ctx context.Context, branch string) error

	// GetFile returns the file's content and revision SHA on the ref.
	GetFile(ctx context.Context, path, ref string) (*FileInfo, error)

	// PutFile creates or updates the file on the branch. A non-empty sha
	// must match the current revision or the call is rejected.
	PutFile(ctx context.Context, path, branch, message, content, sha string) error

	// ListOpenPulls returns open pull requests whose source is head.
	ListOpenPulls(ctx context.Context, head string) ([]PullRequest, error)

	// CreatePull opens a pull request from head onto base.
	CreatePull(ctx context.Context, title, body, head, base string) (*PullRequest, error)

	// UpdatePull replaces the title and body of an existing pull request.
	UpdatePull(ctx context.Context, number int, title, body string) (*PullRequest, error)
}
