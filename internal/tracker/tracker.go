// Package tracker defines the read-only issue tracker client consumed by the
// aggregator and the router, plus its Jira REST implementation.
package tracker

import (
	"context"
	"errors"

	"github.com/projectpulse/pulsebot/pkg/models"
)

// ErrNotFound is returned by GetProject when the tracker has no project for
// the requested key.
var ErrNotFound = errors.New("tracker: project not found")

// DefaultMaxResults bounds every issue search.
const DefaultMaxResults = 100

// Search expresses "project = <key> AND issuetype = <type>" with a bounded
// result cap.
type Search struct {
	ProjectKey string
	IssueType  models.IssueType
	MaxResults int
}

// Client is the tracker boundary. All operations are read-only; the core
// never writes back to the tracker.
type Client interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	GetProject(ctx context.Context, key string) (*models.Project, error)
	SearchIssues(ctx context.Context, q Search) ([]models.Issue, error)
}
