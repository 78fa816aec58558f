package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/projectpulse/pulsebot/internal/metrics"
	"github.com/projectpulse/pulsebot/pkg/models"
)

// JiraClient talks to the Jira REST API (v2) with basic auth.
type JiraClient struct {
	baseURL    string
	username   string
	apiToken   string
	maxResults int
	http       *http.Client
	metrics    *metrics.Metrics
}

// JiraOption customizes a JiraClient.
type JiraOption func(*JiraClient)

// WithHTTPClient overrides the underlying HTTP client (used by tests).
func WithHTTPClient(c *http.Client) JiraOption {
	return func(j *JiraClient) { j.http = c }
}

// WithMaxResults overrides the per-search result cap.
func WithMaxResults(n int) JiraOption {
	return func(j *JiraClient) { j.maxResults = n }
}

// WithMetrics enables request counting and latency observation.
func WithMetrics(m *metrics.Metrics) JiraOption {
	return func(j *JiraClient) { j.metrics = m }
}

// NewJiraClient creates a Jira REST client rooted at baseURL.
func NewJiraClient(baseURL, username, apiToken string, opts ...JiraOption) *JiraClient {
	j := &JiraClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		apiToken:   apiToken,
		maxResults: DefaultMaxResults,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Wire structs for the subset of the Jira payloads the core reads.

type jiraProject struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	ID   string `json:"id"`
}

type jiraStatus struct {
	Name string `json:"name"`
}

type jiraIssueType struct {
	Name string `json:"name"`
}

type jiraFields struct {
	Created        string        `json:"created"`
	DueDate        string        `json:"duedate"`
	ResolutionDate string        `json:"resolutiondate"`
	Status         jiraStatus    `json:"status"`
	Summary        string        `json:"summary"`
	IssueType      jiraIssueType `json:"issuetype"`
}

type jiraIssue struct {
	Fields jiraFields `json:"fields"`
}

type jiraSearchResult struct {
	Issues []jiraIssue `json:"issues"`
}

func (j *JiraClient) get(ctx context.Context, operation, path string, query url.Values, out interface{}) (err error) {
	if j.metrics != nil {
		start := time.Now()
		defer func() {
			j.metrics.TrackerRequests.WithLabelValues(operation, strconv.FormatBool(err == nil)).Inc()
			j.metrics.TrackerRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		}()
	}
	return j.doGet(ctx, path, query, out)
}

func (j *JiraClient) doGet(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := j.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(j.username, j.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := j.http.Do(req)
	if err != nil {
		return fmt.Errorf("tracker request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tracker request %s: unexpected status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode tracker response for %s: %w", path, err)
	}
	return nil
}

// ListProjects returns every project visible to the configured credentials.
func (j *JiraClient) ListProjects(ctx context.Context) ([]models.Project, error) {
	var raw []jiraProject
	if err := j.get(ctx, "list_projects", "/rest/api/2/project", nil, &raw); err != nil {
		return nil, err
	}

	projects := make([]models.Project, 0, len(raw))
	for _, p := range raw {
		projects = append(projects, models.Project{Key: p.Key, Name: p.Name, ID: p.ID})
	}
	return projects, nil
}

// GetProject resolves a single project by key. Returns ErrNotFound when the
// tracker reports no such project.
func (j *JiraClient) GetProject(ctx context.Context, key string) (*models.Project, error) {
	var raw jiraProject
	if err := j.get(ctx, "get_project", "/rest/api/2/project/"+url.PathEscape(key), nil, &raw); err != nil {
		return nil, err
	}
	return &models.Project{Key: raw.Key, Name: raw.Name, ID: raw.ID}, nil
}

// SearchIssues runs a bounded JQL search for one project and issue type.
func (j *JiraClient) SearchIssues(ctx context.Context, q Search) ([]models.Issue, error) {
	max := q.MaxResults
	if max <= 0 {
		max = j.maxResults
	}

	params := url.Values{}
	params.Set("jql", fmt.Sprintf("project = %s AND issuetype = %s", q.ProjectKey, q.IssueType))
	params.Set("maxResults", strconv.Itoa(max))
	params.Set("fields", "created,duedate,resolutiondate,status,summary,issuetype")

	var raw jiraSearchResult
	if err := j.get(ctx, "search_issues", "/rest/api/2/search", params, &raw); err != nil {
		return nil, err
	}

	issues := make([]models.Issue, 0, len(raw.Issues))
	for _, is := range raw.Issues {
		issues = append(issues, models.Issue{
			Type:           models.IssueType(is.Fields.IssueType.Name),
			Created:        is.Fields.Created,
			DueDate:        is.Fields.DueDate,
			ResolutionDate: is.Fields.ResolutionDate,
			StatusName:     is.Fields.Status.Name,
			Summary:        is.Fields.Summary,
		})
	}
	return issues, nil
}

var _ Client = (*JiraClient)(nil)
