package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectpulse/pulsebot/pkg/models"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *JiraClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewJiraClient(srv.URL, "bot", "token")
}

func TestListProjects(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/project", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "bot", user)
		assert.Equal(t, "token", pass)

		json.NewEncoder(w).Encode([]map[string]string{
			{"key": "ABC", "name": "Alpha", "id": "10001"},
			{"key": "XYZ", "name": "Zulu", "id": "10002"},
		})
	})

	projects, err := client.ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, models.Project{Key: "ABC", Name: "Alpha", ID: "10001"}, projects[0])
}

func TestGetProjectNotFound(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := client.GetProject(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchIssuesQuery(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/search", r.URL.Path)
		assert.Equal(t, "project = ABC AND issuetype = Task", r.URL.Query().Get("jql"))
		assert.Equal(t, "100", r.URL.Query().Get("maxResults"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"issues": []map[string]interface{}{
				{
					"fields": map[string]interface{}{
						"created":        "2024-03-05T10:15:30.000000+0000",
						"duedate":        "2024-04-01",
						"resolutiondate": nil,
						"status":         map[string]string{"name": "In Progress"},
						"summary":        "Set up environment",
						"issuetype":      map[string]string{"name": "Task"},
					},
				},
			},
		})
	})

	issues, err := client.SearchIssues(context.Background(), Search{ProjectKey: "ABC", IssueType: models.IssueTypeTask})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "Set up environment", issues[0].Summary)
	assert.Equal(t, "In Progress", issues[0].StatusName)
	assert.Equal(t, "2024-04-01", issues[0].DueDate)
	assert.Empty(t, issues[0].ResolutionDate)
}

func TestSearchIssuesServerError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.SearchIssues(context.Background(), Search{ProjectKey: "ABC", IssueType: models.IssueTypeEpic})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
