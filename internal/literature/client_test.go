package literature

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchWithoutKeyReturnsMockResults(t *testing.T) {
	client := NewClient("", "", time.Second)

	refs, degraded := client.Search(context.Background(), "bone loss", 5)

	assert.False(t, degraded)
	require.NotEmpty(t, refs)
	assert.Contains(t, refs[0].Title, "bone loss")
	assert.NotEmpty(t, refs[0].Abstract)
}

func TestSearchParsesCOREResponse(t *testing.T) {
	var gotAuth, gotQuery, gotLimit string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search/works", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("q")
		gotLimit = r.URL.Query().Get("limit")

		resp := map[string]interface{}{
			"results": []map[string]interface{}{
				{
					"id":            12345,
					"title":         "Bone Density Loss in Long-Duration Spaceflight",
					"abstract":      "Astronauts lose bone mass.",
					"yearPublished": 2021,
					"doi":           "10.1000/space.2021",
					"downloadUrl":   "https://example.org/paper.pdf",
					"sourceFulltextUrls": []string{
						"https://example.org/ft1",
						"https://example.org/ft2",
						"https://example.org/ft3",
					},
					"authors": []map[string]string{{"name": "A. Author"}, {"name": "B. Author"}},
				},
				{
					"id":    678,
					"title": "Countermeasures for Skeletal Unloading",
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, time.Second)
	refs, degraded := client.Search(context.Background(), "bone loss", 3)

	assert.False(t, degraded)
	require.Len(t, refs, 2)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "bone loss", gotQuery)
	assert.Equal(t, "3", gotLimit)

	first := refs[0]
	assert.Equal(t, "Bone Density Loss in Long-Duration Spaceflight", first.Title)
	assert.Equal(t, []string{"A. Author", "B. Author"}, first.Authors)
	assert.Equal(t, "2021", first.Year)
	assert.Equal(t, "10.1000/space.2021", first.DOI)
	assert.Equal(t, "Astronauts lose bone mass.", first.Abstract)

	// doi + download + two fulltext (third is dropped) + core.
	require.Len(t, first.Links, 5)
	assert.Equal(t, Link{Type: "doi", URL: "https://doi.org/10.1000/space.2021"}, first.Links[0])
	assert.Equal(t, Link{Type: "download", URL: "https://example.org/paper.pdf"}, first.Links[1])
	assert.Equal(t, Link{Type: "fulltext", URL: "https://example.org/ft1"}, first.Links[2])
	assert.Equal(t, Link{Type: "fulltext", URL: "https://example.org/ft2"}, first.Links[3])
	assert.Equal(t, Link{Type: "core", URL: "https://core.ac.uk/works/12345"}, first.Links[4])

	second := refs[1]
	assert.Equal(t, "Countermeasures for Skeletal Unloading", second.Title)
	require.Len(t, second.Links, 1)
	assert.Equal(t, Link{Type: "core", URL: "https://core.ac.uk/works/678"}, second.Links[0])
}

func TestSearchDegradesOnProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, time.Second)
	client.retryCfg.InitialDelay = time.Millisecond
	client.retryCfg.MaxDelay = 5 * time.Millisecond

	refs, degraded := client.Search(context.Background(), "bone loss", 3)

	assert.True(t, degraded)
	assert.Empty(t, refs)
}

func TestSearchScrapesMissingAbstract(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/works":
			resp := map[string]interface{}{
				"results": []map[string]interface{}{
					{
						"id":                 1,
						"title":              "Untitled Fulltext Work",
						"sourceFulltextUrls": []string{server.URL + "/page"},
					},
				},
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><body><nav>menu</nav><p>Scraped abstract text.</p></body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, time.Second)
	refs, degraded := client.Search(context.Background(), "anything", 1)

	assert.False(t, degraded)
	require.Len(t, refs, 1)
	assert.Equal(t, "Scraped abstract text.", refs[0].Abstract)
}

func TestDedupeReferences(t *testing.T) {
	refs := []Reference{
		{Title: "Paper A", DOI: "10.1/a"},
		{Title: "Paper A duplicate", DOI: "10.1/A"},
		{Title: "Paper B"},
		{Title: "paper b"},
		{Title: ""},
	}

	out := dedupeReferences(refs)

	require.Len(t, out, 2)
	assert.Equal(t, "Paper A", out[0].Title)
	assert.Equal(t, "Paper B", out[1].Title)
}
