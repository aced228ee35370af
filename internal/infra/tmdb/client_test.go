package infra_tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nar3s/flickpick/internal/config"
	"github.com/nar3s/flickpick/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(config.TMDB{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		ImageBaseURL: "https://image.example.org/t/p",
	})
	return client, server
}

const discoverBody = `{
	"page": 2,
	"total_pages": 42,
	"total_results": 830,
	"results": [
		{
			"id": 603,
			"title": "The Matrix",
			"release_date": "1999-03-30",
			"vote_average": 8.223,
			"genre_ids": [28, 878],
			"poster_path": "/matrix.jpg",
			"backdrop_path": "/matrix-bg.jpg",
			"overview": "A hacker learns the truth.",
			"popularity": 98.4
		},
		{
			"id": 604,
			"title": "Obscure Short",
			"release_date": "",
			"vote_average": 0,
			"genre_ids": [],
			"poster_path": "",
			"backdrop_path": "",
			"overview": "",
			"popularity": 1.1
		}
	]
}`

func TestFetchPageNormalizesMovies(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/discover/movie", r.URL.Path)
		w.Write([]byte(discoverBody))
	})

	page := client.FetchPage(context.Background(), 2, model.DefaultFilters())

	assert.Equal(t, 42, page.TotalPages)
	assert.Equal(t, 830, page.TotalResults)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Movies, 2)

	matrix := page.Movies[0]
	assert.Equal(t, 603, matrix.ID)
	assert.Equal(t, 1999, matrix.Year)
	assert.Equal(t, 8.2, matrix.Rating)
	assert.Equal(t, "https://image.example.org/t/p/w500/matrix.jpg", matrix.PosterURL)
	assert.Equal(t, "https://image.example.org/t/p/w1280/matrix-bg.jpg", matrix.BackdropURL)
	assert.Equal(t, "A hacker learns the truth.", matrix.Synopsis)

	bare := page.Movies[1]
	assert.Equal(t, 0, bare.Year)
	assert.Empty(t, bare.PosterURL)
	assert.Empty(t, bare.BackdropURL)
	assert.Equal(t, "No synopsis available.", bare.Synopsis)
}

func TestFetchPageMapsFilters(t *testing.T) {
	var query url.Values
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`{"page":1,"total_pages":1,"total_results":0,"results":[]}`))
	})

	client.FetchPage(context.Background(), 3, model.Filters{
		Genres:    []int{28, 878},
		Language:  "en",
		Year:      1999,
		MinRating: 7.5,
	})

	assert.Equal(t, "test-key", query.Get("api_key"))
	assert.Equal(t, "3", query.Get("page"))
	assert.Equal(t, "popularity.desc", query.Get("sort_by"))
	assert.Equal(t, "false", query.Get("include_adult"))
	assert.Equal(t, "100", query.Get("vote_count.gte"))
	assert.Equal(t, "28,878", query.Get("with_genres"))
	assert.Equal(t, "en", query.Get("with_original_language"))
	assert.Equal(t, "1999", query.Get("primary_release_year"))
	assert.Equal(t, "7.5", query.Get("vote_average.gte"))
}

func TestFetchPageOmitsEmptyFilters(t *testing.T) {
	var query url.Values
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`{"page":1,"total_pages":1,"total_results":0,"results":[]}`))
	})

	client.FetchPage(context.Background(), 1, model.DefaultFilters())

	assert.False(t, query.Has("with_genres"))
	assert.False(t, query.Has("with_original_language"))
	assert.False(t, query.Has("primary_release_year"))
	assert.False(t, query.Has("vote_average.gte"))
}

func TestFetchPageDegradesToEmptyPage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	page := client.FetchPage(context.Background(), 4, model.DefaultFilters())

	assert.Empty(t, page.Movies)
	assert.Equal(t, 4, page.Page)
}

func TestGenres(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/genre/movie/list", r.URL.Path)
		w.Write([]byte(`{"genres":[{"id":28,"name":"Action"},{"id":35,"name":"Comedy"}]}`))
	})

	genres, err := client.Genres(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Genre{{ID: 28, Name: "Action"}, {ID: 35, Name: "Comedy"}}, genres)
}

func TestLanguagesFiltersAndSorts(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"iso_639_1":"xx","english_name":"Imaginary","name":"xx"},
			{"iso_639_1":"ja","english_name":"Japanese","name":"日本語"},
			{"iso_639_1":"de","english_name":"German","name":"Deutsch"},
			{"iso_639_1":"en","english_name":"English","name":"English"}
		]`))
	})

	languages := client.Languages(context.Background())

	require.Len(t, languages, 3, "uncommon languages are dropped")
	assert.Equal(t, "en", languages[0].Code)
	assert.Equal(t, "de", languages[1].Code)
	assert.Equal(t, "ja", languages[2].Code)
}

func TestLanguagesFallbackOnError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	languages := client.Languages(context.Background())

	require.NotEmpty(t, languages)
	assert.Equal(t, "en", languages[0].Code)
}
