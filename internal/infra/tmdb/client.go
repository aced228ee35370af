package infra_tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nar3s/flickpick/internal/config"
	"github.com/nar3s/flickpick/internal/model"
)

// Client wraps the TMDB discover API. It is deliberately forgiving:
// upstream failures surface as empty pages, never as errors, so a flaky
// catalog can not break a running session.
type Client struct {
	apiKey   string
	baseURL  string
	imageURL string

	http   *http.Client
	logger *slog.Logger
}

type ClientOption func(*Client)

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

func New(cfg config.TMDB, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		imageURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type discoverMovieDTO struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	ReleaseDate  string  `json:"release_date"`
	VoteAverage  float64 `json:"vote_average"`
	GenreIDs     []int   `json:"genre_ids"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Overview     string  `json:"overview"`
	Popularity   float64 `json:"popularity"`
}

type discoverResponseDTO struct {
	Results      []discoverMovieDTO `json:"results"`
	TotalPages   int                `json:"total_pages"`
	TotalResults int                `json:"total_results"`
	Page         int                `json:"page"`
}

// FetchPage returns one normalized page of movies for the given filters.
// Any upstream problem degrades to an empty page.
func (c *Client) FetchPage(ctx context.Context, page int, filters model.Filters) model.MoviePage {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("page", strconv.Itoa(page))
	params.Set("sort_by", "popularity.desc")
	params.Set("include_adult", "false")
	params.Set("include_video", "false")
	params.Set("vote_count.gte", "100")

	if len(filters.Genres) > 0 {
		ids := make([]string, 0, len(filters.Genres))
		for _, id := range filters.Genres {
			ids = append(ids, strconv.Itoa(id))
		}
		params.Set("with_genres", strings.Join(ids, ","))
	}
	if filters.Language != "" {
		params.Set("with_original_language", filters.Language)
	}
	if filters.Year != 0 {
		params.Set("primary_release_year", strconv.Itoa(filters.Year))
	}
	if filters.MinRating != 0 {
		params.Set("vote_average.gte", strconv.FormatFloat(filters.MinRating, 'f', -1, 64))
	}

	var dto discoverResponseDTO
	if err := c.getJSON(ctx, "/discover/movie", params, &dto); err != nil {
		c.logger.Error("tmdb discover failed", "page", page, "error", err)
		return model.MoviePage{Movies: []model.Movie{}, Page: page}
	}

	movies := make([]model.Movie, 0, len(dto.Results))
	for _, m := range dto.Results {
		movies = append(movies, c.normalize(m))
	}

	return model.MoviePage{
		Movies:       movies,
		TotalPages:   dto.TotalPages,
		TotalResults: dto.TotalResults,
		Page:         dto.Page,
	}
}

func (c *Client) normalize(m discoverMovieDTO) model.Movie {
	synopsis := m.Overview
	if synopsis == "" {
		synopsis = "No synopsis available."
	}

	return model.Movie{
		ID:          m.ID,
		Title:       m.Title,
		Year:        releaseYear(m.ReleaseDate),
		Rating:      roundRating(m.VoteAverage),
		GenreIDs:    m.GenreIDs,
		PosterURL:   c.imagePath(m.PosterPath, "w500"),
		BackdropURL: c.imagePath(m.BackdropPath, "w1280"),
		Synopsis:    synopsis,
		Popularity:  m.Popularity,
	}
}

func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// roundRating keeps one decimal, matching what clients render.
func roundRating(r float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(r, 'f', 1, 64), 64)
	return v
}

func (c *Client) imagePath(path, size string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", c.imageURL, size, path)
}

type genreListDTO struct {
	Genres []model.Genre `json:"genres"`
}

// Genres returns the upstream genre vocabulary.
func (c *Client) Genres(ctx context.Context) ([]model.Genre, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)

	var dto genreListDTO
	if err := c.getJSON(ctx, "/genre/movie/list", params, &dto); err != nil {
		return nil, err
	}
	return dto.Genres, nil
}

// commonLanguages is the short list surfaced in the filter UI.
var commonLanguages = map[string]struct{}{
	"en": {}, "es": {}, "fr": {}, "de": {}, "it": {}, "ja": {},
	"ko": {}, "zh": {}, "hi": {}, "pt": {}, "ru": {},
}

// Languages returns the common subset of upstream languages sorted by
// English name. A failed lookup falls back to a minimal static list so
// the filter panel always has something to offer.
func (c *Client) Languages(ctx context.Context) []model.Language {
	params := url.Values{}
	params.Set("api_key", c.apiKey)

	var all []model.Language
	if err := c.getJSON(ctx, "/configuration/languages", params, &all); err != nil {
		c.logger.Error("tmdb languages failed", "error", err)
		return []model.Language{
			{Code: "en", EnglishName: "English", Name: "English"},
			{Code: "hi", EnglishName: "Hindi", Name: "हिन्दी"},
		}
	}

	languages := make([]model.Language, 0, len(commonLanguages))
	for _, l := range all {
		if _, ok := commonLanguages[l.Code]; ok {
			languages = append(languages, l)
		}
	}
	sort.Slice(languages, func(i, j int) bool {
		return languages[i].EnglishName < languages[j].EnglishName
	})
	return languages
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
