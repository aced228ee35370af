package model

type RoomCode = string

const EmptyRoomCode RoomCode = ""

// Movie is the normalized item shape served to every participant,
// regardless of what the upstream catalog returns.
type Movie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Year        int     `json:"year"`
	Rating      float64 `json:"rating"`
	GenreIDs    []int   `json:"genreIds"`
	PosterURL   string  `json:"posterUrl,omitempty"`
	BackdropURL string  `json:"backdropUrl,omitempty"`
	Synopsis    string  `json:"synopsis"`
	Popularity  float64 `json:"popularity"`
}

// MoviePage is one page of upstream results.
type MoviePage struct {
	Movies       []Movie
	TotalPages   int
	TotalResults int
	Page         int
}

// Filters is the session-wide criteria set. Optional fields use empty
// sentinels ("" / 0) rather than being omitted, so every room always
// carries a fully populated filter record.
type Filters struct {
	Genres    []int   `json:"genres"`
	Language  string  `json:"language"`
	Year      int     `json:"year"`
	MinRating float64 `json:"minRating"`
}

// DefaultFilters is the unrestricted set every new room starts with.
func DefaultFilters() Filters {
	return Filters{Genres: []int{}, Language: "", Year: 0, MinRating: 0}
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Language struct {
	Code        string `json:"iso_639_1"`
	EnglishName string `json:"english_name"`
	Name        string `json:"name"`
}
