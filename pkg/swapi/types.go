// Package swapi holds the Star Wars API wire types, the page fetcher and the
// normalization of raw people records into ranked characters.
package swapi

// RawCharacter is a person record as served by GET /people/.
type RawCharacter struct {
	Name      string   `json:"name"`
	Height    string   `json:"height"`
	Mass      string   `json:"mass,omitempty"`
	HairColor string   `json:"hair_color,omitempty"`
	SkinColor string   `json:"skin_color,omitempty"`
	EyeColor  string   `json:"eye_color,omitempty"`
	BirthYear string   `json:"birth_year,omitempty"`
	Gender    string   `json:"gender,omitempty"`
	Homeworld string   `json:"homeworld,omitempty"`
	Films     []string `json:"films"`
	Species   []string `json:"species"`
	Vehicles  []string `json:"vehicles,omitempty"`
	Starships []string `json:"starships,omitempty"`
	Created   string   `json:"created,omitempty"`
	Edited    string   `json:"edited,omitempty"`
	URL       string   `json:"url,omitempty"`
}

// PeoplePage is one page of GET /people/?page=N.
type PeoplePage struct {
	Count    int            `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []RawCharacter `json:"results"`
}

// HasNext reports whether the API advertises a following page.
func (p *PeoplePage) HasNext() bool {
	return p != nil && p.Next != nil && *p.Next != ""
}

// Film is one entry of GET /films/. Only the fields used for page planning are decoded.
type Film struct {
	Title      string   `json:"title"`
	EpisodeID  int      `json:"episode_id"`
	Characters []string `json:"characters"`
	URL        string   `json:"url"`
}

// FilmList is the response of GET /films/.
type FilmList struct {
	Count   int    `json:"count"`
	Results []Film `json:"results"`
}

// DistinctCharacters counts the distinct character URLs referenced by all films.
func (l *FilmList) DistinctCharacters() int {
	seen := make(map[string]struct{})
	for _, f := range l.Results {
		for _, c := range f.Characters {
			seen[c] = struct{}{}
		}
	}
	return len(seen)
}

// Species is the response of GET {species_url}.
type Species struct {
	Name           string `json:"name"`
	Classification string `json:"classification,omitempty"`
	Designation    string `json:"designation,omitempty"`
	Language       string `json:"language,omitempty"`
	URL            string `json:"url"`
}

// Character is the normalized record that is ranked and exported.
// Species holds a species URL until it is resolved to a name.
type Character struct {
	Name        string
	Species     string
	Height      int
	HasHeight   bool
	Appearances int
}
