package musicbrainz

// MusicBrainz API response types.

// ReleaseSearchResponse is the top-level response from the release search endpoint.
type ReleaseSearchResponse struct {
	Created  string      `json:"created"`
	Count    int         `json:"count"`
	Offset   int         `json:"offset"`
	Releases []MBRelease `json:"releases"`
}

// MBRelease represents a MusicBrainz release entity as returned by search.
type MBRelease struct {
	ID           string           `json:"id"`
	Score        int              `json:"score"`
	Title        string           `json:"title"`
	Status       string           `json:"status"`
	Date         string           `json:"date"`
	Country      string           `json:"country"`
	ArtistCredit []MBArtistCredit `json:"artist-credit"`
	ReleaseGroup *MBReleaseGroup  `json:"release-group,omitempty"`
}

// MBArtistCredit is one credited artist of a release.
type MBArtistCredit struct {
	Name       string   `json:"name"`
	JoinPhrase string   `json:"joinphrase"`
	Artist     MBArtist `json:"artist"`
}

// MBArtist represents a MusicBrainz artist entity.
type MBArtist struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SortName string `json:"sort-name"`
}

// MBReleaseGroup represents a MusicBrainz release group entity.
type MBReleaseGroup struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	PrimaryType string `json:"primary-type"`
}
