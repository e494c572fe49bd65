package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// Track is one music catalog entry.
type Track struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Album   string `json:"album,omitempty"`
	URL     string `json:"url,omitempty"`
	Preview string `json:"preview,omitempty"`
}

// Music talks to a Spotify-compatible catalog API using the
// client-credentials flow. Tokens are cached until shortly before expiry.
type Music struct {
	auth   *resty.Client
	api    *resty.Client
	id     string
	secret string

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewMusic creates the music gateway. authEndpoint serves the token grant,
// apiEndpoint the catalog.
func NewMusic(authEndpoint, apiEndpoint, clientID, clientSecret string) *Music {
	return &Music{
		auth:   newClient(authEndpoint),
		api:    newClient(apiEndpoint),
		id:     clientID,
		secret: clientSecret,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (m *Music) accessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Now().Before(m.expires) {
		return m.token, nil
	}

	resp, err := m.auth.R().
		SetContext(ctx).
		SetBasicAuth(m.id, m.secret).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody("grant_type=client_credentials").
		Post("/api/token")
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("token status %d", resp.StatusCode())
	}

	var body tokenResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("empty access token")
	}

	m.token = body.AccessToken
	// renew a minute early so in-flight calls never carry a stale token
	m.expires = time.Now().Add(time.Duration(body.ExpiresIn)*time.Second - time.Minute)
	return m.token, nil
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []spotifyTrack `json:"items"`
	} `json:"tracks"`
}

type spotifyTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name string `json:"name"`
	} `json:"album"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
	PreviewURL string `json:"preview_url"`
}

// Search finds tracks matching term. No matches is nil, nil.
func (m *Music) Search(ctx context.Context, term string) ([]Track, error) {
	token, err := m.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := m.api.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("q", term).
		SetQueryParam("type", "track").
		SetQueryParam("limit", "10").
		Get("/v1/search")
	if err != nil {
		return nil, fmt.Errorf("music search: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("music search status %d", resp.StatusCode())
	}

	var body spotifySearchResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode music search response: %w", err)
	}
	if len(body.Tracks.Items) == 0 {
		return nil, nil
	}
	return toTracks(body.Tracks.Items), nil
}

type spotifyRecommendResponse struct {
	Tracks []spotifyTrack `json:"tracks"`
}

// Recommend returns tracks similar to the given seed track IDs.
func (m *Music) Recommend(ctx context.Context, seedIDs []string) ([]Track, error) {
	if len(seedIDs) == 0 {
		return nil, nil
	}
	token, err := m.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	if len(seedIDs) > 5 {
		seedIDs = seedIDs[:5]
	}
	resp, err := m.api.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("seed_tracks", strings.Join(seedIDs, ",")).
		SetQueryParam("limit", "10").
		Get("/v1/recommendations")
	if err != nil {
		return nil, fmt.Errorf("music recommend: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("music recommend status %d", resp.StatusCode())
	}

	var body spotifyRecommendResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode music recommend response: %w", err)
	}
	if len(body.Tracks) == 0 {
		return nil, nil
	}
	return toTracks(body.Tracks), nil
}

func toTracks(items []spotifyTrack) []Track {
	tracks := make([]Track, 0, len(items))
	for _, it := range items {
		artists := make([]string, 0, len(it.Artists))
		for _, a := range it.Artists {
			artists = append(artists, a.Name)
		}
		tracks = append(tracks, Track{
			ID:      it.ID,
			Title:   it.Name,
			Artist:  strings.Join(artists, ", "),
			Album:   it.Album.Name,
			URL:     it.ExternalURLs.Spotify,
			Preview: it.PreviewURL,
		})
	}
	return tracks
}
