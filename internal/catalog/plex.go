// Plex-style HTTP implementation of [Catalog].
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jamsync/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "http://localhost:32400"
	defaultTimeout = 30 * time.Second
	defaultRPS     = 5.0
	clientID       = "jamsync-cli"
	trackType      = "10" // catalog metadata type for tracks
)

// PlexCatalog implements [Catalog] against a Plex-style media server.
//
// All scopes derived from one client share its HTTP client and rate
// limiter, so fan-out across replicas is throttled as a whole.
type PlexCatalog struct {
	baseURL    string
	token      string
	adminName  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	mu        sync.Mutex
	machineID string
}

// PlexOpts contains configuration options for creating a PlexCatalog.
type PlexOpts struct {
	BaseURL           string
	Token             string
	AdminName         string
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *log.Logger
}

// NewPlexCatalog creates a catalog client for the given server.
func NewPlexCatalog(opts PlexOpts) *PlexCatalog {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.AdminName == "" {
		opts.AdminName = "admin"
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRPS
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &PlexCatalog{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
		adminName:  opts.AdminName,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		logger:     opts.Logger,
	}
}

// doRequest performs a rate-limited, token-authenticated request and decodes
// the MediaContainer envelope.
func (p *PlexCatalog) doRequest(ctx context.Context, method, path, token string, query url.Values) (*mediaContainer, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := p.baseURL + path
	if len(query) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", token)
	req.Header.Set("X-Plex-Client-Identifier", clientID)
	req.Header.Set("X-Plex-Product", "jamsync")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s %s returned status %d", shared.ErrAPIRequest, method, path, resp.StatusCode)
	}

	if resp.StatusCode == http.StatusNoContent {
		return &mediaContainer{}, nil
	}

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &envelope.MediaContainer, nil
}

// machineIdentifier fetches and caches the server's machine id, which item
// URIs embed.
func (p *PlexCatalog) machineIdentifier(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.machineID != "" {
		return p.machineID, nil
	}

	container, err := p.doRequest(ctx, http.MethodGet, "/identity", p.token, nil)
	if err != nil {
		return "", err
	}
	if container.MachineIdentifier == "" {
		return "", fmt.Errorf("%w: server identity has no machine identifier", shared.ErrAPIRequest)
	}

	p.machineID = container.MachineIdentifier
	return p.machineID, nil
}

// accounts lists all server accounts, owner included.
func (p *PlexCatalog) accounts(ctx context.Context) ([]account, error) {
	container, err := p.doRequest(ctx, http.MethodGet, "/accounts", p.token, nil)
	if err != nil {
		return nil, err
	}
	return container.Account, nil
}

// Scope switches into the named replica by exchanging the admin token for a
// user-scoped one.
func (p *PlexCatalog) Scope(ctx context.Context, replicaID string) (ScopedCatalog, error) {
	accounts, err := p.accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrScopeUnavailable, replicaID, err)
	}

	var userID int
	for _, acct := range accounts {
		if acct.Name == replicaID {
			userID = acct.ID
			break
		}
	}
	if userID == 0 {
		return nil, fmt.Errorf("%w: no account named %q", shared.ErrScopeUnavailable, replicaID)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	switchURL := fmt.Sprintf("%s/api/home/users/%d/switch", p.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, switchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", p.token)
	req.Header.Set("X-Plex-Client-Identifier", clientID)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrScopeUnavailable, replicaID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: switch returned status %d", shared.ErrScopeUnavailable, replicaID, resp.StatusCode)
	}

	var switched switchResponse
	if err := json.NewDecoder(resp.Body).Decode(&switched); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrScopeUnavailable, replicaID, err)
	}
	if switched.AuthToken == "" {
		return nil, fmt.Errorf("%w: %s: switch returned no token", shared.ErrScopeUnavailable, replicaID)
	}

	return &scopedPlex{cat: p, replica: replicaID, token: switched.AuthToken}, nil
}

// AdminScope returns the unswitched admin view.
func (p *PlexCatalog) AdminScope(ctx context.Context) (ScopedCatalog, error) {
	if p.token == "" {
		return nil, fmt.Errorf("%w: no catalog token configured", shared.ErrMissingCredentials)
	}
	return &scopedPlex{cat: p, replica: p.adminName, token: p.token}, nil
}

// Replicas lists all non-owner account names.
func (p *PlexCatalog) Replicas(ctx context.Context) ([]string, error) {
	accounts, err := p.accounts(ctx)
	if err != nil {
		return nil, err
	}

	var replicas []string
	for _, acct := range accounts {
		// Account 1 is the server owner, reachable via AdminScope.
		if acct.ID == 1 || acct.Name == "" {
			continue
		}
		replicas = append(replicas, acct.Name)
	}

	return replicas, nil
}

// ServerInfo reports the server's name, version, platform, and account count.
func (p *PlexCatalog) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	container, err := p.doRequest(ctx, http.MethodGet, "/", p.token, nil)
	if err != nil {
		return nil, err
	}

	accounts, err := p.accounts(ctx)
	if err != nil {
		return nil, err
	}

	return &ServerInfo{
		Name:     container.FriendlyName,
		Version:  container.Version,
		Platform: container.Platform,
		Users:    len(accounts),
	}, nil
}

// scopedPlex is a PlexCatalog view bound to one replica's token.
type scopedPlex struct {
	cat     *PlexCatalog
	replica string
	token   string
}

func (s *scopedPlex) ReplicaID() string { return s.replica }

// musicSections lists sections of the given type visible to this scope.
func (s *scopedPlex) sections(ctx context.Context, sectionType string) ([]directory, error) {
	container, err := s.cat.doRequest(ctx, http.MethodGet, "/library/sections", s.token, nil)
	if err != nil {
		return nil, err
	}

	var sections []directory
	for _, dir := range container.Directory {
		if dir.Type == sectionType {
			sections = append(sections, dir)
		}
	}

	return sections, nil
}

// SearchByRating returns tracks whose user rating meets minRating across all
// sections of the given type.
//
// The threshold is sent as (minRating - 0.1) to include exact matches that
// drifted through float conversion on the server side.
func (s *scopedPlex) SearchByRating(ctx context.Context, sectionType string, minRating float64) ([]Item, error) {
	sections, err := s.sections(ctx, sectionType)
	if err != nil {
		return nil, err
	}

	var items []Item
	for _, section := range sections {
		query := url.Values{}
		query.Set("type", trackType)
		query.Set("userRating>>", fmt.Sprintf("%g", minRating-0.1))

		path := fmt.Sprintf("/library/sections/%s/all", section.Key)
		container, err := s.cat.doRequest(ctx, http.MethodGet, path, s.token, query)
		if err != nil {
			return nil, err
		}

		items = append(items, mapItems(container.Metadata)...)
	}

	return items, nil
}

// SearchTrack returns the best match for a free-text query, or nil when no
// section has one.
func (s *scopedPlex) SearchTrack(ctx context.Context, query string) (*Item, error) {
	// Chat frontends tend to pass through surrounding quotes.
	query = strings.Trim(strings.TrimSpace(query), `"'`)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidInput)
	}

	sections, err := s.sections(ctx, SectionMusic)
	if err != nil {
		return nil, err
	}

	for _, section := range sections {
		params := url.Values{}
		params.Set("type", trackType)
		params.Set("title", query)
		params.Set("limit", "1")

		path := fmt.Sprintf("/library/sections/%s/all", section.Key)
		container, err := s.cat.doRequest(ctx, http.MethodGet, path, s.token, params)
		if err != nil {
			return nil, err
		}

		if len(container.Metadata) > 0 {
			item := mapItem(container.Metadata[0])
			return &item, nil
		}
	}

	return nil, nil
}

// FindPlaylist looks up an audio playlist by name; absence is not an error.
func (s *scopedPlex) FindPlaylist(ctx context.Context, name string) (PlaylistHandle, error) {
	query := url.Values{}
	query.Set("playlistType", "audio")

	container, err := s.cat.doRequest(ctx, http.MethodGet, "/playlists", s.token, query)
	if err != nil {
		return nil, err
	}

	for _, md := range container.Metadata {
		if md.Title == name {
			return &plexPlaylist{scope: s, key: md.RatingKey, name: md.Title}, nil
		}
	}

	return nil, nil
}

// CreatePlaylist creates an audio playlist seeded with items.
func (s *scopedPlex) CreatePlaylist(ctx context.Context, name string, items []Item) (PlaylistHandle, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: cannot create empty playlist %q", shared.ErrInvalidInput, name)
	}

	uri, err := s.itemURI(ctx, items)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("type", "audio")
	query.Set("smart", "0")
	query.Set("title", name)
	query.Set("uri", uri)

	container, err := s.cat.doRequest(ctx, http.MethodPost, "/playlists", s.token, query)
	if err != nil {
		return nil, fmt.Errorf("%w: create %q for %s: %v", shared.ErrPlaylistWrite, name, s.replica, err)
	}

	if len(container.Metadata) == 0 {
		return nil, fmt.Errorf("%w: create %q for %s returned no playlist", shared.ErrPlaylistWrite, name, s.replica)
	}

	md := container.Metadata[0]
	return &plexPlaylist{scope: s, key: md.RatingKey, name: md.Title}, nil
}

// itemURI builds the library URI addressing the given items on this server.
func (s *scopedPlex) itemURI(ctx context.Context, items []Item) (string, error) {
	machineID, err := s.cat.machineIdentifier(ctx)
	if err != nil {
		return "", err
	}

	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
	}

	return fmt.Sprintf("server://%s/com.plexapp.plugins.library/library/metadata/%s",
		machineID, strings.Join(keys, ",")), nil
}

// plexPlaylist is a handle to one replica's playlist.
type plexPlaylist struct {
	scope *scopedPlex
	key   string
	name  string
}

func (pl *plexPlaylist) Name() string { return pl.name }

// Items returns current members in playlist order, each carrying the member
// id needed for removal.
func (pl *plexPlaylist) Items(ctx context.Context) ([]Item, error) {
	path := fmt.Sprintf("/playlists/%s/items", pl.key)
	container, err := pl.scope.cat.doRequest(ctx, http.MethodGet, path, pl.scope.token, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %q for %s: %v", shared.ErrPlaylistRead, pl.name, pl.scope.replica, err)
	}

	return mapItems(container.Metadata), nil
}

// AddItems appends items to the playlist in one request.
func (pl *plexPlaylist) AddItems(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}

	uri, err := pl.scope.itemURI(ctx, items)
	if err != nil {
		return err
	}

	query := url.Values{}
	query.Set("uri", uri)

	path := fmt.Sprintf("/playlists/%s/items", pl.key)
	if _, err := pl.scope.cat.doRequest(ctx, http.MethodPut, path, pl.scope.token, query); err != nil {
		return fmt.Errorf("%w: add to %q for %s: %v", shared.ErrPlaylistWrite, pl.name, pl.scope.replica, err)
	}

	return nil
}

// RemoveItems removes members one by one; the catalog has no batch removal.
func (pl *plexPlaylist) RemoveItems(ctx context.Context, items []Item) error {
	for _, item := range items {
		if item.memberID == 0 {
			return fmt.Errorf("%w: item %s was not read from playlist %q", shared.ErrInvalidArgument, item.Key, pl.name)
		}

		path := fmt.Sprintf("/playlists/%s/items/%d", pl.key, item.memberID)
		if _, err := pl.scope.cat.doRequest(ctx, http.MethodDelete, path, pl.scope.token, nil); err != nil {
			return fmt.Errorf("%w: remove from %q for %s: %v", shared.ErrPlaylistWrite, pl.name, pl.scope.replica, err)
		}
	}

	return nil
}
