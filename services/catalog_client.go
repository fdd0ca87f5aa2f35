// services/catalog_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"party-game-system/models"
)

// Catalog is the read/write surface the core needs from the remote catalog
// and session store. CatalogClient is the HTTP implementation; tests use
// fakes.
type Catalog interface {
	Health(ctx context.Context) error

	GetAllGames(ctx context.Context) ([]models.Game, error)
	GetGameByID(ctx context.Context, id string) (*models.Game, error)
	GetGameByTitle(ctx context.Context, title string) (*models.Game, error)
	GetFilteredGames(ctx context.Context, filter models.GameFilter) ([]models.Game, error)
	GetGameMaterials(ctx context.Context, gameID string) ([]models.MaterialRequirement, error)

	GetAllPunishments(ctx context.Context) ([]models.Punishment, error)
	GetRandomPunishment(ctx context.Context) (*models.Punishment, error)

	CreatePlayer(ctx context.Context, name string) (*models.RemotePlayer, error)
	GetPlayer(ctx context.Context, id string) (*models.RemotePlayer, error)
	UpdatePlayer(ctx context.Context, player models.RemotePlayer) error

	CreateGameSession(ctx context.Context, session models.RemoteSession) (*models.RemoteSession, error)
	GetGameSession(ctx context.Context, id string) (*models.RemoteSession, error)
	UpdateGameSession(ctx context.Context, session models.RemoteSession) error

	CreateMatchHistory(ctx context.Context, history models.MatchHistory) error

	GetUserMaterials(ctx context.Context, userID string) (*models.MaterialInventory, error)
	UpdateUserMaterials(ctx context.Context, inventory models.MaterialInventory) error
}

// CatalogClient talks to the catalog service over HTTP.
type CatalogClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

var titleCaser = cases.Title(language.English)

func NewCatalogClient(baseURL, token string) *CatalogClient {
	return &CatalogClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// doJSON issues one request and decodes the response into out (when non-nil).
// 404 maps to ErrCatalogNotFound; connection failures are wrapped with a
// stable prefix so callers can show something user-meaningful.
func (c *CatalogClient) doJSON(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("catalog service unreachable: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return ErrCatalogNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("catalog service returned %d: %s", resp.StatusCode, string(errBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode catalog response: %w", err)
		}
	}
	return nil
}

// Health probes the catalog service. Used by the network monitor.
func (c *CatalogClient) Health(ctx context.Context) error {
	return c.doJSON(ctx, "GET", "/health", nil, nil, nil)
}

func (c *CatalogClient) GetAllGames(ctx context.Context) ([]models.Game, error) {
	var games []models.Game
	if err := c.doJSON(ctx, "GET", "/games", nil, nil, &games); err != nil {
		return nil, err
	}
	return games, nil
}

func (c *CatalogClient) GetGameByID(ctx context.Context, id string) (*models.Game, error) {
	var game models.Game
	if err := c.doJSON(ctx, "GET", "/games/"+url.PathEscape(id), nil, nil, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

func (c *CatalogClient) GetGameByTitle(ctx context.Context, title string) (*models.Game, error) {
	q := url.Values{}
	q.Set("title", titleCaser.String(strings.TrimSpace(title)))
	var games []models.Game
	if err := c.doJSON(ctx, "GET", "/games/by-title", q, nil, &games); err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, ErrCatalogNotFound
	}
	return &games[0], nil
}

func (c *CatalogClient) GetFilteredGames(ctx context.Context, filter models.GameFilter) ([]models.Game, error) {
	q := url.Values{}
	q.Set("min_players", strconv.Itoa(filter.MinPlayers))
	q.Set("max_players", strconv.Itoa(filter.MaxPlayers))
	if filter.IsPremium != nil {
		q.Set("is_premium", strconv.FormatBool(*filter.IsPremium))
	}
	if len(filter.AvailableItems) > 0 {
		q.Set("items", strings.Join(filter.AvailableItems, ","))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Random {
		q.Set("random", "true")
	}

	var games []models.Game
	if err := c.doJSON(ctx, "GET", "/games/filter", q, nil, &games); err != nil {
		return nil, err
	}
	return games, nil
}

func (c *CatalogClient) GetGameMaterials(ctx context.Context, gameID string) ([]models.MaterialRequirement, error) {
	var reqs []models.MaterialRequirement
	if err := c.doJSON(ctx, "GET", "/games/"+url.PathEscape(gameID)+"/materials", nil, nil, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (c *CatalogClient) GetAllPunishments(ctx context.Context) ([]models.Punishment, error) {
	var punishments []models.Punishment
	if err := c.doJSON(ctx, "GET", "/punishments", nil, nil, &punishments); err != nil {
		return nil, err
	}
	return punishments, nil
}

func (c *CatalogClient) GetRandomPunishment(ctx context.Context) (*models.Punishment, error) {
	var p models.Punishment
	if err := c.doJSON(ctx, "GET", "/punishments/random", nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *CatalogClient) CreatePlayer(ctx context.Context, name string) (*models.RemotePlayer, error) {
	var player models.RemotePlayer
	body := map[string]string{"name": name}
	if err := c.doJSON(ctx, "POST", "/players", nil, body, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func (c *CatalogClient) GetPlayer(ctx context.Context, id string) (*models.RemotePlayer, error) {
	var player models.RemotePlayer
	if err := c.doJSON(ctx, "GET", "/players/"+url.PathEscape(id), nil, nil, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func (c *CatalogClient) UpdatePlayer(ctx context.Context, player models.RemotePlayer) error {
	return c.doJSON(ctx, "PUT", "/players/"+url.PathEscape(player.ID), nil, player, nil)
}

func (c *CatalogClient) CreateGameSession(ctx context.Context, session models.RemoteSession) (*models.RemoteSession, error) {
	var created models.RemoteSession
	if err := c.doJSON(ctx, "POST", "/sessions", nil, session, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *CatalogClient) GetGameSession(ctx context.Context, id string) (*models.RemoteSession, error) {
	var session models.RemoteSession
	if err := c.doJSON(ctx, "GET", "/sessions/"+url.PathEscape(id), nil, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *CatalogClient) UpdateGameSession(ctx context.Context, session models.RemoteSession) error {
	return c.doJSON(ctx, "PATCH", "/sessions/"+url.PathEscape(session.ID), nil, session, nil)
}

func (c *CatalogClient) CreateMatchHistory(ctx context.Context, history models.MatchHistory) error {
	return c.doJSON(ctx, "POST", "/match-history", nil, history, nil)
}

func (c *CatalogClient) GetUserMaterials(ctx context.Context, userID string) (*models.MaterialInventory, error) {
	var inv models.MaterialInventory
	if err := c.doJSON(ctx, "GET", "/users/"+url.PathEscape(userID)+"/materials", nil, nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *CatalogClient) UpdateUserMaterials(ctx context.Context, inventory models.MaterialInventory) error {
	return c.doJSON(ctx, "PUT", "/users/"+url.PathEscape(inventory.UserID)+"/materials", nil, inventory, nil)
}
