// Package api is the HTTP client for the game authority's REST surface.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"javanese-chess-client/internal/protocol"
	"javanese-chess-client/internal/weights"
)

type Client struct {
	base string
	http *http.Client
	log  *zap.Logger
}

func NewClient(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base: baseURL,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log,
	}
}

// StartGameParams configures a new game.
type StartGameParams struct {
	PlayerNames     []string
	RoomID          string
	NumberOfBots    int
	NumberOfPlayers int
	Weights         weights.Weights
}

type startGameRequest struct {
	NumberBot    int          `json:"number_bot"`
	NumberPlayer int          `json:"number_player"`
	PlayerName   []string     `json:"player_name"`
	RoomID       string       `json:"room_id"`
	Weights      weights.Wire `json:"weights"`
}

// StartGameResult is the authoritative initial game state.
type StartGameResult struct {
	Board     protocol.Board    `json:"board"`
	Players   []protocol.Player `json:"players"`
	RoomCode  string            `json:"room_code"`
	Status    string            `json:"status"`
	TurnOrder []string          `json:"turn_order"`
}

type startGameResponse struct {
	Success bool            `json:"success"`
	Data    StartGameResult `json:"data"`
}

// StartGame creates and starts a game on the authority.
func (c *Client) StartGame(ctx context.Context, p StartGameParams) (*StartGameResult, error) {
	req := startGameRequest{
		NumberBot:    p.NumberOfBots,
		NumberPlayer: p.NumberOfPlayers,
		PlayerName:   p.PlayerNames,
		RoomID:       p.RoomID,
		Weights:      p.Weights.ToWire(),
	}
	var resp startGameResponse
	if err := c.post(ctx, "/api/play", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("start game rejected by server")
	}
	return &resp.Data, nil
}

// JoinRoomResult identifies the joining player within the room.
type JoinRoomResult struct {
	RoomCode string `json:"room_code"`
	PlayerID string `json:"player_id"`
	Status   string `json:"status"`
}

type joinRoomResponse struct {
	Success bool           `json:"success"`
	Data    JoinRoomResult `json:"data"`
}

// JoinRoom registers playerName as a participant of an existing lobby.
func (c *Client) JoinRoom(ctx context.Context, roomCode, playerName string) (*JoinRoomResult, error) {
	req := map[string]string{
		"room_code":   roomCode,
		"player_name": playerName,
	}
	var resp joinRoomResponse
	if err := c.post(ctx, "/api/join", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

type weightsResponse struct {
	Weights weights.Wire `json:"weights"`
}

// DefaultWeights fetches the authority's stock heuristic weights.
func (c *Client) DefaultWeights(ctx context.Context) (weights.Weights, error) {
	var resp weightsResponse
	if err := c.get(ctx, "/api/config/weights/default", &resp); err != nil {
		return weights.Weights{}, err
	}
	return weights.FromWire(resp.Weights), nil
}

// RoomWeights fetches the weights configured for a specific room.
func (c *Client) RoomWeights(ctx context.Context, roomCode string) (weights.Weights, error) {
	var resp weightsResponse
	path := "/api/config/weights/room?roomCode=" + url.QueryEscape(roomCode)
	if err := c.get(ctx, path, &resp); err != nil {
		return weights.Weights{}, err
	}
	return weights.FromWire(resp.Weights), nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
