package meetings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mentoji/platform/pkg/logging"
)

const defaultTimeout = 10 * time.Second

// Room is a provisioned video meeting room.
type Room struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// RoomConfig controls room provisioning.
type RoomConfig struct {
	// Name is the requested room name; the provider may suffix it.
	Name string
	// ExpiresAt closes the room after the session window.
	ExpiresAt time.Time
}

// DailyClient provisions video rooms through the Daily REST API.
type DailyClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewDailyClient creates a Daily API client. Returns nil when no API key is
// configured so callers can fall back cleanly.
func NewDailyClient(apiKey, baseURL string, logger *logging.Logger) *DailyClient {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if baseURL == "" {
		baseURL = "https://api.daily.co"
	}
	return &DailyClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// CreateRoom provisions a private room.
func (c *DailyClient) CreateRoom(ctx context.Context, cfg RoomConfig) (*Room, error) {
	payload := map[string]any{
		"name":    cfg.Name,
		"privacy": "private",
		"properties": map[string]any{
			"enable_prejoin_ui": true,
			"eject_at_room_exp": true,
		},
	}
	if !cfg.ExpiresAt.IsZero() {
		payload["properties"].(map[string]any)["exp"] = cfg.ExpiresAt.Unix()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("meetings: encode room request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/rooms", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("meetings: room request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("meetings: room http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("meetings: room api status %d: %s", resp.StatusCode, string(data))
	}

	var room Room
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		return nil, fmt.Errorf("meetings: decode room: %w", err)
	}
	if room.URL == "" {
		return nil, fmt.Errorf("meetings: room response missing url")
	}
	return &room, nil
}
