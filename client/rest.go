package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ESCveloc/RBR-sub000/game"
)

// RESTClient talks to the external persistence collaborator. The realtime
// core never persists anything itself; mutations go through here and come
// back to every room member as authoritative STATE_DELTA broadcasts.
type RESTClient struct {
	baseURL string
	http    *http.Client
}

// NewRESTClient creates a client for the collaborator at baseURL.
func NewRESTClient(baseURL string, httpClient *http.Client) *RESTClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &RESTClient{baseURL: baseURL, http: httpClient}
}

// FetchState reads the current authoritative snapshot for a game.
func (r *RESTClient) FetchState(ctx context.Context, gameID string) (*game.Snapshot, error) {
	url := fmt.Sprintf("%s/api/games/%s/state", r.baseURL, gameID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch state: unexpected status %d", resp.StatusCode)
	}

	var snap game.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("fetch state: %w", err)
	}
	return &snap, nil
}

// PersistMutation posts a mutation and returns the canonical delta. Shaped
// as a PersistFunc factory so it plugs straight into Mutator.Do.
func (r *RESTClient) PersistMutation(gameID, kind string, data json.RawMessage) PersistFunc {
	return func(ctx context.Context, mutationID string) (game.StateDelta, error) {
		body, err := json.Marshal(game.StateDelta{
			MutationID: mutationID,
			Kind:       kind,
			Data:       data,
		})
		if err != nil {
			return game.StateDelta{}, err
		}

		url := fmt.Sprintf("%s/api/games/%s/mutations", r.baseURL, gameID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return game.StateDelta{}, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.http.Do(req)
		if err != nil {
			return game.StateDelta{}, fmt.Errorf("persist mutation: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return game.StateDelta{}, fmt.Errorf("persist mutation: unexpected status %d", resp.StatusCode)
		}

		var delta game.StateDelta
		if err := json.NewDecoder(resp.Body).Decode(&delta); err != nil {
			return game.StateDelta{}, fmt.Errorf("persist mutation: %w", err)
		}
		return delta, nil
	}
}
