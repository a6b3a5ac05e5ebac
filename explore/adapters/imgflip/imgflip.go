package imgflip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Sarojini27-bose/memeverse/explore/core"
)

const DefaultURL = "https://api.imgflip.com/get_memes"

type Client struct {
	log     *slog.Logger
	url     string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewClient(url string, timeout time.Duration, log *slog.Logger) (*Client, error) {
	if url == "" {
		return nil, errors.New("empty catalog url")
	}
	c := &Client{
		log:  log,
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "imgflip",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return c, nil
}

type memesResp struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message"`
	Data         struct {
		Memes []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"memes"`
	} `json:"data"`
}

// Memes fetches the catalog once. Failures are returned, never retried.
func (c *Client) Memes(ctx context.Context) ([]core.CatalogEntry, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		var resp memesResp
		if err := c.getJSON(ctx, &resp); err != nil {
			return nil, err
		}
		if !resp.Success {
			return nil, fmt.Errorf("catalog request failed: %s", resp.ErrorMessage)
		}
		entries := make([]core.CatalogEntry, 0, len(resp.Data.Memes))
		for _, m := range resp.Data.Memes {
			entries = append(entries, core.CatalogEntry{ID: m.ID, Name: m.Name, URL: m.URL})
		}
		return entries, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", core.ErrUnavailable, err)
		}
		return nil, err
	}
	return out.([]core.CatalogEntry), nil
}

func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	if err := resp.Body.Close(); err != nil {
		c.log.Warn("close response body failed", "error", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Warn("close response body failed", "error", cerr)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog: %w", err)
	}
	return nil
}
