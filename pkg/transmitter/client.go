package transmitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/robotalks/relayrx/pkg/configurator"
	"github.com/robotalks/relayrx/pkg/relay"
)

// ErrRejected is returned when the configurator refuses an assignment.
var ErrRejected = errors.New("assignment rejected")

// Client talks to a receiver's configurator.
type Client struct {
	BaseURL  string
	Password string
	HTTP     *http.Client
}

// NewClient creates a Client.
func NewClient(baseURL, password string) *Client {
	return &Client{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		Password: password,
		HTTP:     &http.Client{Timeout: configurator.RequestTimeout * 2},
	}
}

// StatusError is a non-200 reply.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("configurator: %d %s", e.Code, e.Message)
}

// Unwrap classifies refused assignments.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusConflict:
		return relay.ErrDuplicateLine
	case http.StatusBadRequest:
		return ErrRejected
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	body := strings.NewReader("")
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.Password != "" {
		req.SetBasicAuth("relaytx", c.Password)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	return data, nil
}

// Channels fetches the current channel map.
func (c *Client) Channels(ctx context.Context) ([]relay.Channel, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/config", nil)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Relays []relay.Channel `json:"relays"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Relays, nil
}

// State fetches the receiver state.
func (c *Client) State(ctx context.Context) (*configurator.StateDoc, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/state", nil)
	if err != nil {
		return nil, err
	}
	var doc configurator.StateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Remap replaces the whole assignment.
func (c *Client) Remap(ctx context.Context, a relay.Assignment) error {
	form := url.Values{}
	for i, line := range a {
		form.Set("pin_"+strconv.Itoa(i), strconv.Itoa(int(line)))
	}
	_, err := c.do(ctx, http.MethodPost, "/save", form)
	return err
}

// Reboot asks the receiver to restart.
func (c *Client) Reboot(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/reboot", nil)
	return err
}
