package backupclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrDisabled = errors.New("backup service is not configured")

// Client — сайдкар pgbackup: GET /cgi-bin/backup снимает дамп базы оценок.
type Client struct {
	baseURL string
	http    *http.Client
}

// New — пустой baseURL отключает бэкапы (Trigger вернёт ErrDisabled).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *Client) Enabled() bool { return c != nil && c.baseURL != "" }

// Trigger — снять бэкап; возвращает ответ сервиса (имя дампа).
func (c *Client) Trigger(ctx context.Context) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	return c.do(ctx, "/cgi-bin/backup")
}

func (c *Client) do(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("%s: http %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return strings.TrimSpace(string(body)), nil
}
