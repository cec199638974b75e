package books

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/example/summarist/internal/models"
)

var (
	// ErrNotConfigured is returned when no book API URL is set.
	ErrNotConfigured = errors.New("book API is not configured")
	// ErrBookNotFound is returned when neither the detail nor the list
	// endpoint has the requested id.
	ErrBookNotFound = errors.New("book not found")
)

var idPlaceholder = regexp.MustCompile(`\$\{id\}|\{id\}`)

// Fetcher looks up a single book.
type Fetcher interface {
	GetBook(ctx context.Context, id string) (*models.Book, error)
}

// Client reads books from the catalogue API. The base URL either carries an
// {id} (or ${id}) placeholder, or takes the id as a query parameter.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:    strings.TrimSpace(baseURL),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
		logger:     logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) decodedBase() string {
	decoded, err := url.QueryUnescape(c.baseURL)
	if err != nil {
		return c.baseURL
	}
	return decoded
}

// DetailURL returns the URL used to fetch one book.
func (c *Client) DetailURL(id string) string {
	decoded := c.decodedBase()
	if idPlaceholder.MatchString(decoded) {
		return idPlaceholder.ReplaceAllLiteralString(decoded, url.PathEscape(id))
	}
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + "id=" + url.QueryEscape(id)
}

// GetBook fetches the detail URL first. An array answer yields its first
// element. A failed, empty or non-JSON detail answer, or one without a book
// id, falls back to the base URL, searched as a list.
func (c *Client) GetBook(ctx context.Context, id string) (*models.Book, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	body, status, err := c.get(ctx, c.DetailURL(id))
	if err != nil {
		return nil, err
	}
	if status == http.StatusOK {
		if len(bytes.TrimSpace(body)) > 0 {
			book, err := decodeDetail(body)
			switch {
			case err != nil:
				c.logger.Warn("Book detail endpoint returned non-JSON, falling back to list", zap.String("id", id), zap.Error(err))
			case book == nil:
				c.logger.Warn("Book detail endpoint returned no book, falling back to list", zap.String("id", id))
			default:
				return book, nil
			}
		} else {
			c.logger.Warn("Book detail endpoint returned empty body, falling back to list", zap.String("id", id))
		}
	}

	if idPlaceholder.MatchString(c.decodedBase()) {
		return nil, fmt.Errorf("%w: %s", ErrBookNotFound, id)
	}
	body, status, err = c.get(ctx, c.baseURL)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: %s (list status %d)", ErrBookNotFound, id, status)
	}
	list, err := decodeList(body)
	if err != nil {
		return nil, fmt.Errorf("decode book list: %w", err)
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrBookNotFound, id)
}

func (c *Client) get(ctx context.Context, target string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build book request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", target, err)
	}
	return body, resp.StatusCode, nil
}

func decodeDetail(body []byte) (*models.Book, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []models.Book
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		if len(list) == 0 || list[0].ID == "" {
			return nil, nil
		}
		return &list[0], nil
	}
	var book models.Book
	if err := json.Unmarshal(trimmed, &book); err != nil {
		return nil, err
	}
	if book.ID == "" {
		return nil, nil
	}
	return &book, nil
}

// decodeList accepts a top-level array, an {items: [...]} wrapper or a
// single book.
func decodeList(body []byte) ([]models.Book, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []models.Book
		err := json.Unmarshal(trimmed, &list)
		return list, err
	}
	var wrapper struct {
		Items []models.Book `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, err
	}
	if wrapper.Items != nil {
		return wrapper.Items, nil
	}
	var single models.Book
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, err
	}
	return []models.Book{single}, nil
}
