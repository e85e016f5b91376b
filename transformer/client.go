package transformer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"server/imaging"
	"strconv"
	"time"
)

// ErrUnavailable means the worker could not be reached at all.
var ErrUnavailable = errors.New("transformer unavailable")

// Client talks to a transformer worker. All calls share one bounded timeout
// since image decode is the dominant unbounded-cost operation.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Transform(data []byte, opts imaging.Options) ([]byte, error) {
	params := url.Values{}
	if opts.Width > 0 {
		params.Set("width", strconv.FormatUint(uint64(opts.Width), 10))
	}
	if opts.Height > 0 {
		params.Set("height", strconv.FormatUint(uint64(opts.Height), 10))
	}
	if opts.Quality > 0 {
		params.Set("quality", strconv.Itoa(opts.Quality))
	}
	endpoint := c.BaseURL + "/transform"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	resp, err := c.HTTPClient.Post(endpoint, "application/octet-stream", bytes.NewReader(data))
	if err != nil {
		if IsTimeout(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if err = statusToError(resp.StatusCode); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) Inspect(data []byte) (*imaging.Info, error) {
	resp, err := c.HTTPClient.Post(c.BaseURL+"/info", "application/octet-stream", bytes.NewReader(data))
	if err != nil {
		if IsTimeout(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if err = statusToError(resp.StatusCode); err != nil {
		return nil, err
	}
	info := imaging.Info{}
	if err = json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: %v", imaging.ErrTransform, err)
	}
	return &info, nil
}

func statusToError(status int) error {
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest:
		return imaging.ErrDecode
	case http.StatusRequestEntityTooLarge:
		return imaging.ErrTooLarge
	}
	return fmt.Errorf("%w: worker returned status %d", imaging.ErrTransform, status)
}

// IsTimeout reports whether the error is a client-side deadline expiry,
// as opposed to a worker-side rejection.
func IsTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
