// Package cloudinary implements the blob-store collaborator used by the
// retention sweeper. Only deletion is needed server-side; uploads go
// straight from the client to Cloudinary.
package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redflaghq/redflag-platform/internal/retention"
)

type Client struct {
	cloudName string
	apiKey    string
	apiSecret string
	baseURL   string
	hc        *http.Client
}

func New(cloudName, apiKey, apiSecret string) *Client {
	return &Client{
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   "https://api.cloudinary.com",
		hc:        &http.Client{Timeout: 30 * time.Second},
	}
}

type destroyResponse struct {
	Result string `json:"result"`
}

// Delete destroys the blob behind publicID. Cloudinary answers "not found"
// for blobs that no longer exist; that maps to retention.ErrBlobNotFound so
// the sweeper can treat it as done.
func (c *Client) Delete(ctx context.Context, publicID string) error {
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	// Cloudinary signs the sorted parameter string plus the API secret.
	toSign := "public_id=" + publicID + "&timestamp=" + ts + c.apiSecret
	sum := sha1.Sum([]byte(toSign))

	form := url.Values{}
	form.Set("public_id", publicID)
	form.Set("timestamp", ts)
	form.Set("api_key", c.apiKey)
	form.Set("signature", hex.EncodeToString(sum[:]))

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/destroy", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cloudinary destroy: unexpected status %d", resp.StatusCode)
	}

	var out destroyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("cloudinary destroy: decode response: %w", err)
	}

	switch out.Result {
	case "ok":
		return nil
	case "not found":
		return retention.ErrBlobNotFound
	default:
		return fmt.Errorf("cloudinary destroy: result %q", out.Result)
	}
}
