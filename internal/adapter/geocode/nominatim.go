package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"placetale/internal/domain"
)

// NominatimClient performs reverse geocoding against a Nominatim instance.
// The raw display name is returned as-is; formatting is left to callers.
type NominatimClient struct {
	BaseURL string
	Client  *http.Client
}

func NewNominatimClient(baseURL string, client *http.Client) *NominatimClient {
	return &NominatimClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
}

// ReverseLabel returns the display label for a point.
func (c *NominatimClient) ReverseLabel(ctx context.Context, point domain.GeoPoint) (string, error) {
	q := url.Values{
		"format": {"jsonv2"},
		"lat":    {fmt.Sprintf("%.6f", point.Lat)},
		"lon":    {fmt.Sprintf("%.6f", point.Lon)},
		"zoom":   {"14"},
	}
	reqURL := fmt.Sprintf("%s/reverse?%s", c.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create reverse geocode request: %w", err)
	}
	req.Header.Set("User-Agent", "placetale/1.0")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocode call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocode returned %d", resp.StatusCode)
	}

	var decoded reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode reverse geocode response: %w", err)
	}
	if strings.TrimSpace(decoded.DisplayName) == "" {
		return "", fmt.Errorf("reverse geocode returned empty label")
	}

	return decoded.DisplayName, nil
}

var _ domain.Geocoder = (*NominatimClient)(nil)
