package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	collectionsQueryPath = "stores/v1/collections/query"
	productsQueryPath    = "stores-reader/v1/products/query"
)

var ErrWixRequest = errors.New("wix request failed")

// * WixClient POST-запросы к Wix Stores API с ключом и site id в заголовках.
type WixClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewWixClient(baseURL, apiKey string, timeout time.Duration) *WixClient {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &WixClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type WixCollection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Visible     *bool  `json:"visible"`
}

type WixProduct struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Visible     *bool    `json:"visible"`
	Weight      float64  `json:"weight"`
	PriceData   wixPrice `json:"priceData"`
	Discount    struct {
		Type   string  `json:"type"`
		Amount float64 `json:"amount"`
	} `json:"discount"`
	Media struct {
		MainMedia struct {
			Thumbnail struct {
				URL string `json:"url"`
			} `json:"thumbnail"`
		} `json:"mainMedia"`
	} `json:"media"`
	CollectionIDs          []string `json:"collectionIds"`
	AdditionalInfoSections []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"additionalInfoSections"`
}

type wixPrice struct {
	Price           float64 `json:"price"`
	DiscountedPrice float64 `json:"discountedPrice"`
}

func (c *WixClient) Collections(ctx context.Context, siteID string) ([]WixCollection, error) {
	const op = "catalog.WixClient.Collections"

	var out struct {
		Collections []WixCollection `json:"collections"`
	}

	if err := c.post(ctx, siteID, collectionsQueryPath, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out.Collections, nil
}

func (c *WixClient) Products(ctx context.Context, siteID string) ([]WixProduct, error) {
	const op = "catalog.WixClient.Products"

	var out struct {
		Products []WixProduct `json:"products"`
	}

	if err := c.post(ctx, siteID, productsQueryPath, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out.Products, nil
}

func (c *WixClient) post(ctx context.Context, siteID, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader([]byte("{}")))
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("wix-site-id", siteID)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWixRequest, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("%w: status %d: %s", ErrWixRequest, res.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrWixRequest, err)
	}

	return nil
}
