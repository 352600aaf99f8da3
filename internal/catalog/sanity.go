package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nextaz-be/internal/logger"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	sanityDefaultAPIVersion = "2024-01-01"
	emptyParamPlaceholder   = "__none__"
	maxSanityResponse       = 4 << 20
)

// cartValidationQuery fetches products by _id and bundles by slug from the
// shop singleton in one request.
const cartValidationQuery = `{
  "products": *[_type == "product" && _id in $productIds]{
    _id,
    name,
    price
  },
  "shop": *[_type == "shop" && _id == "shop"][0]{
    "bundles": bundles[slug.current in $bundleSlugs]{
      "id": slug.current,
      name,
      bottleCount,
      wineDiscounts[]{
        "productId": product->_id,
        "productName": product->name,
        "basePrice": product->price,
        discountPercent
      }
    }
  }
}`

type SanityConfig struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	// BaseURL overrides https://<project>.api.sanity.io.
	BaseURL string
}

type sanityOracle struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

func NewSanityOracle(cfg SanityConfig) Oracle {
	if cfg.ProjectID == "" && cfg.BaseURL == "" {
		logger.L().Warn("Sanity project id is empty")
	}

	base := cfg.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.api.sanity.io", cfg.ProjectID)
	}
	version := cfg.APIVersion
	if version == "" {
		version = sanityDefaultAPIVersion
	}

	return &sanityOracle{
		endpoint: fmt.Sprintf("%s/v%s/data/query/%s",
			strings.TrimRight(base, "/"), strings.TrimPrefix(version, "v"), cfg.Dataset),
		token: cfg.Token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sanityRequest struct {
	Query  string                 `json:"query"`
	Params map[string]interface{} `json:"params"`
}

type sanityProduct struct {
	ID    string              `json:"_id"`
	Name  string              `json:"name"`
	Price decimal.NullDecimal `json:"price"`
}

type sanityWineDiscount struct {
	ProductID       string              `json:"productId"`
	ProductName     string              `json:"productName"`
	BasePrice       decimal.NullDecimal `json:"basePrice"`
	DiscountPercent decimal.NullDecimal `json:"discountPercent"`
}

type sanityBundle struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	BottleCount   int                  `json:"bottleCount"`
	WineDiscounts []sanityWineDiscount `json:"wineDiscounts"`
}

type sanityResponse struct {
	Result *struct {
		Products []sanityProduct `json:"products"`
		Shop     *struct {
			Bundles []sanityBundle `json:"bundles"`
		} `json:"shop"`
	} `json:"result"`
	Error *struct {
		Description string `json:"description"`
	} `json:"error"`
}

func (s *sanityOracle) Lookup(ctx context.Context, q Query) (*Snapshot, error) {
	productIDs := unique(q.ProductIDs)
	bundleSlugs := unique(q.BundleSlugs)

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "catalog"),
		zap.String("method", "Lookup"),
		zap.Int("product_count", len(productIDs)),
		zap.Int("bundle_count", len(bundleSlugs)),
	)

	if len(productIDs) == 0 && len(bundleSlugs) == 0 {
		return NewSnapshot(nil, nil), nil
	}

	body, err := json.Marshal(sanityRequest{
		Query: cartValidationQuery,
		Params: map[string]interface{}{
			"productIds":  orPlaceholder(productIDs),
			"bundleSlugs": orPlaceholder(bundleSlugs),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal catalog query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build catalog request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Error("catalog request failed", zap.Error(err))
		return nil, errors.Wrap(err, "catalog request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSanityResponse))
	if err != nil {
		return nil, errors.Wrap(err, "read catalog response")
	}

	var decoded sanityResponse
	decodeErr := json.Unmarshal(raw, &decoded)

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && decoded.Error != nil && decoded.Error.Description != "" {
			msg = decoded.Error.Description
		}
		log.Error("catalog returned non-success status",
			zap.Int("http_status", resp.StatusCode),
			zap.String("message", msg),
		)
		return nil, errors.Errorf("catalog error (HTTP %d): %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		log.Error("failed decoding catalog response", zap.Error(decodeErr))
		return nil, errors.Wrap(decodeErr, "decode catalog response")
	}

	snap := toSnapshot(decoded)
	log.Debug("catalog lookup done")
	return snap, nil
}

func toSnapshot(r sanityResponse) *Snapshot {
	if r.Result == nil {
		return NewSnapshot(nil, nil)
	}

	products := make([]Product, 0, len(r.Result.Products))
	for _, p := range r.Result.Products {
		if !p.Price.Valid {
			continue
		}
		products = append(products, Product{ID: p.ID, Name: p.Name, Price: p.Price.Decimal})
	}

	var bundles []Bundle
	if r.Result.Shop != nil {
		for _, b := range r.Result.Shop.Bundles {
			bundle := Bundle{Slug: b.ID, Name: b.Name, BottleCount: b.BottleCount}
			for _, w := range b.WineDiscounts {
				if w.ProductID == "" || !w.BasePrice.Valid {
					continue
				}
				bundle.Wines = append(bundle.Wines, WineDiscount{
					ProductID:       w.ProductID,
					ProductName:     w.ProductName,
					BasePrice:       w.BasePrice.Decimal,
					DiscountPercent: w.DiscountPercent.Decimal,
				})
			}
			bundles = append(bundles, bundle)
		}
	}

	return NewSnapshot(products, bundles)
}

func unique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// GROQ's `in` needs a non-empty array.
func orPlaceholder(ids []string) []string {
	if len(ids) == 0 {
		return []string{emptyParamPlaceholder}
	}
	return ids
}
