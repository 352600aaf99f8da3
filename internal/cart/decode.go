package cart

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// wireLine is the storefront's cart item as posted by the browser. Price
// fields are decoded for display echo only and never priced from.
type wireLine struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	Name       string              `json:"name"`
	Price      decimal.NullDecimal `json:"price"`
	Quantity   json.Number         `json:"quantity"`
	BundleSlug string              `json:"bundleSlug"`
	Selections []wireSelection     `json:"selections"`
	TotalPrice decimal.NullDecimal `json:"totalPrice"`
}

type wireSelection struct {
	ProductID   string      `json:"productId"`
	ProductName string      `json:"productName"`
	Quantity    json.Number `json:"quantity"`
}

// DecodeLines turns raw JSON cart items into Lines, one per input, in order.
// Items that do not decode into a known kind become RejectedLine.
func DecodeLines(raws []json.RawMessage) []Line {
	lines := make([]Line, 0, len(raws))
	for _, raw := range raws {
		lines = append(lines, DecodeLine(raw))
	}
	return lines
}

func DecodeLine(raw json.RawMessage) Line {
	var w wireLine
	if err := json.Unmarshal(raw, &w); err != nil {
		return RejectedLine{Reason: ErrMalformedLine}
	}

	qty := quantity(w.Quantity)

	switch Kind(strings.TrimSpace(w.Type)) {
	case KindProduct:
		return SimpleLine{ID: w.ID, Name: w.Name, ClaimedPrice: w.Price.Decimal, Quantity: qty}
	case KindPackage:
		return PackageLine{ID: w.ID, Name: w.Name, ClaimedPrice: w.Price.Decimal, Quantity: qty}
	case KindBundle:
		if w.BundleSlug == "" || w.Selections == nil {
			return RejectedLine{
				ID: w.ID, Type: w.Type, Name: w.Name,
				ClaimedPrice: w.Price.Decimal, Quantity: qty,
				Reason: ErrMalformedLine,
			}
		}
		line := BundleLine{
			ID:           w.ID,
			BundleSlug:   w.BundleSlug,
			Name:         w.Name,
			ClaimedPrice: w.TotalPrice.Decimal,
		}
		for _, s := range w.Selections {
			line.Selections = append(line.Selections, Selection{
				ProductID:   s.ProductID,
				ProductName: s.ProductName,
				Quantity:    quantity(s.Quantity),
			})
		}
		return line
	default:
		return RejectedLine{
			ID: w.ID, Type: w.Type, Name: w.Name,
			ClaimedPrice: w.Price.Decimal, Quantity: qty,
			Reason: ErrUnknownKind,
		}
	}
}

// quantity accepts whole numbers only; anything else counts as zero and is
// rejected later as an invalid quantity.
func quantity(n json.Number) int {
	if n == "" {
		return 0
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}
