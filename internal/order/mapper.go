package order

import (
	"encoding/json"

	"nextaz-be/internal/cart"
	"nextaz-be/internal/pricing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ItemsFromCart freezes validated cart lines into order items. Invalid lines
// are skipped; callers reject carts with errors before getting here.
func ItemsFromCart(res *cart.Result) []Item {
	if res == nil {
		return nil
	}

	lines := res.ValidLines()
	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		item := Item{
			ProductID:   l.Line.ItemID(),
			ProductName: l.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TotalPrice:  l.Total,
		}
		for _, s := range l.Selections {
			item.Selections = append(item.Selections, ItemSelection{
				ProductID:   s.ProductID,
				ProductName: s.ProductName,
				Quantity:    s.Quantity,
				UnitPrice:   s.UnitPrice,
			})
		}
		items = append(items, item)
	}
	return items
}

// itemRecord is the JSONB shape of orders.items.
type itemRecord struct {
	ProductID   string            `json:"product_id"`
	ProductName string            `json:"product_name"`
	Quantity    int               `json:"quantity"`
	UnitPrice   json.Number       `json:"unit_price"`
	TotalPrice  json.Number       `json:"total_price"`
	Selections  []selectionRecord `json:"selections,omitempty"`
}

type selectionRecord struct {
	ProductID   string      `json:"product_id"`
	ProductName string      `json:"product_name"`
	Quantity    int         `json:"quantity"`
	UnitPrice   json.Number `json:"unit_price"`
}

func marshalItems(items []Item) ([]byte, error) {
	records := make([]itemRecord, 0, len(items))
	for _, it := range items {
		rec := itemRecord{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   pricing.Amount(it.UnitPrice),
			TotalPrice:  pricing.Amount(it.TotalPrice),
		}
		for _, s := range it.Selections {
			rec.Selections = append(rec.Selections, selectionRecord{
				ProductID:   s.ProductID,
				ProductName: s.ProductName,
				Quantity:    s.Quantity,
				UnitPrice:   pricing.Amount(s.UnitPrice),
			})
		}
		records = append(records, rec)
	}
	return json.Marshal(records)
}

func unmarshalItems(raw []byte) ([]Item, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var records []itemRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, errors.Wrap(err, "decode order items")
	}

	items := make([]Item, 0, len(records))
	for _, rec := range records {
		it := Item{
			ProductID:   rec.ProductID,
			ProductName: rec.ProductName,
			Quantity:    rec.Quantity,
			UnitPrice:   numberToDecimal(rec.UnitPrice),
			TotalPrice:  numberToDecimal(rec.TotalPrice),
		}
		for _, s := range rec.Selections {
			it.Selections = append(it.Selections, ItemSelection{
				ProductID:   s.ProductID,
				ProductName: s.ProductName,
				Quantity:    s.Quantity,
				UnitPrice:   numberToDecimal(s.UnitPrice),
			})
		}
		items = append(items, it)
	}
	return items, nil
}

func numberToDecimal(n json.Number) decimal.Decimal {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
