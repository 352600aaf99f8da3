package cart

import (
	"context"

	"nextaz-be/internal/catalog"
	"nextaz-be/internal/logger"
	"nextaz-be/internal/pricing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// Revalidator reprices a submitted cart from catalog data.
type Revalidator interface {
	Validate(ctx context.Context, lines []Line) (*Result, error)
}

type revalidator struct {
	oracle catalog.Oracle
	calc   *pricing.Calculator
}

func NewRevalidator(oracle catalog.Oracle, calc *pricing.Calculator) Revalidator {
	return &revalidator{oracle: oracle, calc: calc}
}

// Validate never trusts a submitted price. Line problems are collected into
// Result.Errors; only a catalog failure returns an error.
func (v *revalidator) Validate(ctx context.Context, lines []Line) (*Result, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Validate"),
		zap.Int("line_count", len(lines)),
	)

	snap, err := v.oracle.Lookup(ctx, collectQuery(lines))
	if err != nil {
		log.Error("catalog lookup failed", zap.Error(err))
		return nil, errors.Wrap(err, "catalog lookup")
	}

	res := &Result{
		Lines:    make([]LineResult, 0, len(lines)),
		Subtotal: decimal.Zero,
	}
	contributions := make([]pricing.Contribution, 0, len(lines))

	for i, line := range lines {
		lr, unit := v.validateLine(snap, line)
		lr.Index = i
		lr.Line = line

		if lr.Err != nil {
			log.Info("cart line rejected",
				zap.Int("index", i),
				zap.String("kind", string(line.Kind())),
				zap.String("item_id", line.ItemID()),
				zap.String("reason", lr.Err.Error()),
			)
			res.Errors = append(res.Errors, lr.Err)
		} else {
			res.Subtotal = res.Subtotal.Add(lr.Total)
			contributions = append(contributions, pricing.Contribution{Unit: unit, Quantity: lr.bottleUnits()})
		}
		res.Lines = append(res.Lines, lr)
	}

	res.BottleCount = v.calc.BottleCount(contributions)
	res.Deposit = v.calc.Deposit(res.BottleCount)
	res.Total = res.Subtotal.Add(res.Deposit)

	log.Debug("cart validated",
		zap.String("subtotal", res.Subtotal.StringFixed(2)),
		zap.Int("bottle_count", res.BottleCount),
		zap.Int("error_count", len(res.Errors)),
	)

	return res, nil
}

func (v *revalidator) validateLine(snap *catalog.Snapshot, line Line) (LineResult, pricing.Unit) {
	switch l := line.(type) {
	case SimpleLine:
		return v.validateProduct(snap, KindProduct, l.ID, l.Name, l.Quantity, pricing.UnitBottle), pricing.UnitBottle
	case PackageLine:
		return v.validateProduct(snap, KindPackage, l.ID, l.Name, l.Quantity, pricing.UnitPackage), pricing.UnitPackage
	case BundleLine:
		return v.validateBundle(snap, l), pricing.UnitBottle
	case RejectedLine:
		reason := l.Reason
		if reason == nil {
			reason = ErrUnknownKind
		}
		return LineResult{Err: &InvalidLineError{Name: l.Name, Reason: reason}}, pricing.UnitBottle
	default:
		return LineResult{Err: &InvalidLineError{Name: line.DisplayName(), Reason: ErrUnknownKind}}, pricing.UnitBottle
	}
}

func (v *revalidator) validateProduct(
	snap *catalog.Snapshot,
	kind Kind,
	id, name string,
	qty int,
	unit pricing.Unit,
) LineResult {
	if qty <= 0 {
		return LineResult{Err: &InvalidLineError{Name: name, Reason: ErrInvalidQuantity}}
	}

	p, ok := snap.Product(id)
	if !ok {
		return LineResult{Err: &ItemNotFoundError{Kind: kind, Name: name}}
	}

	return LineResult{
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  qty,
		Total:     pricing.Round(p.Price.Mul(decimal.NewFromInt(int64(qty)))),
		Bottles:   v.calc.Bottles(unit, qty),
	}
}

func (v *revalidator) validateBundle(snap *catalog.Snapshot, l BundleLine) LineResult {
	b, ok := snap.Bundle(l.BundleSlug)
	if !ok {
		return LineResult{Err: &ItemNotFoundError{Kind: KindBundle, Name: l.Name}}
	}
	if b.BottleCount <= 0 {
		return LineResult{Err: &BundleConfigurationError{Problem: BundleInvalidDefinition, Bundle: l.Name}}
	}

	selected := l.SelectedBottles()
	if selected != b.BottleCount {
		return LineResult{Err: &BundleConfigurationError{
			Problem:  BundleCountMismatch,
			Bundle:   l.Name,
			Required: b.BottleCount,
			Actual:   selected,
		}}
	}

	total := decimal.Zero
	selections := make([]ValidatedSelection, 0, len(l.Selections))
	for _, s := range l.Selections {
		if s.Quantity <= 0 {
			continue
		}

		w, ok := b.Discount(s.ProductID)
		if !ok {
			return LineResult{Err: &BundleConfigurationError{
				Problem: BundleIneligibleWine,
				Bundle:  l.Name,
				Wine:    s.ProductName,
			}}
		}
		if w.DiscountPercent.IsNegative() || w.DiscountPercent.GreaterThan(hundred) {
			return LineResult{Err: &BundleConfigurationError{Problem: BundleInvalidDefinition, Bundle: l.Name}}
		}

		unitPrice := DiscountedPrice(w.BasePrice, w.DiscountPercent)
		lineTotal := pricing.Round(unitPrice.Mul(decimal.NewFromInt(int64(s.Quantity))))
		total = total.Add(lineTotal)

		selections = append(selections, ValidatedSelection{
			ProductID:       s.ProductID,
			ProductName:     w.ProductName,
			Quantity:        s.Quantity,
			DiscountPercent: w.DiscountPercent,
			UnitPrice:       pricing.Round(unitPrice),
			Total:           lineTotal,
		})
	}

	name := b.Name
	if name == "" {
		name = l.Name
	}

	return LineResult{
		Name:       name,
		UnitPrice:  total,
		Quantity:   1,
		Total:      total,
		Bottles:    selected,
		Selections: selections,
	}
}

// DiscountedPrice is base × (1 − pct/100), unrounded.
func DiscountedPrice(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(hundred.Sub(pct)).Div(hundred)
}

// bottleUnits is the quantity handed to the calculator: purchased units for
// products and packages, selected bottles for bundles.
func (r LineResult) bottleUnits() int {
	if _, ok := r.Line.(BundleLine); ok {
		return r.Bottles
	}
	return r.Quantity
}

func collectQuery(lines []Line) catalog.Query {
	var q catalog.Query
	for _, line := range lines {
		switch l := line.(type) {
		case SimpleLine:
			q.ProductIDs = append(q.ProductIDs, l.ID)
		case PackageLine:
			q.ProductIDs = append(q.ProductIDs, l.ID)
		case BundleLine:
			q.BundleSlugs = append(q.BundleSlugs, l.BundleSlug)
		}
	}
	return q
}
