package pricing

import (
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

const (
	DefaultPackageMultiplier = 4
	DefaultCurrency          = "RON"
)

var DefaultDepositPerBottle = decimal.RequireFromString("0.50")

var (
	ErrNegativeDeposit   = errors.New("deposit per bottle must not be negative")
	ErrInvalidMultiplier = errors.New("package multiplier must be at least 1")
	ErrMissingCurrency   = errors.New("currency is required")
)

// Config holds the pricing constants. It is built once at start-up and
// passed by value, so it cannot change under a running request.
type Config struct {
	depositPerBottle  decimal.Decimal
	packageMultiplier int
	currency          string
}

func NewConfig(depositPerBottle decimal.Decimal, packageMultiplier int, currency string) (Config, error) {
	if depositPerBottle.IsNegative() {
		return Config{}, ErrNegativeDeposit
	}
	if packageMultiplier < 1 {
		return Config{}, ErrInvalidMultiplier
	}
	if currency == "" {
		return Config{}, ErrMissingCurrency
	}

	return Config{
		depositPerBottle:  depositPerBottle,
		packageMultiplier: packageMultiplier,
		currency:          currency,
	}, nil
}

func DefaultConfig() Config {
	return Config{
		depositPerBottle:  DefaultDepositPerBottle,
		packageMultiplier: DefaultPackageMultiplier,
		currency:          DefaultCurrency,
	}
}

func (c Config) DepositPerBottle() decimal.Decimal { return c.depositPerBottle }
func (c Config) PackageMultiplier() int            { return c.packageMultiplier }
func (c Config) Currency() string                  { return c.currency }

// Unit says how one purchased unit translates into bottles.
type Unit int

const (
	UnitBottle Unit = iota
	UnitPackage
)

// Contribution is the bottle footprint of one validated line.
type Contribution struct {
	Unit     Unit
	Quantity int
}

// Calculator derives bottle counts and the SGR deposit from validated lines.
type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

func (c *Calculator) Config() Config { return c.cfg }

// Bottles returns the bottles occupied by quantity units. Non-positive
// quantities occupy nothing.
func (c *Calculator) Bottles(unit Unit, quantity int) int {
	if quantity <= 0 {
		return 0
	}
	if unit == UnitPackage {
		return quantity * c.cfg.packageMultiplier
	}
	return quantity
}

func (c *Calculator) BottleCount(lines []Contribution) int {
	total := 0
	for _, l := range lines {
		total += c.Bottles(l.Unit, l.Quantity)
	}
	return total
}

// Deposit is linear in the bottle count.
func (c *Calculator) Deposit(bottleCount int) decimal.Decimal {
	if bottleCount <= 0 {
		return decimal.Zero
	}
	return c.cfg.depositPerBottle.Mul(decimal.NewFromInt(int64(bottleCount)))
}

// Total is subtotal plus the deposit for bottleCount bottles.
func (c *Calculator) Total(subtotal decimal.Decimal, bottleCount int) decimal.Decimal {
	return subtotal.Add(c.Deposit(bottleCount))
}

// Round rounds to the currency's minor unit.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Amount renders d as an exact JSON number with two decimals.
func Amount(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}
