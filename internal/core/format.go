package core

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultBaseLabel is appended to amounts displayed in the base currency.
const DefaultBaseLabel = "so'm"

var (
	half     = decimal.NewFromFloat(0.5)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
)

// Formatter renders base-currency amounts for display in either currency.
type Formatter struct {
	BaseLabel     string
	ForeignSymbol string

	printer   *message.Printer
	separator string
}

// NewFormatter builds a formatter grouping digits the way locale does.
// Empty labels fall back to "so'm" and the USD grapheme.
func NewFormatter(locale language.Tag, baseLabel, foreignSymbol string) *Formatter {
	if baseLabel == "" {
		baseLabel = DefaultBaseLabel
	}
	if foreignSymbol == "" {
		foreignSymbol = foreignGrapheme()
	}
	printer := message.NewPrinter(locale)
	return &Formatter{
		BaseLabel:     baseLabel,
		ForeignSymbol: foreignSymbol,
		printer:       printer,
		separator:     groupSeparator(printer),
	}
}

// Format renders base as a display string. In the foreign currency the
// amount is divided by rate and shown with two decimals; in the base
// currency it is rounded to an integer and grouped with thousands separators.
func (f *Formatter) Format(base decimal.Decimal, display Currency, rate decimal.Decimal) string {
	if display.IsForeign() {
		return f.ForeignSymbol + base.Div(ClampRate(rate)).StringFixed(2)
	}
	// floor(x + 0.5) rounds halves up, negatives included
	n := base.Add(half).Floor()
	if n.Abs().LessThanOrEqual(maxInt64) {
		return f.printer.Sprintf("%d", n.IntPart()) + " " + f.BaseLabel
	}
	return f.group(n.BigInt().String()) + " " + f.BaseLabel
}

// group inserts the locale separator every three digits of an integer
// too large for the printer's int64 path.
func (f *Formatter) group(digits string) string {
	var b strings.Builder
	if strings.HasPrefix(digits, "-") {
		b.WriteByte('-')
		digits = digits[1:]
	}
	for i := 0; i < len(digits); i++ {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteString(f.separator)
		}
		b.WriteByte(digits[i])
	}
	return b.String()
}

// groupSeparator extracts the thousands separator the printer uses.
func groupSeparator(p *message.Printer) string {
	s := p.Sprintf("%d", 1000)
	sep, ok := strings.CutPrefix(s, "1")
	if ok {
		sep, ok = strings.CutSuffix(sep, "000")
	}
	if !ok || utf8.RuneCountInString(sep) > 1 {
		return ","
	}
	return sep
}

func foreignGrapheme() string {
	if c := money.GetCurrency(money.USD); c != nil && c.Grapheme != "" {
		return c.Grapheme
	}
	return "$"
}
