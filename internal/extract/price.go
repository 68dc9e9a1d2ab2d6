package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	amountPattern   = `(\d+[.,]\d{2})`
	currencyPattern = `\s*(?:€|EUR)`
	dashPattern     = `\s*[-‐‒–—―]\s*`
)

var (
	spaceNormalizer = strings.NewReplacer("\u00a0", " ", "\u202f", " ", "&nbsp;", " ", "&#160;", " ")
	priceRangeRe    = regexp.MustCompile(`(?i)` + amountPattern + currencyPattern + dashPattern + amountPattern + currencyPattern)
	singlePriceRe   = regexp.MustCompile(`(?i)` + amountPattern + currencyPattern)
)

// PriceRange is a vendor's low and high offer. A single advertised amount
// yields Low == High.
type PriceRange struct {
	Low  decimal.Decimal
	High decimal.Decimal
}

// ParsePriceText finds the first price range, or failing that the first single
// price, in free text such as "12,50 € – 15,00 €".
func ParsePriceText(text string) (PriceRange, bool) {
	text = spaceNormalizer.Replace(text)
	if m := priceRangeRe.FindStringSubmatch(text); m != nil {
		low, errLow := parseAmount(m[1])
		high, errHigh := parseAmount(m[2])
		if errLow == nil && errHigh == nil {
			if high.LessThan(low) {
				low, high = high, low
			}
			return PriceRange{Low: low, High: high}, true
		}
	}
	if m := singlePriceRe.FindStringSubmatch(text); m != nil {
		amount, err := parseAmount(m[1])
		if err == nil {
			return PriceRange{Low: amount, High: amount}, true
		}
	}
	return PriceRange{}, false
}

// FormatEUR renders d the way vendors print it, so that ParsePriceText of the
// output yields d again.
func FormatEUR(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1) + " €"
}

func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.Replace(s, ",", ".", 1))
}
