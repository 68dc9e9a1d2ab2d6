package extract

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// conditionFields are the grade prices of the sell4more product API, best grade first.
var conditionFields = []string{"priceLikeNew", "priceVeryGood", "priceGood", "priceAcceptable"}

// ConditionQuote is one vendor's answer reduced to its best grade price.
type ConditionQuote struct {
	VendorName string
	Title      string
	Best       decimal.Decimal
}

// ParseConditionQuote reads a price-by-condition payload. Grades that are
// missing, non numeric or not positive are ignored; the vendor name falls back
// to fallbackVendor when the payload does not carry one.
func ParseConditionQuote(payload []byte, fallbackVendor string) (ConditionQuote, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return ConditionQuote{}, false
	}

	var (
		best  decimal.Decimal
		found bool
	)
	for _, name := range conditionFields {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		price, ok := parseGrade(raw)
		if !ok || !price.IsPositive() {
			continue
		}
		if !found || price.GreaterThan(best) {
			best = price
			found = true
		}
	}
	if !found {
		return ConditionQuote{}, false
	}

	vendor := stringField(fields, "vendorName")
	if vendor == "" {
		vendor = fallbackVendor
	}
	return ConditionQuote{
		VendorName: vendor,
		Title:      stringField(fields, "name"),
		Best:       best,
	}, true
}

func parseGrade(raw json.RawMessage) (decimal.Decimal, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return decimal.Decimal{}, false
	}
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	d, err := decimal.NewFromString(s)
	return d, err == nil
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
