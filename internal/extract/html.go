package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PurchasePriceLabel heads the buy-back price section on sell4more pages.
const PurchasePriceLabel = "Ankaufpreise"

// Strategy records which step of the markup extraction produced a price.
type Strategy string

const (
	StrategyLabel   Strategy = "label"
	StrategyElement Strategy = "element"
	StrategyRaw     Strategy = "raw"
)

type Extraction struct {
	Range    PriceRange
	Strategy Strategy
}

// ExtractPriceFromHTML pulls a price out of a vendor page. Steps, first match wins:
//  1. the nearest block enclosing the purchase price label that holds a price
//  2. the first innermost visible element whose text looks like a price
//  3. a regex scan over the raw document
func ExtractPriceFromHTML(doc []byte) (Extraction, bool) {
	return ExtractPriceFromHTMLWithLabel(doc, PurchasePriceLabel)
}

func ExtractPriceFromHTMLWithLabel(doc []byte, label string) (Extraction, bool) {
	parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err == nil {
		if r, ok := fromLabel(parsed, label); ok {
			return Extraction{Range: r, Strategy: StrategyLabel}, true
		}
		if r, ok := fromElements(parsed); ok {
			return Extraction{Range: r, Strategy: StrategyElement}, true
		}
	}
	if r, ok := ParsePriceText(string(doc)); ok {
		return Extraction{Range: r, Strategy: StrategyRaw}, true
	}
	return Extraction{}, false
}

func fromLabel(doc *goquery.Document, label string) (PriceRange, bool) {
	if label == "" {
		return PriceRange{}, false
	}
	el := innermost(doc.Find("body *"), func(s *goquery.Selection) bool {
		return strings.Contains(s.Text(), label)
	})
	if el == nil {
		return PriceRange{}, false
	}
	// Nearest enclosing block with a price, stopping short of body.
	var (
		r  PriceRange
		ok bool
	)
	el.AddSelection(el.ParentsUntil("body")).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		r, ok = ParsePriceText(s.Text())
		return !ok
	})
	return r, ok
}

func fromElements(doc *goquery.Document) (PriceRange, bool) {
	candidates := doc.Find("body *").Not("script, style, noscript, template")
	el := innermost(candidates, func(s *goquery.Selection) bool {
		_, ok := ParsePriceText(s.Text())
		return ok
	})
	if el == nil {
		return PriceRange{}, false
	}
	return ParsePriceText(el.Text())
}

// innermost returns the first element in document order that satisfies match
// while none of its children do.
func innermost(sel *goquery.Selection, match func(*goquery.Selection) bool) *goquery.Selection {
	var found *goquery.Selection
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !match(s) {
			return true
		}
		matchingChild := s.Children().FilterFunction(func(_ int, c *goquery.Selection) bool {
			return match(c)
		})
		if matchingChild.Length() > 0 {
			return true
		}
		found = s
		return false
	})
	return found
}
