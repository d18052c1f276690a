package scraper

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"rent-scraper/models"
)

// Rejection is the outcome of the filter chain. It is not an error.
type Rejection int

const (
	Accepted Rejection = iota
	RejectPriceSentinel
	RejectKeyword
	RejectBelowMin
	RejectAboveMax
)

func (r Rejection) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectPriceSentinel:
		return "price_sentinel"
	case RejectKeyword:
		return "keyword"
	case RejectBelowMin:
		return "below_min_price"
	case RejectAboveMax:
		return "above_max_price"
	}
	return "unknown"
}

// Rules configures the filter chain.
type Rules struct {
	MinPrice       float64
	MaxPrice       float64
	PriceSentinels []string
	RejectKeywords []string
	ThousandsSep   string
	DecimalSep     string
}

// Validator turns candidates into listings. Safe for concurrent use.
type Validator struct {
	rules     Rules
	sentinels []string
	keywords  *regexp.Regexp
	stripper  *strings.Replacer
}

var (
	errEmptyPrice = errors.New("empty price")
	errMissingURL = errors.New("missing url")
)

func NewValidator(rules Rules) (*Validator, error) {
	if rules.MinPrice > rules.MaxPrice {
		return nil, fmt.Errorf("min price %.2f above max price %.2f", rules.MinPrice, rules.MaxPrice)
	}
	if rules.ThousandsSep == "" {
		rules.ThousandsSep = "."
	}
	if rules.DecimalSep == "" {
		rules.DecimalSep = ","
	}

	v := &Validator{rules: rules}
	for _, s := range rules.PriceSentinels {
		if s = strings.TrimSpace(s); s != "" {
			v.sentinels = append(v.sentinels, strings.ToLower(s))
		}
	}

	var alts []string
	for _, k := range rules.RejectKeywords {
		if k = strings.TrimSpace(k); k != "" {
			alts = append(alts, regexp.QuoteMeta(strings.ToLower(k)))
		}
	}
	if len(alts) > 0 {
		re, err := regexp.Compile(strings.Join(alts, "|"))
		if err != nil {
			return nil, fmt.Errorf("compile reject keywords: %w", err)
		}
		v.keywords = re
	}

	v.stripper = strings.NewReplacer("$", "", " ", "", "\u00a0", "", rules.ThousandsSep, "")
	return v, nil
}

// Check runs the chain in order: price sentinel, keywords, price parsing, range.
// A non-nil error is always a *RecordError; the Rejection is then meaningless.
func (v *Validator) Check(c models.Candidate) (models.Listing, Rejection, error) {
	rawPrice := strings.ToLower(c.RawPrice)
	for _, s := range v.sentinels {
		if strings.Contains(rawPrice, s) {
			return models.Listing{}, RejectPriceSentinel, nil
		}
	}

	if v.keywords != nil {
		text := strings.ToLower(c.Title + " " + c.Description)
		if v.keywords.MatchString(text) {
			return models.Listing{}, RejectKeyword, nil
		}
	}

	price, err := v.ParsePrice(c.RawPrice)
	if err != nil {
		return models.Listing{}, Accepted, &RecordError{URL: c.URL, RawPrice: c.RawPrice, Err: err}
	}

	if price < v.rules.MinPrice {
		return models.Listing{}, RejectBelowMin, nil
	}
	if price > v.rules.MaxPrice {
		return models.Listing{}, RejectAboveMax, nil
	}
	if strings.TrimSpace(c.URL) == "" {
		return models.Listing{}, Accepted, &RecordError{RawPrice: c.RawPrice, Err: errMissingURL}
	}

	return models.Listing{
		ID:      c.ID,
		Price:   price,
		IsOwner: c.IsOwner,
		URL:     c.URL,
	}, Accepted, nil
}

// ParsePrice normalizes "$ 12.500,50" style amounts into 12500.5.
func (v *Validator) ParsePrice(raw string) (float64, error) {
	s := v.stripper.Replace(strings.TrimSpace(raw))
	s = strings.Replace(s, v.rules.DecimalSep, ".", 1)
	if s == "" {
		return 0, errEmptyPrice
	}
	price, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("parse %q: not a finite amount", s)
	}
	return price, nil
}
