// Package mercadolibre extracts rental listings from inmuebles.mercadolibre.com.ar.
package mercadolibre

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"rent-scraper/models"
	"rent-scraper/scraper"
)

const (
	AgenciesURL = "https://inmuebles.mercadolibre.com.ar/departamentos/alquiler/1-dormitorio/cordoba/cordoba/inmobiliaria/nueva-cordoba/_Desde_"
	OwnersURL   = "https://inmuebles.mercadolibre.com.ar/departamentos/alquiler/1-dormitorio/cordoba/cordoba/dueno-directo/nueva-cordoba/_Desde_"
)

const itemSelector = "li.results-item"

var (
	reTotal      = regexp.MustCompile(`(\d[\d.]*)`)
	reListingID  = regexp.MustCompile(`MLA-?(\d+)`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

type Site struct {
	seeds []models.Seed
}

// New builds the site with the given seeds, or the default agency and owner searches.
// Pages are addressed by a 1-based item offset: _Desde_1, _Desde_(1+size), ...
func New(seeds ...models.Seed) *Site {
	if len(seeds) == 0 {
		seeds = []models.Seed{
			{Partition: "agencies", URL: AgenciesURL, Owner: models.OwnerAgency},
			{Partition: "owners", URL: OwnersURL, Owner: models.OwnerDirect},
		}
	}
	return &Site{seeds: seeds}
}

func (s *Site) Name() string { return "mercadolibre" }

func (s *Site) Seeds() []models.Seed { return s.seeds }

func (s *Site) PageURL(seed models.Seed, i int, pageSize int) string {
	return seed.URL + strconv.Itoa(1+i*pageSize)
}

func (s *Site) Discover(_ models.Seed, body string) (scraper.Pagination, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return scraper.Pagination{}, err
	}

	summary := doc.Find(".quantity-results").First()
	if summary.Length() == 0 {
		return scraper.Pagination{}, fmt.Errorf("results summary not found")
	}
	m := reTotal.FindStringSubmatch(summary.Text())
	if m == nil {
		return scraper.Pagination{}, fmt.Errorf("no total in %q", normalizeText(summary.Text()))
	}
	total, err := strconv.Atoi(strings.ReplaceAll(m[1], ".", ""))
	if err != nil {
		return scraper.Pagination{}, fmt.Errorf("total %q: %w", m[1], err)
	}

	return scraper.Pagination{
		Total:    total,
		PageSize: doc.Find(itemSelector).Length(),
	}, nil
}

func (s *Site) Extract(raw models.RawContent) ([]models.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw.Body))
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(raw.Task.URL)

	isOwner := raw.Task.Owner == models.OwnerDirect
	if raw.Task.Owner == models.OwnerUnknown {
		isOwner = strings.Contains(strings.ToLower(doc.Find("title").First().Text()), "dueño directo")
	}

	var out []models.Candidate
	doc.Find(itemSelector).Each(func(_ int, item *goquery.Selection) {
		href, _ := item.Find("a").First().Attr("href")
		link := resolve(base, href)

		out = append(out, models.Candidate{
			ID:       listingID(link),
			Title:    normalizeText(item.Find("div.item__title, .item__title").First().Text()),
			RawPrice: normalizeText(item.Find("span.price__fraction").First().Text()),
			IsOwner:  isOwner,
			URL:      link,
		})
	})
	return out, nil
}

func listingID(link string) string {
	if m := reListingID.FindStringSubmatch(link); m != nil {
		return "MLA" + m[1]
	}
	return ""
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func normalizeText(text string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
}
