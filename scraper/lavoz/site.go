// Package lavoz extracts rental listings from clasificados.lavoz.com.ar search pages.
package lavoz

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

const DefaultSearchURL = "https://clasificados.lavoz.com.ar/search/apachesolr_search/?f[0]=im_taxonomy_vid_34:6330&f[1]=im_taxonomy_vid_34:6334&f[2]=ss_operacion:Alquileres&f[3]=ss_cantidad_dormitorios:1%20Dormitorio&f[4]=im_taxonomy_vid_5:5034&page="

const listingSelector = "div.BoxResultado.Borde.Espacio"

var (
	reTotal      = regexp.MustCompile(`\((\d[\d.]*)\s`)
	reListingID  = regexp.MustCompile(`departamentos/(\d+)/`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

type Site struct {
	seeds []models.Seed
}

// New builds the site with the given seeds, or the default 1-bedroom Nueva Córdoba search.
// Pages are addressed zero-based by appending the index to the seed URL.
func New(seeds ...models.Seed) *Site {
	if len(seeds) == 0 {
		seeds = []models.Seed{{Partition: "all", URL: DefaultSearchURL}}
	}
	return &Site{seeds: seeds}
}

func (s *Site) Name() string { return "lavoz" }

func (s *Site) Seeds() []models.Seed { return s.seeds }

func (s *Site) PageURL(seed models.Seed, i int, _ int) string {
	return seed.URL + strconv.Itoa(i)
}

func (s *Site) Discover(_ models.Seed, body string) (scraper.Pagination, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return scraper.Pagination{}, err
	}

	summary := doc.Find("p.cantidadResultados").First()
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
		PageSize: doc.Find(listingSelector).Length(),
	}, nil
}

func (s *Site) Extract(raw models.RawContent) ([]models.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw.Body))
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(raw.Task.URL)

	var out []models.Candidate
	doc.Find(listingSelector).Each(func(_ int, box *goquery.Selection) {
		subTitle := box.Find("h2, h3, h5").First().Text()
		href, _ := box.Find("a").First().Attr("href")
		link := resolve(base, href)

		out = append(out, models.Candidate{
			ID:          listingID(link),
			Title:       normalizeText(subTitle + " " + box.Find("h4").First().Text()),
			Description: normalizeText(box.Find("div.Descripcion").First().Text()),
			RawPrice:    normalizeText(box.Find("div.cifra").First().Text()),
			IsOwner:     strings.Contains(strings.ToLower(box.Find("div.avatar").First().Text()), "particular"),
			URL:         link,
		})
	})
	return out, nil
}

func listingID(link string) string {
	if m := reListingID.FindStringSubmatch(link); m != nil {
		return m[1]
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
