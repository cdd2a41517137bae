package digest

import (
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"prensa/internal/models"
)

// Badge colors per sentiment label.
var sentimentColors = map[string]string{
	models.SentimentPositive: "#2e7d32",
	models.SentimentNegative: "#c62828",
	models.SentimentNeutral:  "#616161",
}

const missingMark = "—"

// TagGroup is one tag's articles within a country, newest first.
type TagGroup struct {
	Tag      string
	Articles []models.Article
}

// CountryGroup is one country's articles, split by tag in priority order.
type CountryGroup struct {
	Country string
	Tags    []TagGroup
}

// Count returns the number of articles in the group.
func (g CountryGroup) Count() int {
	total := 0
	for _, tg := range g.Tags {
		total += len(tg.Articles)
	}

	return total
}

// Composer turns persisted articles into a digest body.
type Composer struct {
	tagPriority []string
	loc         *time.Location
	bannerURL   string
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithBanner sets an image shown above the digest heading.
func WithBanner(url string) ComposerOption {
	return func(c *Composer) { c.bannerURL = url }
}

// NewComposer builds a composer. tagPriority fixes the tag ordering inside
// each country; tags not listed are sorted alphabetically and appended.
func NewComposer(tagPriority []string, loc *time.Location, opts ...ComposerOption) *Composer {
	c := &Composer{tagPriority: tagPriority, loc: loc}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Select filters articles to the window by scraped-at time, groups them by
// country then tag, and sorts each tag group by recency descending. Rows
// whose scraped-at stamp does not parse are left out.
func (c *Composer) Select(articles []models.Article, w Window) []CountryGroup {
	if w.IsZero() {
		return nil
	}

	byCountry := make(map[string]map[string][]models.Article)

	for _, a := range articles {
		scraped, err := time.ParseInLocation(models.ScrapedLayout, a.ScrapedAt, c.loc)
		if err != nil || !w.Contains(scraped) {
			continue
		}

		if byCountry[a.Country] == nil {
			byCountry[a.Country] = make(map[string][]models.Article)
		}

		byCountry[a.Country][a.Tag] = append(byCountry[a.Country][a.Tag], a)
	}

	countries := make([]string, 0, len(byCountry))
	for country := range byCountry {
		countries = append(countries, country)
	}
	sort.Strings(countries)

	groups := make([]CountryGroup, 0, len(countries))

	for _, country := range countries {
		byTag := byCountry[country]

		group := CountryGroup{Country: country}

		for _, tag := range c.orderedTags(byTag) {
			entries := byTag[tag]

			sort.SliceStable(entries, func(i, j int) bool {
				return c.scrapedAt(entries[i]).After(c.scrapedAt(entries[j]))
			})

			group.Tags = append(group.Tags, TagGroup{Tag: tag, Articles: entries})
		}

		groups = append(groups, group)
	}

	return groups
}

// orderedTags returns the tags present in byTag: configured priority tags
// first in their configured order, the rest sorted and appended.
func (c *Composer) orderedTags(byTag map[string][]models.Article) []string {
	seen := make(map[string]bool, len(c.tagPriority))
	ordered := make([]string, 0, len(byTag))

	for _, tag := range c.tagPriority {
		if _, ok := byTag[tag]; ok {
			ordered = append(ordered, tag)
			seen[tag] = true
		}
	}

	var rest []string
	for tag := range byTag {
		if !seen[tag] {
			rest = append(rest, tag)
		}
	}
	sort.Strings(rest)

	return append(ordered, rest...)
}

func (c *Composer) scrapedAt(a models.Article) time.Time {
	t, err := time.ParseInLocation(models.ScrapedLayout, a.ScrapedAt, c.loc)
	if err != nil {
		return time.Time{}
	}

	return t
}

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"orDash": func(s string) string {
		if strings.TrimSpace(s) == "" {
			return missingMark
		}

		return s
	},
	"badgeColor": func(sentiment string) string {
		if color, ok := sentimentColors[sentiment]; ok {
			return color
		}

		return sentimentColors[models.SentimentNeutral]
	},
}).Parse(`{{if .BannerURL}}<img src="{{.BannerURL}}" alt="" style="max-width:100%">
{{end}}<h2>Noticias recolectadas ({{.Label}})</h2>
{{range .Groups}}<h3>🌎 {{.Country}}</h3>
{{range .Tags}}{{if .Tag}}<h4>{{.Tag}}</h4>
{{end}}{{range .Articles}}<p>
<b>{{orDash .Title}}</b><br>
<i>{{orDash .Date}} · {{orDash .Source}}</i><br>
{{orDash .Snippet}}<br>
<span style="color:{{badgeColor .Sentiment}};font-weight:bold">{{orDash .Sentiment}}</span>
{{if .Link}}<a href="{{.Link}}">Ver noticia</a>{{end}}
</p>
<hr>
{{end}}{{end}}{{end}}`))

type templateData struct {
	Label     string
	BannerURL string
	Groups    []CountryGroup
}

// RenderHTML renders grouped articles as the email body.
func (c *Composer) RenderHTML(groups []CountryGroup, w Window) (string, error) {
	var b strings.Builder

	err := digestTemplate.Execute(&b, templateData{
		Label:     w.Label,
		BannerURL: c.bannerURL,
		Groups:    groups,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render digest: %w", err)
	}

	return b.String(), nil
}

// Compose selects, groups and renders in one call, returning the body and
// the number of articles included.
func (c *Composer) Compose(articles []models.Article, w Window) (string, int, error) {
	groups := c.Select(articles, w)

	total := 0
	for _, g := range groups {
		total += g.Count()
	}

	if total == 0 {
		return "", 0, nil
	}

	body, err := c.RenderHTML(groups, w)
	if err != nil {
		return "", 0, err
	}

	return body, total, nil
}

// Subject builds the email subject for a window.
func Subject(w Window) string {
	return fmt.Sprintf("Reporte de noticias (%s)", w.Label)
}
