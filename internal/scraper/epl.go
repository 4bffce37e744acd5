package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// worldsoccertalk.com TV schedule markup
const (
	eplDateSel     = "h3.text-stvsDate"
	eplTimeSel     = "span.text-stvsMatchHour"
	eplTitleSel    = "h4.text-stvsMatchTitle"
	eplProviderSel = "div.text-stvsProviderLink a"
)

// "Arsenal vs. Chelsea (Premier League)"
var eplMatchupRe = regexp.MustCompile(`(?i)(.+?)\s+vs?\.?\s+(.+?)\s+\(`)

// ParseEPL reads the Premier League TV schedule. The first team listed in a
// "A vs. B" title is recorded as the away side.
func ParseEPL(doc *goquery.Document, sourceURL string) (*Page, error) {
	headers := doc.Find(eplDateSel)
	if headers.Length() == 0 {
		return nil, &ParseError{League: "epl", Reason: "no date headers (" + eplDateSel + ")", Err: ErrNoSchedule}
	}

	page := &Page{}
	headers.Each(func(_ int, header *goquery.Selection) {
		dateText := text(header)
		if dateText == "" {
			return
		}

		list := header.NextAllFiltered("ul").First()
		if list.Length() == 0 {
			page.skip("epl", dateText, "no game list after date header")
			return
		}

		list.ChildrenFiltered("li").Each(func(_ int, item *goquery.Selection) {
			title := text(item.Find(eplTitleSel).First())
			if title == "" {
				page.skip("epl", dateText, "game without a match title")
				return
			}
			m := eplMatchupRe.FindStringSubmatch(title)
			if m == nil {
				page.skip("epl", dateText, "unrecognized matchup "+title)
				return
			}

			c := Candidate{
				Sport:      "EPL",
				League:     "epl",
				DateText:   dateText,
				TimeText:   text(item.Find(eplTimeSel).First()),
				AwayTeam:   strings.TrimSpace(m[1]),
				HomeTeam:   strings.TrimSpace(m[2]),
				Broadcasts: []string{},
				SourceURL:  sourceURL,
			}
			item.Find(eplProviderSel).Each(func(_ int, a *goquery.Selection) {
				if name := text(a); name != "" {
					c.Broadcasts = append(c.Broadcasts, name)
				}
			})

			page.Candidates = append(page.Candidates, c)
		})
	})

	return page, nil
}
