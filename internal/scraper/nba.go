package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// nba.com schedule markup
const (
	nbaDaySel          = "div.ScheduleDay_sd__GFE_w"
	nbaDateSel         = "h4.ScheduleDay_sdDay__3s2Xt"
	nbaGameSel         = "div.ScheduleGame_sg__RmD9I"
	nbaTeamSel         = "a.Link_styled__okbXW"
	nbaLabelSel        = "p.ScheduleGame_sgLabel__wkprj"
	nbaFigureSel       = "p.ScheduleGame_sgFigtext__gYud6"
	nbaStatusSel       = "span.ScheduleStatusText_base__Jgvjb"
	nbaBroadcastersSel = "div.Broadcasters_base__Wet1u"
	nbaLogoSel         = "img.Broadcasters_icon__82MTV"
	nbaBroadcastTitle  = "p.Broadcasters_title__B1dGd"
	nbaRegionalSel     = "a.Broadcasters_tv__AIeZb, span.Broadcasters_tv__AIeZb"
)

// ParseNBA reads the nba.com schedule page
func ParseNBA(doc *goquery.Document, sourceURL string) (*Page, error) {
	days := doc.Find(nbaDaySel)
	if days.Length() == 0 {
		return nil, &ParseError{League: "nba", Reason: "no day containers (" + nbaDaySel + ")", Err: ErrNoSchedule}
	}

	page := &Page{}
	days.Each(func(_ int, day *goquery.Selection) {
		dateText := text(day.Find(nbaDateSel).First())
		if dateText == "" {
			page.skip("nba", "", "day container without a date header")
			return
		}

		day.Find(nbaGameSel).Each(func(i int, game *goquery.Selection) {
			away, home, ok := nbaTeams(game)
			if !ok {
				page.skip("nba", dateText, "teams not announced")
				return
			}

			c := Candidate{
				Sport:      "NBA",
				League:     "nba",
				DateText:   dateText,
				TimeText:   text(game.Find(nbaStatusSel).First()),
				AwayTeam:   away,
				HomeTeam:   home,
				Broadcasts: []string{},
				SourceURL:  sourceURL,
			}

			if b := game.Find(nbaBroadcastersSel).First(); b.Length() > 0 {
				b.Find(nbaLogoSel).Each(func(_ int, img *goquery.Selection) {
					if title, ok := img.Attr("title"); ok && strings.TrimSpace(title) != "" {
						c.Broadcasts = append(c.Broadcasts, strings.TrimSpace(title))
					}
				})
				c.RegionalHint = nbaRegional(b)
			}

			page.Candidates = append(page.Candidates, c)
		})
	})

	return page, nil
}

// nbaTeams reads the two team links, falling back to the figure captions that
// NBA Cup knockout games use before the matchup link is published
func nbaTeams(game *goquery.Selection) (away, home string, ok bool) {
	links := game.Find(nbaTeamSel)
	if links.Length() >= 2 {
		away, home = text(links.Eq(0)), text(links.Eq(1))
		return away, home, away != "" && home != ""
	}

	if !strings.Contains(text(game.Find(nbaLabelSel).First()), "NBA Cup") {
		return "", "", false
	}
	figures := game.Find(nbaFigureSel)
	n := figures.Length()
	if n < 2 {
		return "", "", false
	}
	away = strings.TrimSpace(strings.ReplaceAll(text(figures.Eq(n-2)), ":", ""))
	home = strings.TrimSpace(strings.ReplaceAll(text(figures.Eq(n-1)), ":", ""))
	return away, home, away != "" && home != ""
}

// nbaRegional returns the local TV text shown after the "TV" caption
func nbaRegional(b *goquery.Selection) string {
	var hint string
	b.Find(nbaBroadcastTitle).EachWithBreak(func(_ int, title *goquery.Selection) bool {
		if text(title) != "TV" {
			return true
		}
		next := title.NextAllFiltered("p").First()
		hint = text(next.Find(nbaRegionalSel).First())
		return false
	})
	return hint
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
