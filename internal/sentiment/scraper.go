package sentiment

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"regime-signal-bot/internal/logger"
)

// HeadlineSource returns recent headlines mentioning a symbol.
type HeadlineSource interface {
	Headlines(ctx context.Context, symbol string, max int) ([]string, error)
}

// Feed is one news endpoint. URL may contain {base}, replaced with the
// lower-cased base asset. Feeds without a Selector are read as RSS.
type Feed struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Selector string `yaml:"selector"`
}

func (f Feed) isRSS() bool { return f.Selector == "" }

// Scraper collects headlines from RSS feeds and HTML listing pages.
type Scraper struct {
	feeds     []Feed
	timeout   time.Duration
	userAgent string
}

func NewScraper(feeds []Feed, timeout time.Duration) *Scraper {
	return &Scraper{
		feeds:     feeds,
		timeout:   timeout,
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// Headlines visits every feed in order until max headlines are collected.
// It fails only when every feed failed.
func (s *Scraper) Headlines(ctx context.Context, symbol string, max int) ([]string, error) {
	base := strings.ToLower(baseOf(symbol))
	var (
		out     []string
		lastErr error
		failed  int
	)

	for _, feed := range s.feeds {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if len(out) >= max {
			break
		}
		got, err := s.scrapeFeed(ctx, feed, base, max-len(out))
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to scrape feed", err, "feed", feed.Name, "symbol", symbol)
			lastErr = err
			failed++
			continue
		}
		out = append(out, got...)
	}

	if failed > 0 && failed == len(s.feeds) {
		return nil, fmt.Errorf("all %d feeds failed: %w", failed, lastErr)
	}
	logger.Debug(ctx, "Headlines collected", "symbol", symbol, "count", len(out))
	return out, nil
}

func (s *Scraper) scrapeFeed(ctx context.Context, feed Feed, base string, limit int) ([]string, error) {
	var (
		headlines []string
		scrapeErr error
	)

	c := colly.NewCollector(colly.MaxDepth(1))
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("User-Agent", s.userAgent)
	})

	add := func(text string) {
		text = strings.Join(strings.Fields(text), " ")
		if text == "" || len(headlines) >= limit {
			return
		}
		headlines = append(headlines, text)
	}

	if feed.isRSS() {
		c.OnXML("//item/title", func(e *colly.XMLElement) {
			add(e.Text)
		})
	} else {
		c.OnHTML("html", func(e *colly.HTMLElement) {
			e.DOM.Find(feed.Selector).Each(func(_ int, sel *goquery.Selection) {
				add(sel.Text())
			})
		})
	}

	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("%s returned %d: %w", feed.Name, r.StatusCode, err)
	})

	target := strings.ReplaceAll(feed.URL, "{base}", url.QueryEscape(base))
	if err := c.Visit(target); err != nil {
		return nil, fmt.Errorf("visit %s: %w", feed.Name, err)
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, scrapeErr
	}
	return headlines, nil
}

// baseOf returns the base asset of "BTC/USDT".
func baseOf(symbol string) string {
	if i := strings.IndexByte(symbol, '/'); i >= 0 {
		return symbol[:i]
	}
	return symbol
}
