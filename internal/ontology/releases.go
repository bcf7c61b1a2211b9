package ontology

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/pbaille/chebi/internal/domain"
)

var releaseDir = regexp.MustCompile(`^rel(\d+)/?$`)

// Releases lists the version tags published in the archive index page,
// newest first.
func (p *HTTPProvider) Releases(ctx context.Context, indexURL string) ([]domain.VersionTag, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %w", indexURL, domain.ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %w: HTTP %d", indexURL, domain.ErrTransport, resp.StatusCode)
	}

	// Directory listings are small; 5MB is generous.
	return parseReleases(io.LimitReader(resp.Body, 5*1024*1024))
}

func parseReleases(r io.Reader) ([]domain.VersionTag, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse index: %w: %w", domain.ErrMalformed, err)
	}

	seen := make(map[int]bool)
	var versions []int
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key != "href" {
					continue
				}
				href := a.Val[strings.LastIndex(strings.TrimSuffix(a.Val, "/"), "/")+1:]
				if m := releaseDir.FindStringSubmatch(href); m != nil {
					v, err := strconv.Atoi(m[1])
					if err == nil && !seen[v] {
						seen[v] = true
						versions = append(versions, v)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	tags := make([]domain.VersionTag, len(versions))
	for i, v := range versions {
		tags[i] = domain.VersionTag(strconv.Itoa(v))
	}
	return tags, nil
}
