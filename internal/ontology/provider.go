package ontology

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/pbaille/chebi/internal/domain"
	"github.com/pbaille/chebi/internal/logger"
	"github.com/pbaille/chebi/internal/retry"
)

// Provider returns ontology snapshots
type Provider interface {
	Latest(ctx context.Context) (*Graph, error)
	Archived(ctx context.Context, version domain.VersionTag) (*Graph, error)
}

// HTTPProvider downloads OBO releases over HTTP(S).
type HTTPProvider struct {
	client     *http.Client
	latestURL  string
	archiveURL string
	policy     retry.Policy
}

// NewHTTPProvider creates a provider. archiveURL is a fmt template taking the
// version tag. The policy is the transport-level retry; business logic above
// it does not retry.
func NewHTTPProvider(latestURL, archiveURL string, timeout time.Duration, policy retry.Policy) *HTTPProvider {
	return &HTTPProvider{
		client:     &http.Client{Timeout: timeout},
		latestURL:  latestURL,
		archiveURL: archiveURL,
		policy:     policy,
	}
}

// Latest fetches and parses the current release.
func (p *HTTPProvider) Latest(ctx context.Context) (*Graph, error) {
	logger.Info("Importing latest ontology", "url", p.latestURL)
	return p.load(ctx, p.latestURL)
}

// Archived fetches and parses the release with the given version tag.
func (p *HTTPProvider) Archived(ctx context.Context, version domain.VersionTag) (*Graph, error) {
	u := fmt.Sprintf(p.archiveURL, url.PathEscape(string(version)))
	logger.Info("Importing archived ontology", "version", version, "url", u)
	return p.load(ctx, u)
}

func (p *HTTPProvider) load(ctx context.Context, rawURL string) (*Graph, error) {
	return retry.Do(ctx, p.policy, func(ctx context.Context) (*Graph, error) {
		return p.fetch(ctx, rawURL)
	}, func(attempt int, err error) {
		logger.Warn("ontology fetch failed, retrying", "attempt", attempt, "err", err)
	})
}

func (p *HTTPProvider) fetch(ctx context.Context, rawURL string) (*Graph, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "chebi/1.0 (ontology-mirror)")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %w", rawURL, domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w", rawURL, domain.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: %w: HTTP %d", rawURL, domain.ErrTransport, resp.StatusCode)
	}

	body, err := decompress(resp.Body)
	if err != nil {
		return nil, err
	}
	g, err := ParseOBO(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return g, nil
}

// decompress transparently unwraps gzip payloads (chebi.obo.gz) by sniffing
// the magic bytes rather than trusting the URL or headers.
func decompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read body: %w: %w", domain.ErrTransport, err)
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w: %w", domain.ErrMalformed, err)
		}
		return zr, nil
	}
	return br, nil
}
