package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mholt/archives"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/JohnDeved/otrkey-cli/internal/catalog"
)

const defaultUserAgent = "otrkey_files"

// otrkeyRE matches otrkey filenames anywhere in a listing page.
var otrkeyRE = regexp.MustCompile(`[A-Za-z0-9_.+-]+\.otrkey`)

// ProgressFunc receives bytes read so far and the total, or -1 when unknown.
type ProgressFunc func(done, total int64)

// Client handles HTTP requests to the catalog host and the mirrors.
type Client struct {
	listHTTP  *http.Client // Short timeout for mirror listings and the mirror list
	fetchHTTP *http.Client // No timeout for the catalog body (managed by context)
	limiter   *rate.Limiter
	userAgent string
}

// New creates a new client.
func New(reqPerSec float64, userAgent string) *Client {
	if reqPerSec <= 0 {
		reqPerSec = 5.0
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		listHTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
		fetchHTTP: &http.Client{
			// The catalog can be tens of MB; the body read is bounded by ctx instead.
		},
		limiter:   rate.NewLimiter(rate.Limit(reqPerSec), 5),
		userAgent: userAgent,
	}
}

func (c *Client) get(ctx context.Context, hc *http.Client, rawURL string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, rawURL)
	}
	return resp, nil
}

// FetchMirrors downloads and decodes the mirror list JSON.
func (c *Client) FetchMirrors(ctx context.Context, mirrorsURL string) ([]catalog.Mirror, error) {
	resp, err := c.get(ctx, c.listHTTP, mirrorsURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return catalog.ReadMirrors(resp.Body)
}

// FetchCatalog downloads the published catalog. The payload is either a CSV
// file or an archive holding one; onProgress may be nil.
func (c *Client) FetchCatalog(ctx context.Context, catalogURL string, onProgress ProgressFunc) ([]catalog.Row, error) {
	resp, err := c.get(ctx, c.fetchHTTP, catalogURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if onProgress != nil {
		total := resp.ContentLength
		if total <= 0 {
			total = -1
		}
		body = &progressReader{r: resp.Body, total: total, fn: onProgress}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	return readCatalog(ctx, catalogFileName(catalogURL), data)
}

// readCatalog parses data as CSV, unpacking it first when it is an archive.
func readCatalog(ctx context.Context, name string, data []byte) ([]catalog.Row, error) {
	format, stream, err := archives.Identify(ctx, name, bytes.NewReader(data))
	if errors.Is(err, archives.NoMatch) {
		return catalog.ReadRows(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("identifying catalog format: %w", err)
	}

	ex, ok := format.(archives.Extractor)
	if !ok {
		// Plain compression (gzip, xz, ...) around the CSV.
		dec, ok := format.(archives.Decompressor)
		if !ok {
			return nil, fmt.Errorf("unsupported catalog format %s", format.Extension())
		}
		rc, err := dec.OpenReader(stream)
		if err != nil {
			return nil, fmt.Errorf("opening compressed catalog: %w", err)
		}
		defer rc.Close()
		return catalog.ReadRows(rc)
	}

	var rows []catalog.Row
	found := false
	err = ex.Extract(ctx, stream, func(ctx context.Context, f archives.FileInfo) error {
		if found || f.IsDir() || !strings.EqualFold(path.Ext(f.NameInArchive), ".csv") {
			return nil
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		rows, err = catalog.ReadRows(rc)
		if err != nil {
			return fmt.Errorf("%s: %w", f.NameInArchive, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("extracting catalog: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("catalog archive contains no .csv file")
	}
	return rows, nil
}

func catalogFileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return path.Base(u.Path)
}

type progressReader struct {
	r     io.Reader
	done  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		p.fn(p.done, p.total)
	}
	return n, err
}

// ListFiles fetches a mirror's listing page and returns the otrkey filenames
// it mentions, de-duplicated and sorted.
func (c *Client) ListFiles(ctx context.Context, listURL string) ([]string, error) {
	resp, err := c.get(ctx, c.listHTTP, listURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return parseListing(resp.Body)
}

// parseListing collects otrkey names from anchor hrefs, titles and text nodes.
func parseListing(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	seen := map[string]struct{}{}
	add := func(s string) {
		if decoded, err := url.PathUnescape(s); err == nil {
			s = decoded
		}
		for _, name := range otrkeyRE.FindAllString(s, -1) {
			seen[name] = struct{}{}
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			add(n.Data)
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
			if n.Data == "a" {
				for _, attr := range n.Attr {
					if attr.Key == "href" || attr.Key == "title" {
						add(attr.Val)
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
