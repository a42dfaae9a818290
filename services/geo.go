package services

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// NormalizeCountryCode returns an ISO 3166 alpha-2 code or "".
func NormalizeCountryCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !countryCodePattern.MatchString(code) {
		return ""
	}
	return code
}

// GeoLocator resolves an IP address to a country code.
type GeoLocator interface {
	Country(ctx context.Context, ip string) (string, error)
}

// HTTPGeoLocator queries a JSON geo-IP endpoint. urlFormat holds one %s for
// the address, e.g. https://ipapi.co/%s/json/.
type HTTPGeoLocator struct {
	urlFormat string
	client    *http.Client
}

func NewHTTPGeoLocator(urlFormat string, timeout time.Duration) *HTTPGeoLocator {
	return &HTTPGeoLocator{urlFormat: urlFormat, client: &http.Client{Timeout: timeout}}
}

func (g *HTTPGeoLocator) Country(ctx context.Context, ip string) (string, error) {
	if !PublicIP(ip) {
		return "", fmt.Errorf("%w: %q is not a public address", ErrGeoLookupFailed, ip)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(g.urlFormat, ip), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeoLookupFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrGeoLookupFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrGeoLookupFailed, resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: response is not JSON", ErrGeoLookupFailed)
	}
	if gjson.GetBytes(body, "error").Bool() {
		return "", fmt.Errorf("%w: %s", ErrGeoLookupFailed, gjson.GetBytes(body, "reason").String())
	}

	code := NormalizeCountryCode(gjson.GetBytes(body, "country_code").String())
	if code == "" {
		code = NormalizeCountryCode(gjson.GetBytes(body, "country").String())
	}
	if code == "" {
		return "", fmt.Errorf("%w: no country in response", ErrGeoLookupFailed)
	}
	return code, nil
}

// PublicIP reports whether ip is a routable unicast address.
func PublicIP(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return false
	}
	return !(parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() ||
		parsed.IsLinkLocalUnicast() || parsed.IsMulticast())
}

type BackfillResult struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// CountryBackfill fills in missing commitment countries from stored IPs.
type CountryBackfill struct {
	commitments CommitmentStore
	geo         GeoLocator
	concurrency int
	log         *zap.Logger
}

func NewCountryBackfill(commitments CommitmentStore, geo GeoLocator, concurrency int, log *zap.Logger) *CountryBackfill {
	if concurrency < 1 {
		concurrency = 1
	}
	return &CountryBackfill{commitments: commitments, geo: geo, concurrency: concurrency, log: log}
}

// Run looks up each distinct IP once, with at most concurrency lookups in
// flight, and updates every commitment that shares it. Individual failures
// are counted, not returned.
func (b *CountryBackfill) Run(ctx context.Context) (*BackfillResult, error) {
	pending, err := b.commitments.MissingCountry(ctx)
	if err != nil {
		return nil, fmt.Errorf("load commitments without country: %w", err)
	}

	result := &BackfillResult{Total: len(pending)}
	byIP := map[string][]int64{}
	var order []string
	for _, c := range pending {
		if c.IPAddress == nil || *c.IPAddress == "" {
			result.Skipped++
			continue
		}
		ip := *c.IPAddress
		if _, ok := byIP[ip]; !ok {
			order = append(order, ip)
		}
		byIP[ip] = append(byIP[ip], c.ID)
	}

	var mu sync.Mutex
	tally := func(updated, failed int) {
		mu.Lock()
		result.Updated += updated
		result.Failed += failed
		mu.Unlock()
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.concurrency)
	for _, ip := range order {
		ip, ids := ip, byIP[ip]
		eg.Go(func() error {
			code, err := b.geo.Country(egCtx, ip)
			if err != nil {
				b.log.Warn("Country lookup failed", zap.String("ip", ip), zap.Error(err))
				tally(0, len(ids))
				return nil
			}
			for _, id := range ids {
				if err := b.commitments.SetCountry(egCtx, id, code); err != nil {
					b.log.Warn("Failed to store country", zap.Int64("commitment_id", id), zap.Error(err))
					tally(0, 1)
					continue
				}
				tally(1, 0)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return result, err
	}

	b.log.Info("Country backfill finished",
		zap.Int("total", result.Total),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))
	return result, ctx.Err()
}
