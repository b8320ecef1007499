package certctl

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// DefaultConcurrency bounds parallel submissions in SubmitAll.
const DefaultConcurrency = 4

// DomainsFile is the YAML document read by `certctl submit -f`.
type DomainsFile struct {
	APIURL  string   `yaml:"api_url"`
	Domains []string `yaml:"domains"`
}

// LoadDomains reads a domains file. Blank entries are dropped and the
// remaining names are trimmed and deduplicated, keeping file order.
func LoadDomains(path string) (*DomainsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read domains file: %w", err)
	}

	var f DomainsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse domains file: %w", err)
	}

	seen := make(map[string]bool, len(f.Domains))
	domains := f.Domains[:0]
	for _, d := range f.Domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		domains = append(domains, d)
	}
	if len(domains) == 0 {
		return nil, fmt.Errorf("domains file %s lists no domains", path)
	}
	f.Domains = domains
	return &f, nil
}

// Result is the outcome of one submission.
type Result struct {
	Domain string
	Err    error
}

// SubmitAll submits every domain and returns one result per domain in input
// order. A failed submission does not stop the others.
func SubmitAll(ctx context.Context, c *Client, domains []string, concurrency int) []Result {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	results := make([]Result, len(domains))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, d := range domains {
		g.Go(func() error {
			results[i] = Result{Domain: d, Err: c.Submit(ctx, d)}
			return nil
		})
	}
	g.Wait()
	return results
}
