// Package pubmed resolves PubMed identifiers for publications through the
// NCBI E-utilities esearch endpoint.
//
// Resolution is a convenience, not a dependency: callers are expected to
// treat lookup failures as a missing attribute, never as a failed load.
package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("github.com/go-geneticgraph/go-geneticgraph/pubmed")
	meter  = otel.Meter("github.com/go-geneticgraph/go-geneticgraph/pubmed")

	lookupCounter metric.Int64Counter
)

func init() {
	var err error
	lookupCounter, err = meter.Int64Counter("pubmed_lookup_counter",
		metric.WithDescription("Measures the number of esearch lookups by outcome."),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		panic(fmt.Errorf("seek developer attention: initialise instruments: %w", err))
	}
}

// DefaultBaseURL is the public NCBI esearch endpoint.
const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"

// A Client looks up PubMed ids by citation attributes. The zero value queries
// the public NCBI endpoint with http.DefaultClient.
type Client struct {
	// BaseURL overrides the esearch endpoint, e.g. for tests.
	BaseURL string
	// HTTPClient overrides the HTTP client used for requests.
	HTTPClient *http.Client
}

// esearch mirrors the subset of the esearch JSON response we read.
type esearch struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// LookupID searches PubMed for a publication by its journal, publication year,
// and first author, and returns its id. The lookup fails unless the search
// matches exactly one publication: an ambiguous citation must not attach a
// stranger's id.
func (c *Client) LookupID(ctx context.Context, journal, year, firstAuthor string) (id int, err error) {
	ctx, span := tracer.Start(ctx, "pubmed.LookupID")
	defer span.End()
	defer func() {
		outcome := "resolved"
		if err != nil {
			outcome = "failed"
		}
		lookupCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("pubmed.outcome", outcome)))
	}()

	if journal == "" || year == "" || firstAuthor == "" {
		return 0, fmt.Errorf("citation is incomplete (journal=%q year=%q author=%q)", journal, year, firstAuthor)
	}

	term := fmt.Sprintf("%v[Journal] AND %v[Date - Publication] AND %v[Author - First]", journal, year, firstAuthor)
	span.SetAttributes(attribute.String("pubmed.term", term))

	endpoint := c.BaseURL
	if endpoint == "" {
		endpoint = DefaultBaseURL
	}
	query := url.Values{
		"db":      {"pubmed"},
		"retmode": {"json"},
		"retmax":  {"2"},
		"term":    {term},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("build esearch request: %w", err)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("esearch request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("esearch request: unexpected status %v", resp.Status)
	}

	var body esearch
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode esearch response: %w", err)
	}
	if len(body.Result.IDList) != 1 {
		return 0, fmt.Errorf("citation matches %v publications, want exactly 1", len(body.Result.IDList))
	}
	id, err = strconv.Atoi(body.Result.IDList[0])
	if err != nil {
		return 0, fmt.Errorf("esearch returned a malformed id %q: %w", body.Result.IDList[0], err)
	}
	span.SetAttributes(attribute.Int("pubmed.id", id))
	return id, nil
}
