// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve finds open-access full-text locations for papers.
// DOIs go to Unpaywall first, then to OpenAlex as a fallback; arXiv
// identifiers resolve directly to the arxiv.org PDF endpoint.
package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/litscout/internal/httputil"
	"github.com/pdiddy/litscout/pkg/types"
)

// Base URLs for open-access resolution. Declared as vars so tests can
// substitute httptest servers.
var (
	unpaywallAPIBase  = "https://api.unpaywall.org/v2/"
	openAlexWorksBase = "https://api.openalex.org/works/"
	arxivPDFBase      = "https://arxiv.org/pdf/"
)

// arxivPattern matches arXiv IDs: "2301.07041", "arXiv:2301.07041", "2301.07041v2".
var arxivPattern = regexp.MustCompile(`^(?:arXiv:)?(\d{4}\.\d{4,5}(?:v\d+)?)$`)

// doiPattern matches bare DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/[^\s]+$`)

// IdentifierType classifies an input identifier.
type IdentifierType int

const (
	TypeUnknown IdentifierType = iota
	TypeArxiv
	TypeDOI
	TypeURL
)

func (t IdentifierType) String() string {
	switch t {
	case TypeArxiv:
		return "arxiv"
	case TypeDOI:
		return "doi"
	case TypeURL:
		return "url"
	default:
		return "unknown"
	}
}

// Classify determines the identifier type and returns the normalized
// form: arXiv IDs lose the "arXiv:" prefix, DOIs lose any resolver
// prefix.
func Classify(identifier string) (IdentifierType, string) {
	identifier = strings.TrimSpace(identifier)

	if m := arxivPattern.FindStringSubmatch(identifier); m != nil {
		return TypeArxiv, m[1]
	}

	if bare := types.NormalizeDOI(identifier); doiPattern.MatchString(bare) {
		return TypeDOI, bare
	}

	if u, err := url.Parse(identifier); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return TypeURL, identifier
	}

	return TypeUnknown, identifier
}

// Location is a resolved open-access copy of a paper.
type Location struct {
	// URL points at the full text, preferring a direct PDF link.
	URL string `json:"url"`

	// Provider names the service that supplied the location.
	Provider string `json:"provider"`

	// License is the reported license tag, when known.
	License string `json:"license,omitempty"`

	// Version is the reported manuscript version, when known.
	Version string `json:"version,omitempty"`
}

// Resolver looks up open-access locations.
type Resolver struct {
	Client *http.Client

	// Email identifies the caller to Unpaywall, which requires it.
	Email string
}

// New builds a Resolver with a default client.
func New(email string) *Resolver {
	return &Resolver{
		Client: &http.Client{Timeout: 30 * time.Second},
		Email:  email,
	}
}

// Resolve finds an open-access location for the identifier. DOIs try
// Unpaywall then OpenAlex; arXiv IDs and direct URLs resolve locally.
// A paper with no known open-access copy returns an error naming both
// lookups.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (Location, error) {
	idType, normalized := Classify(identifier)

	switch idType {
	case TypeArxiv:
		return Location{URL: arxivPDFBase + normalized, Provider: "arxiv"}, nil
	case TypeURL:
		return Location{URL: normalized, Provider: "direct"}, nil
	case TypeDOI:
		return r.resolveDOI(ctx, normalized)
	default:
		return Location{}, fmt.Errorf("unrecognized identifier %q: expected a DOI, arXiv ID, or URL", identifier)
	}
}

func (r *Resolver) resolveDOI(ctx context.Context, doi string) (Location, error) {
	loc, upErr := r.unpaywall(ctx, doi)
	if upErr == nil {
		return loc, nil
	}

	loc, oaErr := r.openAlex(ctx, doi)
	if oaErr == nil {
		return loc, nil
	}

	return Location{}, fmt.Errorf("no open-access copy of %s: unpaywall: %v; openalex: %v", doi, upErr, oaErr)
}

// unpaywallResponse covers the fields we read from the Unpaywall v2 API.
type unpaywallResponse struct {
	IsOA          bool `json:"is_oa"`
	BestOALocation *struct {
		URLForPDF string `json:"url_for_pdf"`
		URL       string `json:"url"`
		License   string `json:"license"`
		Version   string `json:"version"`
	} `json:"best_oa_location"`
}

func (r *Resolver) unpaywall(ctx context.Context, doi string) (Location, error) {
	if r.Email == "" {
		return Location{}, fmt.Errorf("unpaywall requires a contact email")
	}

	u := unpaywallAPIBase + url.PathEscape(doi) + "?email=" + url.QueryEscape(r.Email)
	var resp unpaywallResponse
	if err := r.getJSON(ctx, u, &resp); err != nil {
		return Location{}, err
	}

	if !resp.IsOA || resp.BestOALocation == nil {
		return Location{}, fmt.Errorf("not open access")
	}
	best := resp.BestOALocation
	target := best.URLForPDF
	if target == "" {
		target = best.URL
	}
	if target == "" {
		return Location{}, fmt.Errorf("open access reported but no location given")
	}
	return Location{
		URL:      target,
		Provider: "unpaywall",
		License:  best.License,
		Version:  best.Version,
	}, nil
}

// openAlexWork covers the open-access fields of an OpenAlex work record.
type openAlexWork struct {
	OpenAccess struct {
		IsOA  bool   `json:"is_oa"`
		OAURL string `json:"oa_url"`
	} `json:"open_access"`
}

func (r *Resolver) openAlex(ctx context.Context, doi string) (Location, error) {
	u := openAlexWorksBase + "doi:" + url.PathEscape(doi)
	if r.Email != "" {
		u += "?mailto=" + url.QueryEscape(r.Email)
	}

	var work openAlexWork
	if err := r.getJSON(ctx, u, &work); err != nil {
		return Location{}, err
	}

	if !work.OpenAccess.IsOA || work.OpenAccess.OAURL == "" {
		return Location{}, fmt.Errorf("not open access")
	}
	return Location{URL: work.OpenAccess.OAURL, Provider: "openalex"}, nil
}

func (r *Resolver) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
