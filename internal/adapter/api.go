package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/atxevents/atx-events/internal/logger"
)

// RemoteAPI pulls events from an authenticated REST source that pages by
// numeric offset (the predicthq-style source). Pagination ends when a page
// returns an empty results array.
type RemoteAPI struct {
	name     string
	baseURL  string
	token    string
	query    string
	pageSize int
}

// NewRemoteAPI creates the adapter. token is sent as a bearer credential
// on every request.
func NewRemoteAPI(name, baseURL, token, query string, pageSize int) *RemoteAPI {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &RemoteAPI{
		name:     name,
		baseURL:  baseURL,
		token:    token,
		query:    query,
		pageSize: pageSize,
	}
}

func (a *RemoteAPI) Name() string { return a.name }

// StartURL returns the first page of the search.
func (a *RemoteAPI) StartURL() string {
	params := url.Values{}
	params.Set("q", a.query)
	params.Set("limit", strconv.Itoa(a.pageSize))
	params.Set("offset", "0")
	return a.baseURL + "?" + params.Encode()
}

// Headers implements HeaderProvider with the bearer token.
func (a *RemoteAPI) Headers() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+a.token)
	h.Set("Accept", "application/json")
	return h
}

type apiResult struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	StartAt  string `json:"start_local"`
	Geo      struct {
		Address struct {
			Formatted string `json:"formatted_address"`
		} `json:"address"`
	} `json:"geo"`
}

type apiDocument struct {
	url     string
	results []apiResult
}

func (d *apiDocument) SourceURL() string { return d.url }

func (a *RemoteAPI) ParseDocument(pageURL string, body []byte) (Document, error) {
	var page struct {
		Results []apiResult `json:"results"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("parsing API page %s: %w", pageURL, err)
	}
	return &apiDocument{url: pageURL, results: page.Results}, nil
}

// ExtractItems returns one RawItem per located event. Entries without a
// resolvable street address are area-wide alerts, not individual events,
// and are filtered out here rather than counted as errors.
func (a *RemoteAPI) ExtractItems(_ context.Context, doc Document) []RawItem {
	ad, ok := doc.(*apiDocument)
	if !ok {
		return nil
	}

	var items []RawItem
	for _, res := range ad.results {
		if res.Geo.Address.Formatted == "" {
			logger.Debug("filtered area-wide alert", logger.Fields{
				"source": a.name,
				"title":  res.Title,
			})
			continue
		}
		items = append(items, RawItem{
			Title:    res.Title,
			DateText: res.StartAt,
			Venue:    res.Geo.Address.Formatted,
			Category: res.Category,
		})
	}
	return items
}

// ExtractNextLink advances the offset query parameter by the page size.
// An empty page ends the pagination.
func (a *RemoteAPI) ExtractNextLink(doc Document) (string, bool) {
	ad, ok := doc.(*apiDocument)
	if !ok || len(ad.results) == 0 {
		return "", false
	}

	u, err := url.Parse(ad.url)
	if err != nil {
		return "", false
	}
	params := u.Query()
	offset, err := strconv.Atoi(params.Get("offset"))
	if err != nil {
		offset = 0
	}
	params.Set("offset", strconv.Itoa(offset+a.pageSize))
	u.RawQuery = params.Encode()
	return u.String(), true
}
