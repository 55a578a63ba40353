package reference

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/marigram-tracker/internal/common"
	"github.com/joseph-ayodele/marigram-tracker/internal/core/resolve"
)

const itemsPerPage = 200

// NOAARetry is the policy for descriptor requests.
var NOAARetry = common.RetryPolicy{Tries: 4, Initial: time.Second, Multiplier: 1.7}

// NOAAClient reads the marigram descriptor lists.
type NOAAClient struct {
	baseURL string
	http    *http.Client
	retry   common.RetryPolicy
	schema  *jsonschema.Schema
	logger  *slog.Logger
}

func NewNOAAClient(baseURL string, client *http.Client, logger *slog.Logger) (*NOAAClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	schema, err := compileSchema("descriptor_page.json", descriptorPageSchema)
	if err != nil {
		return nil, err
	}
	return &NOAAClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
		retry:   NOAARetry,
		schema:  schema,
		logger:  logger,
	}, nil
}

// WithRetry overrides the retry policy.
func (c *NOAAClient) WithRetry(p common.RetryPolicy) *NOAAClient {
	c.retry = p
	return c
}

type descriptor struct {
	ID          json.RawMessage `json:"id"`
	Description *string         `json:"description"`
}

type descriptorPage struct {
	Items      []descriptor `json:"items"`
	TotalPages int          `json:"totalPages"`
}

// Vocabularies is the allow-list half of a Reference.
type Vocabularies struct {
	Countries resolve.Vocabulary
	States    resolve.Vocabulary
	Locations resolve.Vocabulary
	Regions   resolve.RegionMap
}

// Load fetches countries, states, regions and every page of locations. Any
// failure is returned as ErrReferenceUnavailable; a run cannot proceed without them.
func (c *NOAAClient) Load(ctx context.Context) (Vocabularies, error) {
	start := time.Now()
	wrap := func(what string, err error) error {
		return common.NewAppError(common.CodeReference, "load "+what, fmt.Errorf("%w: %w", common.ErrReferenceUnavailable, err))
	}

	countries, err := c.page(ctx, "countries", 1)
	if err != nil {
		return Vocabularies{}, wrap("countries", err)
	}
	states, err := c.page(ctx, "states", 1)
	if err != nil {
		return Vocabularies{}, wrap("states", err)
	}
	regions, err := c.page(ctx, "regions", 1)
	if err != nil {
		return Vocabularies{}, wrap("regions", err)
	}
	locations, err := c.allPages(ctx, "locations")
	if err != nil {
		return Vocabularies{}, wrap("locations", err)
	}

	v := Vocabularies{
		Countries: resolve.NewVocabulary(descriptions(countries.Items)),
		States:    resolve.NewVocabulary(descriptions(states.Items)),
		Locations: resolve.NewVocabulary(descriptions(locations)),
		Regions:   resolve.NewRegionMap(regionCodes(regions.Items)),
	}
	c.logger.Info("reference.noaa.loaded",
		"countries", v.Countries.Len(),
		"states", v.States.Len(),
		"locations", v.Locations.Len(),
		"regions", v.Regions.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return v, nil
}

func (c *NOAAClient) allPages(ctx context.Context, kind string) ([]descriptor, error) {
	first, err := c.page(ctx, kind, 1)
	if err != nil {
		return nil, err
	}
	items := first.Items
	for p := 2; p <= first.TotalPages; p++ {
		next, err := c.page(ctx, kind, p)
		if err != nil {
			return nil, err
		}
		items = append(items, next.Items...)
	}
	return items, nil
}

func (c *NOAAClient) page(ctx context.Context, kind string, page int) (descriptorPage, error) {
	q := url.Values{}
	q.Set("itemsPerPage", strconv.Itoa(itemsPerPage))
	q.Set("page", strconv.Itoa(page))
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, kind, q.Encode())

	var out descriptorPage
	err := common.Retry(ctx, c.retry, func() error {
		raw, err := getBytes(ctx, c.http, u, c.logger)
		if err != nil {
			return err
		}
		if err := validateJSON(c.schema, raw); err != nil {
			return err
		}
		out = descriptorPage{}
		return json.Unmarshal(raw, &out)
	}, func(err error, wait time.Duration) {
		c.logger.Warn("reference.noaa.retry", "url", u, "error", err, "wait_ms", wait.Milliseconds())
	})
	if err != nil {
		return descriptorPage{}, fmt.Errorf("fetch %s: %w", u, err)
	}
	return out, nil
}

func descriptions(items []descriptor) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.Description != nil {
			out = append(out, *it.Description)
		}
	}
	return out
}

// regionCodes keys regions by their id, which NOAA sends as a number or a string.
func regionCodes(items []descriptor) map[string]string {
	out := make(map[string]string, len(items))
	for _, it := range items {
		id := strings.Trim(strings.TrimSpace(string(it.ID)), `"`)
		if id == "" || id == "null" {
			continue
		}
		desc := ""
		if it.Description != nil {
			desc = strings.TrimSpace(*it.Description)
		}
		out[id] = desc
	}
	return out
}
