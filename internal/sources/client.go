package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mizan/internal/core"
)

// Provider fetches all seven collections for one aggregation run.
type Provider interface {
	FetchAll(ctx context.Context) Batch
}

// pageSize forces full retrieval in one round trip instead of walking
// paginated chunks.
const pageSize = 10000

// maxBody caps a single collection response at 32 MiB.
const maxBody = 32 << 20

// Client talks to the upstream market-management API.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ Provider = (*Client)(nil)

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// FetchAll issues all seven collection fetches concurrently and waits for
// every one to settle. A failing source contributes a human-readable
// entry to Batch.Errors and an empty slice; it never prevents the other
// six from being processed.
func (c *Client) FetchAll(ctx context.Context) Batch {
	var (
		b  Batch
		mu sync.Mutex
		g  errgroup.Group
	)
	fail := func(msg string) {
		mu.Lock()
		b.Errors = append(b.Errors, msg)
		mu.Unlock()
	}

	// Each goroutine writes a distinct Batch field; only Errors is shared.
	g.Go(func() error {
		list, errMsg := fetchList[ExpenditureRecord](ctx, c, core.SourceExpenditures)
		if errMsg != "" {
			fail(errMsg)
			return nil
		}
		b.Expenditures = list
		return nil
	})
	g.Go(func() error {
		list, errMsg := fetchList[IncomeRecord](ctx, c, core.SourceExpenditureIncome)
		if errMsg != "" {
			fail(errMsg)
			return nil
		}
		b.Incomes = list
		return nil
	})
	g.Go(func() error {
		list, errMsg := fetchList[RentRecord](ctx, c, core.SourceRent)
		if errMsg != "" {
			fail(errMsg)
			return nil
		}
		b.Rents = list
		return nil
	})
	g.Go(func() error {
		list, errMsg := fetchList[ServiceRecord](ctx, c, core.SourceServices)
		if errMsg != "" {
			fail(errMsg)
			return nil
		}
		b.Services = list
		return nil
	})
	g.Go(func() error {
		list, errMsg := fetchList[SalaryRecord](ctx, c, core.SourceSalaries)
		if errMsg != "" {
			fail(errMsg)
			return nil
		}
		b.Salaries = list
		return nil
	})
	g.Go(func() error {
		list, errMsg := fetchList[CustomerRecord](ctx, c, core.SourceCustomers)
		if errMsg != "" {
			fail(errMsg)
			return nil
		}
		b.Customers = list
		return nil
	})
	g.Go(func() error {
		list, errMsg := fetchList[AgreementRecord](ctx, c, core.SourceAgreements)
		if errMsg != "" {
			fail(errMsg)
			return nil
		}
		b.Agreements = list
		return nil
	})

	_ = g.Wait()
	sort.Strings(b.Errors)
	return b
}

// fetchList retrieves and decodes one collection. The second return value
// is the accumulated-error entry, empty on success. An unexpected
// response shape decodes to an empty list rather than an error, matching
// the upstream client's behaviour.
func fetchList[T any](ctx context.Context, c *Client, src core.Source) ([]T, string) {
	body, status, err := c.get(ctx, string(src))
	if err != nil || status >= http.StatusBadRequest {
		return nil, fetchErrorMessage(src, status, body, err)
	}
	list, err := decodeList[T](body)
	if err != nil {
		slog.WarnContext(ctx, "Unexpected collection response shape",
			"source", string(src),
			"error", err)
		return nil, ""
	}
	return list, ""
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	url := fmt.Sprintf("%s%s?page_size=%d", c.baseURL, path, pageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// decodeList accepts either a bare JSON array or a {"results": [...]}
// envelope.
func decodeList[T any](body []byte) ([]T, error) {
	data := body
	var envelope struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Results != nil {
		data = envelope.Results
	}
	var list []T
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// fetchErrorMessage builds the operator-facing message for one failed
// source: a backend-supplied detail wins, then an HTTP-status phrase,
// then a generic fallback.
func fetchErrorMessage(src core.Source, status int, body []byte, err error) string {
	msg := "خطا در دریافت " + string(src) + ": "
	switch {
	case err != nil:
		return msg + "خطای شبکه."
	case status == http.StatusNotFound:
		return msg + "یافت نشد."
	default:
		if detail := errorDetail(body); detail != "" {
			return msg + detail
		}
		return msg + fmt.Sprintf("HTTP %d", status)
	}
}

func errorDetail(body []byte) string {
	var obj struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &obj); err == nil {
		if obj.Detail != "" {
			return obj.Detail
		}
		if obj.Message != "" {
			return obj.Message
		}
	}
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}
	return ""
}
