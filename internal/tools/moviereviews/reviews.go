package moviereviews

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/BoTlInYQ/mcpserver/internal/config"
	"github.com/BoTlInYQ/mcpserver/internal/tools"
	"github.com/sirupsen/logrus"
)

const (
	// MsgNoReviews is returned when a title search yields no documents
	MsgNoReviews = "No reviews found for the given query/date range."
	// MsgNoCriticsPicks is returned when no document survives the picks filter
	MsgNoCriticsPicks = "No Critics' Pick reviews found for the given criteria."

	unableToFetchPrefix = "Unable to fetch results."
)

// Searcher fetches one page of Article Search results
type Searcher interface {
	Search(ctx context.Context, logger *logrus.Logger, req SearchRequest) (*SearchResponse, error)
}

// Options are the caller supplied arguments shared by both review tools
type Options struct {
	Query     string
	Sort      string
	Page      int
	BeginDate string
	EndDate   string
	Limit     int
	Filters   []string
}

// SearchReviews runs a free-text review search and renders the result text
func SearchReviews(ctx context.Context, logger *logrus.Logger, searcher Searcher, opts Options) (string, error) {
	req := buildRequest(opts, opts.Filters)
	req.Query = opts.Query

	resp, err := searcher.Search(ctx, logger, req)
	if err != nil {
		return unableToFetch(err), err
	}

	docs := resp.Documents()
	if len(docs) == 0 {
		return MsgNoReviews, nil
	}
	return FormatReviews(docs, req.Limit), nil
}

// CriticsPicks fetches reviews filtered to Critics' Picks and renders the result text
func CriticsPicks(ctx context.Context, logger *logrus.Logger, searcher Searcher, opts Options) (string, error) {
	terms := append([]string{CriticsPickTerm}, opts.Filters...)
	req := buildRequest(opts, terms)

	resp, err := searcher.Search(ctx, logger, req)
	if err != nil {
		return unableToFetch(err), err
	}

	docs := resp.Documents()
	picks := FilterCriticsPicks(docs)
	logger.WithFields(logrus.Fields{
		"returned": len(docs),
		"picks":    len(picks),
	}).Debug("Filtered Critics' Pick documents")

	if len(picks) == 0 {
		return MsgNoCriticsPicks, nil
	}
	return FormatReviews(picks, req.Limit), nil
}

// buildRequest normalises the shared options into a SearchRequest.
// Unusable dates are dropped rather than rejected.
func buildRequest(opts Options, terms []string) SearchRequest {
	req := SearchRequest{
		FilterQuery: BuildFilterQuery(terms...),
		Sort:        opts.Sort,
		Page:        opts.Page,
		Limit:       opts.Limit,
	}
	if begin, ok := NormaliseDate(opts.BeginDate); ok {
		req.BeginDate = begin
	}
	if end, ok := NormaliseDate(opts.EndDate); ok {
		req.EndDate = end
	}
	req.clamp()
	return req
}

func unableToFetch(err error) string {
	return fmt.Sprintf("%s %s", unableToFetchPrefix, err.Error())
}

// reviewTool carries what both MCP tools share
type reviewTool struct {
	searcher     Searcher
	defaultLimit int
}

var (
	sharedClient     *Client
	sharedClientOnce sync.Once
)

// resolve returns the injected searcher or the process wide client built
// from the loaded configuration
func (t *reviewTool) resolve(logger *logrus.Logger) (Searcher, int) {
	if t.searcher != nil {
		limit := t.defaultLimit
		if limit < 1 {
			limit = config.DefaultResultLimit
		}
		return t.searcher, limit
	}

	cfg := config.Get()
	sharedClientOnce.Do(func() {
		sharedClient = NewClient(cfg, logger)
	})
	return sharedClient, cfg.DefaultLimit
}

// run executes fn and records API failures in the tool error log
func (t *reviewTool) run(ctx context.Context, logger *logrus.Logger, toolName string, args map[string]any, requireQuery bool,
	fn func(context.Context, *logrus.Logger, Searcher, Options) (string, error)) (string, error) {
	searcher, defaultLimit := t.resolve(logger)

	opts, err := parseOptions(args, requireQuery, defaultLimit)
	if err != nil {
		return "", err
	}

	text, apiErr := fn(ctx, logger, searcher, opts)
	if apiErr != nil {
		logger.WithError(apiErr).WithField("tool", toolName).Warn("Review lookup failed")
		tools.GetGlobalErrorLogger().LogToolError(toolName, args, apiErr)
	}
	return text, nil
}

// parseOptions reads tool arguments. Numbers arrive from JSON as float64.
func parseOptions(args map[string]any, requireQuery bool, defaultLimit int) (Options, error) {
	opts := Options{
		Sort:  SortNewest,
		Limit: defaultLimit,
	}

	query, _ := args["query"].(string)
	opts.Query = strings.TrimSpace(query)
	if requireQuery && opts.Query == "" {
		return opts, fmt.Errorf("missing or invalid required parameter: query")
	}

	if sort, ok := args["sort"].(string); ok && sort != "" {
		opts.Sort = NormaliseSort(sort)
	}
	if begin, ok := args["begin_date"].(string); ok {
		opts.BeginDate = strings.TrimSpace(begin)
	}
	if end, ok := args["end_date"].(string); ok {
		opts.EndDate = strings.TrimSpace(end)
	}

	if raw, ok := args["page"]; ok {
		page, err := toInt(raw)
		if err != nil {
			return opts, fmt.Errorf("invalid page: %w", err)
		}
		opts.Page = page
	}
	if raw, ok := args["limit"]; ok {
		limit, err := toInt(raw)
		if err != nil {
			return opts, fmt.Errorf("invalid limit: %w", err)
		}
		opts.Limit = limit
	}

	filters, err := toStrings(args["filters"])
	if err != nil {
		return opts, fmt.Errorf("invalid filters: %w", err)
	}
	opts.Filters = filters

	return opts, nil
}

func toInt(raw any) (int, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("not a finite number")
		}
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("expected a number, got %q", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", raw)
	}
}

func toStrings(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return compact(v), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected strings, got %T", item)
			}
			out = append(out, s)
		}
		return compact(out), nil
	case string:
		return compact([]string{v}), nil
	default:
		return nil, fmt.Errorf("expected an array of strings, got %T", raw)
	}
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
