// Package news wraps the third-party news-lookup API that tool-calling
// backends offer to the model. Output is always a JSON string, including
// failures: the string goes straight back to the model as tool output, and a
// structured error lets the conversation continue where a Go error would
// abort it.
package news

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Article is the condensed shape handed to the model. Full article bodies
// would waste context tokens; title plus description is enough to answer
// "what's the news on TSLA".
type Article struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	Description string `json:"description"`
	PublishedAt string `json:"published_at"`
}

// financialSources restricts results to outlets worth quoting to a trader.
const financialSources = "financial-times,reuters,bloomberg"

// articleLimit caps how many articles one lookup returns.
const articleLimit = 3

// Client fetches recent stock and market news. It implements llm.NewsFetcher.
type Client struct {
	http   *resty.Client
	apiKey string
	logger *zap.Logger
}

// NewClient creates a news client. The lookup is bounded at 10 seconds — a
// slow news API must not stall a chat reply indefinitely. An empty apiKey is
// allowed; lookups then degrade to an explicit "key missing" error payload.
func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second)
	return &Client{
		http:   http,
		apiKey: apiKey,
		logger: logger,
	}
}

// FetchStockNews returns the top recent articles for a ticker or market
// query as a JSON string. It never fails: every error path produces a JSON
// {"error": ...} payload for the model.
func (c *Client) FetchStockNews(ctx context.Context, query string) string {
	if c.apiKey == "" {
		return errorPayload("News API key is missing. Cannot fetch real-time news.")
	}

	var body struct {
		Status   string `json:"status"`
		Articles []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			PublishedAt string `json:"publishedAt"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        query,
			"apiKey":   c.apiKey,
			"pageSize": "3",
			"language": "en",
			"sortBy":   "publishedAt",
			"sources":  financialSources,
		}).
		SetResult(&body).
		Get("/everything")
	if err != nil {
		c.logger.Warn("news lookup failed", zap.String("query", query), zap.Error(err))
		return errorPayload("An internal error occurred while reaching the News API.")
	}
	if resp.StatusCode() != 200 {
		c.logger.Warn("news API returned error status",
			zap.String("query", query), zap.Int("status", resp.StatusCode()))
		return errorPayload("News API service error (" + resp.Status() + ").")
	}
	if body.Status != "ok" || len(body.Articles) == 0 {
		return errorPayload("No recent news found for query: " + query)
	}

	articles := make([]Article, 0, articleLimit)
	for _, a := range body.Articles {
		articles = append(articles, Article{
			Title:       a.Title,
			Source:      a.Source.Name,
			Description: a.Description,
			PublishedAt: a.PublishedAt,
		})
		if len(articles) == articleLimit {
			break
		}
	}
	out, err := json.Marshal(map[string]any{"articles": articles})
	if err != nil {
		return errorPayload("An internal error occurred while formatting news results.")
	}
	return string(out)
}

func errorPayload(msg string) string {
	out, _ := json.Marshal(map[string]string{"error": msg})
	return string(out)
}
