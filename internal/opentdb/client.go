package opentdb

import (
	"context"
	"encoding/json"
	"html"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"trivia-service/internal/domain"
)

const (
	// DefaultBaseURL is the public OpenTriviaDB endpoint.
	DefaultBaseURL = "https://opentdb.com/api.php"
	defaultAmount  = 1
	defaultType    = "multiple"
)

// RawQuestion mirrors the OpenTriviaDB question payload.
type RawQuestion struct {
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type apiResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []RawQuestion `json:"results"`
}

// Request holds the query parameters sent to the provider.
// Zero values fall back to one multiple-choice question from any category.
type Request struct {
	Difficulty domain.Tier
	Amount     int
	Category   int
	Type       string
}

// Client talks to OpenTriviaDB. It never retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithLogger sets the logger failures are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRand fixes the shuffle source, mostly for tests.
func WithRand(rnd *rand.Rand) Option {
	return func(c *Client) {
		if rnd != nil {
			c.rnd = rnd
		}
	}
}

func NewClient(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient: httpClient,
		baseURL:    DefaultBaseURL,
		logger:     zap.NewNop(),
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchQuestion asks for a single question at the given tier.
// Failures come back as *domain.FetchError.
func (c *Client) FetchQuestion(ctx context.Context, tier domain.Tier) (domain.Question, error) {
	raw, err := c.FetchRaw(ctx, Request{Difficulty: tier})
	if err != nil {
		return domain.Question{}, err
	}
	return c.build(raw[0]), nil
}

// FetchRaw issues one request and returns every result the provider sent.
// At least one result is guaranteed on success.
func (c *Client) FetchRaw(ctx context.Context, r Request) ([]RawQuestion, error) {
	reqURL := c.requestURL(r)
	logger := c.logger.With(zap.String("difficulty", string(r.Difficulty)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, c.fail(logger, domain.NewNetworkError(err, "build request"))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(logger, domain.NewNetworkError(err, "request failed"))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(logger, domain.NewNetworkError(nil, "opentdb returned status %d", resp.StatusCode))
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, c.fail(logger, domain.NewNetworkError(err, "decode response"))
	}

	if payload.ResponseCode != 0 {
		return nil, c.fail(logger, domain.NewNoQuestionsError("opentdb response_code=%d", payload.ResponseCode))
	}
	if len(payload.Results) == 0 {
		return nil, c.fail(logger, domain.NewNoQuestionsError("opentdb returned no results"))
	}

	return payload.Results, nil
}

// Build converts a raw provider question into a shuffled domain question.
func (c *Client) Build(raw RawQuestion) domain.Question {
	return c.build(raw)
}

func (c *Client) build(raw RawQuestion) domain.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	return BuildQuestion(raw, c.rnd)
}

func (c *Client) requestURL(r Request) string {
	amount := r.Amount
	if amount <= 0 {
		amount = defaultAmount
	}
	answerType := r.Type
	if answerType == "" {
		answerType = defaultType
	}

	query := url.Values{}
	query.Set("amount", strconv.Itoa(amount))
	if r.Difficulty != "" {
		query.Set("difficulty", string(r.Difficulty))
	}
	if r.Category > 0 {
		query.Set("category", strconv.Itoa(r.Category))
	}
	query.Set("type", answerType)
	return c.baseURL + "?" + query.Encode()
}

func (c *Client) fail(logger *zap.Logger, err *domain.FetchError) error {
	logger.Warn("question fetch failed",
		zap.String("kind", string(err.Kind)),
		zap.String("message", err.Message),
		zap.Error(err.Err),
	)
	return err
}

// BuildQuestion appends the correct answer to the incorrect ones and shuffles
// the result. Text is HTML-unescaped first so the correct answer stays
// comparable with the option it ends up in.
func BuildQuestion(raw RawQuestion, rnd *rand.Rand) domain.Question {
	correct := html.UnescapeString(raw.CorrectAnswer)

	options := make([]string, 0, len(raw.IncorrectAnswers)+1)
	for _, incorrect := range raw.IncorrectAnswers {
		options = append(options, html.UnescapeString(incorrect))
	}
	options = append(options, correct)

	rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	return domain.Question{
		Category:      html.UnescapeString(raw.Category),
		Prompt:        html.UnescapeString(raw.Question),
		Options:       options,
		CorrectAnswer: correct,
	}
}
