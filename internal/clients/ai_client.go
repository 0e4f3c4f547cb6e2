// Package clients holds adapters for the external generation collaborators.
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"plotforge/internal/interfaces"
	"plotforge/internal/models"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

var log = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

// ErrEmptyResponse means the model returned no usable completion.
var ErrEmptyResponse = errors.New("AI returned an empty response")

// tokenizerFallbackModel is used when the configured model has no registered
// tiktoken encoding (OpenRouter model names usually don't).
const tokenizerFallbackModel = "gpt-3.5-turbo"

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.AIClient = (*Client)(nil)

// Client talks to an OpenAI-compatible API (OpenRouter by default) for both
// chapter generation and structured continuity extraction.
type Client struct {
	client           *openai.Client
	modelName        string
	timeout          time.Duration
	maxRetries       int
	maxContextTokens int
}

// Config holds the AI client configuration.
type Config struct {
	APIKey           string
	BaseURL          string
	ModelName        string
	Timeout          time.Duration
	MaxRetries       int
	MaxContextTokens int
}

// New creates a new AI client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("AI API key is not set")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "deepseek/deepseek-chat-v3-0324:free"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = 6000
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	apiConfig.BaseURL = cfg.BaseURL

	return &Client{
		client:           openai.NewClientWithConfig(apiConfig),
		modelName:        cfg.ModelName,
		timeout:          cfg.Timeout,
		maxRetries:       cfg.MaxRetries,
		maxContextTokens: cfg.MaxContextTokens,
	}, nil
}

// GenerateChapter produces the next chapter plus proposed choices. Failures
// and malformed output map to models.ErrGenerationFailed.
func (c *Client) GenerateChapter(ctx context.Context, req models.GenerationRequest) (*models.GeneratedChapter, error) {
	systemPrompt := chapterSystemPrompt
	userPrompt := c.buildChapterPrompt(req)

	raw, err := c.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGenerationFailed, err)
	}

	var parsed struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		Choices []struct {
			ID          string `json:"id"`
			Title       string `json:"title"`
			Description string `json:"description"`
			Text        string `json:"text"`
			Consequence string `json:"consequence"`
			Impact      string `json:"impact"`
			Type        string `json:"type"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(extractJSONBlock(raw), &parsed); err != nil {
		log.Error().Err(err).Str("storyID", req.StoryID).Msg("Failed to parse generation output")
		return nil, fmt.Errorf("%w: unparseable output: %v", models.ErrGenerationFailed, err)
	}
	if strings.TrimSpace(parsed.Content) == "" {
		return nil, fmt.Errorf("%w: empty chapter content", models.ErrGenerationFailed)
	}

	out := &models.GeneratedChapter{
		Title:   parsed.Title,
		Content: parsed.Content,
		Choices: make([]models.GeneratedChoice, 0, len(parsed.Choices)),
	}
	// Normalize both upstream choice shapes ({text, consequence} and
	// {title, description}) right here so nothing downstream branches on
	// field presence.
	for _, ch := range parsed.Choices {
		title := ch.Title
		if title == "" {
			title = ch.Text
		}
		description := ch.Description
		if description == "" {
			description = ch.Consequence
		}
		if title == "" && description == "" {
			continue
		}
		out.Choices = append(out.Choices, models.GeneratedChoice{
			ID:          ch.ID,
			Title:       title,
			Description: description,
			Impact:      ch.Impact,
			ChoiceType:  ch.Type,
		})
	}
	return out, nil
}

// ExtractDNA asks for the structured continuity record of a chapter. The raw
// JSON is returned as-is; validation lives with the caller.
func (c *Client) ExtractDNA(ctx context.Context, chapterText string, chapterNumber int) (json.RawMessage, error) {
	userPrompt := fmt.Sprintf("Chapter %d text:\n\n%s", chapterNumber, chapterText)
	raw, err := c.complete(ctx, dnaSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	block := extractJSONBlock(raw)
	if !json.Valid(block) {
		return nil, fmt.Errorf("extraction output is not valid JSON")
	}
	return json.RawMessage(block), nil
}

// complete runs one chat completion with retries and timeout.
func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model: c.modelName,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
		})
		cancel()

		if err == nil {
			if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
				lastErr = ErrEmptyResponse
			} else {
				return resp.Choices[0].Message.Content, nil
			}
		} else {
			lastErr = err
		}

		log.Warn().Err(lastErr).Int("attempt", attempt).Int("maxRetries", c.maxRetries).Msg("AI call failed")
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt < c.maxRetries {
			select {
			case <-time.After(time.Duration(attempt) * 2 * time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", fmt.Errorf("AI call failed after %d attempts: %w", c.maxRetries, lastErr)
}

// buildChapterPrompt assembles the user prompt, trimming oldest history until
// the whole thing fits the token budget.
func (c *Client) buildChapterPrompt(req models.GenerationRequest) string {
	history := req.History
	for {
		prompt := renderChapterPrompt(req, history)
		if len(history) == 0 || c.countTokens(prompt) <= c.maxContextTokens {
			return prompt
		}
		history = history[1:]
	}
}

func (c *Client) countTokens(text string) int {
	tke, err := tiktoken.EncodingForModel(c.modelName)
	if err != nil {
		tke, err = tiktoken.EncodingForModel(tokenizerFallbackModel)
		if err != nil {
			// Rough heuristic when no tokenizer is available at all.
			return len(text) / 4
		}
	}
	return len(tke.Encode(text, nil, nil))
}

func renderChapterPrompt(req models.GenerationRequest, history []models.ChapterContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Story outline:\n%s\n\nGenre: %s\nTone: %s\n\n", req.Outline, req.Genre, req.Tone)

	for _, ch := range history {
		if ch.Summary != "" && ch.ChapterNumber < req.ChapterNumber-1 {
			fmt.Fprintf(&b, "Chapter %d (%s) summary: %s\n", ch.ChapterNumber, ch.Title, ch.Summary)
		} else {
			fmt.Fprintf(&b, "Chapter %d (%s):\n%s\n", ch.ChapterNumber, ch.Title, ch.Content)
		}
		if ch.DNA != nil {
			if len(ch.DNA.ContinuityAnchors) > 0 {
				fmt.Fprintf(&b, "Established facts: %s\n", strings.Join(ch.DNA.ContinuityAnchors, "; "))
			}
			for _, t := range ch.DNA.PlotThreads {
				if t.Status == models.ThreadStatusOngoing {
					fmt.Fprintf(&b, "Open thread: %s\n", t.Description)
				}
			}
		}
		b.WriteString("\n")
	}

	if req.ChosenOption != "" {
		fmt.Fprintf(&b, "The reader chose: %s\n\n", req.ChosenOption)
	}
	fmt.Fprintf(&b, "Write chapter %d.", req.ChapterNumber)
	return b.String()
}

// extractJSONBlock cuts the first top-level JSON object out of a model reply
// that may wrap it in prose or markdown fences.
func extractJSONBlock(raw string) []byte {
	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, "```"); idx >= 0 {
		raw = strings.TrimPrefix(raw[idx+3:], "json")
		if end := strings.Index(raw, "```"); end >= 0 {
			raw = raw[:end]
		}
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return []byte(raw[start : end+1])
	}
	return []byte(raw)
}

const chapterSystemPrompt = `You are a fiction co-author. Continue the story with one chapter.
Respond with a single JSON object:
{"title": "...", "content": "...", "choices": [{"text": "...", "consequence": "..."}]}
Offer 2-4 choices that meaningfully diverge the narrative.`

const dnaSystemPrompt = `You analyze a book chapter and return its continuity state.
Respond with a single JSON object with keys: scene_state, active_characters,
plot_threads (objects with thread_id, description, status, next_action),
pending_decisions, active_conflicts, emotional_state,
ending_genetics (final_scene_context, cliffhanger_type, emotional_charge),
continuity_anchors (hard facts that must not be contradicted later).`
