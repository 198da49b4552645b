package classifier

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// Suggester asks an LLM for a second opinion on movies the rule table left in
// Other. It never runs on the deterministic classification path; callers use
// it for advisory output only, and it is disabled unless an API key is
// configured.
type Suggester struct {
	client *openai.Client
	logger *slog.Logger
}

func NewSuggester(apiKey string, logger *slog.Logger) *Suggester {
	return &Suggester{
		client: openai.NewClient(apiKey),
		logger: logger,
	}
}

// Suggest proposes a category for the given movie text. The model is
// constrained to the closed category set; anything else comes back as Other.
func (s *Suggester) Suggest(ctx context.Context, title, freeText string) (Category, error) {
	categories := []Category{
		Musicians, Athletes, Scientists, Activists, Businesspeople,
		ArtistsWriters, Politicians, Criminals, Entertainers, Military,
		HistoricalEvents, Other,
	}
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}

	prompt := fmt.Sprintf(
		"The movie %q is based on a true story. Its plot: %s\n\nWhich one of these subject categories fits it best? %s\nAnswer with the category name only.",
		title, freeText, strings.Join(names, ", "))

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini20240718,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return Other, fmt.Errorf("failed to get category suggestion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Other, nil
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	for _, c := range categories {
		if strings.EqualFold(answer, string(c)) {
			return c, nil
		}
	}

	s.logger.Debug("LLM suggestion outside category set", slog.String("answer", answer))
	return Other, nil
}
