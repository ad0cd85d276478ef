// Package chat builds prompts from aggregated artist context and
// forwards them to the hosted LLM.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/musicnerd/backstage/internal/aggregate"
	"github.com/musicnerd/backstage/spotify"
)

const defaultModel = "claude-sonnet-4-20250514"

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// PromptConfig collects every knob the per-route prompt variants used
// to hard-code: persona tone, response length and formatting rules.
// One assembler, one config structure.
type PromptConfig struct {
	Persona  string
	MaxWords int
	Rules    []string
}

// ChatConfig is the conversational persona.
func ChatConfig() PromptConfig {
	return PromptConfig{
		Persona:  "You are a music expert known for insightful commentary. Respond to music-related questions with depth and enthusiasm.",
		MaxWords: 300,
		Rules: []string{
			"Stay on the topic of music and artists.",
			"When support links are provided, mention how fans can directly support the artist.",
		},
	}
}

// BioConfig is the biographer persona used by the bio endpoint.
func BioConfig() PromptConfig {
	return PromptConfig{
		Persona:  "You are a professional music biographer. Write concise artist bios that are engaging and informative.",
		MaxWords: 250,
		Rules: []string{
			"Never include phrases like \"Here is a bio\" or similar preambles.",
			"Keep bios to 2-3 short paragraphs.",
			"Focus on key career highlights and artistic style.",
			"Write in a professional tone.",
		},
	}
}

// SystemPrompt renders a PromptConfig into the system message.
func SystemPrompt(cfg PromptConfig) string {
	var b strings.Builder
	b.WriteString(cfg.Persona)
	if cfg.MaxWords > 0 {
		fmt.Fprintf(&b, " Keep responses under %d words.", cfg.MaxWords)
	}
	for _, r := range cfg.Rules {
		b.WriteString("\n- ")
		b.WriteString(r)
	}
	return b.String()
}

// ContextBlock renders the listening context handed to the model
// alongside the user's message. Either argument may be nil.
func ContextBlock(track *spotify.TrackRef, info *aggregate.Result) string {
	var b strings.Builder

	if track != nil {
		fmt.Fprintf(&b, "Currently playing: %q by %s (album: %s).\n",
			track.Title, strings.Join(track.Artists, ", "), track.Album)
	}

	if info != nil && len(info.Links) > 0 {
		fmt.Fprintf(&b, "Ways to support %s:\n", info.ArtistName)
		writeBucket(&b, "direct (artist keeps ~100%)", info.Categorized.Direct)
		writeBucket(&b, "purchase", info.Categorized.Purchase)
		writeBucket(&b, "streaming", info.Categorized.Streaming)
	}

	return b.String()
}

func writeBucket(b *strings.Builder, label string, urls []string) {
	if len(urls) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s: %s\n", label, strings.Join(urls, ", "))
}

// Welcome is the static greeting served before a session starts.
func Welcome() string {
	return "Welcome to MusicNerd! Ask me anything about the artist you're listening to."
}

// ---------------------------------------------
// Assembler
// ---------------------------------------------

type Assembler struct {
	client anthropic.Client
	model  anthropic.Model
	log    zerolog.Logger
}

func NewAssembler(apiKey, model string, log zerolog.Logger) *Assembler {
	if model == "" {
		model = defaultModel
	}
	return &Assembler{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
		log:    log.With().Str("component", "chat").Logger(),
	}
}

// Reply sends the conversation plus listening context to the model and
// returns the assistant's text. listener is an optional pre-rendered
// summary of the user's listening habits.
func (a *Assembler) Reply(
	ctx context.Context,
	history []Message,
	userMsg string,
	track *spotify.TrackRef,
	info *aggregate.Result,
	listener string,
) (string, error) {

	blk := ContextBlock(track, info)
	if listener != "" {
		blk += "Listener profile: " + listener + "\n"
	}
	content := userMsg
	if blk != "" {
		content = blk + "\n" + userMsg
	}

	msgs := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, m := range history {
		if m.Role == "assistant" {
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(content)))

	return a.send(ctx, SystemPrompt(ChatConfig()), msgs, 1000)
}

// Bio asks the model for a short artist biography.
func (a *Assembler) Bio(ctx context.Context, artistName string, info *aggregate.Result) (string, error) {
	prompt := fmt.Sprintf(
		"Write a concise bio for %s. Focus on their musical style, significant achievements, and current impact.",
		artistName)
	if blk := ContextBlock(nil, info); blk != "" {
		prompt = blk + "\n" + prompt
	}

	msgs := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	}
	return a.send(ctx, SystemPrompt(BioConfig()), msgs, 800)
}

func (a *Assembler) send(
	ctx context.Context,
	system string,
	msgs []anthropic.MessageParam,
	maxTokens int64,
) (string, error) {

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(0.7),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages:    msgs,
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("anthropic call failed")
		return "", fmt.Errorf("llm request: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
