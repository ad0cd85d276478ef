package chat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/musicnerd/backstage/internal/aggregate"
	"github.com/musicnerd/backstage/internal/chat"
	"github.com/musicnerd/backstage/spotify"
)

func TestSystemPrompt_RendersPersonaLimitAndRules(t *testing.T) {
	got := chat.SystemPrompt(chat.PromptConfig{
		Persona:  "You are a test persona.",
		MaxWords: 120,
		Rules:    []string{"Rule one.", "Rule two."},
	})

	assert.Contains(t, got, "You are a test persona.")
	assert.Contains(t, got, "under 120 words")
	assert.Contains(t, got, "- Rule one.")
	assert.Contains(t, got, "- Rule two.")
}

func TestSystemPrompt_NoLimitWhenZero(t *testing.T) {
	got := chat.SystemPrompt(chat.PromptConfig{Persona: "P."})
	assert.Equal(t, "P.", got)
}

func TestContextBlock_TrackAndLinks(t *testing.T) {
	track := &spotify.TrackRef{
		Title:   "Archangel",
		Artists: []string{"Burial"},
		Album:   "Untrue",
	}
	info := &aggregate.Result{
		ArtistName: "Burial",
		Links:      aggregate.Links{"soundxyz": {"burial.sound.xyz"}},
		Categorized: aggregate.Categorized{
			Direct:    []string{"burial.sound.xyz"},
			Streaming: []string{},
			Purchase:  []string{},
		},
	}

	got := chat.ContextBlock(track, info)
	assert.Contains(t, got, `Currently playing: "Archangel" by Burial (album: Untrue).`)
	assert.Contains(t, got, "Ways to support Burial:")
	assert.Contains(t, got, "burial.sound.xyz")
	assert.NotContains(t, got, "streaming:", "empty buckets are omitted")
}

func TestContextBlock_NilInputs(t *testing.T) {
	assert.Empty(t, chat.ContextBlock(nil, nil))
}

func TestContextBlock_EmptyLinksOmitted(t *testing.T) {
	info := &aggregate.Result{ArtistName: "Nobody", Links: aggregate.Links{}}
	assert.Empty(t, chat.ContextBlock(nil, info))
}

func TestBioConfig_KeepsPreambleRule(t *testing.T) {
	got := chat.SystemPrompt(chat.BioConfig())
	assert.Contains(t, got, "music biographer")
	assert.Contains(t, got, "preambles")
}
