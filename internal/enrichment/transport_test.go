package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObjectStripsProse(t *testing.T) {
	text := "Sure, here you go:\n{\"London\": {\"city\": \"London\"}}\nHope that helps!"
	assert.Equal(t, `{"London": {"city": "London"}}`, extractJSONObject(text))
}

func TestExtractJSONObjectNoBracesReturnsInput(t *testing.T) {
	assert.Equal(t, "no braces here", extractJSONObject("no braces here"))
}

func TestBuildBatchPromptListsEveryEntry(t *testing.T) {
	prompt := buildBatchPrompt([]string{"London", "Remote - USA"})
	assert.Contains(t, prompt, "London")
	assert.Contains(t, prompt, "Remote - USA")
	assert.Contains(t, prompt, "Unknown")
}
