package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripThinking(t *testing.T) {
	content := "<think>\nlet me reason about this\n</think>\nDefinition: weightlessness."
	assert.Equal(t, "Definition: weightlessness.", StripThinking(content))
}

func TestStripThinkingMultipleBlocks(t *testing.T) {
	content := "<think>a</think>first<think>b</think> second"
	assert.Equal(t, "first second", StripThinking(content))
}

func TestStripThinkingNoBlock(t *testing.T) {
	assert.Equal(t, "plain answer", StripThinking("  plain answer\n"))
}

func TestStripThinkingUnclosedBlockKept(t *testing.T) {
	content := "<think>still reasoning"
	assert.Equal(t, content, StripThinking(content))
}
