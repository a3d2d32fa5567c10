package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQAMatcher_FindBestAnswer(t *testing.T) {
	m := NewQAMatcher([]QAPair{
		{Question: "what is your name", Answer: "AIClone"},
		{Question: "how old are you", Answer: "timeless"},
	})

	answer, score, ok := m.FindBestAnswer("What is your name?", DefaultMatchThreshold)
	require.True(t, ok)
	assert.Equal(t, "AIClone", answer)
	assert.Greater(t, score, 0.9)

	_, _, ok = m.FindBestAnswer("zzzz", DefaultMatchThreshold)
	assert.False(t, ok)
}

func TestQAMatcher_Threshold(t *testing.T) {
	m := NewQAMatcher([]QAPair{{Question: "ab", Answer: "yes"}})

	// "ab" vs "ac" scores exactly 0.5
	answer, score, ok := m.FindBestAnswer("ac", 0.5)
	assert.True(t, ok)
	assert.Equal(t, "yes", answer)
	assert.InDelta(t, 0.5, score, 1e-9)

	_, _, ok = m.FindBestAnswer("ac", 0.51)
	assert.False(t, ok)
}

func TestQAMatcher_TieKeepsFirst(t *testing.T) {
	m := NewQAMatcher([]QAPair{
		{Question: "hello", Answer: "first"},
		{Question: "hello", Answer: "second"},
	})

	answer, _, ok := m.FindBestAnswer("hello", DefaultMatchThreshold)
	require.True(t, ok)
	assert.Equal(t, "first", answer)
}

func TestQAMatcher_LearnAndForget(t *testing.T) {
	m := NewQAMatcher([]QAPair{{Question: "hello", Answer: "static"}})

	m.Learn("hello", "learned")
	m.Learn("favourite food", "pho")
	assert.Equal(t, 3, m.Len())

	// dataset entries come first, so the learned duplicate loses the tie
	answer, _, _ := m.FindBestAnswer("hello", DefaultMatchThreshold)
	assert.Equal(t, "static", answer)

	m.Learn("favourite food", "bun cha")
	assert.Equal(t, 3, m.Len())
	answer, _, ok := m.FindBestAnswer("favourite food", DefaultMatchThreshold)
	require.True(t, ok)
	assert.Equal(t, "bun cha", answer)

	assert.True(t, m.Forget("favourite food"))
	assert.False(t, m.Forget("favourite food"))
	assert.Equal(t, 2, m.Len())
}

func TestQAMatcher_Empty(t *testing.T) {
	m := NewQAMatcher(nil)
	_, _, ok := m.FindBestAnswer("anything", DefaultMatchThreshold)
	assert.False(t, ok)
}

func TestLoadQAFile(t *testing.T) {
	dir := t.TempDir()

	pairs, err := LoadQAFile(filepath.Join(dir, "missing.json"), nullLogger())
	require.NoError(t, err)
	assert.Empty(t, pairs)

	valid := filepath.Join(dir, "qa.json")
	require.NoError(t, os.WriteFile(valid, []byte(`[{"question":"hi","answer":"hello"}]`), 0o644))
	pairs, err = LoadQAFile(valid, nullLogger())
	require.NoError(t, err)
	assert.Equal(t, []QAPair{{Question: "hi", Answer: "hello"}}, pairs)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{not json`), 0o644))
	_, err = LoadQAFile(broken, nullLogger())
	assert.Error(t, err)
}
