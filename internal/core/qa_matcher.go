package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gwi.com/aiclone/internal/utils"
)

const DefaultMatchThreshold = 0.5

type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QAMatcher answers from a fixed dataset plus entries learned at runtime,
// picking the question with the highest similarity ratio to the query.
type QAMatcher struct {
	mu      sync.RWMutex
	static  []QAPair
	learned []QAPair
}

func NewQAMatcher(pairs []QAPair) *QAMatcher {
	return &QAMatcher{static: pairs}
}

// LoadQAFile reads a JSON array of question/answer pairs. A missing file yields no pairs.
func LoadQAFile(path string, logger logrus.FieldLogger) ([]QAPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.WithField("path", path).Warn("QA dataset not found, fuzzy matching starts empty")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read QA dataset %s: %w", path, err)
	}

	var pairs []QAPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("failed to parse QA dataset %s: %w", path, err)
	}
	logger.WithField("pairs", len(pairs)).Info("QA dataset loaded")
	return pairs, nil
}

// Learn adds or replaces a learned entry. Learned entries are searched after the dataset.
func (m *QAMatcher) Learn(question, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.learned {
		if m.learned[i].Question == question {
			m.learned[i].Answer = answer
			return
		}
	}
	m.learned = append(m.learned, QAPair{Question: question, Answer: answer})
}

func (m *QAMatcher) Forget(question string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.learned {
		if m.learned[i].Question == question {
			m.learned = append(m.learned[:i], m.learned[i+1:]...)
			return true
		}
	}
	return false
}

func (m *QAMatcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.static) + len(m.learned)
}

// FindBestAnswer returns the answer whose question scores highest against
// query, if that score reaches threshold. Ties keep the earlier pair.
func (m *QAMatcher) FindBestAnswer(query string, threshold float64) (string, float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bestScore := 0.0
	var best *QAPair
	scan := func(pairs []QAPair) {
		for i := range pairs {
			score := utils.SimilarityRatio(query, pairs[i].Question)
			if best == nil || score > bestScore {
				best, bestScore = &pairs[i], score
			}
		}
	}
	scan(m.static)
	scan(m.learned)

	if best == nil || bestScore < threshold {
		return "", bestScore, false
	}
	return best.Answer, bestScore, true
}
