package core

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gwi.com/aiclone/internal/store"
)

// ReadQACSV reads question,answer rows. A header row and rows missing
// either column are skipped.
func ReadQACSV(r io.Reader) ([]QAPair, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var pairs []QAPair
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}
		if len(rec) < 2 {
			continue
		}
		q, a := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])
		if q == "" || a == "" {
			continue
		}
		if line == 1 && strings.EqualFold(q, "question") && strings.EqualFold(a, "answer") {
			continue
		}
		pairs = append(pairs, QAPair{Question: q, Answer: a})
	}
	return pairs, nil
}

// SaveQAFile writes pairs in the format LoadQAFile reads.
func SaveQAFile(path string, pairs []QAPair) error {
	if pairs == nil {
		pairs = []QAPair{}
	}
	data, err := json.MarshalIndent(pairs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode QA dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write QA dataset %s: %w", path, err)
	}
	return nil
}

var learnedCSVHeader = []string{"question", "answer", "confidence", "created_at"}

func WriteLearnedCSV(w io.Writer, entries []store.LearnedQA) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(learnedCSVHeader); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.Question,
			e.Answer,
			strconv.FormatFloat(e.Confidence, 'f', -1, 64),
			e.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
