package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gwi.com/aiclone/internal/core"
	"gwi.com/aiclone/internal/store"
)

func runConvertCSV(csvPath, qaPath string, logger logrus.FieldLogger) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", csvPath, err)
	}
	defer f.Close()

	pairs, err := core.ReadQACSV(f)
	if err != nil {
		return err
	}
	if err := core.SaveQAFile(qaPath, pairs); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"pairs": len(pairs), "output": qaPath}).Info("QA dataset written")
	return nil
}

func runExportLearned(ctx context.Context, s store.LearnedStore, csvPath string, logger logrus.FieldLogger) error {
	entries, err := s.ListLearned(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to load learned QA: %w", err)
	}
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", csvPath, err)
	}
	defer f.Close()

	if err := core.WriteLearnedCSV(f, entries); err != nil {
		return fmt.Errorf("failed to write %s: %w", csvPath, err)
	}
	logger.WithFields(logrus.Fields{"entries": len(entries), "output": csvPath}).Info("learned QA exported")
	return nil
}
