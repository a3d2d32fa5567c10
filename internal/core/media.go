package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gwi.com/aiclone/internal/common"
	"gwi.com/aiclone/internal/utils"
)

const (
	defaultDocumentQuery = "Please analyze and summarize this document"

	maxAnalysisChars   = 1000
	maxDocumentChars   = 3000
	maxSessionChars    = 2000
	maxPDFPages        = 5
	maxDOCXParagraphs  = 50
	imageSessionMarker = "[Image uploaded]"

	mimePDF  = "application/pdf"
	mimeText = "text/plain"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var allowedDocumentTypes = map[string]bool{
	mimePDF:  true,
	mimeText: true,
	mimeDOCX: true,
}

// ErrFileTooLarge is the kind of errors returned for uploads above the configured size.
var ErrFileTooLarge = fmt.Errorf("file too large: %w", common.ErrValidation)

// formatSize renders whole mebibytes as "10MB" and anything else in bytes.
func formatSize(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}

type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
	Query       string
	SessionID   string
}

type UploadResult struct {
	FilePath   string
	FileName   string
	StoredName string
	Analysis   string
	SessionID  string
	Message    string
}

// MediaService stores uploads, asks the analyzer about them and records the
// result as the session's file context and as a learned QA entry.
type MediaService struct {
	uploadDir string
	maxBytes  int64
	analyzer  MediaAnalyzer
	timeout   time.Duration
	sessions  *SessionStore
	learned   *LearnedService
	logger    logrus.FieldLogger
	now       func() time.Time
}

func NewMediaService(uploadDir string, maxBytes int64, analyzer MediaAnalyzer, timeout time.Duration,
	sessions *SessionStore, learned *LearnedService, logger logrus.FieldLogger) (*MediaService, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", uploadDir, err)
	}
	return &MediaService{
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
		analyzer:  analyzer,
		timeout:   timeout,
		sessions:  sessions,
		learned:   learned,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (m *MediaService) MaxBytes() int64 { return m.maxBytes }

// TooLarge is the error reported for an upload above MaxBytes.
func (m *MediaService) TooLarge() error {
	return common.NewError(ErrFileTooLarge, fmt.Sprintf("File too large (max %s)", formatSize(m.maxBytes)))
}

func (m *MediaService) save(prefix string, up Upload) (string, string, error) {
	if int64(len(up.Data)) > m.maxBytes {
		return "", "", m.TooLarge()
	}
	name := fmt.Sprintf("%s_%d_%s", prefix, m.now().UnixNano(), filepath.Base(up.FileName))
	path := filepath.Join(m.uploadDir, name)
	if err := os.WriteFile(path, up.Data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to save upload: %w", err)
	}
	return name, path, nil
}

func (m *MediaService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout > 0 {
		return context.WithTimeout(ctx, m.timeout)
	}
	return context.WithCancel(ctx)
}

// UploadImage saves an image and, when a query is given, analyzes it.
func (m *MediaService) UploadImage(ctx context.Context, up Upload) (*UploadResult, error) {
	if !allowedImageTypes[up.ContentType] {
		return nil, common.Validation("Invalid image type. Allowed: JPEG, PNG, GIF, WebP")
	}
	stored, path, err := m.save("img", up)
	if err != nil {
		return nil, err
	}
	res := &UploadResult{
		FilePath:   path,
		FileName:   up.FileName,
		StoredName: stored,
		SessionID:  EnsureID(up.SessionID),
		Message:    "Image uploaded successfully",
	}
	log := m.logger.WithFields(logrus.Fields{"file": stored, "session": res.SessionID})

	query := strings.TrimSpace(up.Query)
	if query == "" || m.analyzer == nil {
		return res, nil
	}

	actx, cancel := m.withTimeout(ctx)
	defer cancel()
	analysis, err := m.analyzer.AnalyzeImage(actx, personaSystemPrompt+"\n\n"+query, up.ContentType, up.Data)
	if err != nil {
		log.WithError(err).Warn("image analysis failed")
		return res, nil
	}

	res.Analysis = utils.Truncate(analysis, maxAnalysisChars)
	res.Message = "Image analyzed! You can now ask questions about it."
	m.sessions.Set(res.SessionID, SessionContext{FileName: up.FileName, Content: imageSessionMarker, Analysis: res.Analysis})
	if err := m.learned.Record(ctx, "Image: "+query, res.Analysis, learnedConfidence); err != nil {
		log.WithError(err).Warn("failed to record image analysis")
	}
	return res, nil
}

// UploadDocument saves a document, extracts its text and always asks for an analysis.
func (m *MediaService) UploadDocument(ctx context.Context, up Upload) (*UploadResult, error) {
	if !allowedDocumentTypes[up.ContentType] {
		return nil, common.Validation("Invalid file type. Allowed: PDF, TXT, DOCX")
	}
	stored, path, err := m.save("doc", up)
	if err != nil {
		return nil, err
	}
	res := &UploadResult{
		FilePath:   path,
		FileName:   up.FileName,
		StoredName: stored,
		SessionID:  EnsureID(up.SessionID),
		Message:    "File uploaded successfully but analysis failed",
	}
	log := m.logger.WithFields(logrus.Fields{"file": stored, "session": res.SessionID})

	content := utils.Truncate(extractDocumentText(up, log), maxDocumentChars)
	if m.analyzer == nil {
		return res, nil
	}

	query := strings.TrimSpace(up.Query)
	prompt := query
	if prompt == "" {
		prompt = defaultDocumentQuery
	}

	actx, cancel := m.withTimeout(ctx)
	defer cancel()
	analysis, err := m.analyzer.SummarizeDocument(actx,
		personaSystemPrompt+"\n\nDocument content:\n"+content+"\n\nUser query: "+prompt)
	if err != nil {
		log.WithError(err).Warn("document analysis failed")
		return res, nil
	}

	res.Analysis = utils.Truncate(analysis, maxAnalysisChars)
	res.Message = "Document analyzed! You can now ask questions about it."
	m.sessions.Set(res.SessionID, SessionContext{
		FileName: up.FileName,
		Content:  utils.Truncate(content, maxSessionChars),
		Analysis: res.Analysis,
	})

	label := query
	if label == "" {
		label = "analysis"
	}
	if err := m.learned.Record(ctx, fmt.Sprintf("Document: %s - %s", up.FileName, label), res.Analysis, learnedConfidence); err != nil {
		log.WithError(err).Warn("failed to record document analysis")
	}
	return res, nil
}

func extractDocumentText(up Upload, log logrus.FieldLogger) string {
	switch up.ContentType {
	case mimePDF:
		text, err := utils.ExtractPDFText(up.Data, maxPDFPages)
		if err != nil {
			log.WithError(err).Warn("PDF extraction failed")
			return "[PDF file - content extraction failed]"
		}
		return text
	case mimeDOCX:
		text, err := utils.ExtractDOCXText(up.Data, maxDOCXParagraphs)
		if err != nil {
			log.WithError(err).Warn("DOCX extraction failed")
			return "[DOCX file - content extraction failed]"
		}
		return text
	default:
		return string(up.Data)
	}
}
