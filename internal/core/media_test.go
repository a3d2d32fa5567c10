package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gwi.com/aiclone/internal/common"
	"gwi.com/aiclone/internal/store"
)

type mediaFixture struct {
	svc      *MediaService
	analyzer *fakeAnalyzer
	sessions *SessionStore
	store    store.Store
	dir      string
}

func newMediaFixture(t *testing.T, analyzer *fakeAnalyzer) mediaFixture {
	t.Helper()
	st := newTestStore(t)
	dir := filepath.Join(t.TempDir(), "uploads")
	sessions := NewSessionStore(time.Hour)
	learned := NewLearnedService(st, NewQAMatcher(nil), NewResponseCache(time.Hour, 0), nullLogger())

	var a MediaAnalyzer
	if analyzer != nil {
		a = analyzer
	}
	svc, err := NewMediaService(dir, 1024, a, time.Second, sessions, learned, nullLogger())
	require.NoError(t, err)
	return mediaFixture{svc: svc, analyzer: analyzer, sessions: sessions, store: st, dir: dir}
}

func TestMediaService_UploadImageValidation(t *testing.T) {
	f := newMediaFixture(t, &fakeAnalyzer{answer: "a cat"})
	ctx := context.Background()

	_, err := f.svc.UploadImage(ctx, Upload{FileName: "x.bmp", ContentType: "image/bmp", Data: []byte("x")})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.svc.UploadImage(ctx, Upload{FileName: "big.png", ContentType: "image/png", Data: make([]byte, 2048)})
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.Equal(t, "File too large (max 1024 bytes)", err.Error())

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMediaService_UploadImageWithoutQuery(t *testing.T) {
	f := newMediaFixture(t, &fakeAnalyzer{answer: "a cat"})

	res, err := f.svc.UploadImage(context.Background(), Upload{FileName: "cat.png", ContentType: "image/png", Data: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, "Image uploaded successfully", res.Message)
	assert.Empty(t, res.Analysis)
	assert.NotEmpty(t, res.SessionID)
	assert.True(t, strings.HasPrefix(res.StoredName, "img_"))
	assert.True(t, strings.HasSuffix(res.StoredName, "_cat.png"))
	assert.Zero(t, f.analyzer.imageCalls)

	data, err := os.ReadFile(res.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestMediaService_UploadImageAnalyzed(t *testing.T) {
	f := newMediaFixture(t, &fakeAnalyzer{answer: strings.Repeat("c", 1200)})
	ctx := context.Background()

	res, err := f.svc.UploadImage(ctx, Upload{
		FileName:    "cat.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("jpg"),
		Query:       "what animal is this",
		SessionID:   "s1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Image analyzed! You can now ask questions about it.", res.Message)
	assert.Len(t, res.Analysis, 1000)
	assert.Equal(t, "s1", res.SessionID)
	assert.Equal(t, "image/jpeg", f.analyzer.imageMIME)
	assert.True(t, strings.HasSuffix(f.analyzer.imagePrompt, "\n\nwhat animal is this"))

	sc := f.sessions.Get("s1")
	require.NotNil(t, sc)
	assert.Equal(t, "cat.jpg", sc.FileName)
	assert.Equal(t, "[Image uploaded]", sc.Content)

	learned, err := f.store.ListLearned(ctx, 0)
	require.NoError(t, err)
	require.Len(t, learned, 1)
	assert.Equal(t, "Image: what animal is this", learned[0].Question)
}

func TestMediaService_UploadImageAnalysisFails(t *testing.T) {
	f := newMediaFixture(t, &fakeAnalyzer{err: errors.New("quota exceeded")})

	res, err := f.svc.UploadImage(context.Background(), Upload{
		FileName: "cat.gif", ContentType: "image/gif", Data: []byte("gif"), Query: "what is it", SessionID: "s1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Image uploaded successfully", res.Message)
	assert.Nil(t, f.sessions.Get("s1"))
}

func TestMediaService_UploadDocument(t *testing.T) {
	f := newMediaFixture(t, &fakeAnalyzer{answer: "a shopping list"})
	ctx := context.Background()

	_, err := f.svc.UploadDocument(ctx, Upload{FileName: "x.exe", ContentType: "application/octet-stream", Data: []byte("x")})
	assert.ErrorIs(t, err, common.ErrValidation)

	res, err := f.svc.UploadDocument(ctx, Upload{
		FileName: "notes.txt", ContentType: "text/plain", Data: []byte("milk, eggs, bread"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Document analyzed! You can now ask questions about it.", res.Message)
	assert.Equal(t, "a shopping list", res.Analysis)
	assert.True(t, strings.HasPrefix(res.StoredName, "doc_"))

	require.Len(t, f.analyzer.docPrompts, 1)
	p := f.analyzer.docPrompts[0]
	assert.Contains(t, p, "Document content:\nmilk, eggs, bread")
	assert.Contains(t, p, "User query: Please analyze and summarize this document")

	sc := f.sessions.Get(res.SessionID)
	require.NotNil(t, sc)
	assert.Equal(t, "milk, eggs, bread", sc.Content)

	learned, err := f.store.ListLearned(ctx, 0)
	require.NoError(t, err)
	require.Len(t, learned, 1)
	assert.Equal(t, "Document: notes.txt - analysis", learned[0].Question)
}

func TestMediaService_UploadDocumentBrokenDOCX(t *testing.T) {
	f := newMediaFixture(t, &fakeAnalyzer{answer: "unreadable"})

	_, err := f.svc.UploadDocument(context.Background(), Upload{
		FileName: "report.docx", ContentType: mimeDOCX, Data: []byte("not a zip"), Query: "key points",
	})
	require.NoError(t, err)
	require.Len(t, f.analyzer.docPrompts, 1)
	assert.Contains(t, f.analyzer.docPrompts[0], "[DOCX file - content extraction failed]")
	assert.Contains(t, f.analyzer.docPrompts[0], "User query: key points")
}

func TestMediaService_NoAnalyzer(t *testing.T) {
	f := newMediaFixture(t, nil)

	res, err := f.svc.UploadDocument(context.Background(), Upload{
		FileName: "notes.txt", ContentType: "text/plain", Data: []byte("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "File uploaded successfully but analysis failed", res.Message)
	assert.Empty(t, res.Analysis)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "10MB", formatSize(10<<20))
	assert.Equal(t, "1024 bytes", formatSize(1024))
	assert.Equal(t, "1572864 bytes", formatSize(3<<19))
}
