package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/yoockh/yoohealth/internal/models"
	"github.com/yoockh/yoohealth/internal/utils"
)

var errBoom = errors.New("boom")

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	err   error
	touch error
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[string]*models.User{}} }

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, x := range f.byID {
		if x.Email == u.Email {
			return utils.ErrDuplicate
		}
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, utils.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (f *fakeUsers) TouchSignIn(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.touch != nil {
		return f.touch
	}
	if u, ok := f.byID[id]; ok {
		u.LastSignInAt = at
		return nil
	}
	return utils.ErrNotFound
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.PasswordHash = hash
		return nil
	}
	return utils.ErrNotFound
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id, name string, avatarURL *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return utils.ErrNotFound
	}
	u.Name = name
	if avatarURL != nil {
		v := *avatarURL
		u.AvatarURL = &v
	}
	return nil
}

type fakeChats struct {
	mu     sync.Mutex
	rows   []models.ChatMessage
	insErr error
	// failBot fails only inserts of bot messages
	failBot bool
}

func (f *fakeChats) Insert(ctx context.Context, m *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insErr != nil || (f.failBot && m.IsBot) {
		return errBoom
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.rows = append(f.rows, *m)
	return nil
}

func (f *fakeChats) ListByUser(_ context.Context, userID string, _ int) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChatMessage
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeTopicRepo struct {
	rows  []models.HealthTopic
	err   error
	calls int
	cats  []string
}

func (f *fakeTopicRepo) ListAll(context.Context) ([]models.HealthTopic, error) {
	f.calls++
	return f.rows, f.err
}

func (f *fakeTopicRepo) ListByCategories(_ context.Context, cats []string) ([]models.HealthTopic, error) {
	f.calls++
	f.cats = cats
	return f.rows, f.err
}

func (f *fakeTopicRepo) Upsert(_ context.Context, t *models.HealthTopic) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, *t)
	return nil
}

type fakeTranscripts struct {
	mu   sync.Mutex
	docs []models.VoiceTranscript
	err  error
}

func (f *fakeTranscripts) Insert(_ context.Context, t *models.VoiceTranscript) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, *t)
	return nil
}

func (f *fakeTranscripts) ListByUser(_ context.Context, userID string, _ int64) ([]models.VoiceTranscript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.VoiceTranscript
	for _, d := range f.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeRecordings struct {
	logs map[string]*models.RecordingLog
	err  error
}

func (f *fakeRecordings) Create(_ context.Context, l *models.RecordingLog) error {
	if f.err != nil {
		return f.err
	}
	if f.logs == nil {
		f.logs = map[string]*models.RecordingLog{}
	}
	cp := *l
	f.logs[l.SessionID] = &cp
	return nil
}

func (f *fakeRecordings) Finish(_ context.Context, id, state string, chunks, bytes int, endedAt time.Time) error {
	l, ok := f.logs[id]
	if !ok {
		return utils.ErrNotFound
	}
	l.State, l.ChunkCount, l.Bytes, l.EndedAt = state, chunks, bytes, &endedAt
	return nil
}

func (f *fakeRecordings) GetBySessionID(_ context.Context, id string) (*models.RecordingLog, error) {
	if l, ok := f.logs[id]; ok {
		return l, nil
	}
	return nil, utils.ErrNotFound
}

type fakeSTT struct {
	text  string
	conf  float64
	err   error
	audio []byte
	mime  string
}

func (f *fakeSTT) Transcribe(_ context.Context, audio []byte, mimeType, _ string) (string, float64, error) {
	f.audio, f.mime = audio, mimeType
	return f.text, f.conf, f.err
}

func (f *fakeSTT) Name() string { return "fake" }
func (f *fakeSTT) Close() error { return nil }

type fakeUploader struct {
	names []string
	data  [][]byte
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, name, _ string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, _ := io.ReadAll(r)
	f.names = append(f.names, name)
	f.data = append(f.data, b)
	return "gs://bucket/" + name, nil
}

// signingUploader also hands out fetchable URLs for what it stored.
type signingUploader struct {
	fakeUploader
	signErr error
}

func (f *signingUploader) SignedGetURL(_ context.Context, ref string, _ time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://signed.example/" + strings.TrimPrefix(ref, "gs://"), nil
}
