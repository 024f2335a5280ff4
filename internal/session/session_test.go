package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"
	"resumeforge/internal/types"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte(strings.Repeat("k", 32))

func TestAuthenticated(t *testing.T) {
	var nilSession *Session
	assert.False(t, nilSession.Authenticated())
	assert.False(t, (&Session{ID: "x"}).Authenticated())
	assert.True(t, (&Session{Token: "t"}).Authenticated())
}

func TestContextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	s := &Session{ID: "abc", Token: "t"}
	ctx := NewContext(context.Background(), s)
	assert.Same(t, s, FromContext(ctx))
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, &Session{ID: "a", Token: "t"}))

	got, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "t", got.Token)

	got.Token = "mutated"
	again, _ := store.Load(ctx, "a")
	assert.Equal(t, "t", again.Token, "loaded sessions are copies")

	now = now.Add(2 * time.Minute)
	got, err = store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreCleanup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, &Session{ID: "old"}))
	now = now.Add(30 * time.Second)
	require.NoError(t, store.Save(ctx, &Session{ID: "new"}))
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, store.Cleanup())
	assert.Equal(t, 1, store.Len())
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	store := NewFileStore(path)

	got, err := store.Load(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, got, "missing file means logged out")

	require.NoError(t, store.Save(ctx, &Session{ID: "s1", Token: "tok", User: types.User{Email: "a@b.c"}}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err = store.Load(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)

	got, err = store.Load(ctx, "other")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Delete(ctx, ""))
	require.NoError(t, store.Delete(ctx, ""), "deleting twice is fine")
	got, _ = store.Load(ctx, "")
	assert.Nil(t, got)
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load(context.Background(), "")
	assert.Error(t, err)
}

func TestCookieCodec(t *testing.T) {
	codec := NewCookieCodec("sess", testKey, time.Hour, false)

	signed, err := codec.Sign("id-1")
	require.NoError(t, err)

	id, ok := codec.Verify(signed)
	assert.True(t, ok)
	assert.Equal(t, "id-1", id)

	tests := []struct {
		name  string
		value string
		codec *CookieCodec
	}{
		{"empty", "", codec},
		{"garbage", "not-a-jwt", codec},
		{"tampered", signed[:len(signed)-2] + "xx", codec},
		{"other key", signed, NewCookieCodec("sess", []byte(strings.Repeat("z", 32)), time.Hour, false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tt.codec.Verify(tt.value)
			assert.False(t, ok)
		})
	}
}

func TestCookieCodecExpiry(t *testing.T) {
	codec := NewCookieCodec("sess", testKey, time.Minute, false)
	now := time.Now()
	codec.now = func() time.Time { return now }

	signed, err := codec.Sign("id-1")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, ok := codec.Verify(signed)
	assert.False(t, ok)
}

func TestSigningKey(t *testing.T) {
	cfg := &config.Config{}
	key, err := SigningKey(cfg, nil)
	require.NoError(t, err)
	assert.Len(t, key, config.MinSigningKeyLength)

	cfg.Session.SigningKey = "short"
	_, err = SigningKey(cfg, nil)
	assert.Error(t, err)

	cfg.Session.SigningKey = string(testKey)
	key, err = SigningKey(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, testKey, key)
}

func TestManagerWebLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	codec := NewCookieCodec("sess", testKey, time.Hour, true)
	m := NewManager(store, Options{Cookies: codec})

	var invalidated []string
	m.OnInvalidate(func(id string) { invalidated = append(invalidated, id) })

	rec := httptest.NewRecorder()
	s, err := m.Begin(ctx, rec, &types.AuthResponse{Token: "tok", User: types.User{Email: "a@b.c"}})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookies[0])
	loaded, err := m.FromRequest(req)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "tok", loaded.Token)

	loaded.ActiveProfileID = "7"
	require.NoError(t, m.Save(ctx, loaded))
	again, _ := m.Get(ctx, s.ID)
	assert.Equal(t, "7", again.ActiveProfileID)

	out := httptest.NewRecorder()
	require.NoError(t, m.Logout(ctx, out, s.ID))
	assert.Equal(t, []string{s.ID}, invalidated)
	cleared := out.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)

	loaded, err = m.FromRequest(req)
	require.NoError(t, err)
	assert.Nil(t, loaded, "cookie now points at a deleted session")
}

func TestManagerFromRequestWithoutCookie(t *testing.T) {
	m := NewManager(NewMemoryStore(0), Options{Cookies: NewCookieCodec("sess", testKey, 0, false)})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s, err := m.FromRequest(req)
	require.NoError(t, err)
	assert.Nil(t, s)

	req.AddCookie(&http.Cookie{Name: "sess", Value: "forged"})
	s, err = m.FromRequest(req)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestManagerCLILifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewFileStore(filepath.Join(t.TempDir(), "credentials.json")), Options{})

	current, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = m.Create(ctx, &types.AuthResponse{})
	assert.Error(t, err, "no token")

	s, err := m.Create(ctx, &types.AuthResponse{Token: "tok"})
	require.NoError(t, err)

	current, err = m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.ID, current.ID)

	require.NoError(t, m.Logout(ctx, nil, s.ID))
	current, _ = m.Current(ctx)
	assert.Nil(t, current)
}

func TestRedisStoreUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, config.RedisConfig{Addr: "127.0.0.1:1"}, time.Hour)
	assert.Error(t, err)
}

// memRedis implements the commands RedisStore uses on a map. Any other command panics.
type memRedis struct {
	redis.UniversalClient

	mu     sync.Mutex
	values map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func newMemRedis() *memRedis {
	return &memRedis{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memRedis) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (m *memRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := value.([]byte)
	if !ok {
		return redis.NewStatusResult("", fmt.Errorf("unexpected value type %T", value))
	}
	m.values[key] = data
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *memRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.values[k]; ok {
			delete(m.values, k)
			delete(m.ttls, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *memRedis) Close() error { return nil }

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newMemRedis()
	store := NewRedisStoreWithClient(client, "rf:session:", 30*time.Minute)

	s := &Session{ID: "abc", Token: "tok", User: types.User{Email: "a@b.c"}, ActiveProfileID: "p1"}
	require.NoError(t, store.Save(ctx, s))

	assert.Contains(t, client.values, "rf:session:abc", "stored under the key prefix")
	assert.Equal(t, 30*time.Minute, client.ttls["rf:session:abc"], "expires with the session TTL")

	loaded, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "tok", loaded.Token)
	assert.Equal(t, "p1", loaded.ActiveProfileID)

	require.NoError(t, store.Delete(ctx, "abc"))
	loaded, err = store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, loaded)
	assert.NoError(t, store.Close())
}

func TestRedisStoreLoad(t *testing.T) {
	tests := []struct {
		name    string
		stored  map[string][]byte
		getErr  error
		want    string
		wantErr bool
	}{
		{name: "missing key", stored: map[string][]byte{}},
		{name: "corrupt entry", stored: map[string][]byte{"p:id": []byte("{not json")}},
		{name: "other prefix ignored", stored: map[string][]byte{"id": []byte(`{"id":"id","token":"t"}`)}},
		{name: "stored", stored: map[string][]byte{"p:id": []byte(`{"id":"id","token":"t"}`)}, want: "t"},
		{name: "connection error", getErr: fmt.Errorf("connection reset"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newMemRedis()
			for k, v := range tt.stored {
				client.values[k] = v
			}
			client.getErr = tt.getErr

			s, err := NewRedisStoreWithClient(client, "p:", time.Hour).Load(context.Background(), "id")
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeSessionStore))
				return
			}
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, s)
				return
			}
			require.NotNil(t, s)
			assert.Equal(t, tt.want, s.Token)
		})
	}
}

func TestManagerOverRedisStore(t *testing.T) {
	ctx := context.Background()
	client := newMemRedis()
	m := NewManager(NewRedisStoreWithClient(client, "rf:", time.Hour), Options{})

	s, err := m.Create(ctx, &types.AuthResponse{Token: "tok"})
	require.NoError(t, err)
	assert.Contains(t, client.values, "rf:"+s.ID)

	loaded, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	require.NoError(t, m.Logout(ctx, nil, s.ID))
	assert.Empty(t, client.values)
}
