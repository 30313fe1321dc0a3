package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"heartmatch/handlers"
	"heartmatch/middleware"
	"heartmatch/repositories"
	"heartmatch/services"
	"heartmatch/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	t      *testing.T
	router *gin.Engine
	store  *repositories.Store
}

func newHarness(t *testing.T, limiter *middleware.IPRateLimiter) *harness {
	t.Helper()
	store := repositories.NewMemoryStore()
	notifier := services.NotifierFunc(func(context.Context, string, string, any) {})

	uploadDir := t.TempDir()
	images, err := storage.NewLocalStore(uploadDir, "http://api.test")
	require.NoError(t, err)

	tokens := services.NewTokenService("test-secret", time.Hour)
	users := services.NewUserService(store.Users, nil)
	h := &handlers.Handler{
		Auth:    services.NewAuthService(store.Users, tokens),
		Users:   users,
		Feed:    services.NewFeedService(store.Users, store.Matches),
		Swipes:  services.NewSwipeService(store, users, notifier),
		Chat:    services.NewChatService(store, notifier),
		Uploads: services.NewUploadService(images, users, 1<<20),
		Push:    services.NewPushService(store.Pushes, ""),
	}

	return &harness{
		t:     t,
		store: store,
		router: SetupRouter(h, Options{
			CORSOrigins: []string{"http://localhost:3000"},
			RateLimiter: limiter,
			UploadDir:   uploadDir,
		}),
	}
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type account struct {
	id    string
	token string
}

func (h *harness) register(name string, age int, gender string, interestedIn ...string) account {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email":        name + "@example.com",
		"password":     "secret123",
		"name":         name,
		"age":          age,
		"gender":       gender,
		"interestedIn": interestedIn,
	})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())

	res := decode[struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"_id"`
		} `json:"user"`
	}](h.t, w)
	require.NotEmpty(h.t, res.Token)
	return account{id: res.User.ID, token: res.Token}
}

type profile struct {
	ID string `json:"_id"`
}

func ids(ps []profile) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

type likeResponse struct {
	IsMatch bool   `json:"isMatch"`
	MatchID string `json:"matchId"`
	Message string `json:"message"`
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t, nil)
	alice := h.register("alice", 25, "female", "male")

	w := h.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "ALICE@example.com", "password": "secret123", "name": "Alice",
		"age": 25, "gender": "female", "interestedIn": []string{"male"},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"User already exists"}`, w.Body.String())

	w = h.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "kid@example.com", "password": "secret123", "name": "Kid",
		"age": 17, "gender": "male", "interestedIn": []string{"female"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())

	w = h.do(http.MethodGet, "/api/auth/me", alice.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[map[string]any](t, w)
	assert.Equal(t, "alice@example.com", me["email"])
	assert.NotContains(t, me, "password")
	assert.NotContains(t, me, "likes")

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/auth/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/auth/me", "garbage", nil).Code)

	w = h.do(http.MethodPost, "/api/auth/register", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSwipeMatchChatFlow(t *testing.T) {
	h := newHarness(t, nil)
	alice := h.register("alice", 25, "female", "male")
	bob := h.register("bob", 28, "male", "female")
	carol := h.register("carol", 40, "female", "male")

	w := h.do(http.MethodGet, "/api/users/potential-matches", bob.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []string{alice.id, carol.id}, ids(decode[[]profile](t, w)))

	w = h.do(http.MethodPost, "/api/matches/like", bob.token, gin.H{"targetUserId": alice.id})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[likeResponse](t, w).IsMatch)

	w = h.do(http.MethodPost, "/api/matches/like", alice.token, gin.H{"targetUserId": bob.id})
	require.Equal(t, http.StatusOK, w.Code)
	matched := decode[likeResponse](t, w)
	require.True(t, matched.IsMatch)
	require.NotEmpty(t, matched.MatchID)
	assert.Equal(t, "It's a match!", matched.Message)

	w = h.do(http.MethodPost, "/api/matches/like", bob.token, gin.H{"targetUserId": alice.id})
	again := decode[likeResponse](t, w)
	assert.True(t, again.IsMatch)
	assert.Equal(t, matched.MatchID, again.MatchID)

	// matched users leave each other's feed
	w = h.do(http.MethodGet, "/api/users/potential-matches", bob.token, nil)
	assert.Equal(t, []string{carol.id}, ids(decode[[]profile](t, w)))

	w = h.do(http.MethodGet, "/api/matches", bob.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]struct {
		MatchID string  `json:"matchId"`
		User    profile `json:"user"`
	}](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, matched.MatchID, list[0].MatchID)
	assert.Equal(t, alice.id, list[0].User.ID)

	w = h.do(http.MethodGet, "/api/matches/"+matched.MatchID, alice.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/matches/"+matched.MatchID, carol.token, nil).Code)

	w = h.do(http.MethodPost, "/api/messages", bob.token, gin.H{"matchId": matched.MatchID, "content": "hi alice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(http.MethodPost, "/api/messages", bob.token, gin.H{"matchId": matched.MatchID, "content": strings.Repeat("x", 1001)})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = h.do(http.MethodPost, "/api/messages", carol.token, gin.H{"matchId": matched.MatchID, "content": "intruder"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodGet, "/api/messages/"+matched.MatchID+"?page=1&limit=10", alice.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode[[]struct {
		Content string `json:"content"`
		IsRead  bool   `json:"isRead"`
	}](t, w)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi alice", msgs[0].Content)
	assert.True(t, msgs[0].IsRead)

	w = h.do(http.MethodPut, "/api/messages/"+matched.MatchID+"/read", alice.token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodDelete, "/api/matches/"+matched.MatchID, alice.token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodPost, "/api/messages", bob.token, gin.H{"matchId": matched.MatchID, "content": "still there?"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/messages/"+matched.MatchID, bob.token, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/api/matches/"+matched.MatchID, bob.token, nil).Code)
}

func TestPassAndSelfLike(t *testing.T) {
	h := newHarness(t, nil)
	alice := h.register("alice", 25, "female", "male")
	bob := h.register("bob", 28, "male", "female")

	for i := 0; i < 2; i++ {
		w := h.do(http.MethodPost, "/api/matches/pass", bob.token, gin.H{"targetUserId": alice.id})
		require.Equal(t, http.StatusOK, w.Code)
	}
	bobID, err := primitive.ObjectIDFromHex(bob.id)
	require.NoError(t, err)
	u, err := h.store.Users.GetByID(context.Background(), bobID)
	require.NoError(t, err)
	assert.Len(t, u.Dislikes, 1)

	w := h.do(http.MethodGet, "/api/users/potential-matches", bob.token, nil)
	assert.Empty(t, decode[[]profile](t, w))

	w = h.do(http.MethodPost, "/api/matches/like", bob.token, gin.H{"targetUserId": bob.id})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Cannot like yourself"}`, w.Body.String())

	w = h.do(http.MethodPost, "/api/matches/like", bob.token, gin.H{"targetUserId": primitive.NewObjectID().Hex()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodPost, "/api/matches/like", bob.token, gin.H{"targetUserId": "not-an-id"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileEndpoints(t *testing.T) {
	h := newHarness(t, nil)
	alice := h.register("alice", 25, "female", "male")
	bob := h.register("bob", 28, "male", "female")

	w := h.do(http.MethodPut, "/api/users/profile", alice.token, gin.H{
		"bio":         "hiking and coffee",
		"preferences": gin.H{"ageRange": gin.H{"min": 25, "max": 35}, "maxDistance": 20},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[struct {
		Message string `json:"message"`
		Profile struct {
			Bio         string `json:"bio"`
			Preferences struct {
				MaxDistance float64 `json:"maxDistance"`
			} `json:"preferences"`
		} `json:"profile"`
	}](t, w)
	assert.Equal(t, "hiking and coffee", updated.Profile.Bio)
	assert.Equal(t, 20.0, updated.Profile.Preferences.MaxDistance)

	w = h.do(http.MethodPut, "/api/users/profile", alice.token, gin.H{"age": 12})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = h.do(http.MethodGet, "/api/users/"+alice.id, bob.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pub := decode[map[string]any](t, w)
	assert.Equal(t, "hiking and coffee", pub["bio"])
	assert.NotContains(t, pub, "email")

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/users/"+primitive.NewObjectID().Hex(), bob.token, nil).Code)

	w = h.do(http.MethodGet, "/api/users/potential-matches?latitude=abc", bob.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func (h *harness) upload(token, field string, data []byte) *httptest.ResponseRecorder {
	h.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "photo.png")
	require.NoError(h.t, err)
	_, err = fw.Write(data)
	require.NoError(h.t, err)
	require.NoError(h.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload/profile-image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestUploadProfileImage(t *testing.T) {
	h := newHarness(t, nil)
	alice := h.register("alice", 25, "female", "male")

	w := h.upload(alice.token, "image", pngBytes)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[services.UploadResult](t, w)
	assert.True(t, res.Success)
	assert.True(t, res.IsPrimary)
	require.True(t, strings.HasPrefix(res.ImageURL, "http://api.test/uploads/photos/"+alice.id+"/"))

	// the local store's files are served back
	served := httptest.NewRecorder()
	h.router.ServeHTTP(served, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(res.ImageURL, "http://api.test"), nil))
	assert.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, pngBytes, served.Body.Bytes())

	assert.Equal(t, http.StatusBadRequest, h.upload(alice.token, "file", pngBytes).Code)
	assert.Equal(t, http.StatusBadRequest, h.upload(alice.token, "image", []byte("plain text, not an image")).Code)
}

func TestPushEndpoints(t *testing.T) {
	h := newHarness(t, nil)
	alice := h.register("alice", 25, "female", "male")

	assert.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodGet, "/api/push/vapid-public-key", "", nil).Code)

	w := h.do(http.MethodPost, "/api/push/subscribe", alice.token, gin.H{
		"endpoint": "https://push.example.com/abc",
		"keys":     gin.H{"p256dh": "key", "auth": "secret"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(http.MethodPost, "/api/push/subscribe", alice.token, gin.H{"endpoint": "not a url"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHealthAndNotFound(t *testing.T) {
	h := newHarness(t, nil)

	for _, path := range []string{"/health", "/api/health"} {
		w := h.do(http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", decode[map[string]any](t, w)["status"])
	}

	w := h.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Endpoint not found")
}

func TestRateLimitedAPI(t *testing.T) {
	h := newHarness(t, middleware.NewIPRateLimiter(2, time.Minute))

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/health", "", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, h.do(http.MethodGet, "/api/health", "", nil).Code)

	// outside /api is not limited
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health", "", nil).Code)
}
