package twitter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetwatch/internal/models"
)

const timelineFixture = `{
	"data": [
		{"id": "103", "text": "third post", "author_id": "42", "created_at": "2024-03-15T10:00:00Z",
		 "attachments": {"media_keys": ["m1", "m2"]}},
		{"id": "102", "text": "second post", "author_id": "42", "created_at": "2024-03-15T09:00:00Z"}
	],
	"includes": {
		"users": [{"id": "42", "username": "jdoe"}],
		"media": [
			{"media_key": "m1", "type": "photo", "url": "https://img/1.jpg", "expanded_url": "https://x/photo/1"},
			{"media_key": "m2", "type": "video", "url": "https://vid/1.mp4", "expanded_url": "https://x/video/1"}
		]
	},
	"meta": {"result_count": 2}
}`

func TestLogin_StoresSessionToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/session":
			require.Equal(t, http.MethodPost, r.Method)
			w.Write([]byte(`{"token": "session-token"}`))
		case "/2/users/42/tweets":
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`{"data": [], "meta": {"result_count": 0}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	require.NoError(t, client.Login(context.Background(), "user", "pass"))

	_, err := client.FetchTimeline(context.Background(), "42", 5)
	require.NoError(t, err)
	assert.Equal(t, "Bearer session-token", gotAuth)
}

func TestLogin_BadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.Login(context.Background(), "user", "wrong")

	assert.ErrorIs(t, err, ErrAuthExpired)
}

func TestFetchTimeline_ParsesTweets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/users/42/tweets", r.URL.Path)
		require.Equal(t, "5", r.URL.Query().Get("max_results"))
		w.Write([]byte(timelineFixture))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	tweets, err := client.FetchTimeline(context.Background(), "42", 5)
	require.NoError(t, err)
	require.Len(t, tweets, 2)

	// Newest first, as the API returns them.
	assert.Equal(t, "103", tweets[0].ID)
	assert.Equal(t, "third post", tweets[0].Text)
	assert.Equal(t, "42", tweets[0].AuthorID)
	assert.Equal(t, "jdoe", tweets[0].AuthorHandle)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC), tweets[0].CreatedAt)
	require.Len(t, tweets[0].Media, 2)
	assert.Equal(t, models.Media{Kind: "photo", URL: "https://img/1.jpg", ExpandedURL: "https://x/photo/1"}, tweets[0].Media[0])
	assert.Equal(t, models.Media{Kind: "video", URL: "https://vid/1.mp4", ExpandedURL: "https://x/video/1"}, tweets[0].Media[1])

	assert.Equal(t, "102", tweets[1].ID)
	assert.Empty(t, tweets[1].Media)
}

func TestFetchTimeline_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrAuthExpired},
		{"forbidden", http.StatusForbidden, ErrAuthExpired},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"server error", http.StatusInternalServerError, ErrUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient(server.URL)
			_, err := client.FetchTimeline(context.Background(), "42", 5)

			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestFetchTimeline_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := NewClient(server.URL)
	_, err := client.FetchTimeline(context.Background(), "42", 5)

	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestResolveAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/users/by/username/jdoe":
			w.Write([]byte(`{"data": {"id": "42", "name": "Jane Doe", "username": "jdoe"}}`))
		case "/2/users/42":
			w.Write([]byte(`{"data": {"id": "42", "name": "Jane Doe", "username": "jdoe"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)

	t.Run("by handle", func(t *testing.T) {
		account, err := client.ResolveAccount(context.Background(), "@jdoe")
		require.NoError(t, err)
		assert.Equal(t, &models.Account{ID: "42", Handle: "jdoe", DisplayName: "Jane Doe"}, account)
	})

	t.Run("by numeric id", func(t *testing.T) {
		account, err := client.ResolveAccount(context.Background(), "42")
		require.NoError(t, err)
		assert.Equal(t, "42", account.ID)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := client.ResolveAccount(context.Background(), "@ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestResolveAccount_EmptyResponseIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.ResolveAccount(context.Background(), "@jdoe")

	assert.ErrorIs(t, err, ErrNotFound)
}
