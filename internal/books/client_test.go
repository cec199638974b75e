package books

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestClient_DetailURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"https://api.example/books/{id}", "https://api.example/books/b%201"},
		{"https://api.example/books/${id}", "https://api.example/books/b%201"},
		{"https://api.example/getBook", "https://api.example/getBook?id=b+1"},
		{"https://api.example/getBook?x=1", "https://api.example/getBook?x=1&id=b+1"},
		{"https://api.example/books/%7Bid%7D", "https://api.example/books/b%201"},
	}
	for _, tt := range tests {
		c := NewClient(tt.base, nil)
		assert.Equal(t, tt.want, c.DetailURL("b 1"), tt.base)
	}
}

func TestClient_GetBookNotConfigured(t *testing.T) {
	_, err := NewClient("", nil).GetBook(context.Background(), "b1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_GetBookDetailObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "b1", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`{"id":"b1","title":"Atomic Habits","subscriptionRequired":true,"type":"audio"}`))
	}))
	defer srv.Close()

	book, err := NewClient(srv.URL, nil).GetBook(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "Atomic Habits", book.Title)
	assert.True(t, book.SubscriptionRequired)
}

func TestClient_GetBookDetailArrayTakesFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/books/b2", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"b2","title":"Deep Work"},{"id":"b3"}]`))
	}))
	defer srv.Close()

	book, err := NewClient(srv.URL+"/books/{id}", nil).GetBook(context.Background(), "b2")
	require.NoError(t, err)
	assert.Equal(t, "Deep Work", book.Title)
}

func TestClient_GetBookFallsBackToList(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("id") != "" {
			_, _ = w.Write([]byte("   "))
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"id":"b1","title":"One"},{"id":"b2","title":"Two"}]}`))
	}))
	defer srv.Close()

	book, err := NewClient(srv.URL, nil).GetBook(context.Background(), "b2")
	require.NoError(t, err)
	assert.Equal(t, "Two", book.Title)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_GetBookFallsBackOnNonJSONAndErrorStatus(t *testing.T) {
	for _, detail := range []func(http.ResponseWriter){
		func(w http.ResponseWriter) { _, _ = w.Write([]byte("<html>oops</html>")) },
		func(w http.ResponseWriter) { w.WriteHeader(http.StatusNotFound) },
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("id") != "" {
				detail(w)
				return
			}
			_, _ = w.Write([]byte(`[{"id":"b7","title":"Seven"}]`))
		}))

		book, err := NewClient(srv.URL, nil).GetBook(context.Background(), "b7")
		require.NoError(t, err)
		assert.Equal(t, "Seven", book.Title)
		srv.Close()
	}
}

func TestClient_GetBookDetailWithoutIDFallsBack(t *testing.T) {
	for _, detail := range []string{`{}`, `null`, `[]`, `[{"title":"No id"}]`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("id") != "" {
				_, _ = w.Write([]byte(detail))
				return
			}
			_, _ = w.Write([]byte(`[{"id":"b7","title":"Seven"}]`))
		}))

		book, err := NewClient(srv.URL, nil).GetBook(context.Background(), "b7")
		require.NoError(t, err, detail)
		assert.Equal(t, "Seven", book.Title, detail)

		_, err = NewClient(srv.URL, nil).GetBook(context.Background(), "b8")
		assert.ErrorIs(t, err, ErrBookNotFound, detail)
		srv.Close()
	}
}

func TestClient_GetBookDetailWithoutIDIsNotFoundForPlaceholderBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	book, err := NewClient(srv.URL+"/books/{id}", nil).GetBook(context.Background(), "b1")
	assert.Nil(t, book)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestClient_GetBookNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"id":"other","title":"Other"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).GetBook(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestClient_GetBookHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"b1"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewClient(srv.URL, nil, WithLimiter(rate.NewLimiter(rate.Limit(1), 1)))
	_, err := c.GetBook(ctx, "b1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
