package events_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/coauthors/pkg/coauthors"
	"github.com/tendant/coauthors/pkg/coauthors/events"
)

func TestSinkDeliversBinaryEvent(t *testing.T) {
	var (
		header http.Header
		body   coauthors.CreatedGuestAuthor
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sink, err := events.New(events.Config{TargetURL: server.URL})
	require.NoError(t, err)

	err = sink.GuestAuthorCreated(context.Background(), &coauthors.CreatedGuestAuthor{
		ID:          7,
		Login:       "jane-doe",
		Email:       "jane@example.com",
		DisplayName: "Jane Doe",
		Nicename:    "jane-doe",
	})
	require.NoError(t, err)

	assert.Equal(t, events.TypeGuestAuthorCreated, header.Get("Ce-Type"))
	assert.Equal(t, "coauthors", header.Get("Ce-Source"))
	assert.Equal(t, "jane-doe", header.Get("Ce-Subject"))
	assert.NotEmpty(t, header.Get("Ce-Id"))
	assert.Equal(t, int64(7), body.ID)
	assert.Equal(t, "jane@example.com", body.Email)
}

func TestSinkReportsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink, err := events.New(events.Config{TargetURL: server.URL, Source: "test"})
	require.NoError(t, err)

	err = sink.GuestAuthorCreated(context.Background(), &coauthors.CreatedGuestAuthor{ID: 1, Login: "x"})
	assert.Error(t, err)
}

func TestNewRequiresTarget(t *testing.T) {
	_, err := events.New(events.Config{})
	assert.Error(t, err)
}
