package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"furk/models"
	"furk/services/api"
	"furk/services/lazyload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProgress_DecodesUnknownStatusAsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bookings/in-progress", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"success":true,"data":[{"service_name":"Bath","booking_status":"teleporting","modified_at":"2026-03-01 10:00:00"}]}`))
	}))
	defer server.Close()

	svc := NewDefaultBookingService(api.New(server.URL, time.Second))
	list, err := svc.InProgress(api.WithToken(context.Background(), "tok"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.BookingError, list[0].BookingStatus)
	assert.Equal(t, 10, list[0].ModifiedAt.Hour())
}

func TestMerchantFetch_PassesStatusAndPaging(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/merchant/bookings", r.URL.Path)
		assert.Equal(t, "PENDING", r.URL.Query().Get("status"))
		assert.Equal(t, "5", r.URL.Query().Get("offset"))
		json.NewEncoder(w).Encode(map[string]any{"success": true, "count": 6, "data": []models.Booking{{ID: "b6"}}})
	}))
	defer server.Close()

	fetch := MerchantFetch(NewDefaultBookingService(api.New(server.URL, time.Second)))
	list, err := fetch(lazyload.WithDeps(context.Background(), "PENDING"), 5, 5, "")
	require.NoError(t, err)
	assert.Equal(t, "b6", list[0].ID)
}

func TestUpdateStatusAndCancel(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/bookings/b1/cancel" {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"success":false,"error":"Booking already started"}`))
			return
		}
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "IN_PROGRESS", body["booking_status"])
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	svc := NewDefaultBookingService(api.New(server.URL, time.Second))
	require.NoError(t, svc.UpdateStatus(context.Background(), "b1", models.BookingInProgress))

	err := svc.Cancel(context.Background(), "b1")
	assert.Equal(t, "Booking already started", api.Message(err))
	assert.Equal(t, []string{"/merchant/bookings/b1/status", "/bookings/b1/cancel"}, paths)
}
