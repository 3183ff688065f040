package merchant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"furk/models"
	"furk/services/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"id":"m1","business_name":"Paws","status":"pending","has_business_hours":false}}`))
	}))
	defer server.Close()

	p, err := NewDefaultMerchantService(api.New(server.URL, time.Second)).Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Paws", p.BusinessName)
	assert.Equal(t, models.MerchantStatusPending, p.Status)
	assert.False(t, p.HasBusinessHours)
}

func TestSetBusinessHours_RejectsBadWeekLocally(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()
	svc := NewDefaultMerchantService(api.New(server.URL, time.Second))
	ctx := context.Background()

	err := svc.SetBusinessHours(ctx, []models.BusinessHours{
		{DayOfWeek: 1, OpensAt: "09:00", ClosesAt: "17:00"},
		{DayOfWeek: 1, OpensAt: "10:00", ClosesAt: "12:00"},
	})
	assert.Error(t, err)

	err = svc.SetBusinessHours(ctx, []models.BusinessHours{{DayOfWeek: 2, OpensAt: "18:00", ClosesAt: "08:00"}})
	assert.Error(t, err)
	assert.Zero(t, atomic.LoadInt32(&calls))

	err = svc.SetBusinessHours(ctx, []models.BusinessHours{
		{DayOfWeek: 0, Closed: true},
		{DayOfWeek: 1, OpensAt: "09:00", ClosesAt: "17:00"},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
