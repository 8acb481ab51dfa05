package common_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pharma-billing/internal/common"
)

func TestNumberCoercesInvalidInput(t *testing.T) {
	var payload struct {
		A common.Number `json:"a"`
		B common.Number `json:"b"`
		C common.Number `json:"c"`
		D common.Number `json:"d"`
		E common.Number `json:"e"`
	}
	body := `{"a": 12.5, "b": "7.25", "c": "abc", "d": null, "e": ""}`
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	require.Equal(t, 12.5, payload.A.Float())
	require.Equal(t, 7.25, payload.B.Float())
	require.Zero(t, payload.C.Float())
	require.Zero(t, payload.D.Float())
	require.Zero(t, payload.E.Float())
}

func TestFloatDefault(t *testing.T) {
	require.Equal(t, 3.5, common.FloatDefault(" 3.5 ", 0))
	require.Equal(t, 1.0, common.FloatDefault("NaN", 1))
	require.Equal(t, 2.0, common.FloatDefault("", 2))
}

func TestContentHashStable(t *testing.T) {
	type in struct {
		Qty  float64
		Rate float64
	}
	a, err := common.ContentHash(in{Qty: 1, Rate: 2})
	require.NoError(t, err)
	b, err := common.ContentHash(in{Qty: 1, Rate: 2})
	require.NoError(t, err)
	c, err := common.ContentHash(in{Qty: 2, Rate: 2})
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 64)
}

func TestWriteErrorMapsAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	common.WriteError(rec, common.NewAppError(common.CodeInsufficientStock, "not enough stock", http.StatusConflict, errors.New("boom")))
	require.Equal(t, http.StatusConflict, rec.Code)
	var body struct {
		Error common.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, common.CodeInsufficientStock, body.Error.Code)

	rec = httptest.NewRecorder()
	common.WriteError(rec, errors.New("db exploded"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "exploded")
}

func TestIdempotencyMiddleware(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	calls := 0
	fail := true
	handler := common.Idem{R: client, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", nil)
		req.Header.Set(common.IdempotencyHeader, "abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusInternalServerError, send())
	fail = false
	require.Equal(t, http.StatusCreated, send())
	require.Equal(t, http.StatusConflict, send())
	require.Equal(t, 2, calls)
}

func TestIdempotencyReleasesKeyAfterClientError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	calls := 0
	status := http.StatusConflict
	handler := common.Idem{R: client, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", nil)
		req.Header.Set(common.IdempotencyHeader, "restock-retry")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusConflict, send())
	require.Empty(t, mr.Keys())
	status = http.StatusUnprocessableEntity
	require.Equal(t, http.StatusUnprocessableEntity, send())
	status = http.StatusCreated
	require.Equal(t, http.StatusCreated, send())
	require.Len(t, mr.Keys(), 1)
	require.Equal(t, http.StatusConflict, send())
	require.Equal(t, 3, calls)
}
