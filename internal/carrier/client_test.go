package carrier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chargesJSON = `[{
	"total_amount": 118.5,
	"charge_DL": 70,
	"charge_COD": 30,
	"charge_DPH": 5,
	"charge_FSC": 4.5,
	"tax_data": {"IGST": 0, "SGST": 4.5, "CGST": 4.5}
}]`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		BaseURL:     srv.URL,
		APIToken:    "parcel-token",
		B2BBaseURL:  srv.URL + "/b2b",
		B2BUsername: "shop",
		B2BPassword: "secret",
		Timeout:     2 * time.Second,
	}, zerolog.Nop(), nil)
	require.NoError(t, err)
	return c
}

func TestCheckServiceability(t *testing.T) {
	req := ChargeRequest{OriginPin: "110001", DestPin: "560001", Mode: ModeSurface, WeightGrams: 500, Payment: PaymentCOD}

	t.Run("serviceable with charges", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/c/api/pin-codes/json/", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer parcel-token", r.Header.Get("Authorization"))
			assert.Equal(t, "560001", r.URL.Query().Get("filter_codes"))
			_, _ = w.Write([]byte(`{"delivery_codes":[{"postal_code":{"pin":560001}}]}`))
		})
		mux.HandleFunc("/api/kinko/v1/invoice/charges/.json", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "S", q.Get("md"))
			assert.Equal(t, "COD", q.Get("pt"))
			assert.Equal(t, "500", q.Get("cgm"))
			assert.Equal(t, "110001", q.Get("o_pin"))
			_, _ = w.Write([]byte(chargesJSON))
		})

		res := newTestClient(t, mux).CheckServiceability(context.Background(), req)
		require.True(t, res.Serviceable)
		require.NotNil(t, res.Charges)
		assert.True(t, decimal.RequireFromString("118.5").Equal(res.Charges.Total))
		assert.True(t, decimal.NewFromInt(30).Equal(res.Charges.CODFee))
		assert.True(t, decimal.NewFromInt(9).Equal(res.Charges.GST))
	})

	t.Run("empty delivery codes", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/c/api/pin-codes/json/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"delivery_codes":[]}`))
		})

		res := newTestClient(t, mux).CheckServiceability(context.Background(), req)
		assert.False(t, res.Serviceable)
		assert.Equal(t, ReasonNotServiceable, res.Reason)
	})

	statusCases := map[string]struct {
		status int
		want   Reason
	}{
		"unauthorized": {status: http.StatusUnauthorized, want: ReasonAuthFailed},
		"forbidden":    {status: http.StatusForbidden, want: ReasonAuthFailed},
		"server error": {status: http.StatusBadGateway, want: ReasonAPIError},
	}
	for name, tc := range statusCases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			res := c.CheckServiceability(context.Background(), req)
			assert.False(t, res.Serviceable)
			assert.Equal(t, tc.want, res.Reason)
			assert.Error(t, res.Err)
		})
	}

	t.Run("malformed payload", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}))
		res := c.CheckServiceability(context.Background(), req)
		assert.Equal(t, ReasonUnknown, res.Reason)
		assert.ErrorIs(t, res.Err, ErrMalformedResponse)
	})

	t.Run("charges failure keeps serviceable", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/c/api/pin-codes/json/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"delivery_codes":[{}]}`))
		})
		mux.HandleFunc("/api/kinko/v1/invoice/charges/.json", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		res := newTestClient(t, mux).CheckServiceability(context.Background(), req)
		assert.True(t, res.Serviceable)
		assert.Nil(t, res.Charges)
		assert.Error(t, res.ChargesErr)
	})
}

func TestExpectedTAT(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"numeric": {body: `{"data":{"tat":4}}`, want: "4"},
		"text":    {body: `{"data":{"tat":"3-5 days"}}`, want: "3-5 days"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/dc/expected_tat", r.URL.Path)
				assert.Equal(t, "2026-03-06 00:00", r.URL.Query().Get("expected_pickup_date"))
				_, _ = w.Write([]byte(tc.body))
			}))
			got, err := c.ExpectedTAT(context.Background(), TATRequest{
				OriginPin:  "110001",
				DestPin:    "560001",
				PickupDate: time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC),
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("missing tat", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":{}}`))
		}))
		_, err := c.ExpectedTAT(context.Background(), TATRequest{OriginPin: "1", DestPin: "2"})
		require.ErrorIs(t, err, ErrMalformedResponse)
	})
}

type freightServer struct {
	logins   atomic.Int32
	freights atomic.Int32
	// reject401 is the number of freight calls answered with 401.
	reject401 int32
}

func (s *freightServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/b2b/ums/login", func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "shop", body.Username)
		n := s.logins.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"jwt": "jwt-" + string(rune('0'+n))})
	})
	mux.HandleFunc("/b2b/freight/estimate", func(w http.ResponseWriter, r *http.Request) {
		n := s.freights.Add(1)
		if n <= s.reject401 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body freightRequestBody
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 25000, body.WeightG)
		assert.Equal(t, "cod", body.PaymentMode)
		_, _ = w.Write([]byte(`{"data":{"total":1450.75,"price_breakup":{"base_freight_charge":1200,"fuel_surcharge":150.75,"other_charges":100}}}`))
	})
	return mux
}

func freightRequest() FreightRequest {
	return FreightRequest{
		Boxes:         []Box{{LengthCM: 50, WidthCM: 40, HeightCM: 40, Count: 1}},
		WeightGrams:   25000,
		SourcePin:     "110001",
		DestPin:       "560001",
		Payment:       PaymentCOD,
		InvoiceAmount: decimal.NewFromInt(12000),
	}
}

func TestB2BClientEstimateFreight(t *testing.T) {
	t.Run("uses cached token", func(t *testing.T) {
		srv := &freightServer{}
		c := newTestClient(t, srv.handler(t))
		b2b := NewB2BClient(c, NewAuthCache(c, nil, time.Hour))

		for i := 0; i < 2; i++ {
			est, err := b2b.EstimateFreight(context.Background(), freightRequest())
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString("1450.75").Equal(est.Total))
		}
		assert.EqualValues(t, 1, srv.logins.Load())
		assert.EqualValues(t, 2, srv.freights.Load())
	})

	t.Run("401 refreshes token and retries once", func(t *testing.T) {
		srv := &freightServer{reject401: 1}
		c := newTestClient(t, srv.handler(t))
		b2b := NewB2BClient(c, NewAuthCache(c, nil, time.Hour))

		est, err := b2b.EstimateFreight(context.Background(), freightRequest())
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(1200).Equal(est.BaseFreight))
		assert.EqualValues(t, 2, srv.logins.Load())
		assert.EqualValues(t, 2, srv.freights.Load())
	})

	t.Run("second 401 propagates", func(t *testing.T) {
		srv := &freightServer{reject401: 5}
		c := newTestClient(t, srv.handler(t))
		b2b := NewB2BClient(c, NewAuthCache(c, nil, time.Hour))

		_, err := b2b.EstimateFreight(context.Background(), freightRequest())
		require.Error(t, err)
		assert.True(t, IsUnauthorized(err))
		assert.EqualValues(t, 2, srv.freights.Load())
	})

	t.Run("login failure", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		b2b := NewB2BClient(c, NewAuthCache(c, nil, time.Hour))

		_, err := b2b.EstimateFreight(context.Background(), freightRequest())
		require.ErrorIs(t, err, ErrAuthFailed)
	})
}

func TestClientNotConfigured(t *testing.T) {
	c, err := NewClient(Config{}, zerolog.Nop(), nil)
	require.NoError(t, err)

	_, err = c.Charges(context.Background(), ChargeRequest{DestPin: "1"})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "not a url"}, zerolog.Nop(), nil)
	require.Error(t, err)
}

func TestEditShipment(t *testing.T) {
	edit := ShipmentEdit{Waybill: "WB100", LengthCM: 30, WidthCM: 20, HeightCM: 10, WeightGrams: 1200}

	t.Run("posts the new dimensions", func(t *testing.T) {
		var got ShipmentEdit
		mux := http.NewServeMux()
		mux.HandleFunc("/api/p/edit", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer parcel-token", r.Header.Get("Authorization"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"status":true}`))
		})
		c := newTestClient(t, mux)

		require.NoError(t, c.EditShipment(context.Background(), edit))
		assert.Equal(t, edit, got)
	})

	t.Run("carrier rejects the edit", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/p/edit", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"shipment already picked up"}`))
		})
		c := newTestClient(t, mux)

		err := c.EditShipment(context.Background(), edit)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusBadRequest, se.StatusCode)
		assert.Contains(t, se.Body, "picked up")
	})
}
