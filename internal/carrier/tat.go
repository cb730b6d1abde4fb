package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type TATRequest struct {
	OriginPin  string
	DestPin    string
	Mode       Mode
	PickupDate time.Time
}

type tatResponse struct {
	Data struct {
		TAT json.RawMessage `json:"tat"`
	} `json:"data"`
}

// ExpectedTAT returns the carrier's raw turn-around-time text, e.g. "4" or
// "3-5 days". Parsing it is left to the caller.
func (c *Client) ExpectedTAT(ctx context.Context, req TATRequest) (string, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModeSurface
	}
	var out tatResponse
	err := c.do(ctx, request{
		endpoint: "expected_tat",
		base:     c.baseURL,
		method:   http.MethodGet,
		path:     "api/dc/expected_tat",
		query: url.Values{
			"origin_pin":           {req.OriginPin},
			"destination_pin":      {req.DestPin},
			"mot":                  {string(mode)},
			"pdt":                  {"B2C"},
			"expected_pickup_date": {req.PickupDate.Format("2006-01-02 15:04")},
		},
		bearer: c.apiToken,
	}, &out)
	if err != nil {
		return "", err
	}

	raw := strings.TrimSpace(string(out.Data.TAT))
	if raw == "" || raw == "null" {
		return "", fmt.Errorf("%w: missing tat", ErrMalformedResponse)
	}
	var text string
	if err := json.Unmarshal(out.Data.TAT, &text); err == nil {
		return text, nil
	}
	return raw, nil
}
