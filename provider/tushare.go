package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// HTTPClient talks the Tushare-style JSON protocol: every endpoint is a POST
// to the base URL with {api_name, token, params, fields} and answers with
// {code, msg, data:{fields, items}}.
type HTTPClient struct {
	baseURL    string
	token      string
	tokenKind  string
	httpClient *http.Client
}

// NewHTTPClient creates a provider client for the given credential.
// tokenKind distinguishes token families ("tushare", "tudata"); the wire
// protocol is identical, only the issuing service differs.
func NewHTTPClient(baseURL, token, tokenKind string) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		token:     token,
		tokenKind: tokenKind,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type apiRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields,omitempty"`
}

type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Fields []string        `json:"fields"`
		Items  [][]interface{} `json:"items"`
	} `json:"data"`
}

// Authenticate validates the credential with a minimal probe call.
// A token that yields zero reference rows is treated as invalid.
func (c *HTTPClient) Authenticate(ctx context.Context) error {
	if c.token == "" {
		return fmt.Errorf("provider token is empty")
	}

	log.Printf("Authenticating to provider (%s token)...", c.tokenKind)

	rs, err := c.Call(ctx, "stock_basic", map[string]string{
		"exchange":    "",
		"list_status": "L",
		"limit":       "1",
	})
	if err != nil {
		return fmt.Errorf("authentication probe failed: %w", err)
	}
	if rs.Empty() {
		return fmt.Errorf("authentication probe failed: %w", ErrEmptyResult)
	}

	log.Println("Provider authentication successful")
	return nil
}

// Call executes one endpoint. Unknown endpoint names fail before any network
// traffic. A "fields" entry in params is lifted into the protocol's
// top-level fields attribute.
func (c *HTTPClient) Call(ctx context.Context, endpoint string, params map[string]string) (*ResultSet, error) {
	if err := ValidateEndpoint(endpoint); err != nil {
		return nil, err
	}

	body := apiRequest{
		APIName: endpoint,
		Token:   c.token,
		Params:  make(map[string]string, len(params)),
	}
	for k, v := range params {
		if k == "fields" {
			body.Fields = v
			continue
		}
		body.Params[k] = v
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &CallError{
			Endpoint: endpoint,
			Code:     resp.StatusCode,
			Msg:      string(respBody),
		}
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response for %s: %w", endpoint, err)
	}

	if apiResp.Code != 0 {
		return nil, &CallError{
			Endpoint: endpoint,
			Code:     apiResp.Code,
			Msg:      apiResp.Msg,
		}
	}

	return &ResultSet{
		Fields: apiResp.Data.Fields,
		Rows:   apiResp.Data.Items,
	}, nil
}
