package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"time"
)

// TestContext carries HTTP state between the steps of one scenario.
type TestContext struct {
	BaseURL  string
	client   *http.Client
	headers  map[string]string
	status   int
	body     []byte
	response http.Header

	applicationID string
	mobileNumber  string
	password      string
	accessToken   string
}

// NewTestContext targets E2E_BASE_URL, defaulting to a local server.
func NewTestContext() *TestContext {
	base := os.Getenv("E2E_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	return &TestContext{
		BaseURL: strings.TrimRight(base, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		headers: map[string]string{},
	}
}

// Reset clears per-scenario state. Each scenario gets its own client IP so
// per-IP throttling does not leak between scenarios.
func (tc *TestContext) Reset() {
	tc.headers = map[string]string{
		"X-Forwarded-For": fmt.Sprintf("10.%d.%d.%d", rand.IntN(256), rand.IntN(256), rand.IntN(254)+1),
	}
	tc.status = 0
	tc.body = nil
	tc.response = nil
	tc.applicationID = ""
	tc.mobileNumber = ""
	tc.password = ""
	tc.accessToken = ""
}

func (tc *TestContext) SetHeader(name, value string) { tc.headers[name] = value }

func (tc *TestContext) do(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range tc.headers {
		req.Header.Set(k, v)
	}
	if tc.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.accessToken)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	tc.body, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	tc.status = resp.StatusCode
	tc.response = resp.Header
	return nil
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body, nil)
}

func (tc *TestContext) PATCH(path string, body any) error {
	return tc.do(http.MethodPatch, path, body, nil)
}

func (tc *TestContext) PUT(path string, body any) error {
	return tc.do(http.MethodPut, path, body, nil)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

// GetResponseField reads a top-level or dotted field from the last JSON body.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.body, &data); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	var cur any = data
	for _, part := range strings.Split(field, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		cur, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found in response", field)
		}
	}
	return cur, nil
}

func (tc *TestContext) GetLastResponseStatus() int  { return tc.status }
func (tc *TestContext) GetLastResponseBody() []byte { return tc.body }
func (tc *TestContext) GetLastResponseHeader(name string) string {
	return tc.response.Get(name)
}

func (tc *TestContext) GetApplicationID() string      { return tc.applicationID }
func (tc *TestContext) SetApplicationID(appID string) { tc.applicationID = appID }
func (tc *TestContext) GetMobileNumber() string       { return tc.mobileNumber }
func (tc *TestContext) SetMobileNumber(mobile string) { tc.mobileNumber = mobile }
func (tc *TestContext) GetPassword() string           { return tc.password }
func (tc *TestContext) SetPassword(password string)   { tc.password = password }
func (tc *TestContext) GetAccessToken() string        { return tc.accessToken }
func (tc *TestContext) SetAccessToken(token string)   { tc.accessToken = token }

// FixedOTP is the code the server issues when started with
// ADMISSION_OTP_FIXED_CODE.
func (tc *TestContext) FixedOTP() string {
	if code := os.Getenv("E2E_FIXED_OTP"); code != "" {
		return code
	}
	return "123456"
}
