package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"library-management-service/internal/envelope"
	"library-management-service/pkg/httputil"
)

// apiClient はライブラリ管理APIのHTTPクライアント。
// cipher が設定されていれば要求本文を暗号化し、text/plain の応答を復号する。
type apiClient struct {
	baseURL    string
	token      string
	encrypt    bool
	cipher     *envelope.Cipher
	httpClient *http.Client
}

// apiError はAPIが返したエラー応答。
type apiError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("Error: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("Error: server returned status %d", e.StatusCode)
}

// do はリクエストを送り、2xx 以外は apiError を返す。戻り値は平文のJSON。
func (c *apiClient) do(ctx context.Context, method, path string, in any) ([]byte, int, error) {
	if c.baseURL == "" {
		return nil, 0, fmt.Errorf("--api-url is required (or set LIBRARYCTL_API_URL)")
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, 0, fmt.Errorf("encoding request: %w", err)
		}
		if c.encrypt {
			if c.cipher == nil {
				return nil, 0, fmt.Errorf("--payload-secret is required with --encrypt")
			}
			raw = []byte(c.cipher.Encrypt(string(raw)))
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.baseURL, "/")+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		if c.encrypt {
			req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		} else {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, parseErrorResponse(resp.StatusCode, respBody)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/plain" && len(respBody) > 0 {
		if c.cipher == nil {
			return nil, resp.StatusCode, fmt.Errorf("response is encrypted; set --payload-secret or PAYLOAD_SECRET")
		}
		plain, err := c.cipher.Decrypt(strings.TrimSpace(string(respBody)))
		if err != nil {
			return nil, resp.StatusCode, fmt.Errorf("decrypting response: %w", err)
		}
		respBody = []byte(plain)
	}
	return respBody, resp.StatusCode, nil
}

func parseErrorResponse(statusCode int, body []byte) error {
	var errResp httputil.ErrorResponse
	e := &apiError{StatusCode: statusCode}
	if err := json.Unmarshal(body, &errResp); err == nil {
		e.Code = errResp.Code
		e.Message = errResp.Message
	}
	return e
}
