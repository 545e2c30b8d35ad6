package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hmo-assistant-be/internal/dto"
	"hmo-assistant-be/internal/pkg/serverutils"
)

// apiError is a non-success envelope returned by the server.
type apiError struct {
	Status  int
	Message string
	Detail  serverutils.ErrorDetail
}

func (e *apiError) Error() string {
	if e.Detail.Instruction != "" {
		return fmt.Sprintf("%s (%d): %s", e.Message, e.Status, e.Detail.Instruction)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

func (e *apiError) sessionGone() bool {
	return e.Detail.Type == "session_not_found"
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/session/v1",
		// answers wait on two model calls
		http: &http.Client{Timeout: 90 * time.Second},
	}
}

func do[T any](ctx context.Context, c *apiClient, method, path string, body interface{}) (T, error) {
	var zero T

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return zero, err
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return zero, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, err
	}
	if resp.StatusCode >= 300 {
		var env serverutils.BaseResponse[serverutils.ErrorDetail]
		if err := json.Unmarshal(raw, &env); err != nil {
			return zero, &apiError{Status: resp.StatusCode, Message: resp.Status}
		}
		return zero, &apiError{Status: resp.StatusCode, Message: env.Message, Detail: env.Data}
	}

	var env serverutils.BaseResponse[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, fmt.Errorf("decode response: %w", err)
	}
	return env.Data, nil
}

func (c *apiClient) createSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	return do[*dto.CreateSessionResponse](ctx, c, http.MethodPost, "", nil)
}

func (c *apiClient) send(ctx context.Context, sessionID, text string) (*dto.SendMessageResponse, error) {
	return do[*dto.SendMessageResponse](ctx, c, http.MethodPost, "/"+sessionID+"/messages", dto.SendMessageRequest{Message: text})
}

func (c *apiClient) deleteSession(ctx context.Context, sessionID string) error {
	_, err := do[any](ctx, c, http.MethodDelete, "/"+sessionID, nil)
	return err
}
