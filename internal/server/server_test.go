package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const testConfigYAML = `
capTable:
  common:
    sharesOutstanding: 1000000
  preferred:
    - name: Series A
      sharesOutstanding: 500000
      pricePerShare: 1.00
      seniorityRank: 1
      preferenceType: participating
    - name: Series B
      sharesOutstanding: 250000
      pricePerShare: 4.00
      seniorityRank: 0
      preferenceType: non-participating
`

func editorConfig() map[string]interface{} {
	return map[string]interface{}{
		"capTable": map[string]interface{}{
			"common": map[string]interface{}{"sharesOutstanding": 1000000},
			"preferred": []interface{}{
				map[string]interface{}{
					"name":              "Series A",
					"sharesOutstanding": 500000,
					"pricePerShare":     1.00,
					"seniorityRank":     1,
					"preferenceType":    "participating",
				},
				map[string]interface{}{
					"name":              "Series B",
					"sharesOutstanding": 250000,
					"pricePerShare":     4.00,
					"seniorityRank":     0,
					"preferenceType":    "non-participating",
				},
			},
		},
	}
}

func newTestHandler() http.Handler {
	return NewHandler(zap.NewNop(), 0, "test")
}

func postJSON(t *testing.T, handler http.Handler, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestVersionEndpoint(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", recorder.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(recorder.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["version"] != "test" {
		t.Errorf("version = %q, expected test", payload["version"])
	}
}

func TestWaterfallUpload(t *testing.T) {
	handler := newTestHandler()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "config.yaml")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(testConfigYAML)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/waterfall", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var response waterfallResponse
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Valid {
		t.Errorf("response not valid: %+v", response.Consistency)
	}
	if len(response.Breakpoints) != 4 {
		t.Errorf("breakpoint count = %d, expected 4", len(response.Breakpoints))
	}
	if response.CSV == "" || response.RunID == "" {
		t.Errorf("response missing CSV or run ID")
	}
}

func TestWaterfallUploadMissingFile(t *testing.T) {
	handler := newTestHandler()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("other", "value")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/waterfall", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", recorder.Code)
	}
}

func TestWaterfallEditor(t *testing.T) {
	handler := newTestHandler()

	recorder := postJSON(t, handler, "/api/editor/waterfall", editorConfig())
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var response waterfallResponse
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Breakpoints) != 4 {
		t.Errorf("breakpoint count = %d, expected 4", len(response.Breakpoints))
	}
}

func TestWaterfallEditorWrappedConfig(t *testing.T) {
	handler := newTestHandler()

	recorder := postJSON(t, handler, "/api/editor/waterfall", map[string]interface{}{
		"config": editorConfig(),
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
}

func TestWaterfallEditorStructuralFailure(t *testing.T) {
	handler := newTestHandler()

	config := editorConfig()
	capTable := config["capTable"].(map[string]interface{})
	preferred := capTable["preferred"].([]interface{})
	// Duplicate names fail structural validation: report returned, no error.
	preferred[1].(map[string]interface{})["name"] = "Series A"

	recorder := postJSON(t, handler, "/api/editor/waterfall", config)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var response waterfallResponse
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Valid {
		t.Errorf("response should be invalid")
	}
	if len(response.Breakpoints) != 0 {
		t.Errorf("blocked analysis should not return breakpoints")
	}
}

func TestWaterfallEditorInvalidBody(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/editor/waterfall", strings.NewReader("not json"))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", recorder.Code)
	}
}

func TestHybridEndpoint(t *testing.T) {
	handler := newTestHandler()

	config := editorConfig()
	config["hybrid"] = map[string]interface{}{
		"scenarios": []interface{}{
			map[string]interface{}{"name": "IPO", "probability": 60, "enterpriseValue": 4500000},
			map[string]interface{}{"name": "Acquisition", "probability": 40, "targetFMV": 2.0},
		},
	}

	recorder := postJSON(t, handler, "/api/hybrid", config)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var response hybridResponse
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Success {
		t.Errorf("hybrid run not successful: %v", response.Errors)
	}
	if len(response.Outcomes) != 2 {
		t.Errorf("outcome count = %d, expected 2", len(response.Outcomes))
	}
	if response.WeightedMean == "" || response.CSV == "" {
		t.Errorf("response missing aggregates or CSV")
	}
}

func TestHybridEndpointWithoutScenarios(t *testing.T) {
	handler := newTestHandler()

	recorder := postJSON(t, handler, "/api/hybrid", editorConfig())
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400 without hybrid scenarios", recorder.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler()

	for _, path := range []string{"/api/waterfall", "/api/editor/waterfall", "/api/hybrid"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s status = %d, expected 405", path, recorder.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/version", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/version status = %d, expected 405", recorder.Code)
	}
}
