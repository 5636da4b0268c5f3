package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bizmatters/diabetes-screener/internal/gateway"
	"github.com/bizmatters/diabetes-screener/internal/models"
)

type TestResult struct {
	TestName string
	Success  bool
	Error    error
	Details  string
}

// measurements is a complete, in-range questionnaire
var measurements = []models.AnswerRequest{
	{Feature: "pregnancies", Value: "2"},
	{Feature: "glucose", Value: "120"},
	{Feature: "blood_pressure", Value: "70"},
	{Feature: "skin_thickness", Value: "20"},
	{Feature: "insulin", Value: "79"},
	{Feature: "bmi", Value: "25.5"},
	{Feature: "diabetes_pedigree_function", Value: "0.5"},
	{Feature: "age", Value: "30"},
}

var client = &http.Client{Timeout: 10 * time.Second}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of a running screener API")
	flag.Parse()

	log.Printf("🚀 Starting Diabetes Screener smoke test against %s", *baseURL)

	results := []TestResult{
		testHealth(*baseURL),
		testHTTPQuestionnaire(*baseURL),
		testRejectedAnswer(*baseURL),
		testWebSocketQuestionnaire(*baseURL),
	}

	if !printTestResults(results) {
		os.Exit(1)
	}
}

func testHealth(baseURL string) TestResult {
	log.Println("📋 Test 1: Health and readiness")

	for _, path := range []string{"/health", "/ready"} {
		resp, err := client.Get(baseURL + path)
		if err != nil {
			return TestResult{TestName: "Health", Error: err, Details: "Failed to reach " + path}
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return TestResult{TestName: "Health", Error: fmt.Errorf("unexpected status code: %d", resp.StatusCode), Details: path}
		}
	}

	return TestResult{TestName: "Health", Success: true, Details: "/health and /ready return 200"}
}

func testHTTPQuestionnaire(baseURL string) TestResult {
	log.Println("📋 Test 2: HTTP questionnaire and prediction")
	name := "HTTP Questionnaire"

	session, err := openSession(baseURL)
	if err != nil {
		return TestResult{TestName: name, Error: err, Details: "Failed to open session"}
	}

	for _, m := range measurements {
		var ans models.AnswerResponse
		if status, err := post(baseURL+"/api/input", session.Token, m, &ans); err != nil || status != http.StatusOK {
			return TestResult{TestName: name, Error: statusErr(status, err), Details: "Input rejected for " + m.Feature}
		}
	}

	var prompt models.PromptResponse
	if _, err := post(baseURL+"/api/ask", session.Token, nil, &prompt); err != nil || !prompt.Ready {
		return TestResult{TestName: name, Error: err, Details: "Session not ready after all inputs"}
	}

	var pred models.PredictionResponse
	status, err := post(baseURL+"/api/predict", session.Token, nil, &pred)
	if err != nil || status != http.StatusOK {
		return TestResult{TestName: name, Error: statusErr(status, err), Details: "Prediction failed"}
	}
	if pred.Label != "Positive" && pred.Label != "Negative" {
		return TestResult{TestName: name, Error: fmt.Errorf("unexpected label %q", pred.Label)}
	}

	return TestResult{TestName: name, Success: true, Details: fmt.Sprintf("%s (probability %.2f)", pred.Message, pred.Probability)}
}

func testRejectedAnswer(baseURL string) TestResult {
	log.Println("📋 Test 3: Out-of-range answer is rejected")
	name := "Rejected Answer"

	session, err := openSession(baseURL)
	if err != nil {
		return TestResult{TestName: name, Error: err, Details: "Failed to open session"}
	}

	var body models.ErrorResponse
	status, err := post(baseURL+"/api/input", session.Token, models.AnswerRequest{Feature: "glucose", Value: "300"}, &body)
	if err != nil {
		return TestResult{TestName: name, Error: err}
	}
	if status != http.StatusUnprocessableEntity || body.Code != models.ErrCodeValidationFailed {
		return TestResult{TestName: name, Error: fmt.Errorf("got %d %s", status, body.Code)}
	}

	return TestResult{TestName: name, Success: true, Details: body.Error}
}

func testWebSocketQuestionnaire(baseURL string) TestResult {
	log.Println("📋 Test 4: WebSocket questionnaire")
	name := "WebSocket Questionnaire"

	session, err := openSession(baseURL)
	if err != nil {
		return TestResult{TestName: name, Error: err, Details: "Failed to open session"}
	}

	wsURL := strings.Replace(baseURL, "http", "ws", 1) + "/api/ws/screening?" + url.Values{"token": {session.Token}}.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return TestResult{TestName: name, Error: err, Details: "Failed to connect"}
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	var frame gateway.ServerFrame
	if err := conn.ReadJSON(&frame); err != nil || frame.Type != gateway.FramePrompt {
		return TestResult{TestName: name, Error: err, Details: "Expected initial prompt"}
	}

	for _, m := range measurements {
		if err := conn.WriteJSON(gateway.ClientFrame{Type: gateway.FrameAnswer, Feature: m.Feature, Value: m.Value}); err != nil {
			return TestResult{TestName: name, Error: err}
		}
		// accepted, then the next prompt or ready
		for i := 0; i < 2; i++ {
			if err := conn.ReadJSON(&frame); err != nil {
				return TestResult{TestName: name, Error: err}
			}
			if frame.Type == gateway.FrameError {
				return TestResult{TestName: name, Error: fmt.Errorf("%s: %s", frame.Code, frame.Message)}
			}
		}
	}
	if frame.Type != gateway.FrameReady {
		return TestResult{TestName: name, Error: fmt.Errorf("expected ready frame, got %s", frame.Type)}
	}

	if err := conn.WriteJSON(gateway.ClientFrame{Type: gateway.FramePredict}); err != nil {
		return TestResult{TestName: name, Error: err}
	}
	if err := conn.ReadJSON(&frame); err != nil || frame.Type != gateway.FramePrediction {
		return TestResult{TestName: name, Error: err, Details: "Expected prediction frame"}
	}

	return TestResult{TestName: name, Success: true, Details: frame.Message}
}

func openSession(baseURL string) (*models.SessionResponse, error) {
	var session models.SessionResponse
	status, err := post(baseURL+"/api/sessions", "", nil, &session)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status code: %d", status)
	}
	return &session, nil
}

func post(target, token string, payload, out interface{}) (int, error) {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequest(http.MethodPost, target, &body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func statusErr(status int, err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("unexpected status code: %d", status)
}

func printTestResults(results []TestResult) bool {
	log.Println("\n" + strings.Repeat("=", 80))
	log.Println("🧪 DIABETES SCREENER SMOKE TEST RESULTS")
	log.Println(strings.Repeat("=", 80))

	successCount := 0
	for _, result := range results {
		status := "❌ FAILED"
		if result.Success {
			status = "✅ PASSED"
			successCount++
		}

		log.Printf("%s %s", status, result.TestName)
		if result.Details != "" {
			log.Printf("   Details: %s", result.Details)
		}
		if result.Error != nil {
			log.Printf("   Error: %v", result.Error)
		}
	}

	log.Println(strings.Repeat("-", 80))
	log.Printf("📊 SUMMARY: %d/%d tests passed", successCount, len(results))
	log.Println(strings.Repeat("=", 80))

	return successCount == len(results)
}
