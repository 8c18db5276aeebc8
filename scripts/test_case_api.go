//go:build ignore

// Manual smoke test for the case workflow API. Run with:
//
//	go run scripts/test_case_api.go
//
// Expects a running server, a seeded reviewer and the analysis engine up.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{} // No timeout; streaming stages can be slow
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func decodeData(body []byte) map[string]interface{} {
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	json.Unmarshal(body, &envelope)
	return envelope.Data
}

func main() {
	color.Cyan("🚀 Starting Case Workflow API Test\n")

	// 1. Login
	color.Yellow("\n1. Login as seeded reviewer")
	resp, body, err := sendRequest("POST", "/auth/v1/login", "", map[string]interface{}{
		"email":    "reviewer@demo.local",
		"password": "reviewer123",
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	token, _ := decodeData(body)["access_token"].(string)
	if token == "" {
		color.Red("No access token in response")
		os.Exit(1)
	}

	// 2. Create a case
	color.Yellow("\n2. Create a case")
	resp, body, err = sendRequest("POST", "/case/v1", token, map[string]interface{}{
		"payer_id":       "aetna-ppo",
		"provider_email": "clinic@demo.local",
		"patient":        map[string]interface{}{"name": "John Smoke", "age": 61, "diagnosis": "rheumatoid arthritis"},
		"medication":     map[string]interface{}{"name": "adalimumab", "dosage": "40mg biweekly"},
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	caseID, _ := decodeData(body)["id"].(string)
	fmt.Println("case:", caseID)

	// 3. Show the case
	color.Yellow("\n3. Show the case")
	resp, body, _ = sendRequest("GET", "/case/v1/"+caseID, token, nil)
	color.Green("Status: %s", resp.Status)
	prettyPrint(decodeData(body))

	// 4. Approve intake, then run the streaming policy analysis
	color.Yellow("\n4. Approve intake")
	resp, _, _ = sendRequest("POST", "/case/v1/"+caseID+"/stage/intake/approve", token, nil)
	color.Green("Status: %s", resp.Status)

	color.Yellow("\n5. Run policy analysis (streaming with fallback)")
	resp, body, _ = sendRequest("POST", "/case/v1/"+caseID+"/stage/policy_analysis/run", token, nil)
	color.Green("Status: %s", resp.Status)
	prettyPrint(decodeData(body))

	// 6. Position and trace
	color.Yellow("\n6. Position")
	resp, body, _ = sendRequest("GET", "/case/v1/"+caseID+"/position", token, nil)
	color.Green("Status: %s", resp.Status)
	prettyPrint(decodeData(body))

	color.Yellow("\n7. Audit trace")
	resp, body, _ = sendRequest("GET", "/case/v1/"+caseID+"/trace", token, nil)
	color.Green("Status: %s", resp.Status)
	prettyPrint(decodeData(body))

	// 8. Cohort lookup
	color.Yellow("\n8. Similar historical outcomes")
	resp, body, _ = sendRequest("GET", "/case/v1/"+caseID+"/cohort/similar?k=3", token, nil)
	color.Green("Status: %s", resp.Status)
	prettyPrint(decodeData(body))

	color.Cyan("\n✅ Smoke test finished.")
}
