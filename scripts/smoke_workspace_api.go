package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var baseURL = env("SMOKE_BASE_URL", "http://localhost:3000/api")

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func prettyPrint(raw json.RawMessage) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func sendRequest(method, url, token string, body interface{}) (int, envelope, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return 0, envelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0, envelope{}, err
	}
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, env, err
	}
	_ = json.Unmarshal(raw, &env)
	return resp.StatusCode, env, nil
}

func step(title, method, url, token string, body interface{}) envelope {
	color.Yellow("\n%s", title)
	status, env, err := sendRequest(method, url, token, body)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	if status >= 400 {
		color.Red("Status: %d %s", status, env.Message)
	} else {
		color.Green("Status: %d %s", status, env.Message)
	}
	prettyPrint(env.Data)
	return env
}

func main() {
	color.Cyan("Workspace API smoke test against %s\n", baseURL)

	login := step("1. Login", "POST", "/auth/v1/login", "", map[string]string{
		"username": env("SMOKE_USERNAME", "operator"),
		"password": env("SMOKE_PASSWORD", "operator"),
	})
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(login.Data, &tokens); err != nil || tokens.AccessToken == "" {
		color.Red("Login did not return an access token")
		os.Exit(1)
	}
	token := tokens.AccessToken

	step("2. Sites", "GET", "/workspace/v1/sites", token, nil)
	step("3. Enable tab mode", "POST", "/workspace/v1/tabs/mode/toggle", token, nil)
	step("4. Open tab", "POST", "/workspace/v1/tabs", token, map[string]string{"url": "/dashboard", "title": "Dashboard"})
	step("5. Enable grid mode", "POST", "/workspace/v1/grid/mode/toggle", token, nil)
	step("6. Resolve context", "GET", "/workspace/v1/context", token, nil)
	step("7. Snapshot", "GET", "/workspace/v1?route=/dashboard", token, nil)

	color.Cyan("\nDone")
}
