package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/spf13/viper"
)

// APIClient handles communication with the Komodo core.
type APIClient struct {
	BaseURL string
	Client  *http.Client
}

// NewClient creates a new APIClient.
func NewClient() *APIClient {
	return &APIClient{
		BaseURL: viper.GetString("url"),
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *APIClient) authHeaders(req *http.Request) {
	if jwt := viper.GetString("jwt"); jwt != "" {
		req.Header.Set("Authorization", "Bearer "+jwt)
		return
	}
	if key := viper.GetString("api_key"); key != "" {
		req.Header.Set("X-Api-Key", key)
		req.Header.Set("X-Api-Secret", viper.GetString("api_secret"))
	}
}

// Do posts one typed request to the core and decodes the response.
func (c *APIClient) Do(reqType api.RequestType, params any, out any) error {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("error encoding params: %v", err)
	}
	body, err := json.Marshal(api.Request{Type: reqType, Params: rawParams})
	if err != nil {
		return fmt.Errorf("error encoding request: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/api", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authHeaders(req)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("error calling core: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CheckResponse(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Post performs a plain POST request, used by the auth endpoints.
func (c *APIClient) Post(path string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.Client.Post(c.BaseURL+path, "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("error calling core: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CheckResponse(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CheckResponse extracts the error envelope from a failed response.
func CheckResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var envelope api.ErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return fmt.Errorf("API Error (%d): %s", resp.StatusCode, envelope.Error)
	}
	return fmt.Errorf("API Error (%d): %s", resp.StatusCode, string(body))
}

// PrintJSON prints data as JSON.
func PrintJSON(data any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		fmt.Printf("Error encoding JSON: %v\n", err)
	}
}
