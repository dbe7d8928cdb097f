package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// apiClient is a thin wrapper over the daemon's HTTP API.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient(base, token string) *apiClient {
	return &apiClient{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  &http.Client{Timeout: 10 * time.Minute},
	}
}

type videoItem struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	FilePath      string `json:"file_path"`
	ProcessedPath string `json:"processed_path"`
	HasSubtitles  bool   `json:"has_subtitles"`
	Status        string `json:"status"`
	ErrorMessage  string `json:"error_message"`
	YouTubeURL    string `json:"youtube_url"`
	CreatedAt     string `json:"created_at"`
}

type nicheItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type healthSummary struct {
	Status     string `json:"status"`
	Total      int    `json:"total"`
	Uploaded   int    `json:"uploaded"`
	InFlight   int    `json:"in_flight"`
	Processed  int    `json:"processed"`
	Published  int    `json:"published"`
	Failed     int    `json:"failed"`
	QueuedJobs int    `json:"queued_jobs"`
}

func (c *apiClient) Upload(path, title string) (*videoItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("video", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("read video: %w", err)
	}
	if title != "" {
		if err := writer.WriteField("title", title); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.base+"/api/videos/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var video videoItem
	if err := c.do(req, &video); err != nil {
		return nil, err
	}
	return &video, nil
}

func (c *apiClient) ListVideos(statuses []string) ([]videoItem, error) {
	endpoint := c.base + "/api/videos"
	if len(statuses) > 0 {
		params := url.Values{}
		for _, status := range statuses {
			params.Add("status", status)
		}
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Videos []videoItem `json:"videos"`
	}
	if err := c.do(req, &payload); err != nil {
		return nil, err
	}
	return payload.Videos, nil
}

func (c *apiClient) Save(id int64, nicheID *int64, title string) error {
	body := map[string]any{}
	if nicheID != nil {
		body["niche_id"] = *nicheID
	}
	if title != "" {
		body["title"] = title
	}
	return c.postJSON(fmt.Sprintf("%s/api/videos/%d/save", c.base, id), body, nil)
}

func (c *apiClient) Discard(id int64) error {
	return c.postJSON(fmt.Sprintf("%s/api/videos/%d/discard", c.base, id), nil, nil)
}

func (c *apiClient) ListNiches() ([]nicheItem, error) {
	req, err := http.NewRequest(http.MethodGet, c.base+"/api/niches", nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Niches []nicheItem `json:"niches"`
	}
	if err := c.do(req, &payload); err != nil {
		return nil, err
	}
	return payload.Niches, nil
}

func (c *apiClient) CreateNiche(name, description string) (*nicheItem, error) {
	var niche nicheItem
	err := c.postJSON(c.base+"/api/niches", map[string]string{
		"name":        name,
		"description": description,
	}, &niche)
	if err != nil {
		return nil, err
	}
	return &niche, nil
}

func (c *apiClient) Health() (*healthSummary, error) {
	req, err := http.NewRequest(http.MethodGet, c.base+"/api/health", nil)
	if err != nil {
		return nil, err
	}
	var health healthSummary
	if err := c.do(req, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *apiClient) postJSON(endpoint string, body any, target any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(http.MethodPost, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, target)
}

func (c *apiClient) do(req *http.Request, target any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connect to daemon at %s: %w (is shortcastd running?)", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}
