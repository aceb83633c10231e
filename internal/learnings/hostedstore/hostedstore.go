// Package hostedstore is the Learnings Store's hosted back-end: a thin
// HTTP client against an external memory service, activated only when
// AGENTCORE_MEMORY_ID is configured (see internal/config). Search here
// is semantic, delegated entirely to the remote service — this back-end
// carries no local scoring logic, unlike localstore's word-overlap rule.
package hostedstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/productionorchestrator/orchestrator/internal/domain"
	"github.com/productionorchestrator/orchestrator/internal/httpx"
	"github.com/productionorchestrator/orchestrator/internal/learnings"
	"github.com/productionorchestrator/orchestrator/internal/orcherr"
)

// Store talks to a remote memory service keyed by a memory ID.
type Store struct {
	baseURL    string
	memoryID   string
	apiKey     string
	maxRetries int
	client     *http.Client
}

var _ learnings.Store = (*Store)(nil)

func New(baseURL, memoryID, apiKey string, maxRetries int) *Store {
	return &Store{
		baseURL:    baseURL,
		memoryID:   memoryID,
		apiKey:     apiKey,
		maxRetries: maxRetries,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *Store) endpoint(path string) string {
	return fmt.Sprintf("%s/memories/%s%s", s.baseURL, url.PathEscape(s.memoryID), path)
}

func (s *Store) doJSON(ctx context.Context, method, path string, body any, out any) error {
	return httpx.Do(ctx, s.maxRetries, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return orcherr.New(orcherr.InputInvalid, "hostedstore.request", err)
			}
			reader = bytes.NewReader(data)
		}
		req, err := http.NewRequestWithContext(ctx, method, s.endpoint(path), reader)
		if err != nil {
			return orcherr.New(orcherr.InputInvalid, "hostedstore.request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if s.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.apiKey)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return orcherr.New(httpx.ClassifyErr(err), "hostedstore.request", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			data, _ := io.ReadAll(resp.Body)
			return orcherr.New(httpx.ClassifyStatus(resp.StatusCode), "hostedstore.request", fmt.Errorf("status %d: %s", resp.StatusCode, data))
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return orcherr.New(orcherr.JournalIO, "hostedstore.decode", err)
		}
		return nil
	})
}

func (s *Store) Create(ctx context.Context, l domain.Learning) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := s.doJSON(ctx, http.MethodPost, "/records", l, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (s *Store) Get(ctx context.Context, namespace, id string) (domain.Learning, error) {
	var l domain.Learning
	path := fmt.Sprintf("/records/%s?namespace=%s", url.PathEscape(id), url.QueryEscape(namespace))
	if err := s.doJSON(ctx, http.MethodGet, path, nil, &l); err != nil {
		return domain.Learning{}, err
	}
	return l, nil
}

func (s *Store) Update(ctx context.Context, l domain.Learning) error {
	path := fmt.Sprintf("/records/%s", url.PathEscape(l.ID))
	return s.doJSON(ctx, http.MethodPut, path, l, nil)
}

func (s *Store) Delete(ctx context.Context, namespace, id string) error {
	path := fmt.Sprintf("/records/%s?namespace=%s", url.PathEscape(id), url.QueryEscape(namespace))
	return s.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (s *Store) List(ctx context.Context, namespace string, limit, offset int, tags []string) ([]domain.Learning, error) {
	var out struct {
		Records []domain.Learning `json:"records"`
	}
	path := fmt.Sprintf("/records?namespace=%s&limit=%d&offset=%d", url.QueryEscape(namespace), limit, offset)
	for _, t := range tags {
		path += "&tag=" + url.QueryEscape(t)
	}
	if err := s.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// Search delegates ranking to the remote service's semantic search —
// the hosted back-end's defining difference from localstore's word
// overlap scoring.
func (s *Store) Search(ctx context.Context, namespaces []string, queryText string, topK int, tags []string) ([]domain.SearchResult, error) {
	reqBody := struct {
		Namespaces []string `json:"namespaces"`
		Query      string   `json:"query"`
		TopK       int      `json:"top_k"`
		Tags       []string `json:"tags,omitempty"`
	}{Namespaces: namespaces, Query: queryText, TopK: topK, Tags: tags}

	var out struct {
		Results []domain.SearchResult `json:"results"`
	}
	if err := s.doJSON(ctx, http.MethodPost, "/search", reqBody, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (s *Store) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	path := fmt.Sprintf("/namespaces/exists?namespace=%s", url.QueryEscape(namespace))
	if err := s.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return out.Exists, nil
}

func (s *Store) DeleteNamespace(ctx context.Context, namespace string) error {
	path := fmt.Sprintf("/namespaces?namespace=%s", url.QueryEscape(namespace))
	return s.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (s *Store) Validate(ctx context.Context, namespace, id string, success bool) error {
	reqBody := struct {
		Namespace string `json:"namespace"`
		Success   bool   `json:"success"`
	}{Namespace: namespace, Success: success}
	path := fmt.Sprintf("/records/%s/validate", url.PathEscape(id))
	return s.doJSON(ctx, http.MethodPost, path, reqBody, nil)
}
