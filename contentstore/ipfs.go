package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// IpfsStore talks to an IPFS node over its HTTP API.
type IpfsStore struct {
	endpoint string
	client   *http.Client
}

func NewIpfsStore(endpoint string, timeout time.Duration) *IpfsStore {
	return &IpfsStore{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type ipfsAddResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Store uploads the bytes via /api/v0/add and returns the resulting CID.
func (s *IpfsStore) Store(ctx context.Context, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "snapshot.json")
	if err != nil {
		return "", errors.Wrap(err, "error creating multipart body")
	}
	if _, err := part.Write(data); err != nil {
		return "", errors.Wrap(err, "error writing multipart body")
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(err, "error closing multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/api/v0/add", s.endpoint), &body)
	if err != nil {
		return "", errors.Wrap(err, "error creating add request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "error sending add request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("add request failed, status code: %d", resp.StatusCode)
	}

	var added ipfsAddResponse
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return "", errors.Wrap(err, "error decoding add response")
	}
	if added.Hash == "" {
		return "", errors.New("add response contained no hash")
	}
	return added.Hash, nil
}

// Fetch reads the bytes behind a CID via /api/v0/cat.
func (s *IpfsStore) Fetch(ctx context.Context, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/api/v0/cat?arg=%s", s.endpoint, url.QueryEscape(id)), nil)
	if err != nil {
		return nil, errors.Wrap(err, "error creating cat request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "error sending cat request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cat request failed, status code: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
