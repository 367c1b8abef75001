package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/opengateware/pocket-release/internal/logger"
)

// Client talks to the GitHub releases API for one repository and tag.
type Client struct {
	// baseURL is the API root, e.g. https://api.github.com.
	baseURL string
	// repository is the "owner/repo" identifier.
	repository string
	// tag is the release tag assets are attached to.
	tag string
	// token authenticates every request.
	token string
	// httpClient performs the requests; replaceable for tests.
	httpClient *http.Client
}

// Option configures client behaviour.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(client *Client) {
		if timeout > 0 {
			client.httpClient.Timeout = timeout
		}
	}
}

// Release is the subset of the API release object the pipeline consumes.
type Release struct {
	// TagName is the git tag the release points at.
	TagName string `json:"tag_name"`
	// UploadURL is the asset upload endpoint (an RFC 6570 template).
	UploadURL string `json:"upload_url"`
}

// Asset is the subset of the API asset object the pipeline consumes.
type Asset struct {
	// Name is the uploaded filename.
	Name string `json:"name"`
	// BrowserDownloadURL is the public download link.
	BrowserDownloadURL string `json:"browser_download_url"`
}

// releaseRequest is the payload for creating a release.
type releaseRequest struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Body       string `json:"body"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

const (
	// defaultTimeout bounds every API call.
	defaultTimeout = 30 * time.Second

	// octetStream is the fallback MIME type for uploads.
	octetStream = "application/octet-stream"

	// acceptHeader pins the API version GitHub recommends.
	acceptHeader = "application/vnd.github.v3+json"
)

var (
	// errBaseURLRequired is returned when the API base URL is missing.
	errBaseURLRequired = errors.New("API base URL must be provided")
	// errRepositoryRequired is returned when the repository identifier is missing.
	errRepositoryRequired = errors.New("repository must be provided")
	// errTagRequired is returned when the release tag is missing.
	errTagRequired = errors.New("release tag must be provided")
	// errBadHTTPStatus is returned on unexpected API status codes.
	errBadHTTPStatus = errors.New("unexpected http status")
)

// NewClient creates a release API client for one repository and tag.
func NewClient(baseURL, repository, tag, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	if repository == "" {
		return nil, errRepositoryRequired
	}

	if tag == "" {
		return nil, errTagRequired
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		repository: repository,
		tag:        tag,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Publish ensures a release exists for the tag and uploads every file from
// releaseDir as a binary asset. Empty filenames are skipped, matching the
// pipeline's soft-skip semantics. It returns the public download URLs.
func (c *Client) Publish(ctx context.Context, releaseDir string, files []string) ([]string, error) {
	valid := make([]string, 0, len(files))

	for _, file := range files {
		if file != "" {
			valid = append(valid, file)
		}
	}

	if len(valid) == 0 {
		logger.Info(ctx, "No files to upload, skipping release")
		return nil, nil
	}

	uploadURL, err := c.uploadURL(ctx)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(valid))

	for _, file := range valid {
		asset, uploadErr := c.UploadAsset(ctx, uploadURL, filepath.Join(releaseDir, file))
		if uploadErr != nil {
			return urls, uploadErr
		}

		if asset.BrowserDownloadURL != "" {
			urls = append(urls, asset.BrowserDownloadURL)
		}
	}

	return urls, nil
}

// ReleaseByTag returns the release for the client's tag, or nil if absent.
func (c *Client) ReleaseByTag(ctx context.Context) (*Release, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/releases", c.baseURL, c.repository)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}

	c.setHeaders(req, acceptHeader)

	body, err := c.do(req, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("query releases: %w", err)
	}

	var releases []Release
	if err = json.Unmarshal(body, &releases); err != nil {
		return nil, fmt.Errorf("decode releases: %w", err)
	}

	for i := range releases {
		if releases[i].TagName == c.tag {
			return &releases[i], nil
		}
	}

	return nil, nil
}

// CreateRelease publishes a new release for the client's tag.
func (c *Client) CreateRelease(ctx context.Context) (*Release, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/releases", c.baseURL, c.repository)

	payload, err := json.Marshal(releaseRequest{
		TagName:    c.tag,
		Name:       "Release v" + c.tag,
		Body:       "Release v" + c.tag,
		Draft:      false,
		Prerelease: false,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	c.setHeaders(req, acceptHeader)
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, http.StatusCreated)
	if err != nil {
		return nil, fmt.Errorf("create release: %w", err)
	}

	var release Release
	if err = json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}

	return &release, nil
}

// UploadAsset uploads one file to the release upload endpoint and returns
// the created asset.
func (c *Client) UploadAsset(ctx context.Context, uploadURL, filePath string) (*Asset, error) {
	name := filepath.Base(filePath)

	endpoint, err := expandUploadURL(uploadURL, name)
	if err != nil {
		return nil, err
	}

	contents, err := os.ReadFile(filepath.Clean(filePath))
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", filePath, err)
	}

	logger.InfoKV(ctx, "Uploading release asset", "name", name, "bytes", len(contents))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(contents))
	if err != nil {
		return nil, err
	}

	c.setHeaders(req, acceptHeader)
	req.Header.Set("Content-Type", mimeTypeByName(name))

	body, err := c.do(req, http.StatusCreated)
	if err != nil {
		return nil, fmt.Errorf("upload asset %s: %w", name, err)
	}

	var asset Asset
	if err = json.Unmarshal(body, &asset); err != nil {
		return nil, fmt.Errorf("decode asset: %w", err)
	}

	return &asset, nil
}

// uploadURL returns the asset upload endpoint, creating the release first
// when no release exists for the tag yet.
func (c *Client) uploadURL(ctx context.Context) (string, error) {
	release, err := c.ReleaseByTag(ctx)
	if err != nil {
		return "", err
	}

	if release != nil {
		logger.InfoKV(ctx, "Release already exists", "tag", c.tag)
		return release.UploadURL, nil
	}

	logger.InfoKV(ctx, "Creating new release", "tag", c.tag)

	release, err = c.CreateRelease(ctx)
	if err != nil {
		return "", err
	}

	return release.UploadURL, nil
}

// do performs the request, checks the expected status and returns the body.
func (c *Client) do(req *http.Request, wantStatus int) ([]byte, error) {
	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != wantStatus {
		return nil, fmt.Errorf("%s %s: %s: %w",
			req.Method, req.URL.Redacted(), response.Status, errBadHTTPStatus)
	}

	return body, nil
}

// setHeaders applies authentication and content negotiation headers.
func (c *Client) setHeaders(req *http.Request, accept string) {
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	req.Header.Set("Accept", accept)
}

// expandUploadURL resolves the RFC 6570 upload template for an asset name.
func expandUploadURL(uploadURL, name string) (string, error) {
	// The API returns ".../assets{?name,label}".
	trimmed := uploadURL
	if i := strings.Index(trimmed, "{"); i >= 0 {
		trimmed = trimmed[:i]
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse upload URL: %w", err)
	}

	parsed.Path = path.Clean(parsed.Path)
	query := parsed.Query()
	query.Set("name", name)
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

// mimeTypeByName guesses a MIME type from the filename extension.
func mimeTypeByName(name string) string {
	if mimeType := mime.TypeByExtension(filepath.Ext(name)); mimeType != "" {
		return mimeType
	}

	return octetStream
}
