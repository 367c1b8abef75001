package announce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/opengateware/pocket-release/internal/config"
	"github.com/opengateware/pocket-release/internal/logger"
)

// Announcement carries everything needed to compose a release message.
type Announcement struct {
	// Manifest supplies title, description, author and category.
	Manifest *config.Manifest
	// Run supplies repository, version, target and webhook URLs.
	Run *config.RunContext
	// DownloadURLs are the public asset links from the release publisher.
	DownloadURLs []string
}

// Sender posts release announcements to chat webhooks.
type Sender struct {
	// httpClient performs the requests; replaceable for tests.
	httpClient *http.Client
	// avatarBaseURL is the user API root used for avatar lookups.
	avatarBaseURL string
}

// Option configures sender behaviour.
type Option func(*Sender)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sender) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithAvatarBaseURL overrides the user API root for avatar lookups.
func WithAvatarBaseURL(baseURL string) Option {
	return func(s *Sender) {
		if baseURL != "" {
			s.avatarBaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// embed mirrors the Discord embed object.
type embed struct {
	Color  int          `json:"color"`
	Title  string       `json:"title"`
	Image  *embedImage  `json:"image,omitempty"`
	Fields []embedField `json:"fields"`
}

// embedImage mirrors the Discord embed image object.
type embedImage struct {
	URL string `json:"url"`
}

// embedField mirrors one field of a Discord embed.
type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// message is the webhook payload.
type message struct {
	Username  string  `json:"username"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Embeds    []embed `json:"embeds"`
}

const (
	// embedColor is the accent colour of release embeds.
	embedColor = 2021216

	// defaultTimeout bounds webhook and avatar requests.
	defaultTimeout = 15 * time.Second

	// defaultAvatarBaseURL is the public GitHub user API.
	defaultAvatarBaseURL = "https://api.github.com"
)

// errWebhookRejected is returned when a webhook answers with an
// unexpected status.
var errWebhookRejected = errors.New("webhook rejected announcement")

// platformNames maps target identifiers to human-readable platform names.
//
//nolint:gochecknoglobals // Immutable lookup shared by every announcement.
var platformNames = map[string]string{
	"pocket":  "Analogue Pocket",
	"mimic":   "MiMiC NSX",
	"mist":    "MiST",
	"sidi":    "SiDi",
	"mister":  "MiSTer",
	"neptuno": "NeptUNO",
	"cyc1000": "Trenz CYC1000",
	"deca":    "Arrow DECA",
	"tc64v1":  "Turbo Chameleon 64 v1",
	"tc64v2":  "Turbo Chameleon 64 v2",
}

// NewSender creates a webhook sender.
func NewSender(opts ...Option) *Sender {
	sender := &Sender{
		httpClient:    &http.Client{Timeout: defaultTimeout},
		avatarBaseURL: defaultAvatarBaseURL,
	}

	for _, opt := range opts {
		opt(sender)
	}

	return sender
}

// Send posts the announcement to every configured webhook.
// Without download URLs or webhooks there is nothing to announce,
// so Send returns without error.
func (s *Sender) Send(ctx context.Context, ann *Announcement) error {
	valid := make([]string, 0, len(ann.DownloadURLs))

	for _, u := range ann.DownloadURLs {
		if u != "" {
			valid = append(valid, u)
		}
	}

	if len(valid) == 0 {
		logger.Info(ctx, "No download URLs available, skipping announcement")
		return nil
	}

	if len(ann.Run.Webhooks) == 0 {
		logger.Info(ctx, "No webhooks configured, skipping announcement")
		return nil
	}

	payload, err := json.Marshal(s.buildMessage(ctx, ann, valid))
	if err != nil {
		return fmt.Errorf("encode announcement: %w", err)
	}

	for server, webhookURL := range ann.Run.Webhooks {
		logger.InfoKV(ctx, "Sending announcement", "server", server)

		if err = s.post(ctx, webhookURL, payload); err != nil {
			return fmt.Errorf("announce to %s: %w", server, err)
		}
	}

	return nil
}

// buildMessage composes the webhook payload for an announcement.
func (s *Sender) buildMessage(ctx context.Context, ann *Announcement, downloadURLs []string) *message {
	var (
		m         = ann.Manifest
		run       = ann.Run
		repoURL   = "https://github.com/" + run.Repository
		imageURL  = fmt.Sprintf("%s/raw/master/%s", repoURL, m.Release.Image)
		developer = fmt.Sprintf("[%s](https://github.com/%s)", m.Author, m.Author)
		links     = fmt.Sprintf("- [Repository](%s/)\n- [Release](%s/releases/tag/%s)",
			repoURL, repoURL, run.Version)
	)

	return &message{
		Username:  m.Author,
		AvatarURL: s.avatarURL(ctx, m.Author),
		Embeds: []embed{{
			Color: embedColor,
			Title: m.DisplayName,
			Image: &embedImage{URL: imageURL},
			Fields: []embedField{
				{Name: "Platform", Value: PlatformName(run.Target), Inline: true},
				{Name: "Version", Value: run.Version, Inline: true},
				{Name: "Category", Value: m.Hardware.Category, Inline: true},
				{Name: "Description", Value: m.Description},
				{Name: "Developer", Value: developer},
				{Name: "Links", Value: links},
				{Name: "Download", Value: FormatDownloadLinks(downloadURLs)},
			},
		}},
	}
}

// post delivers the payload to one webhook; Discord answers 204 on success.
func (s *Sender) post(ctx context.Context, webhookURL string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	response, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%s: %w", response.Status, errWebhookRejected)
	}

	return nil
}

// avatarURL fetches the author's avatar; failures only degrade the message.
func (s *Sender) avatarURL(ctx context.Context, username string) string {
	endpoint := fmt.Sprintf("%s/users/%s", s.avatarBaseURL, username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return ""
	}

	response, err := s.httpClient.Do(req)
	if err != nil {
		logger.Infof(ctx, "Unable to fetch avatar for %s: %v", username, err)
		return ""
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return ""
	}

	var user struct {
		AvatarURL string `json:"avatar_url"`
	}

	if err = json.NewDecoder(response.Body).Decode(&user); err != nil {
		return ""
	}

	return user.AvatarURL
}

// PlatformName returns the human-readable name of a target platform,
// falling back to the raw identifier for unknown targets.
func PlatformName(target string) string {
	if name, ok := platformNames[target]; ok {
		return name
	}

	return target
}

// FormatDownloadLinks renders URLs as a Markdown list with filenames
// as link text.
func FormatDownloadLinks(urls []string) string {
	var builder strings.Builder

	for _, u := range urls {
		filename := u
		if i := strings.LastIndex(u, "/"); i >= 0 {
			filename = u[i+1:]
		}

		builder.WriteString(fmt.Sprintf("- [%s](%s)\n", filename, u))
	}

	return builder.String()
}
