// Package publish authenticates against YouTube and uploads processed
// videos as Shorts via resumable chunked transfer.
package publish

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"shortcast/internal/config"
	"shortcast/internal/logging"
	"shortcast/internal/services"
)

const shortsURLPrefix = "https://youtube.com/shorts/"

// Uploader holds an authenticated YouTube client plus the config needed
// to rebuild one. Authenticate is idempotent; Publish and the metadata
// calls re-authenticate lazily when needed.
type Uploader struct {
	cfg     *config.Config
	logger  *slog.Logger
	service *youtube.Service

	// authorize runs the interactive authorization flow when no cached
	// token can be used. Injectable for tests.
	authorize func(ctx context.Context, oauthCfg *oauth2.Config) (*oauth2.Token, error)
	input     io.Reader
	output    io.Writer
}

// NewUploader builds an Uploader from YouTube configuration.
func NewUploader(cfg *config.Config, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = logging.NewNop()
	}
	uploader := &Uploader{
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "publish")),
		input:  os.Stdin,
		output: os.Stdout,
	}
	uploader.authorize = uploader.consoleAuthorize
	return uploader
}

// WithAuthorizer replaces the interactive authorization flow (for testing).
func (u *Uploader) WithAuthorizer(fn func(ctx context.Context, oauthCfg *oauth2.Config) (*oauth2.Token, error)) {
	u.authorize = fn
}

// Authenticate loads the cached credential, refreshes it when expired
// but refreshable, and otherwise runs the interactive flow and caches
// the result. Safe to call repeatedly.
func (u *Uploader) Authenticate(ctx context.Context) error {
	if u.service != nil {
		return nil
	}

	oauthCfg, err := u.oauthConfig()
	if err != nil {
		return err
	}

	token, err := LoadToken(u.cfg.YouTube.TokenFile)
	if err != nil {
		return services.WrapPath(services.ErrAuth, "publish", "authenticate", "load cached token", u.cfg.YouTube.TokenFile, err)
	}

	if token != nil && (token.Valid() || token.RefreshToken != "") {
		source := oauthCfg.TokenSource(ctx, token)
		refreshed, err := source.Token()
		if err != nil {
			return services.Wrap(services.ErrAuth, "publish", "authenticate", "refresh token", err)
		}
		if refreshed.AccessToken != token.AccessToken {
			if err := SaveToken(u.cfg.YouTube.TokenFile, refreshed); err != nil {
				return services.Wrap(services.ErrAuth, "publish", "authenticate", "cache refreshed token", err)
			}
		}
		return u.buildService(ctx, oauthCfg, refreshed)
	}

	fresh, err := u.authorize(ctx, oauthCfg)
	if err != nil {
		return services.Wrap(services.ErrAuth, "publish", "authenticate", "interactive authorization", err)
	}
	if err := SaveToken(u.cfg.YouTube.TokenFile, fresh); err != nil {
		return services.Wrap(services.ErrAuth, "publish", "authenticate", "cache token", err)
	}
	return u.buildService(ctx, oauthCfg, fresh)
}

func (u *Uploader) oauthConfig() (*oauth2.Config, error) {
	secretsPath := u.cfg.YouTube.ClientSecretsFile
	data, err := os.ReadFile(secretsPath)
	if err != nil {
		return nil, services.WrapPath(services.ErrAuth, "publish", "authenticate", "client secrets unreadable", secretsPath, err)
	}
	oauthCfg, err := google.ConfigFromJSON(data, youtube.YoutubeUploadScope, youtube.YoutubeScope)
	if err != nil {
		return nil, services.WrapPath(services.ErrAuth, "publish", "authenticate", "parse client secrets", secretsPath, err)
	}
	return oauthCfg, nil
}

func (u *Uploader) buildService(ctx context.Context, oauthCfg *oauth2.Config, token *oauth2.Token) error {
	service, err := youtube.NewService(ctx, option.WithTokenSource(oauthCfg.TokenSource(ctx, token)))
	if err != nil {
		return services.Wrap(services.ErrAuth, "publish", "authenticate", "build youtube client", err)
	}
	u.service = service
	return nil
}

// consoleAuthorize prints the consent URL and reads the code back from
// stdin. Used by the CLI auth command; the daemon never reaches it
// because an operator bootstraps the token first.
func (u *Uploader) consoleAuthorize(ctx context.Context, oauthCfg *oauth2.Config) (*oauth2.Token, error) {
	url := oauthCfg.AuthCodeURL("state", oauth2.AccessTypeOffline)
	fmt.Fprintf(u.output, "Visit the URL below, approve access, and paste the code:\n%s\n> ", url)
	reader := bufio.NewReader(u.input)
	code, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("empty authorization code")
	}
	return oauthCfg.Exchange(ctx, code)
}

// Publish uploads a processed file as a private Short and returns the
// video id and shorts URL. The transfer is resumable and chunked; a
// retried publish starts over from zero rather than resuming a prior
// attempt's session.
func (u *Uploader) Publish(ctx context.Context, filePath, title, description string, tags []string) (string, string, error) {
	if err := u.Authenticate(ctx); err != nil {
		return "", "", err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", "", services.WrapPath(services.ErrUpload, "publish", "upload", "open processed file", filePath, err)
	}
	defer file.Close()

	if len(tags) == 0 {
		tags = u.cfg.YouTube.DefaultTags
	}
	upload := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: description,
			Tags:        tags,
			CategoryId:  u.cfg.YouTube.CategoryID,
		},
		Status: &youtube.VideoStatus{
			// Uploads always start private; visibility changes are an
			// explicit follow-up call.
			PrivacyStatus:           "private",
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	call := u.service.Videos.Insert([]string{"snippet", "status"}, upload)
	call = call.Media(file, googleapi.ChunkSize(u.chunkSize()), googleapi.ContentType("video/*"))
	call = call.ProgressUpdater(func(current, total int64) {
		u.logger.InfoContext(ctx, "upload progress",
			logging.Int64("bytes_sent", current),
			logging.Int64("bytes_total", total))
	})

	response, err := call.Context(ctx).Do()
	if err != nil {
		return "", "", services.WrapPath(services.ErrUpload, "publish", "upload", "resumable upload failed", filePath, err)
	}
	return response.Id, shortsURLPrefix + response.Id, nil
}

func (u *Uploader) chunkSize() int {
	mib := u.cfg.YouTube.ChunkSizeMiB
	if mib <= 0 {
		mib = 8
	}
	return mib * 1024 * 1024
}

// SetPrivacy updates a published video's visibility.
func (u *Uploader) SetPrivacy(ctx context.Context, videoID, privacyStatus string) error {
	if err := u.Authenticate(ctx); err != nil {
		return err
	}
	update := &youtube.Video{
		Id:     videoID,
		Status: &youtube.VideoStatus{PrivacyStatus: privacyStatus},
	}
	if _, err := u.service.Videos.Update([]string{"status"}, update).Context(ctx).Do(); err != nil {
		return services.Wrap(services.ErrUpload, "publish", "set_privacy", "update privacy status", err)
	}
	return nil
}

// AddToPlaylist appends a video to an existing playlist.
func (u *Uploader) AddToPlaylist(ctx context.Context, videoID, playlistID string) error {
	if err := u.Authenticate(ctx); err != nil {
		return err
	}
	item := &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtube.ResourceId{Kind: "youtube#video", VideoId: videoID},
		},
	}
	if _, err := u.service.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do(); err != nil {
		return services.Wrap(services.ErrUpload, "publish", "add_to_playlist", "insert playlist item", err)
	}
	return nil
}

// CreatePlaylist creates a private playlist and returns its id.
func (u *Uploader) CreatePlaylist(ctx context.Context, title, description string) (string, error) {
	if err := u.Authenticate(ctx); err != nil {
		return "", err
	}
	playlist := &youtube.Playlist{
		Snippet: &youtube.PlaylistSnippet{Title: title, Description: description},
		Status:  &youtube.PlaylistStatus{PrivacyStatus: "private"},
	}
	created, err := u.service.Playlists.Insert([]string{"snippet", "status"}, playlist).Context(ctx).Do()
	if err != nil {
		return "", services.Wrap(services.ErrUpload, "publish", "create_playlist", "insert playlist", err)
	}
	return created.Id, nil
}

// DefaultTitle derives a publish title when the caller supplied none:
// the niche display name as a single title-cased hashtag, or #shorts
// when the video has no niche.
func DefaultTitle(nicheName string) string {
	nicheName = strings.TrimSpace(nicheName)
	if nicheName == "" {
		return "#shorts"
	}
	caser := cases.Title(language.English)
	return "#" + strings.Join(strings.Fields(caser.String(nicheName)), "")
}
