package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ARIClient talks to the Asterisk REST Interface and hands out media channels
// for answered calls. Synthesized audio is written to SoundsDir (shared with
// the Asterisk host) and played by sound URI; caller speech is captured with
// the recordings API, one utterance per recording.
type ARIClient struct {
	baseURL  string
	username string
	password string

	// SoundsDir must be Asterisk's sounds directory or a mount of it.
	soundsDir string

	http *http.Client
}

func NewARIClient(baseURL, username, password, soundsDir string) *ARIClient {
	return &ARIClient{
		baseURL:   baseURL,
		username:  username,
		password:  password,
		soundsDir: soundsDir,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// Attach answers the channel if needed and returns its media path.
func (c *ARIClient) Attach(ctx context.Context, providerCallID string) (MediaChannel, error) {
	status, _, err := c.do(ctx, http.MethodGet, "/channels/"+url.PathEscape(providerCallID), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if status == http.StatusNotFound {
		return nil, ErrChannelClosed
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: channel lookup status %d", ErrProviderUnavailable, status)
	}
	// Answering an already-up channel is a no-op on the Asterisk side.
	if status, _, err = c.do(ctx, http.MethodPost, "/channels/"+url.PathEscape(providerCallID)+"/answer", nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	} else if status == http.StatusNotFound {
		return nil, ErrChannelClosed
	}
	return &ariMediaChannel{client: c, channelID: providerCallID}, nil
}

type ariMediaChannel struct {
	client    *ARIClient
	channelID string
}

// Capture records one utterance. The window comes from the ctx deadline; a
// short trailing silence ends the recording early so turn-taking stays snappy.
func (m *ariMediaChannel) Capture(ctx context.Context) ([]byte, error) {
	window := 8 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		window = time.Until(dl)
	}
	name := "vg-rec-" + uuid.NewString()
	q := url.Values{}
	q.Set("name", name)
	q.Set("format", "wav")
	q.Set("maxDurationSeconds", fmt.Sprintf("%d", int(window.Seconds())))
	q.Set("maxSilenceSeconds", "2")
	q.Set("ifExists", "overwrite")

	status, _, err := m.client.do(ctx, http.MethodPost,
		"/channels/"+url.PathEscape(m.channelID)+"/record?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if status == http.StatusNotFound {
		return nil, ErrChannelClosed
	}
	if status >= 300 {
		return nil, fmt.Errorf("%w: record status %d", ErrProviderUnavailable, status)
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.client.do(context.WithoutCancel(ctx), http.MethodDelete, "/recordings/live/"+url.PathEscape(name), nil)
			return nil, ctx.Err()
		case <-ticker.C:
		}
		status, body, err := m.client.do(ctx, http.MethodGet, "/recordings/live/"+url.PathEscape(name), nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		if status == http.StatusNotFound {
			// Recording finalized; fetch the stored audio.
			return m.fetchStored(ctx, name)
		}
		var rec struct {
			State string `json:"state"`
		}
		if err := json.Unmarshal(body, &rec); err == nil && rec.State == "done" {
			return m.fetchStored(ctx, name)
		}
		if rec.State == "failed" || rec.State == "canceled" {
			return nil, ErrNoAudio
		}
	}
}

func (m *ariMediaChannel) fetchStored(ctx context.Context, name string) ([]byte, error) {
	status, body, err := m.client.do(ctx, http.MethodGet, "/recordings/stored/"+url.PathEscape(name)+"/file", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer m.client.do(context.WithoutCancel(ctx), http.MethodDelete, "/recordings/stored/"+url.PathEscape(name), nil)
	if status == http.StatusNotFound || len(body) == 0 {
		return nil, ErrNoAudio
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: recording fetch status %d", ErrProviderUnavailable, status)
	}
	return body, nil
}

// Play writes the audio next to Asterisk's sounds and plays it by URI,
// blocking until playback finishes or ctx is cancelled.
func (m *ariMediaChannel) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return nil
	}
	name := "vg-play-" + uuid.NewString()
	path := filepath.Join(m.client.soundsDir, name+".wav")
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return fmt.Errorf("%w: write sound: %v", ErrProviderUnavailable, err)
	}
	defer os.Remove(path)

	q := url.Values{}
	q.Set("media", "sound:"+name)
	q.Set("playbackId", name)
	status, _, err := m.client.do(ctx, http.MethodPost,
		"/channels/"+url.PathEscape(m.channelID)+"/play?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if status == http.StatusNotFound {
		return ErrChannelClosed
	}
	if status >= 300 {
		return fmt.Errorf("%w: play status %d", ErrProviderUnavailable, status)
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.client.do(context.WithoutCancel(ctx), http.MethodDelete, "/playbacks/"+url.PathEscape(name), nil)
			return ctx.Err()
		case <-ticker.C:
		}
		status, _, err := m.client.do(ctx, http.MethodGet, "/playbacks/"+url.PathEscape(name), nil)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		if status == http.StatusNotFound {
			return nil
		}
	}
}

func (m *ariMediaChannel) Hangup(ctx context.Context) error {
	status, _, err := m.client.do(ctx, http.MethodDelete, "/channels/"+url.PathEscape(m.channelID), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if status == http.StatusNotFound || status < 300 {
		return nil
	}
	return fmt.Errorf("%w: hangup status %d", ErrProviderUnavailable, status)
}

func (c *ARIClient) do(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.SetBasicAuth(c.username, c.password)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}
