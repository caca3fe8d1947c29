package bot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

type whitelistPost struct {
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
	Timestamp int64  `json:"timestamp"`
}

// WhitelistLog posts an audit message to the log channel for every
// whitelist addition and remembers the message so a later removal can
// be marked with a reaction.
type WhitelistLog struct {
	path      string
	channelID string
	mu        sync.Mutex
}

func NewWhitelistLog(path, channelID string) *WhitelistLog {
	return &WhitelistLog{path: path, channelID: channelID}
}

// LogAddition announces a whitelisted license in the log channel and
// records the message. Failures are logged, never surfaced to the
// command that triggered them.
func (w *WhitelistLog) LogAddition(discord *discordgo.Session, licenseID, byUserID string) {
	if w.channelID == "" {
		return
	}

	content := fmt.Sprintf("✅ Whitelisted license ID `%s`", licenseID)
	if byUserID != "" {
		content += fmt.Sprintf(" by <@%s>", byUserID)
	}
	message, err := discord.ChannelMessageSend(w.channelID, content)
	if err != nil {
		log.Error().Err(err).Str("license", licenseID).Msg("could not post whitelist log")
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	posts, err := w.read()
	if err != nil {
		log.Error().Err(err).Msg("could not read whitelist log store")
		return
	}
	posts[licenseID] = whitelistPost{
		ChannelID: w.channelID,
		MessageID: message.ID,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := w.write(posts); err != nil {
		log.Error().Err(err).Msg("could not write whitelist log store")
	}
}

// MarkRemoval reacts with ❌ on the original addition message, if one
// was recorded. Returns whether a message was marked.
func (w *WhitelistLog) MarkRemoval(discord *discordgo.Session, licenseID string) bool {
	w.mu.Lock()
	post, ok := func() (whitelistPost, bool) {
		posts, err := w.read()
		if err != nil {
			return whitelistPost{}, false
		}
		p, ok := posts[licenseID]
		return p, ok
	}()
	w.mu.Unlock()

	if !ok || post.ChannelID == "" || post.MessageID == "" {
		return false
	}
	if err := discord.MessageReactionAdd(post.ChannelID, post.MessageID, "❌"); err != nil {
		log.Error().Err(err).Str("license", licenseID).Msg("could not react to whitelist removal")
		return false
	}
	return true
}

func (w *WhitelistLog) read() (map[string]whitelistPost, error) {
	raw, err := os.ReadFile(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]whitelistPost{}, nil
	}
	if err != nil {
		return nil, err
	}
	posts := map[string]whitelistPost{}
	if err := json.Unmarshal(raw, &posts); err != nil {
		return map[string]whitelistPost{}, nil
	}
	return posts, nil
}

func (w *WhitelistLog) write(posts map[string]whitelistPost) error {
	raw, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return err
	}
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, w.path)
}
