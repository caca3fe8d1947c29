package monitor

import (
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// DiscordChannel implements ChannelMessenger on top of a discordgo
// session, translating REST errors into the sink's taxonomy.
type DiscordChannel struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordChannel(session *discordgo.Session, channelID string) *DiscordChannel {
	return &DiscordChannel{session: session, channelID: channelID}
}

func (dc *DiscordChannel) FetchMessage(messageID string) error {
	_, err := dc.session.ChannelMessage(dc.channelID, messageID)
	return classify(err)
}

func (dc *DiscordChannel) CreateMessage(embed *discordgo.MessageEmbed) (string, error) {
	msg, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed)
	if err != nil {
		return "", classify(err)
	}
	return msg.ID, nil
}

func (dc *DiscordChannel) EditMessage(messageID string, embed *discordgo.MessageEmbed) error {
	_, err := dc.session.ChannelMessageEditEmbed(dc.channelID, messageID, embed)
	return classify(err)
}

func (dc *DiscordChannel) DeleteMessage(messageID string) error {
	return classify(dc.session.ChannelMessageDelete(dc.channelID, messageID))
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if restErr, ok := err.(*discordgo.RESTError); ok && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return ErrMessageGone
		case http.StatusTooManyRequests:
			return ErrRateLimited
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %v", ErrPayloadRejected, err)
		}
	}
	if _, ok := err.(*discordgo.RateLimitError); ok {
		return ErrRateLimited
	}
	return err
}
