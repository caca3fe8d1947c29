package bot

import (
	"bytes"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

type ResponseString struct {
	string
}
type ResponseEmbed struct {
	discordgo.MessageEmbed
}

// ResponseFile sends a text attachment alongside a short message.
type ResponseFile struct {
	content  string
	filename string
	data     []byte
}

type Response interface {
	Send(channelid string, discord *discordgo.Session)
}

func (response ResponseString) Send(channelid string, discord *discordgo.Session) {
	if _, err := discord.ChannelMessageSend(channelid, response.string); err != nil {
		log.Error().Err(err).Str("channel", channelid).Msg("could not send message")
	}
}

func (response ResponseEmbed) Send(channelid string, discord *discordgo.Session) {
	if _, err := discord.ChannelMessageSendEmbed(channelid, &response.MessageEmbed); err != nil {
		log.Error().Err(err).Str("channel", channelid).Msg("could not send embed")
	}
}

func (response ResponseFile) Send(channelid string, discord *discordgo.Session) {
	send := &discordgo.MessageSend{
		Content: response.content,
		Files: []*discordgo.File{{
			Name:        response.filename,
			ContentType: "text/plain",
			Reader:      bytes.NewReader(response.data),
		}},
	}
	if _, err := discord.ChannelMessageSendComplex(channelid, send); err != nil {
		log.Error().Err(err).Str("channel", channelid).Msg("could not send attachment")
	}
}
