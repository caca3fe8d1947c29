package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/legacyrp/legacybot/internal/characters"
	"github.com/legacyrp/legacybot/internal/fivem"
)

// Embed accent used across lookup responses.
const color int = 0x57F287

const maxListedResults = 10

func PermissionDenied() []Response {
	return []Response{ResponseString{"❌ You do not have permission to use this command."}}
}

func NotAuthorized() []Response {
	return []Response{ResponseString{"❌ You are not authorized to use this command."}}
}

func Usage(usage string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Usage: `%s`", usage)}}
}

func InputNotValid(errorMessage string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Input not valid: \n> %s", errorMessage)}}
}

func CommandFailed(what string) []Response {
	return []Response{ResponseString{fmt.Sprintf("❌ An error occurred while %s.", what)}}
}

func CheckUsageGuide() []Response {
	content := "**$check Command Usage Guide**\n\n```\n" +
		"$check cid {character_id}    - Search by Character ID\n" +
		"$check license {license}     - Search by License\n" +
		"$check ld {license}          - Search by License (short form)\n" +
		"$check num {phone_number}    - Search by Phone Number\n" +
		"$check number {phone_number} - Search by Phone Number (full form)\n" +
		"$check name {name}           - Search by Name (supports partial names)\n\n" +
		"Alias: $ck works the same as $check\n```"
	return []Response{ResponseString{content}}
}

func CharacterProfile(c characters.Character) Response {

	job := c.JobName
	if job == "" {
		job = "N/A"
	}
	if c.DepartmentName != "" {
		job += fmt.Sprintf(" (%s)", c.DepartmentName)
	}
	if c.PositionName != "" {
		job += fmt.Sprintf(" - %s", c.PositionName)
	}

	content := "**Character Profile**\n```\n" +
		fmt.Sprintf("Character ID: %d\n", c.CharacterID) +
		fmt.Sprintf("Full Name: %s\n", c.FullName()) +
		fmt.Sprintf("Phone Number: %s\n", c.PhoneNumber) +
		fmt.Sprintf("Date of Birth: %s\n", c.DateOfBirth) +
		fmt.Sprintf("License ID: %s\n", c.LicenceIdentifier) +
		fmt.Sprintf("Job: %s\n", job) +
		"```"
	return ResponseString{content}
}

func CharacterResults(results []characters.Character, query string) []Response {

	if len(results) == 0 {
		return []Response{ResponseString{fmt.Sprintf("No characters found for: %s", query)}}
	}
	if len(results) == 1 {
		return []Response{CharacterProfile(results[0])}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Found %d characters matching \"%s\"**\n\n", len(results), query)
	listed := results
	if len(listed) > maxListedResults {
		listed = listed[:maxListedResults]
	}
	for i, c := range listed {
		job := c.JobName
		if job == "" {
			job = "N/A"
		}
		fmt.Fprintf(&sb, "%d. **%s** (ID: %d)\n   Phone: %s | Job: %s\n\n", i+1, c.FullName(), c.CharacterID, c.PhoneNumber, job)
	}
	if len(results) > maxListedResults {
		fmt.Fprintf(&sb, "... and %d more results. Please be more specific.", len(results)-maxListedResults)
	}
	return []Response{ResponseString{sb.String()}}
}

func SearchResults(matches []fivem.Player, term string) []Response {

	embed := discordgo.MessageEmbed{
		Title:     "Player Search Results",
		Color:     color,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	if len(matches) == 1 {
		player := matches[0]
		embed.Description = fmt.Sprintf("Found 1 player matching \"%s\"", term)
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Player ID", Value: fmt.Sprintf("%d", player.ID), Inline: true},
			&discordgo.MessageEmbedField{Name: "Player Name", Value: player.Name, Inline: true},
			&discordgo.MessageEmbedField{Name: "Ping", Value: fmt.Sprintf("%d", player.Ping), Inline: true},
		)
		if len(player.Identifiers) > 0 {
			ids := player.Identifiers
			if len(ids) > 5 {
				ids = ids[:5]
			}
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  "Identifiers",
				Value: fmt.Sprintf("```%s```", strings.Join(ids, "\n")),
			})
		}
		return []Response{ResponseEmbed{embed}}
	}

	var list strings.Builder
	for _, p := range matches {
		fmt.Fprintf(&list, "%d: %s\n", p.ID, p.Name)
	}
	embed.Description = fmt.Sprintf("Found %d players matching \"%s\"", len(matches), term)
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Players Found", Value: fmt.Sprintf("%d", len(matches)), Inline: true},
		&discordgo.MessageEmbedField{Name: "Search Term", Value: fmt.Sprintf("%q", term), Inline: true},
		&discordgo.MessageEmbedField{Name: "Player List", Value: fmt.Sprintf("```%s```", list.String())},
	)
	return []Response{ResponseEmbed{embed}}
}

func ServerList(guilds []*discordgo.Guild) []Response {

	if len(guilds) == 0 {
		return []Response{ResponseString{"The bot is not in any servers."}}
	}

	embed := discordgo.MessageEmbed{
		Title:       "Bot Server List",
		Description: fmt.Sprintf("The bot is currently in %d server(s):", len(guilds)),
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}

	listed := guilds
	const maxListed = 25
	if len(listed) > maxListed {
		listed = listed[:maxListed]
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Showing first %d servers out of %d", maxListed, len(guilds)),
		}
	}
	var sb strings.Builder
	for _, g := range listed {
		fmt.Fprintf(&sb, "%s (%s)\n", g.Name, g.ID)
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "Servers",
		Value: fmt.Sprintf("```%s```", sb.String()),
	})
	return []Response{ResponseEmbed{embed}}
}

func ChannelList(guildName string, text []*discordgo.Channel, voice []*discordgo.Channel) []Response {

	if len(text) == 0 && len(voice) == 0 {
		return []Response{ResponseString{fmt.Sprintf("No channels found in %s.", guildName)}}
	}

	embed := discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Channels in %s", guildName),
		Description: fmt.Sprintf("Found %d text and %d voice channel(s):", len(text), len(voice)),
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if len(text) > 0 {
		var sb strings.Builder
		for _, ch := range text {
			fmt.Fprintf(&sb, "#%s\n", ch.Name)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Text Channels",
			Value: fmt.Sprintf("```%s```", sb.String()),
		})
	}
	if len(voice) > 0 {
		var sb strings.Builder
		for _, ch := range voice {
			fmt.Fprintf(&sb, "%s\n", ch.Name)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Voice Channels",
			Value: fmt.Sprintf("```%s```", sb.String()),
		})
	}
	return []Response{ResponseEmbed{embed}}
}

// Transcript renders fetched messages, oldest first, as a text file.
func Transcript(guildName, channelName string, messages []*discordgo.Message) []Response {

	var sb strings.Builder
	fmt.Fprintf(&sb, "Transcript of #%s in %s, generated %s\n\n", channelName, guildName, time.Now().UTC().Format(time.RFC1123))
	for _, m := range messages {
		stamp := ""
		if ts, err := discordgo.SnowflakeTimestamp(m.ID); err == nil {
			stamp = ts.UTC().Format("2006-01-02 15:04:05")
		}
		author := "unknown"
		if m.Author != nil {
			author = m.Author.Username
		}
		fmt.Fprintf(&sb, "[%s] %s: %s\n", stamp, author, m.Content)
		for _, a := range m.Attachments {
			fmt.Fprintf(&sb, "    (attachment: %s)\n", a.URL)
		}
	}

	filename := fmt.Sprintf("transcript_%s_%s_%d.txt", sanitizeFilename(guildName), sanitizeFilename(channelName), time.Now().Unix())
	content := fmt.Sprintf("Here's the transcript of the last %d messages from #%s in %s:", len(messages), channelName, guildName)
	return []Response{ResponseFile{content: content, filename: filename, data: []byte(sb.String())}}
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func StatusMonitorConfigured(channelID string) []Response {
	return []Response{ResponseString{fmt.Sprintf("✅ Status monitor configured for <#%s>. Updating every 1 minute.", channelID)}}
}

func PlayersMonitorConfigured(channelID, url string) []Response {
	return []Response{ResponseString{fmt.Sprintf("✅ Players monitor configured for <#%s> with URL: %s. Updating every 5 seconds.", channelID, url)}}
}

func MonitorStopped(count int) []Response {
	return []Response{ResponseString{fmt.Sprintf("✅ Stopped %d monitor(s).", count)}}
}

func StaffToggled(mention string, role string, enabled bool) []Response {
	if enabled {
		return []Response{ResponseString{fmt.Sprintf("✅ %s is now a %s!", mention, role)}}
	}
	return []Response{ResponseString{fmt.Sprintf("⚠️ %s is no longer a %s.", mention, role)}}
}

func UserNotFoundInDatabase() []Response {
	return []Response{ResponseString{"❌ User not found in the database."}}
}

func AllRolesGranted(mention string) []Response {
	content := fmt.Sprintf("✅ Successfully granted all roles to %s\n```\nSuper Admin: ✅\nSenior Staff: ✅\nStaff: ✅\n```", mention)
	return []Response{ResponseString{content}}
}

func LiveForwardingConfigured(sourceGuild, sourceChannel, targetChannel string) []Response {
	content := fmt.Sprintf("✅ Live message forwarding configured!\n**From:** %s #%s\n**To:** #%s\n\nAll new messages will be forwarded here. Use `$live stop` to stop.",
		sourceGuild, sourceChannel, targetChannel)
	return []Response{ResponseString{content}}
}

func LiveForwardingStopped(count int) []Response {
	return []Response{ResponseString{fmt.Sprintf("✅ Stopped %d live message forwarding configuration(s).", count)}}
}
