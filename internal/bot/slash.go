package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/legacyrp/legacybot/internal/perms"
	"github.com/legacyrp/legacybot/internal/records"
)

var roleChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "all (access to all prefix commands)", Value: perms.RoleAll},
	{Name: "senior staff (prefix: $seniorstaff)", Value: perms.RoleSeniorStaff},
	{Name: "staff (prefix: $staff)", Value: perms.RoleStaff},
	{Name: "superadmin (prefix: $superadmin)", Value: perms.RoleSuperAdmin},
	{Name: "ban (prefix: $ban)", Value: perms.RoleBan},
	{Name: "unban (prefix: $unban)", Value: perms.RoleUnban},
	{Name: "check (prefix: $check)", Value: perms.RoleCheck},
	{Name: "whitelist (use /add_whitelist and /remove_whitelist)", Value: perms.RoleWhitelist},
}

func slashCommands() []*discordgo.ApplicationCommand {

	banMembers := int64(discordgo.PermissionBanMembers)
	noDM := false

	return []*discordgo.ApplicationCommand{
		{
			Name:                     "ban",
			Description:              "Ban a user by their license identifier",
			DefaultMemberPermissions: &banMembers,
			DMPermission:             &noDM,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "identifier", Description: "The license identifier of the user to ban", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason for the ban", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "duration", Description: "Duration of the ban (e.g., 1d, 2w, 1y)", Required: true},
			},
		},
		{
			Name:                     "unban",
			Description:              "Unban a user by their license identifier",
			DefaultMemberPermissions: &banMembers,
			DMPermission:             &noDM,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "identifier", Description: "The license identifier of the user to unban", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason for the unban", Required: true},
			},
		},
		{
			Name:        "give",
			Description: "Grant access to a role/command set for a user",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "role", Description: "Select the role/command access to grant", Required: true, Choices: roleChoices},
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Target user (mention)"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "user_id", Description: "Target user ID (if mention not used)"},
			},
		},
		{
			Name:        "remove",
			Description: "Revoke access to a role/command set from a user",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "role", Description: "Select the role/command access to revoke", Required: true, Choices: roleChoices},
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Target user (mention)"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "user_id", Description: "Target user ID (if mention not used)"},
			},
		},
		{
			Name:        "add_whitelist",
			Description: "Add a license ID to the whitelist",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "license_id", Description: "The license identifier to whitelist", Required: true},
			},
		},
		{
			Name:        "remove_whitelist",
			Description: "Remove a license ID from the whitelist",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "license_id", Description: "The license identifier to remove", Required: true},
			},
		},
		{
			Name:        "playtime",
			Description: "Show your playtime as stored in the server's database",
		},
	}
}

func (bot *Bot) interactionCreate(discord *discordgo.Session, interaction *discordgo.InteractionCreate) {

	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := interaction.ApplicationCommandData()
	options := commandOptions(data)

	var reply string
	switch data.Name {
	case "ban":
		reply = bot.banInteraction(interaction, options)
	case "unban":
		reply = bot.unbanInteraction(interaction, options)
	case "give":
		reply = bot.grantInteraction(interaction, options, true)
	case "remove":
		reply = bot.grantInteraction(interaction, options, false)
	case "add_whitelist":
		reply = bot.addWhitelistInteraction(discord, interaction, options)
	case "remove_whitelist":
		reply = bot.removeWhitelistInteraction(discord, interaction, options)
	case "playtime":
		reply = bot.playtimeInteraction(interaction)
	default:
		return
	}

	err := discord.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		bot.log.Error().Err(err).Str("command", data.Name).Msg("could not respond to interaction")
	}
}

func commandOptions(data discordgo.ApplicationCommandInteractionData) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		options[opt.Name] = opt
	}
	return options
}

func optionString(options map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	opt, ok := options[name]
	if !ok {
		return ""
	}
	return opt.StringValue()
}

func interactionUserID(interaction *discordgo.InteractionCreate) string {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User.ID
	}
	if interaction.User != nil {
		return interaction.User.ID
	}
	return ""
}

func (bot *Bot) banInteraction(interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption) string {

	identifier := optionString(options, "identifier")
	reason := optionString(options, "reason")
	durationStr := optionString(options, "duration")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := bot.records.ActiveBan(ctx, identifier)
	if err != nil {
		bot.log.Error().Err(err).Str("identifier", identifier).Msg("could not check existing ban")
		return "An error occurred while processing the ban."
	}
	if existing != nil {
		return "This user is already banned."
	}

	now := time.Now()
	expire, err := records.ParseBanDuration(durationStr, now)
	if err != nil {
		return "Invalid duration format. Use format like 1d, 2w, 1y"
	}

	creator, err := bot.records.UserByDiscordID(ctx, interactionUserID(interaction))
	if err != nil || creator.LicenseIdentifier == "" {
		return "Error: Could not find your user information in the database."
	}

	ban := records.NewBan(identifier, reason, creator.LicenseIdentifier, expire, now)
	if err := bot.records.BanUser(ctx, ban); err != nil {
		bot.log.Error().Err(err).Str("identifier", identifier).Msg("could not create ban record")
		return "An error occurred while processing the ban."
	}

	bot.log.Info().Str("identifier", identifier).Str("hash", ban.BanHash).Str("by", interactionUserID(interaction)).Msg("user banned")
	return fmt.Sprintf("✅ Successfully banned user with identifier: %s\nReason: %s\nDuration: %s",
		identifier, reason, records.DescribeBanDuration(durationStr))
}

func (bot *Bot) unbanInteraction(interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption) string {

	identifier := optionString(options, "identifier")
	reason := optionString(options, "reason")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := bot.records.ActiveBan(ctx, identifier)
	if err != nil {
		bot.log.Error().Err(err).Str("identifier", identifier).Msg("could not check existing ban")
		return "An error occurred while processing the unban."
	}
	if existing == nil {
		return "This user is not currently banned."
	}

	admin, err := bot.records.UserByDiscordID(ctx, interactionUserID(interaction))
	if err != nil || admin.LicenseIdentifier == "" {
		return "Error: Could not find your user information in the database."
	}

	removed, err := bot.records.UnbanUser(ctx, identifier)
	if err != nil {
		bot.log.Error().Err(err).Str("identifier", identifier).Msg("could not remove ban")
		return "An error occurred while processing the unban."
	}
	if !removed {
		return "Failed to unban user. The user might not be banned or an error occurred."
	}

	bot.log.Info().Str("identifier", identifier).Str("by", interactionUserID(interaction)).Msg("user unbanned")
	return fmt.Sprintf("✅ Successfully unbanned user with identifier: %s\nReason: %s", identifier, reason)
}

func (bot *Bot) grantInteraction(interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption, give bool) string {

	if !bot.perms.IsAdmin(interactionUserID(interaction)) {
		return "❌ You are not authorized to use this command."
	}

	role := optionString(options, "role")
	targetID := ""
	if opt, ok := options["user"]; ok {
		if user := opt.UserValue(nil); user != nil {
			targetID = user.ID
		}
	}
	if targetID == "" {
		targetID = strings.TrimSpace(optionString(options, "user_id"))
	}
	if targetID == "" {
		return "❌ Please provide a target user via mention or user_id."
	}

	if give {
		if err := bot.perms.Give(role, targetID); err != nil {
			bot.log.Error().Err(err).Str("role", role).Msg("could not grant permission")
			return "❌ An error occurred while updating permissions."
		}
		return fmt.Sprintf("✅ Granted access for '%s' to <@%s> (%s).", role, targetID, targetID)
	}
	if err := bot.perms.Remove(role, targetID); err != nil {
		bot.log.Error().Err(err).Str("role", role).Msg("could not revoke permission")
		return "❌ An error occurred while updating permissions."
	}
	return fmt.Sprintf("✅ Revoked access for '%s' from <@%s> (%s).", role, targetID, targetID)
}

func (bot *Bot) addWhitelistInteraction(discord *discordgo.Session, interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption) string {

	userID := interactionUserID(interaction)
	if !bot.perms.CanUseWhitelist(userID) {
		return "❌ You are not authorized to use this command."
	}

	licenseID := optionString(options, "license_id")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := bot.records.AddLicense(ctx, licenseID)
	if err == records.ErrAlreadyWhitelisted {
		return "❌ This license ID is already whitelisted."
	}
	if err != nil {
		bot.log.Error().Err(err).Str("license", licenseID).Msg("could not add license")
		return fmt.Sprintf("❌ Error adding license: %v", err)
	}

	bot.wllog.LogAddition(discord, licenseID, userID)
	return fmt.Sprintf("✅ License ID `%s` added to whitelist.", licenseID)
}

func (bot *Bot) removeWhitelistInteraction(discord *discordgo.Session, interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption) string {

	userID := interactionUserID(interaction)
	if !bot.perms.CanUseWhitelist(userID) {
		return "❌ You are not authorized to use this command."
	}

	licenseID := optionString(options, "license_id")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	removed, err := bot.records.RemoveLicense(ctx, licenseID)
	if err != nil {
		bot.log.Error().Err(err).Str("license", licenseID).Msg("could not remove license")
		return fmt.Sprintf("❌ Error removing license: %v", err)
	}
	if !removed {
		return "❌ This license ID is not whitelisted."
	}

	bot.wllog.MarkRemoval(discord, licenseID)
	return fmt.Sprintf("✅ License ID `%s` removed from whitelist.", licenseID)
}

func (bot *Bot) playtimeInteraction(interaction *discordgo.InteractionCreate) string {

	userID := interactionUserID(interaction)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	minutes, err := bot.records.Playtime(ctx, userID)
	if err == records.ErrUserNotFound {
		return "❌ Could not find your user record in the database."
	}
	if err != nil {
		bot.log.Error().Err(err).Str("user", userID).Msg("could not fetch playtime")
		return "❌ An error occurred while fetching playtime."
	}

	hours := minutes / 60
	rem := minutes % 60
	return fmt.Sprintf("🕒 Playtime for <@%s>\n```\nTotal Minutes: %d\nFormatted: %d hour(s) %d minute(s)\n```", userID, minutes, hours, rem)
}
