package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/legacyrp/legacybot/internal/characters"
	"github.com/legacyrp/legacybot/internal/config"
	"github.com/legacyrp/legacybot/internal/fivem"
	"github.com/legacyrp/legacybot/internal/monitor"
	"github.com/legacyrp/legacybot/internal/perms"
	"github.com/legacyrp/legacybot/internal/records"
)

const transcriptLimit = 50

// Bot wires the Discord session to the command handlers, the monitor
// scheduler and the stores behind them.
type Bot struct {
	discord   *discordgo.Session
	cfg       *config.Config
	perms     *perms.Store
	records   *records.Store
	directory *characters.Directory
	scheduler *monitor.Scheduler
	client    *fivem.Client
	live      *LiveStore
	wllog     *WhitelistLog
	log       zerolog.Logger
}

// New builds the bot and everything it owns: the Discord session, the
// fivem client and the monitor scheduler with its persisted state.
func New(cfg *config.Config, permStore *perms.Store, recordStore *records.Store, directory *characters.Directory, logger zerolog.Logger) (*Bot, error) {

	discord, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("could not create discord session: %w", err)
	}
	discord.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	client := fivem.NewClient(cfg.Monitor.FetchTimeout)
	sinks := func(channelID string) *monitor.Sink {
		return monitor.NewSink(monitor.NewDiscordChannel(discord, channelID))
	}
	scheduler := monitor.NewScheduler(client, sinks,
		monitor.NewStore(filepath.Join(cfg.DataDir, "statusMonitor.json")),
		monitor.NewStore(filepath.Join(cfg.DataDir, "playersMonitor.json")),
		monitor.Options{
			StatusInterval:  cfg.Monitor.StatusInterval,
			PlayersInterval: cfg.Monitor.PlayersInterval,
			PageCapacity:    cfg.Monitor.PageCapacity,
			MaxFailures:     cfg.Monitor.MaxFailures,
		})

	bot := &Bot{
		discord:   discord,
		cfg:       cfg,
		perms:     permStore,
		records:   recordStore,
		directory: directory,
		scheduler: scheduler,
		client:    client,
		live:      NewLiveStore(filepath.Join(cfg.DataDir, "liveConfig.json")),
		wllog:     NewWhitelistLog(filepath.Join(cfg.DataDir, "whitelistPosts.json"), cfg.WhitelistLogChannel),
		log:       logger.With().Str("component", "bot").Logger(),
	}

	discord.AddHandler(bot.ready)
	discord.AddHandler(bot.messageCreate)
	discord.AddHandler(bot.interactionCreate)

	return bot, nil
}

// Run opens the session, resumes persisted monitors and blocks until
// the context is cancelled.
func (bot *Bot) Run(ctx context.Context) error {

	if err := bot.discord.Open(); err != nil {
		return fmt.Errorf("could not open discord session: %w", err)
	}
	defer bot.discord.Close()
	defer bot.scheduler.Close()

	if err := bot.scheduler.ResumeFromStorage(); err != nil {
		bot.log.Error().Err(err).Msg("could not resume monitors from storage")
	}

	<-ctx.Done()
	return nil
}

func (bot *Bot) ready(discord *discordgo.Session, _ *discordgo.Ready) {
	bot.log.Info().Str("user", discord.State.User.Username).Msg("logged in")

	if _, err := discord.ApplicationCommandBulkOverwrite(discord.State.User.ID, "", slashCommands()); err != nil {
		bot.log.Error().Err(err).Msg("could not register slash commands")
		return
	}
	bot.log.Info().Msg("slash commands registered")
}

func (bot *Bot) messageCreate(discord *discordgo.Session, message *discordgo.MessageCreate) {

	// Ignore bots and DMs.
	if message.Author == nil || message.Author.Bot || message.GuildID == "" {
		return
	}

	bot.forwardLive(discord, message)

	parseResult := Parse(message.Content)
	switch parseResult.parseid {
	case PARSEID_NO_BOT_PREFIX, PARSEID_COMMAND_NOT_RECOGNISED, PARSEID_NO_COMMAND:
		return
	case PARSEID_OK:
	default:
		bot.sendResponses(discord, message.ChannelID, InputNotValid(parseResult.errorMessage))
		return
	}

	bot.log.Debug().Str("user", message.Author.ID).Str("content", message.Content).Msg("command received")

	if name := permissionName(parseResult.command); name != "" && !bot.perms.CanUsePrefix(message.Author.ID, name) {
		bot.sendResponses(discord, message.ChannelID, PermissionDenied())
		return
	}

	var responses []Response
	switch parseResult.command {
	case COMMAND_STATUS:
		responses = bot.statusCommand(message, parseResult.arguments)
	case COMMAND_FIVEM:
		responses = bot.fivemCommand(message, parseResult.arguments)
	case COMMAND_CHECK:
		responses = bot.checkCommand(message, parseResult.arguments)
	case COMMAND_SEARCH:
		responses = bot.searchCommand(message, parseResult.arguments)
	case COMMAND_HOW:
		responses = bot.howCommand(discord, message, parseResult.arguments)
	case COMMAND_LOOKIN:
		responses = bot.lookinCommand(discord, message, parseResult.arguments)
	case COMMAND_LIVE:
		responses = bot.liveCommand(discord, message, parseResult.arguments)
	case COMMAND_STAFF:
		responses = bot.toggleCommand(message, parseResult.arguments, records.FlagStaff, "staff", "staff member")
	case COMMAND_SENIORSTAFF:
		responses = bot.toggleCommand(message, parseResult.arguments, records.FlagSeniorStaff, "seniorstaff", "senior staff member")
	case COMMAND_SUPERADMIN:
		responses = bot.toggleCommand(message, parseResult.arguments, records.FlagSuperAdmin, "superadmin", "super admin")
	case COMMAND_ALL:
		responses = bot.allCommand(message, parseResult.arguments)
	default:
		panic(fmt.Sprintf("command %d is not one of the possible ones", parseResult.command))
	}

	bot.sendResponses(discord, message.ChannelID, responses)
}

func (bot *Bot) sendResponses(discord *discordgo.Session, channelID string, responses []Response) {
	for _, response := range responses {
		response.Send(channelID, discord)
	}
}

// forwardLive relays messages on subscribed source channels to their
// target channel.
func (bot *Bot) forwardLive(discord *discordgo.Session, message *discordgo.MessageCreate) {
	for _, fw := range bot.live.Targets(message.GuildID, message.ChannelID) {
		content := fmt.Sprintf("**[%s #%s] %s:** %s",
			fw.SourceGuildName, fw.SourceChannelName, message.Author.Username, message.Content)
		for _, a := range message.Attachments {
			content += "\n" + a.URL
		}
		if _, err := discord.ChannelMessageSend(fw.TargetChannelID, content); err != nil {
			bot.log.Error().Err(err).Str("target", fw.TargetChannelID).Msg("could not forward live message")
		}
	}
}

func (bot *Bot) statusCommand(message *discordgo.MessageCreate, args []string) []Response {

	if !bot.perms.IsAdmin(message.Author.ID) {
		return NotAuthorized()
	}

	if strings.EqualFold(args[0], "stop") || strings.EqualFold(args[0], "forget") {
		return bot.stopMonitor(monitor.KindStatus, args)
	}

	channelID, ok := parseChannelMention(args[0])
	if !ok {
		return Usage("$status #channel")
	}
	if bot.cfg.Monitor.ServerURL == "" {
		return []Response{ResponseString{"❌ No server URL is configured for the status monitor."}}
	}

	url := strings.TrimSuffix(bot.cfg.Monitor.ServerURL, "/") + fivem.InfoSuffix
	if err := bot.scheduler.Configure(monitor.KindStatus, channelID, url); err != nil {
		bot.log.Error().Err(err).Msg("could not configure status monitor")
		return CommandFailed("configuring the status monitor")
	}
	return StatusMonitorConfigured(channelID)
}

func (bot *Bot) fivemCommand(message *discordgo.MessageCreate, args []string) []Response {

	if !bot.perms.IsAdmin(message.Author.ID) {
		return NotAuthorized()
	}

	if strings.EqualFold(args[0], "stop") || strings.EqualFold(args[0], "forget") {
		return bot.stopMonitor(monitor.KindPlayers, args)
	}

	if len(args) < 2 {
		return Usage("$fivem <players.json URL> <#channel>")
	}
	url := args[0]
	channelID, ok := parseChannelMention(args[1])
	if !ok {
		return []Response{ResponseString{"Please mention a valid channel."}}
	}
	if err := fivem.ValidatePlayersURL(url); err != nil {
		return []Response{ResponseString{"Invalid URL. It must be a valid players.json endpoint (e.g., http://ip:port/players.json)."}}
	}

	if err := bot.scheduler.Configure(monitor.KindPlayers, channelID, url); err != nil {
		bot.log.Error().Err(err).Msg("could not configure players monitor")
		return CommandFailed("configuring the players monitor")
	}
	return PlayersMonitorConfigured(channelID, url)
}

// stopMonitor handles the "stop #channel" and "forget #channel" forms
// shared by $status and $fivem. Stop keeps the saved configuration,
// forget deletes it.
func (bot *Bot) stopMonitor(kind monitor.Kind, args []string) []Response {

	if len(args) < 2 {
		return Usage(fmt.Sprintf("$%s %s #channel", commandForKind(kind), strings.ToLower(args[0])))
	}
	channelID, ok := parseChannelMention(args[1])
	if !ok {
		return []Response{ResponseString{"Please mention a valid channel."}}
	}

	var stopped bool
	if strings.EqualFold(args[0], "forget") {
		var err error
		stopped, err = bot.scheduler.StopAndForget(kind, channelID)
		if err != nil {
			bot.log.Error().Err(err).Msg("could not forget monitor")
			return CommandFailed("stopping the monitor")
		}
	} else {
		stopped = bot.scheduler.Stop(kind, channelID)
	}

	if !stopped {
		return []Response{ResponseString{fmt.Sprintf("No %s monitor is running in <#%s>.", kind, channelID)}}
	}
	return MonitorStopped(1)
}

func commandForKind(kind monitor.Kind) string {
	if kind == monitor.KindStatus {
		return "status"
	}
	return "fivem"
}

func (bot *Bot) checkCommand(message *discordgo.MessageCreate, args []string) []Response {

	searchType := strings.ToLower(args[0])
	if searchType == "list" {
		return CheckUsageGuide()
	}
	if len(args) < 2 {
		return Usage("$check <cid | license | ld | num | number | name> <value>")
	}
	searchValue := strings.Join(args[1:], " ")

	list, err := bot.directory.Load()
	if err != nil {
		bot.log.Error().Err(err).Msg("could not load character directory")
		return CommandFailed("searching for character information")
	}
	if len(list) == 0 {
		return []Response{ResponseString{"Character data is not available at the moment. Please try again later."}}
	}

	var results []characters.Character
	switch searchType {
	case "cid":
		results = characters.ByCID(list, searchValue)
	case "license", "ld":
		results = characters.ByLicense(list, searchValue)
	case "num", "number":
		results = characters.ByPhone(list, searchValue)
	case "name":
		results = characters.ByName(list, searchValue)
	default:
		return []Response{ResponseString{"Invalid search type. Use: `cid`, `license`, `ld`, `num`, `number`, or `name`"}}
	}

	return CharacterResults(results, fmt.Sprintf("%s: %s", searchType, searchValue))
}

func (bot *Bot) searchCommand(message *discordgo.MessageCreate, args []string) []Response {

	term := strings.TrimSpace(strings.Join(args, " "))
	if bot.cfg.Monitor.ServerURL == "" {
		return []Response{ResponseString{"❌ No server URL is configured."}}
	}

	ctx, cancel := context.WithTimeout(context.Background(), bot.cfg.Monitor.FetchTimeout)
	defer cancel()
	url := strings.TrimSuffix(bot.cfg.Monitor.ServerURL, "/") + fivem.PlayersSuffix
	players, err := bot.client.FetchPlayers(ctx, url)
	if err != nil {
		bot.log.Error().Err(err).Msg("could not fetch players for search")
		return []Response{ResponseString{"Unable to fetch players data from the server. Please try again later."}}
	}

	matches := findPlayerMatches(players, term)
	if len(matches) == 0 {
		return []Response{ResponseString{fmt.Sprintf("No players found matching %q.", term)}}
	}
	return SearchResults(matches, term)
}

// findPlayerMatches looks for an exact id first and falls back to
// partial name matches, capped at ten results.
func findPlayerMatches(players []fivem.Player, term string) []fivem.Player {

	for _, p := range players {
		if fmt.Sprintf("%d", p.ID) == term {
			return []fivem.Player{p}
		}
	}

	lower := strings.ToLower(term)
	var matches []fivem.Player
	for _, p := range players {
		if strings.Contains(strings.ToLower(p.Name), lower) {
			matches = append(matches, p)
			if len(matches) == maxListedResults {
				break
			}
		}
	}
	return matches
}

func (bot *Bot) howCommand(discord *discordgo.Session, message *discordgo.MessageCreate, args []string) []Response {

	if !strings.EqualFold(args[0], "list") {
		return Usage("$how list")
	}

	guilds := make([]*discordgo.Guild, len(discord.State.Guilds))
	copy(guilds, discord.State.Guilds)
	sort.Slice(guilds, func(i, j int) bool { return guilds[i].Name < guilds[j].Name })
	return ServerList(guilds)
}

func (bot *Bot) lookinCommand(discord *discordgo.Session, message *discordgo.MessageCreate, args []string) []Response {

	guild := bot.findGuild(discord, args[0])
	if guild == nil {
		return []Response{ResponseString{fmt.Sprintf("Could not find a server matching %q. Use `$how list` to see available servers.", args[0])}}
	}

	if len(args) == 1 {
		text, voice := channelsByType(guild)
		return ChannelList(guild.Name, text, voice)
	}

	channelName := args[1]
	channel := findTextChannel(guild, channelName)
	if channel == nil {
		return []Response{ResponseString{fmt.Sprintf("Could not find a text channel matching %q in %s.", channelName, guild.Name)}}
	}

	messages, err := discord.ChannelMessages(channel.ID, transcriptLimit, "", "", "")
	if err != nil {
		bot.log.Error().Err(err).Str("channel", channel.ID).Msg("could not fetch channel history")
		return CommandFailed("generating the transcript")
	}
	if len(messages) == 0 {
		return []Response{ResponseString{"No messages found in that channel."}}
	}

	// The API returns newest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return Transcript(guild.Name, channel.Name, messages)
}

func (bot *Bot) liveCommand(discord *discordgo.Session, message *discordgo.MessageCreate, args []string) []Response {

	if strings.EqualFold(args[0], "stop") {
		count, err := bot.live.Clear()
		if err != nil {
			bot.log.Error().Err(err).Msg("could not clear live forwarding")
			return CommandFailed("stopping live forwarding")
		}
		return LiveForwardingStopped(count)
	}

	if len(args) < 2 {
		return Usage("$live <server_name> <channel_name> or $live stop")
	}

	guild := bot.findGuild(discord, args[0])
	if guild == nil {
		return []Response{ResponseString{fmt.Sprintf("❌ Could not find a server matching %q. Use `$how list` to see available servers.", args[0])}}
	}
	channel := findTextChannel(guild, args[1])
	if channel == nil {
		return []Response{ResponseString{fmt.Sprintf("❌ Could not find a text channel matching %q in %s.", args[1], guild.Name)}}
	}

	targetName := ""
	if target, err := discord.State.Channel(message.ChannelID); err == nil {
		targetName = target.Name
	}

	fw := Forward{
		SourceGuildID:     guild.ID,
		SourceGuildName:   guild.Name,
		SourceChannelID:   channel.ID,
		SourceChannelName: channel.Name,
		TargetChannelID:   message.ChannelID,
		TargetChannelName: targetName,
		StartedBy:         message.Author.ID,
		StartedAt:         time.Now().UTC(),
	}
	if err := bot.live.Add(fw); err != nil {
		bot.log.Error().Err(err).Msg("could not save live forwarding")
		return CommandFailed("setting up live forwarding")
	}
	return LiveForwardingConfigured(guild.Name, channel.Name, targetName)
}

func (bot *Bot) toggleCommand(message *discordgo.MessageCreate, args []string, flag records.StaffFlag, cmdName, roleName string) []Response {

	targetID, ok := parseUserMention(args[0])
	if !ok {
		return []Response{ResponseString{fmt.Sprintf("❌ Please mention a user. Usage: `$%s @user`", cmdName)}}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	enabled, err := bot.records.ToggleFlag(ctx, targetID, flag)
	if err == records.ErrUserNotFound {
		return UserNotFoundInDatabase()
	}
	if err != nil {
		bot.log.Error().Err(err).Str("target", targetID).Msg("could not toggle staff flag")
		return []Response{ResponseString{"❌ Database error: " + err.Error()}}
	}
	return StaffToggled(fmt.Sprintf("<@%s>", targetID), roleName, enabled)
}

func (bot *Bot) allCommand(message *discordgo.MessageCreate, args []string) []Response {

	if !bot.perms.IsAdmin(message.Author.ID) {
		return NotAuthorized()
	}

	targetID, ok := parseUserMention(args[0])
	if !ok {
		return []Response{ResponseString{"Please mention a user to grant all roles. Example: `$all @username`"}}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := bot.records.GrantAllRoles(ctx, targetID); err != nil {
		if err == records.ErrUserNotFound {
			return UserNotFoundInDatabase()
		}
		bot.log.Error().Err(err).Str("target", targetID).Msg("could not grant all roles")
		return CommandFailed("updating user roles")
	}
	return AllRolesGranted(fmt.Sprintf("<@%s>", targetID))
}

func (bot *Bot) findGuild(discord *discordgo.Session, name string) *discordgo.Guild {
	lower := strings.ToLower(name)
	for _, g := range discord.State.Guilds {
		if strings.Contains(strings.ToLower(g.Name), lower) {
			return g
		}
	}
	return nil
}

func findTextChannel(guild *discordgo.Guild, name string) *discordgo.Channel {
	lower := strings.ToLower(name)
	for _, ch := range guild.Channels {
		if ch.Type == discordgo.ChannelTypeGuildText && strings.Contains(strings.ToLower(ch.Name), lower) {
			return ch
		}
	}
	return nil
}

func channelsByType(guild *discordgo.Guild) (text, voice []*discordgo.Channel) {
	channels := make([]*discordgo.Channel, len(guild.Channels))
	copy(channels, guild.Channels)
	sort.Slice(channels, func(i, j int) bool { return channels[i].Position < channels[j].Position })

	for _, ch := range channels {
		switch ch.Type {
		case discordgo.ChannelTypeGuildText:
			text = append(text, ch)
		case discordgo.ChannelTypeGuildVoice:
			voice = append(voice, ch)
		}
	}
	return text, voice
}
