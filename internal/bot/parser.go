package bot

import (
	"fmt"
	"regexp"
	"strings"
)

const prefix string = "$"

const (
	COMMAND_STATUS      = iota
	COMMAND_FIVEM       = iota
	COMMAND_CHECK       = iota
	COMMAND_SEARCH      = iota
	COMMAND_HOW         = iota
	COMMAND_LOOKIN      = iota
	COMMAND_LIVE        = iota
	COMMAND_STAFF       = iota
	COMMAND_SENIORSTAFF = iota
	COMMAND_SUPERADMIN  = iota
	COMMAND_ALL         = iota
)

const (
	PARSEID_OK                     = iota
	PARSEID_NO_BOT_PREFIX          = iota
	PARSEID_NO_COMMAND             = iota
	PARSEID_COMMAND_NOT_RECOGNISED = iota
	PARSEID_NO_INPUT               = iota
)

var errorMessages map[int]string = map[int]string{
	PARSEID_NO_COMMAND: "No command provided",
	PARSEID_NO_INPUT:   "Command `%s` requires an argument",
}

// commandNames maps every name and alias to its command id.
var commandNames = map[string]int{
	"status":      COMMAND_STATUS,
	"fivem":       COMMAND_FIVEM,
	"check":       COMMAND_CHECK,
	"ck":          COMMAND_CHECK,
	"search":      COMMAND_SEARCH,
	"sh":          COMMAND_SEARCH,
	"how":         COMMAND_HOW,
	"lookin":      COMMAND_LOOKIN,
	"live":        COMMAND_LIVE,
	"staff":       COMMAND_STAFF,
	"s":           COMMAND_STAFF,
	"seniorstaff": COMMAND_SENIORSTAFF,
	"ss":          COMMAND_SENIORSTAFF,
	"superadmin":  COMMAND_SUPERADMIN,
	"sa":          COMMAND_SUPERADMIN,
	"all":         COMMAND_ALL,
}

// permissionName returns the allow-list a command is gated on. Admin
// only commands have none and do their own check.
func permissionName(command int) string {
	switch command {
	case COMMAND_CHECK:
		return "check"
	case COMMAND_SEARCH:
		return "search"
	case COMMAND_HOW:
		return "how"
	case COMMAND_LOOKIN:
		return "lookin"
	case COMMAND_LIVE:
		return "live"
	case COMMAND_STAFF:
		return "staff"
	case COMMAND_SENIORSTAFF:
		return "seniorstaff"
	case COMMAND_SUPERADMIN:
		return "superadmin"
	default:
		return ""
	}
}

type ParseResult struct {
	command      int
	parseid      int
	errorMessage string
	arguments    []string
}

// Parse splits a prefix message into a command and its arguments.
// Commands that take no arguments still carry whatever follows them so
// each handler can explain its own usage.
func Parse(message string) ParseResult {

	if !strings.HasPrefix(message, prefix) {
		return ParseResult{parseid: PARSEID_NO_BOT_PREFIX}
	}

	words := strings.Fields(strings.TrimSpace(message[len(prefix):]))
	if len(words) == 0 {
		parseid := PARSEID_NO_COMMAND
		return ParseResult{parseid: parseid, errorMessage: errorMessages[parseid]}
	}
	commandString := strings.ToLower(words[0])
	words = words[1:]

	command, ok := commandNames[commandString]
	if !ok {
		// Unknown words after "$" are regular chat, not errors.
		return ParseResult{parseid: PARSEID_COMMAND_NOT_RECOGNISED}
	}

	switch command {
	case COMMAND_CHECK, COMMAND_SEARCH, COMMAND_LOOKIN,
		COMMAND_STAFF, COMMAND_SENIORSTAFF, COMMAND_SUPERADMIN, COMMAND_ALL,
		COMMAND_STATUS, COMMAND_FIVEM, COMMAND_HOW, COMMAND_LIVE:
		if len(words) == 0 && requiresArgument(command) {
			parseid := PARSEID_NO_INPUT
			return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: words}
	default:
		panic(fmt.Sprintf("command %d is not one of the possible ones", command))
	}
}

func requiresArgument(command int) bool {
	switch command {
	case COMMAND_STATUS, COMMAND_FIVEM, COMMAND_CHECK, COMMAND_SEARCH,
		COMMAND_HOW, COMMAND_LOOKIN, COMMAND_LIVE,
		COMMAND_STAFF, COMMAND_SENIORSTAFF, COMMAND_SUPERADMIN, COMMAND_ALL:
		return true
	}
	return false
}

var channelMentionRe = regexp.MustCompile(`^<#(\d+)>$`)
var userMentionRe = regexp.MustCompile(`^<@!?(\d+)>$`)

// parseChannelMention extracts the channel id from a <#id> token.
func parseChannelMention(token string) (string, bool) {
	m := channelMentionRe.FindStringSubmatch(token)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// parseUserMention extracts the user id from a <@id> or <@!id> token.
func parseUserMention(token string) (string, bool) {
	m := userMentionRe.FindStringSubmatch(token)
	if m == nil {
		return "", false
	}
	return m[1], true
}
