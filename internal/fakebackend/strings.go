package fakebackend

import "github.com/bnema/lobbyopoly-cli/internal/domain"

// Error codes the backend reports in the envelope's error field.
const (
	ErrNoPermission       = "NO_PERMISSION"
	ErrBankerCannotLeave  = "BANKER_CANNOT_LEAVE"
	ErrKickNotFound       = "KICK_NOT_FOUND"
	ErrKickYourself       = "KICK_YOURSELF"
	ErrPlayerNameInvalid  = "PLY_NAME_BLACKLIST"
	ErrPlayerNotActive    = "PLY_NOT_ACTIVE"
	ErrPlayerNotBanker    = "PLY_NOT_BANKER"
	ErrLobbyCodeInvalid   = "LOBBY_CODE_INVALID"
	ErrLobbyFull          = "LOBBY_FULL"
	ErrLobbyExpired       = "LOBBY_EXPIRED"
	ErrLobbyInvalid       = "LOBBY_INVALID"
	ErrSessionInvalid     = "SESSION_INVALID"
	ErrTransferSource     = "TRANSFER_INVALID_SRC"
	ErrTransferFunds      = "TRANSFER_FUNDS"
	ErrTransferDest       = "TRANSFER_INVALID_DEST"
	ErrTransferAmount     = "TRANSFER_INVALID_AMOUNT"
	ErrMalformedRequest   = "REQUEST_MALFORMED"
	ErrUnsupportedRequest = "REQUEST_UNSUPPORTED"
)

// Event template keys.
const (
	EventBankTransferStart = "EVENT_BANK_TRANSFER_START"
	EventPlayerJoin        = "EVENT_PLY_JOIN"
	EventPlayerMadeBanker  = "EVENT_PLY_MADE_BANKER"
	EventTransferBanker    = "EVENT_PLY_TRANSFER_BANKER"
	EventPlayerLeave       = "EVENT_PLY_LEAVE"
	EventPlayerKick        = "EVENT_PLY_KICK"
	EventTransfer          = "EVENT_TRANSFER"
	EventDisbanded         = "EVENT_DISBANDED"

	bundleTransferSelf = "TRANSFER_SELF"
	bundleTransferBank = "TRANSFER_BANK"
	bundleTransferFP   = "TRANSFER_FP"
)

var bundleMap = map[string]string{
	ErrNoPermission:       "You do not have permission to do this",
	ErrBankerCannotLeave:  "You are the banker. You cannot leave.",
	ErrKickNotFound:       "Target player not found",
	ErrKickYourself:       "You cannot kick yourself",
	ErrPlayerNameInvalid:  "That player name is not allowed",
	ErrPlayerNotActive:    "You are no longer part of this lobby",
	ErrPlayerNotBanker:    "You are not the banker!",
	ErrLobbyCodeInvalid:   "Lobby with this code does not exist",
	ErrLobbyFull:          "This lobby is full",
	ErrLobbyExpired:       "This lobby has expired",
	ErrLobbyInvalid:       "Invalid lobby data",
	ErrSessionInvalid:     "Invalid session data",
	ErrTransferSource:     "Invalid transfer source",
	ErrTransferFunds:      "Insufficient funds",
	ErrTransferDest:       "Invalid transfer destination",
	ErrTransferAmount:     "Transfer amount must be positive",
	ErrMalformedRequest:   "Malformed request",
	ErrUnsupportedRequest: "Unsupported request",

	EventBankTransferStart: "The Bank transferred {0} to {1} to get them started.",
	EventPlayerJoin:        "{0} joined the game.",
	EventPlayerMadeBanker:  "{0} has been made The Banker.",
	EventTransferBanker:    "{0} transferred Banker responsibilities to {1}.",
	EventPlayerLeave:       "A player has left. Their cash has been returned to the bank.",
	EventPlayerKick:        "A player has been kicked. Their cash has been returned to the bank.",
	EventTransfer:          "{0} transferred {1} from {2} to {3}.",
	EventDisbanded:         "The lobby has been disbanded.",

	bundleTransferSelf: "themself",
	bundleTransferBank: "The Bank",
	bundleTransferFP:   "Free Parking",
}

// BundleMap returns a copy of the template and error-text table served by
// preflight.
func BundleMap() map[string]string {
	out := make(map[string]string, len(bundleMap))
	for key, text := range bundleMap {
		out[key] = text
	}
	return out
}

func transferEntities() domain.TransferEntities {
	return domain.DefaultTransferEntities()
}
