package domain

// TransferEntities holds the sentinel identifiers the backend uses for the
// non-player accounts of a transfer.
type TransferEntities struct {
	Self        string `json:"SELF"`
	Bank        string `json:"BANK"`
	FreeParking string `json:"FP"`
}

func DefaultTransferEntities() TransferEntities {
	return TransferEntities{Self: "SELF", Bank: "BANK", FreeParking: "FP"}
}

// Preflight is the static reference data fetched once per client session,
// plus the identity of the server session if it is already in a lobby.
type Preflight struct {
	BundleMap         map[string]string `json:"bundleMap"`
	TransferEntityMap TransferEntities  `json:"transferEntityMap"`
	LobbyID           ObjectID          `json:"lobbyId,omitempty"`
	PlayerID          ObjectID          `json:"playerId,omitempty"`
}

func (p *Preflight) Text(key string) (string, bool) {
	if p == nil || p.BundleMap == nil {
		return "", false
	}
	text, ok := p.BundleMap[key]
	return text, ok
}

// Entities returns the sentinel map with defaults for anything the server
// left blank.
func (p *Preflight) Entities() TransferEntities {
	entities := DefaultTransferEntities()
	if p == nil {
		return entities
	}
	if p.TransferEntityMap.Self != "" {
		entities.Self = p.TransferEntityMap.Self
	}
	if p.TransferEntityMap.Bank != "" {
		entities.Bank = p.TransferEntityMap.Bank
	}
	if p.TransferEntityMap.FreeParking != "" {
		entities.FreeParking = p.TransferEntityMap.FreeParking
	}
	return entities
}
