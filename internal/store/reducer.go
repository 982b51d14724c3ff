package store

import "github.com/bnema/lobbyopoly-cli/internal/domain"

// Reduce applies one action. It is total: unknown actions return s as is.
func Reduce(s State, action Action) State {
	switch a := action.(type) {
	case Reset:
		return State{
			LoadingCount: s.LoadingCount,
			Preflight:    s.Preflight,
			Epoch:        s.Epoch + 1,
			LobbySeq:     s.LobbySeq,
		}

	case UpdateState:
		next := s
		if a.Patch.Preflight != nil {
			preflight := *a.Patch.Preflight
			next.Preflight = &preflight
		}
		if a.Patch.LobbyID != nil && *a.Patch.LobbyID != s.LobbyID {
			// The previous lobby's snapshot and log must not leak into the new one.
			next.LobbyID = *a.Patch.LobbyID
			next.Epoch++
			next.Lobby = nil
			next.Events = nil
			next.CurrentPlayer = nil
		}
		if a.Patch.PlayerID != nil && *a.Patch.PlayerID != s.PlayerID {
			next.PlayerID = *a.Patch.PlayerID
			next.CurrentPlayer = currentPlayer(next.Lobby, next.PlayerID)
		}
		return next

	case LoadingStart:
		s.LoadingCount++
		return s

	case LoadingStop:
		if s.LoadingCount > 0 {
			s.LoadingCount--
		}
		return s

	case UpdateLobby:
		if a.Seq != 0 && a.Seq < s.LobbySeq {
			return s
		}
		lobby := copyLobby(a.Lobby)
		s.Lobby = &lobby
		s.CurrentPlayer = currentPlayer(s.Lobby, s.PlayerID)
		if a.Seq > s.LobbySeq {
			s.LobbySeq = a.Seq
		}
		return s

	case AddEvents:
		if len(a.Events) == 0 {
			return s
		}
		events := make([]domain.Event, 0, len(s.Events)+len(a.Events))
		events = append(events, s.Events...)
		events = append(events, a.Events...)
		s.Events = events
		return s

	case ReplaceEvents:
		s.Events = append([]domain.Event(nil), a.Events...)
		return s

	default:
		return s
	}
}

func copyLobby(lobby domain.Lobby) domain.Lobby {
	lobby.Players = append([]domain.Player(nil), lobby.Players...)
	return lobby
}
