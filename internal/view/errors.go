package view

import (
	"errors"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/bnema/lobbyopoly-cli/internal/store"
)

// ErrorText turns an action error into the inline message shown next to the
// control that triggered it. Backend codes go through the bundle map and
// fall back to the raw code.
func ErrorText(s store.State, err error) string {
	if err == nil {
		return ""
	}

	var reqErr *domain.RequestError
	if errors.As(err, &reqErr) {
		if text, ok := s.Preflight.Text(reqErr.Code); ok {
			return text
		}
		if reqErr.Kind == domain.RequestErrorServer {
			return reqErr.Code
		}
		return reqErr.Error()
	}

	return err.Error()
}
