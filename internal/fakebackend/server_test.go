package fakebackend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/lobbyopoly-cli/internal/adapters/api"
	"github.com/bnema/lobbyopoly-cli/internal/application"
	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/bnema/lobbyopoly-cli/internal/ports/mocks"
	"github.com/bnema/lobbyopoly-cli/internal/reconcile"
	"github.com/bnema/lobbyopoly-cli/internal/store"
	"github.com/bnema/lobbyopoly-cli/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClient struct {
	jar       *api.SessionJar
	transport api.Client
	store     *store.Store
	session   *application.Session
}

func newTestClient(t *testing.T, baseURL string) *testClient {
	t.Helper()

	jar, err := api.NewSessionJar()
	require.NoError(t, err)

	transport := api.Client{
		BaseURL:        baseURL,
		HTTPClient:     &http.Client{Jar: jar},
		RequestTimeout: 5 * time.Second,
	}
	st := store.New(nil)
	c := &testClient{
		jar:       jar,
		transport: transport,
		store:     st,
		session:   application.NewSession(transport, st, nil),
	}

	_, err = c.session.Bootstrap(context.Background())
	require.NoError(t, err)
	return c
}

func (c *testClient) sync(t *testing.T) {
	t.Helper()

	poller := reconcile.NewPoller(c.transport, time.Second, nil, nil)
	require.NoError(t, poller.Once(context.Background(), c.store.State().LobbyID, c.store))
}

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()

	backend := New(opts)
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)
	return backend, srv
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()

	require.Error(t, err)
	got, ok := domain.ServerCode(err)
	require.True(t, ok, "expected a server error, got %v", err)
	assert.Equal(t, code, got)
}

func eventTexts(state store.State) []string {
	var texts []string
	for _, line := range view.EventLog(state) {
		texts = append(texts, line.Text)
	}
	return texts
}

func TestLobbyLifecycle(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		msgpack bool
	}{
		{name: "json"},
		{name: "msgpack", msgpack: true},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, srv := newTestServer(t, Options{Msgpack: tc.msgpack})
			ctx := context.Background()

			ann := newTestClient(t, srv.URL)
			opts := domain.DefaultLobbyOptions()
			opts.Currency = domain.CurrencyPounds
			joined, err := ann.session.CreateAndJoin(ctx, application.CreateLobbyCommand{Options: opts, Name: "Ann"})
			require.NoError(t, err)

			ann.sync(t)
			lobby := ann.store.State().Lobby
			require.NotNil(t, lobby)
			assert.Equal(t, joined.Player, lobby.Banker)
			assert.Len(t, lobby.Code, codeLength)
			assert.Equal(t, opts.BankBalance-opts.StartingBalance, lobby.Bank)
			assert.WithinDuration(t, time.Now().Add(DefaultLobbyTTL), lobby.Expires.Time, time.Minute)

			bob := newTestClient(t, srv.URL)
			bobJoin, err := bob.session.Join(ctx, application.JoinCommand{Code: " " + lobby.Code + " ", Name: "Bob"})
			require.NoError(t, err)
			assert.Equal(t, joined.Lobby, bobJoin.Lobby)

			require.NoError(t, ann.session.Transfer(ctx, application.TransferCommand{Source: "BANK", Destination: bobJoin.Player.String(), Amount: 200}))
			bob.sync(t)
			require.NoError(t, bob.session.Transfer(ctx, application.TransferCommand{Source: "SELF", Destination: "FP", Amount: 50}))

			ann.sync(t)
			state := ann.store.State()
			bobState, ok := state.Lobby.Player(bobJoin.Player)
			require.True(t, ok)
			assert.Equal(t, opts.StartingBalance+150, bobState.Balance)
			assert.Equal(t, int64(50), state.Lobby.FreeParking)

			texts := eventTexts(state)
			require.NotEmpty(t, texts)
			assert.Equal(t, "Bob transferred £50 from themself to Free Parking.", texts[0])
			assert.Equal(t, "Ann transferred £200 from The Bank to Bob.", texts[1])
			assert.Contains(t, texts, "Ann has been made The Banker.")
			assert.Contains(t, texts, "The Bank transferred £1500 to Bob to get them started.")

			require.NoError(t, bob.session.Leave(ctx))
			assert.False(t, bob.store.State().InLobby())

			ann.sync(t)
			assert.Len(t, ann.store.State().Lobby.Players, 1)
			assert.Equal(t, "A player has left. Their cash has been returned to the bank.", eventTexts(ann.store.State())[0])

			require.NoError(t, ann.session.Disband(ctx))
			assert.False(t, ann.store.State().InLobby())

			_, err = pollRaw(ctx, ann.transport)
			requireCode(t, err, ErrSessionInvalid)
		})
	}
}

func pollRaw(ctx context.Context, transport api.Client) (json.RawMessage, error) {
	return transport.Request(ctx, http.MethodGet, "/api/poll", nil)
}

func TestPreflightRestoresIdentityFromCookie(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t, Options{})
	ctx := context.Background()

	ann := newTestClient(t, srv.URL)
	joined, err := ann.session.CreateAndJoin(ctx, application.CreateLobbyCommand{Options: domain.DefaultLobbyOptions(), Name: "Ann"})
	require.NoError(t, err)

	restoredJar, err := api.NewSessionJar()
	require.NoError(t, err)
	require.NoError(t, restoredJar.Restore(srv.URL, ann.jar.Export()))

	transport := api.Client{BaseURL: srv.URL, HTTPClient: &http.Client{Jar: restoredJar}}
	st := store.New(nil)
	preflight, err := application.NewSession(transport, st, nil).Bootstrap(ctx)
	require.NoError(t, err)

	assert.Equal(t, joined.Lobby, preflight.LobbyID)
	assert.Equal(t, joined.Player, preflight.PlayerID)
	assert.True(t, st.State().InLobby())
	assert.Equal(t, "themself", preflight.BundleMap["TRANSFER_SELF"])
}

func TestBackendErrorCodes(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t, Options{})
	ctx := context.Background()

	ann := newTestClient(t, srv.URL)
	opts := domain.DefaultLobbyOptions()
	opts.MaxPlayers = 2
	opts.FreeParking = false
	_, err := ann.session.CreateAndJoin(ctx, application.CreateLobbyCommand{Options: opts, Name: "Ann"})
	require.NoError(t, err)
	ann.sync(t)
	code := ann.store.State().Lobby.Code

	stranger := newTestClient(t, srv.URL)
	_, err = stranger.session.Join(ctx, application.JoinCommand{Code: "ZZZZ", Name: "Eve"})
	requireCode(t, err, ErrLobbyCodeInvalid)
	_, err = stranger.session.Join(ctx, application.JoinCommand{Code: code, Name: "ann"})
	requireCode(t, err, ErrPlayerNameInvalid)

	bob := newTestClient(t, srv.URL)
	_, err = bob.session.Join(ctx, application.JoinCommand{Code: code, Name: "Bob"})
	require.NoError(t, err)

	_, err = stranger.session.Join(ctx, application.JoinCommand{Code: code, Name: "Eve"})
	requireCode(t, err, ErrLobbyFull)

	_, err = bob.transport.Request(ctx, http.MethodPost, "/api/transfer", domain.TransferRequest{Source: "BANK", Destination: "SELF", Amount: 10})
	requireCode(t, err, ErrPlayerNotBanker)
	_, err = bob.transport.Request(ctx, http.MethodPost, "/api/transfer", domain.TransferRequest{Source: "SELF", Destination: "BANK", Amount: 1_000_000})
	requireCode(t, err, ErrTransferFunds)
	_, err = bob.transport.Request(ctx, http.MethodPost, "/api/transfer", domain.TransferRequest{Source: "SELF", Destination: "FP", Amount: 10})
	requireCode(t, err, ErrTransferDest)
	_, err = bob.transport.Request(ctx, http.MethodPost, "/api/transfer", domain.TransferRequest{Source: "SELF", Destination: "SELF", Amount: 10})
	requireCode(t, err, ErrTransferDest)
	_, err = bob.transport.Request(ctx, http.MethodPost, "/api/transfer", domain.TransferRequest{Source: "NOPE", Destination: "BANK", Amount: 10})
	requireCode(t, err, ErrTransferSource)
	_, err = bob.transport.Request(ctx, http.MethodPost, "/api/transfer", domain.TransferRequest{Source: "SELF", Destination: "BANK", Amount: 0})
	requireCode(t, err, ErrTransferAmount)
	_, err = bob.transport.Request(ctx, http.MethodPost, "/api/kick", domain.PlayerRequest{Player: "whoever"})
	requireCode(t, err, ErrPlayerNotBanker)
	_, err = bob.transport.Request(ctx, http.MethodPost, "/api/kick", nil)
	requireCode(t, err, ErrMalformedRequest)

	requireCode(t, ann.session.Leave(ctx), ErrBankerCannotLeave)
	requireCode(t, ann.session.Kick(ctx, ann.store.State().PlayerID), ErrKickYourself)
	requireCode(t, ann.session.Kick(ctx, "missing"), ErrKickNotFound)
	require.ErrorIs(t, stranger.session.Leave(ctx), domain.ErrNotInLobby)
}

func TestPromoteAndKick(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t, Options{})
	ctx := context.Background()

	ann := newTestClient(t, srv.URL)
	annJoin, err := ann.session.CreateAndJoin(ctx, application.CreateLobbyCommand{Options: domain.DefaultLobbyOptions(), Name: "Ann"})
	require.NoError(t, err)
	ann.sync(t)
	code := ann.store.State().Lobby.Code

	bob := newTestClient(t, srv.URL)
	bobJoin, err := bob.session.Join(ctx, application.JoinCommand{Code: code, Name: "Bob"})
	require.NoError(t, err)

	require.NoError(t, ann.session.Promote(ctx, annJoin.Player))
	require.NoError(t, ann.session.Promote(ctx, bobJoin.Player))

	ann.sync(t)
	state := ann.store.State()
	assert.Equal(t, bobJoin.Player, state.Lobby.Banker)
	assert.False(t, view.IsBanker(state))
	assert.Equal(t, "Ann transferred Banker responsibilities to Bob.", eventTexts(state)[0])

	bankBefore := state.Lobby.Bank
	require.NoError(t, bob.session.Kick(ctx, annJoin.Player))

	poller := reconcile.NewPoller(ann.transport, time.Second, nil, nil)
	err = poller.Once(ctx, annJoin.Lobby, ann.store)
	require.ErrorIs(t, err, reconcile.ErrLobbyGone)
	assert.False(t, ann.store.State().InLobby())

	bob.sync(t)
	assert.Equal(t, bankBefore+domain.DefaultLobbyOptions().StartingBalance, bob.store.State().Lobby.Bank)
}

func TestExpiredLobbyRejectsMembers(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	var offset atomic.Int64
	clock := mocks.NewMockClock(t)
	clock.EXPECT().Now().RunAndReturn(func() time.Time {
		return start.Add(time.Duration(offset.Load()))
	}).Maybe()

	_, srv := newTestServer(t, Options{Clock: clock, LobbyTTL: time.Hour})
	ctx := context.Background()

	ann := newTestClient(t, srv.URL)
	_, err := ann.session.CreateAndJoin(ctx, application.CreateLobbyCommand{Options: domain.DefaultLobbyOptions(), Name: "Ann"})
	require.NoError(t, err)
	ann.sync(t)
	code := ann.store.State().Lobby.Code
	assert.True(t, start.Add(time.Hour).Equal(ann.store.State().Lobby.Expires.Time))

	offset.Store(int64(2 * time.Hour))

	_, err = pollRaw(ctx, ann.transport)
	requireCode(t, err, ErrLobbyExpired)

	bob := newTestClient(t, srv.URL)
	_, err = bob.session.Join(ctx, application.JoinCommand{Code: code, Name: "Bob"})
	requireCode(t, err, ErrLobbyExpired)
}

func TestUnlimitedBankNeverRunsDry(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t, Options{})
	ctx := context.Background()

	ann := newTestClient(t, srv.URL)
	opts := domain.DefaultLobbyOptions()
	opts.UnlimitedBank = true
	opts.BankBalance = 0
	_, err := ann.session.CreateAndJoin(ctx, application.CreateLobbyCommand{Options: opts, Name: "Ann"})
	require.NoError(t, err)
	ann.sync(t)

	require.NoError(t, ann.session.Transfer(ctx, application.TransferCommand{Source: "BANK", Destination: "SELF", Amount: 1_000_000}))

	ann.sync(t)
	state := ann.store.State()
	assert.Equal(t, int64(0), state.Lobby.Bank)
	assert.Equal(t, opts.StartingBalance+1_000_000, state.CurrentPlayer.Balance)
}

func TestEncodeMsgpackPacksDates(t *testing.T) {
	t.Parallel()

	when := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	packed, err := packTree(map[string]any{
		"created": map[string]any{"$date": when.Format(time.RFC3339Nano)},
		"list":    []any{map[string]any{"n": json.Number("3")}, map[string]any{"f": json.Number("1.5")}},
	})
	require.NoError(t, err)

	tree := packed.(map[string]any)
	assert.Equal(t, api.PackTime(when), tree["created"])
	list := tree["list"].([]any)
	assert.Equal(t, int64(3), list[0].(map[string]any)["n"])
	assert.Equal(t, 1.5, list[1].(map[string]any)["f"])

	_, err = packTree(map[string]any{"$date": "yesterday"})
	require.Error(t, err)

	encoded, err := encodeMsgpack(map[string]any{"payload": domain.Lobby{ID: "l1", Created: domain.NewTimestamp(when)}})
	require.NoError(t, err)
	assert.NotEmpty(t, encoded)
}
