package projection

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"javanese-chess-client/internal/api"
	"javanese-chess-client/internal/protocol"
	"javanese-chess-client/internal/snapshot"
	"javanese-chess-client/internal/ws"
)

type humanMove struct {
	playerID   string
	x, y, card int
}

type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	roomCode  string
	listeners map[ws.EventType][]ws.Callback
	botMoves  []string
	moves     []humanMove
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{listeners: make(map[ws.EventType][]ws.Callback)}
}

func (f *fakeTransport) Connect(_ context.Context, roomCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	f.roomCode = roomCode
	return nil
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakeTransport) On(t ws.EventType, cb ws.Callback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners[t] = append(f.listeners[t], cb)
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) SendRoomCreated(string, string) error { return nil }

func (f *fakeTransport) SendHumanMove(playerID string, x, y, card int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, humanMove{playerID, x, y, card})
	return nil
}

func (f *fakeTransport) SendBotMove(roomCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.botMoves = append(f.botMoves, roomCode)
	return nil
}

func (f *fakeTransport) emit(ev ws.Event) {
	f.mu.Lock()
	cbs := append([]ws.Callback(nil), f.listeners[ev.Type]...)
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(ev)
	}
}

func (f *fakeTransport) botMoveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.botMoves)
}

type fakeAuthority struct {
	startRes *api.StartGameResult
	joinRes  *api.JoinRoomResult
}

func (f *fakeAuthority) StartGame(context.Context, api.StartGameParams) (*api.StartGameResult, error) {
	return f.startRes, nil
}

func (f *fakeAuthority) JoinRoom(context.Context, string, string) (*api.JoinRoomResult, error) {
	return f.joinRes, nil
}

func startResult() *api.StartGameResult {
	return &api.StartGameResult{
		Board:    protocol.NewBoard(9),
		RoomCode: "ROOM1",
		Status:   protocol.StatusPlaying,
		Players: []protocol.Player{
			{ID: "p1", Name: "Alice", Hand: []int{5, 6, 7}, Deck: []int{1, 2}},
			{ID: "bot-1", Name: "Bot", IsBot: true, Hand: []int{3, 4, 9}},
		},
		TurnOrder: []string{"p1", "bot-1"},
	}
}

func newTestEngine(t *testing.T) (*Engine, *fakeTransport) {
	t.Helper()
	tr := newFakeTransport()
	auth := &fakeAuthority{startRes: startResult()}
	eng := NewEngine(tr, auth, nil, nil,
		WithBotTriggerDelay(10*time.Millisecond),
		WithNoticeTTL(time.Minute),
	)
	if err := eng.InitializeGame(context.Background(), api.StartGameParams{}); err != nil {
		t.Fatalf("InitializeGame: %v", err)
	}
	return eng, tr
}

func moveEvent(playerID string, x, y, card int, nextTurn string) ws.Event {
	return ws.Event{
		Type: ws.EventMove,
		Move: &ws.MoveData{PlayerID: playerID, X: x, Y: y, Card: card, NextTurn: nextTurn},
	}
}

func TestInitializeGameProjectsAuthorityState(t *testing.T) {
	eng, tr := newTestEngine(t)
	v := eng.View()
	if v.RoomCode != "ROOM1" || v.Status != protocol.StatusPlaying {
		t.Fatalf("unexpected view: %+v", v)
	}
	if v.MyPlayerID != "p1" {
		t.Fatalf("local id must resolve to the non-bot player, got %q", v.MyPlayerID)
	}
	if !tr.IsConnected() || !v.Connected {
		t.Fatalf("transport should be connected after init")
	}
	if !eng.IsMyTurn() {
		t.Fatalf("turn order starts at p1")
	}
}

func TestDuplicateMoveEventsAreDropped(t *testing.T) {
	eng, tr := newTestEngine(t)

	tr.emit(moveEvent("p1", 4, 4, 5, "bot-1"))
	tr.emit(moveEvent("p1", 4, 4, 5, "bot-1"))

	if got := eng.View().MoveCount; got != 1 {
		t.Fatalf("duplicate must not reapply: moveCount = %d", got)
	}
	if n := testutil.ToFloat64(eng.metrics.DuplicatesDropped); n != 1 {
		t.Fatalf("expected 1 dropped duplicate, got %v", n)
	}
}

func TestDifferentMovesAreNotDuplicates(t *testing.T) {
	eng, tr := newTestEngine(t)

	tr.emit(moveEvent("p1", 4, 4, 5, "bot-1"))
	tr.emit(moveEvent("bot-1", 4, 5, 6, "p1"))
	tr.emit(moveEvent("p1", 3, 4, 6, "bot-1"))

	if got := eng.View().MoveCount; got != 3 {
		t.Fatalf("distinct moves must all apply: moveCount = %d", got)
	}
}

func TestTurnAdvancesRoundRobinWithoutNextTurn(t *testing.T) {
	eng, tr := newTestEngine(t)

	tr.emit(moveEvent("p1", 4, 4, 5, ""))
	if v := eng.View(); v.CurrentTurnIndex != 1 {
		t.Fatalf("expected rotation to bot seat, got %d", v.CurrentTurnIndex)
	}
}

func TestAuthorityNextTurnOverridesRotation(t *testing.T) {
	eng, tr := newTestEngine(t)

	// The authority hands the turn straight back to the mover. Local
	// rotation disagrees; the authority still wins.
	tr.emit(moveEvent("p1", 4, 4, 5, "p1"))
	if v := eng.View(); v.CurrentTurnIndex != 0 {
		t.Fatalf("authority turn must win, got index %d", v.CurrentTurnIndex)
	}
	if n := testutil.ToFloat64(eng.metrics.TurnDesyncs); n != 1 {
		t.Fatalf("expected 1 desync recorded, got %v", n)
	}
}

func TestUnknownNextTurnFallsBackToRotation(t *testing.T) {
	eng, tr := newTestEngine(t)

	tr.emit(moveEvent("p1", 4, 4, 5, "ghost"))
	if v := eng.View(); v.CurrentTurnIndex != 1 {
		t.Fatalf("unknown id must fall back to rotation, got %d", v.CurrentTurnIndex)
	}
}

func TestManualHandFallback(t *testing.T) {
	eng, tr := newTestEngine(t)

	drawn := 8
	tr.emit(ws.Event{Type: ws.EventMove, Move: &ws.MoveData{
		PlayerID: "p1", X: 4, Y: 4, Card: 5, NextTurn: "bot-1", DrawnCard: &drawn,
	}})

	hand := eng.MyHand()
	if len(hand) != 3 {
		t.Fatalf("hand should stay at 3 after play+draw, got %v", hand)
	}
	for _, c := range hand {
		if c == 5 {
			t.Fatalf("played card must leave the hand: %v", hand)
		}
	}
	found := false
	for _, c := range hand {
		if c == 8 {
			found = true
		}
	}
	if !found {
		t.Fatalf("drawn card must join the hand: %v", hand)
	}
}

func TestDrawnCardZeroMeansNoDraw(t *testing.T) {
	eng, tr := newTestEngine(t)

	zero := 0
	tr.emit(ws.Event{Type: ws.EventMove, Move: &ws.MoveData{
		PlayerID: "p1", X: 4, Y: 4, Card: 5, NextTurn: "bot-1", DrawnCard: &zero,
	}})

	if hand := eng.MyHand(); len(hand) != 2 {
		t.Fatalf("zero draw must shrink the hand to 2, got %v", hand)
	}
}

func TestRosterInPayloadReplacesManualFallback(t *testing.T) {
	eng, tr := newTestEngine(t)

	tr.emit(ws.Event{Type: ws.EventMove, Move: &ws.MoveData{
		PlayerID: "p1", X: 4, Y: 4, Card: 5, NextTurn: "bot-1",
		Players: []protocol.Player{
			{ID: "p1", Name: "Alice", Hand: []int{6, 7, 1}},
			{ID: "bot-1", Name: "Bot", IsBot: true, Hand: []int{3, 4, 9}},
		},
	}})

	hand := eng.MyHand()
	if len(hand) != 3 || hand[0] != 6 || hand[2] != 1 {
		t.Fatalf("authoritative roster must be taken wholesale, got %v", hand)
	}
}

func TestReplacementDetection(t *testing.T) {
	eng, tr := newTestEngine(t)

	board := protocol.NewBoard(9)
	board.Cells[4][4] = protocol.BoardCell{Value: 5, OwnerID: "p1"}
	tr.emit(ws.Event{Type: ws.EventMove, Move: &ws.MoveData{
		PlayerID: "p1", X: 4, Y: 4, Card: 5, NextTurn: "bot-1", Board: &board,
	}})

	// Bot replaces p1's 5 with a 9.
	board2 := board.Clone()
	board2.Cells[4][4] = protocol.BoardCell{Value: 9, OwnerID: "bot-1"}
	tr.emit(ws.Event{Type: ws.EventMove, Move: &ws.MoveData{
		PlayerID: "bot-1", X: 4, Y: 4, Card: 9, NextTurn: "p1", Board: &board2,
	}})

	notice := eng.LastMove()
	if notice == nil {
		t.Fatalf("expected a move notice")
	}
	if !notice.WasReplacement || notice.ReplacedValue != 5 {
		t.Fatalf("replacement not detected: %+v", notice)
	}
	if v := eng.View(); v.Board.Cells[4][4].OwnerID != "bot-1" {
		t.Fatalf("board must reflect the replacement")
	}
}

func TestBotTriggerSuppressedExactlyOnce(t *testing.T) {
	eng, tr := newTestEngine(t)

	// First handoff to the bot right after game start: suppressed, the
	// authority runs the opening bot move itself.
	tr.emit(moveEvent("p1", 4, 4, 5, "bot-1"))
	time.Sleep(50 * time.Millisecond)
	if n := tr.botMoveCount(); n != 0 {
		t.Fatalf("first bot handoff must be suppressed, got %d triggers", n)
	}

	// Bot moves, turn returns, p1 moves again: this handoff must trigger.
	tr.emit(moveEvent("bot-1", 4, 5, 6, "p1"))
	tr.emit(moveEvent("p1", 3, 3, 7, "bot-1"))
	time.Sleep(50 * time.Millisecond)
	if n := tr.botMoveCount(); n != 1 {
		t.Fatalf("second bot handoff must trigger once, got %d", n)
	}
	if cp := eng.CurrentPlayer(); cp == nil || !cp.IsBot {
		t.Fatalf("turn should rest with the bot")
	}
}

func TestGameOverRecomputesWinLine(t *testing.T) {
	eng, tr := newTestEngine(t)

	board := protocol.NewBoard(9)
	for i := 0; i < 4; i++ {
		board.Cells[4+i][4] = protocol.BoardCell{Value: 5, OwnerID: "p1"}
	}
	tr.emit(ws.Event{Type: ws.EventGameOver, GameOver: &ws.GameOverData{
		WinnerID: "p1", Board: &board,
	}})

	v := eng.View()
	if v.Status != protocol.StatusFinished {
		t.Fatalf("expected finished, got %s", v.Status)
	}
	if v.Winner == nil || v.Winner.ID != "p1" {
		t.Fatalf("winner lost: %+v", v.Winner)
	}
	if len(v.WinningPositions) != 4 {
		t.Fatalf("win line must be recomputed locally, got %v", v.WinningPositions)
	}
	if v.WinType != "vertical" {
		t.Fatalf("expected vertical, got %q", v.WinType)
	}
}

func TestStateUpdatedDeclaresWinner(t *testing.T) {
	eng, tr := newTestEngine(t)

	winner := "bot-1"
	data := &ws.StateUpdatedData{}
	data.Room.Code = "ROOM1"
	data.Room.TurnIdx = 1
	data.Room.WinnerID = &winner
	data.Room.Players = startResult().Players
	data.Room.TurnOrder = []string{"p1", "bot-1"}
	tr.emit(ws.Event{Type: ws.EventStateUpdated, StateUpdated: data})

	v := eng.View()
	if v.Status != protocol.StatusFinished || v.Winner == nil || v.Winner.ID != "bot-1" {
		t.Fatalf("state-updated winner not applied: %+v", v.Winner)
	}
}

func TestDisconnectKeepsGameState(t *testing.T) {
	eng, tr := newTestEngine(t)

	tr.emit(moveEvent("p1", 4, 4, 5, "bot-1"))
	tr.emit(ws.Event{Type: ws.EventDisconnect})

	v := eng.View()
	if v.Connected {
		t.Fatalf("disconnect must clear connectivity")
	}
	if v.MoveCount != 1 || len(v.TurnOrder) != 2 {
		t.Fatalf("game state must survive a disconnect: %+v", v)
	}
	if n := testutil.ToFloat64(eng.metrics.Disconnects); n != 1 {
		t.Fatalf("expected 1 disconnect recorded, got %v", n)
	}
}

func TestMakeMoveRejectsOutOfTurn(t *testing.T) {
	eng, tr := newTestEngine(t)

	tr.emit(moveEvent("p1", 4, 4, 5, "bot-1")) // turn passes to the bot
	if err := eng.MakeMove(4, 5, 6); err != ErrNotYourTurn {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
}

func TestMakeMoveValidatesLocally(t *testing.T) {
	eng, tr := newTestEngine(t)

	// Opening move anywhere but center is rejected before sending.
	if err := eng.MakeMove(0, 0, 5); err == nil {
		t.Fatalf("off-center opening must be rejected")
	}
	if len(tr.moves) != 0 {
		t.Fatalf("rejected move must not reach the transport")
	}

	if err := eng.MakeMove(4, 4, 5); err != nil {
		t.Fatalf("center opening: %v", err)
	}
	if len(tr.moves) != 1 || tr.moves[0].x != 4 || tr.moves[0].y != 4 {
		t.Fatalf("accepted move must be sent: %+v", tr.moves)
	}
}

func TestSnapshotRoundTripThroughEngines(t *testing.T) {
	dir := t.TempDir()
	snaps := snapshot.NewStore(dir+"/session.json", nil)

	tr := newFakeTransport()
	auth := &fakeAuthority{startRes: startResult()}
	eng := NewEngine(tr, auth, snaps, nil)
	if err := eng.InitializeGame(context.Background(), api.StartGameParams{}); err != nil {
		t.Fatalf("init: %v", err)
	}
	tr.emit(moveEvent("p1", 4, 4, 5, "bot-1"))

	// A fresh engine restores the persisted projection.
	tr2 := newFakeTransport()
	eng2 := NewEngine(tr2, auth, snaps, nil)
	if !eng2.RestoreFromSnapshot() {
		t.Fatalf("expected snapshot to restore")
	}
	v := eng2.View()
	if v.RoomCode != "ROOM1" || v.MyPlayerID != "p1" || v.CurrentTurnIndex != 1 {
		t.Fatalf("restored state wrong: %+v", v)
	}
	if err := eng2.ReconnectWebSocket(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if tr2.roomCode != "ROOM1" {
		t.Fatalf("reconnect must reuse the restored room code")
	}
}

func TestResetClearsEverything(t *testing.T) {
	eng, tr := newTestEngine(t)
	tr.emit(moveEvent("p1", 4, 4, 5, "bot-1"))

	eng.Reset()
	v := eng.View()
	if v.RoomCode != "" || v.MoveCount != 0 || len(v.TurnOrder) != 0 {
		t.Fatalf("reset left state behind: %+v", v)
	}
	if v.Status != protocol.StatusWaiting {
		t.Fatalf("reset must return to waiting, got %s", v.Status)
	}
	if tr.IsConnected() {
		t.Fatalf("reset must disconnect the transport")
	}
}
