package ws

import (
	"encoding/json"
	"fmt"

	"javanese-chess-client/internal/game"
	"javanese-chess-client/internal/protocol"
)

// EventType discriminates the inbound event union. Events are decoded once
// at the transport boundary and matched exhaustively afterwards; no handler
// ever inspects raw payload fields.
type EventType string

const (
	EventRoomCreated     EventType = "room_created"
	EventNewPlayerJoined EventType = "new_player_joined"
	EventGameStarted     EventType = "game_started"
	EventMove            EventType = "move"
	EventBotMove         EventType = "bot_move"
	EventStateUpdated    EventType = "state-updated"
	EventGameEnd         EventType = "game_end"
	EventGameOver        EventType = "game_over"
	EventError           EventType = "error"
	// EventDisconnect is synthesized locally when the connection drops.
	EventDisconnect EventType = "disconnect"
)

// Event is the decoded tagged union. Exactly the payload matching Type is
// non-nil.
type Event struct {
	Type EventType

	RoomCreated  *RoomCreatedData
	PlayerJoined *PlayerJoinedData
	GameStarted  *GameStartedData
	Move         *MoveData
	StateUpdated *StateUpdatedData
	GameEnd      *GameEndData
	GameOver     *GameOverData
	Err          *ErrorData
}

type RoomCreatedData struct {
	RoomCode string `json:"room_code"`
	Status   string `json:"status"`
}

type PlayerJoinedData struct {
	PlayerName string `json:"player_name"`
}

type GameStartedData struct {
	Board     *protocol.Board   `json:"board"`
	Players   []protocol.Player `json:"players"`
	RoomCode  string            `json:"room_code"`
	Status    string            `json:"status"`
	TurnOrder []string          `json:"turn_order"`
}

// MoveData covers both move and bot_move payloads. The authority is not
// consistent about field naming across the two, so decoding coalesces the
// known aliases. DrawnCard distinguishes "absent" (nil) from the valid
// "deck yielded nothing" signal (0).
type MoveData struct {
	PlayerID  string
	X         int
	Y         int
	Card      int
	Board     *protocol.Board
	Players   []protocol.Player
	NextTurn  string
	DrawnCard *int
}

func (m *MoveData) UnmarshalJSON(data []byte) error {
	var aux struct {
		PlayerIDCamel string            `json:"playerID"`
		PlayerIDSnake string            `json:"player_id"`
		BotID         string            `json:"bot_id"`
		X             int               `json:"x"`
		Y             int               `json:"y"`
		Card          int               `json:"card"`
		Board         *protocol.Board   `json:"board"`
		Players       []protocol.Player `json:"players"`
		NextTurnCamel string            `json:"nextTurn"`
		NextTurnSnake string            `json:"next_turn"`
		DrawnCamel    *int              `json:"drawnCard"`
		DrawnSnake    *int              `json:"drawn_card"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.PlayerID = firstNonEmpty(aux.PlayerIDCamel, aux.PlayerIDSnake, aux.BotID)
	m.X, m.Y, m.Card = aux.X, aux.Y, aux.Card
	m.Board = aux.Board
	m.Players = aux.Players
	m.NextTurn = firstNonEmpty(aux.NextTurnCamel, aux.NextTurnSnake)
	m.DrawnCard = aux.DrawnCamel
	if m.DrawnCard == nil {
		m.DrawnCard = aux.DrawnSnake
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// StateUpdatedData is the periodic full snapshot.
type StateUpdatedData struct {
	Room struct {
		Code      string            `json:"code"`
		Board     *protocol.Board   `json:"board"`
		Players   []protocol.Player `json:"players"`
		TurnIdx   int               `json:"turn_idx"`
		WinnerID  *string           `json:"winner_id"`
		Draw      bool              `json:"draw"`
		TurnOrder []string          `json:"turn_order"`
	} `json:"room"`
}

type GameEndData struct {
	Winner *struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		IsBot bool   `json:"isBot"`
	} `json:"winner"`
	WinType          string          `json:"win_type"`
	WinningPositions []game.Position `json:"winning_positions"`
}

type GameOverData struct {
	WinnerID string          `json:"winner"`
	Board    *protocol.Board `json:"board"`
}

type ErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// envelope is the raw framing every server message uses.
type envelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// DecodeEvent parses one raw frame into the tagged union. Unrecognized
// actions yield an error instead of a silent no-op branch.
func DecodeEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("decode envelope: %w", err)
	}
	ev := Event{Type: EventType(env.Action)}
	var err error
	switch ev.Type {
	case EventRoomCreated:
		ev.RoomCreated = &RoomCreatedData{}
		err = json.Unmarshal(env.Data, ev.RoomCreated)
	case EventNewPlayerJoined:
		ev.PlayerJoined = &PlayerJoinedData{}
		err = json.Unmarshal(env.Data, ev.PlayerJoined)
	case EventGameStarted:
		ev.GameStarted = &GameStartedData{}
		err = json.Unmarshal(env.Data, ev.GameStarted)
	case EventMove, EventBotMove:
		ev.Move = &MoveData{}
		err = json.Unmarshal(env.Data, ev.Move)
	case EventStateUpdated:
		ev.StateUpdated = &StateUpdatedData{}
		err = json.Unmarshal(env.Data, ev.StateUpdated)
	case EventGameEnd:
		ev.GameEnd = &GameEndData{}
		err = json.Unmarshal(env.Data, ev.GameEnd)
	case EventGameOver:
		ev.GameOver = &GameOverData{}
		err = json.Unmarshal(env.Data, ev.GameOver)
	case EventError:
		ev.Err = &ErrorData{}
		err = json.Unmarshal(env.Data, ev.Err)
	default:
		return Event{}, fmt.Errorf("unknown event action %q", env.Action)
	}
	if err != nil {
		return Event{}, fmt.Errorf("decode %s payload: %w", env.Action, err)
	}
	return ev, nil
}
