package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"javanese-chess-client/internal/api"
	"javanese-chess-client/internal/config"
	"javanese-chess-client/internal/game"
	"javanese-chess-client/internal/practice"
	"javanese-chess-client/internal/projection"
	"javanese-chess-client/internal/protocol"
	"javanese-chess-client/internal/snapshot"
	"javanese-chess-client/internal/ws"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	mode := "demo"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	switch mode {
	case "demo":
		runDemo(log)
	case "serve":
		runPractice(cfg, log)
	case "play":
		runRemote(cfg, log)
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [demo|serve|play]\n", os.Args[0])
		os.Exit(2)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(lvl)
	return c.Build()
}

// runPractice starts the embedded authority.
func runPractice(cfg config.Config, log *zap.Logger) {
	store := practice.NewMemoryStore()
	manager := practice.NewManager(store, log)
	hub := practice.NewHub(manager, log)
	manager.SetHub(hub)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	router := practice.NewRouter(manager, hub, reg, log)

	log.Info("practice server listening", zap.String("addr", cfg.PracticeAddr))
	if err := router.Run(cfg.PracticeAddr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// runRemote plays one game against a remote authority through the
// projection engine.
func runRemote(cfg config.Config, log *zap.Logger) {
	ctx := context.Background()

	apiClient := api.NewClient(cfg.APIBaseURL, log)
	wsClient := ws.NewClient(cfg.WSBaseURL, log)
	snaps := snapshot.NewStore(cfg.SnapshotPath, log)

	eng := projection.NewEngine(wsClient, apiClient, snaps, log,
		projection.WithPlayerName(cfg.PlayerName),
		projection.WithBotTriggerDelay(cfg.BotTriggerDelay),
	)
	defer eng.Close()

	if eng.RestoreFromSnapshot() {
		fmt.Println("Resuming previous session...")
		if err := eng.ReconnectWebSocket(ctx); err != nil {
			log.Fatal("reconnect failed", zap.Error(err))
		}
	} else {
		w, err := apiClient.DefaultWeights(ctx)
		if err != nil {
			log.Warn("falling back to built-in weights", zap.Error(err))
			w = config.BotWeights()
		}
		err = eng.InitializeGame(ctx, api.StartGameParams{
			PlayerNames:     []string{cfg.PlayerName},
			NumberOfBots:    1,
			NumberOfPlayers: 1,
			Weights:         w,
		})
		if err != nil {
			log.Fatal("initialize failed", zap.Error(err))
		}
	}

	playLoop(eng, log)
}

// playLoop is a minimal terminal frontend over the projection engine.
func playLoop(eng *projection.Engine, log *zap.Logger) {
	reader := bufio.NewReader(os.Stdin)
	for {
		v := eng.View()
		if v.Status == protocol.StatusFinished {
			printWireBoard(v)
			if v.Winner != nil {
				fmt.Printf("\nWinner: %s\n", v.Winner.Name)
			} else {
				fmt.Println("\nGame over.")
			}
			return
		}
		if !eng.IsMyTurn() {
			time.Sleep(300 * time.Millisecond)
			continue
		}

		printWireBoard(v)
		fmt.Printf("Hand: %v\n", eng.MyHand())
		fmt.Println("Enter move: x y card")
		fmt.Print("> ")
		line, _ := reader.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) != 3 {
			fmt.Println("Bad format, try again.")
			continue
		}
		x, _ := strconv.Atoi(parts[0])
		y, _ := strconv.Atoi(parts[1])
		card, _ := strconv.Atoi(parts[2])
		if err := eng.MakeMove(x, y, card); err != nil {
			fmt.Println("Move rejected:", err)
		}
	}
}

func printWireBoard(v projection.View) {
	for y := 0; y < v.Board.Size; y++ {
		for x := 0; x < v.Board.Size; x++ {
			c := v.Board.Cells[y][x]
			if c.Value == 0 {
				fmt.Print(". ")
			} else {
				fmt.Printf("%d ", c.Value)
			}
		}
		fmt.Println()
	}
}

// runDemo is a local hot-seat game, human versus the rules engine only.
func runDemo(log *zap.Logger) {
	eng := game.NewEngine(log)
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	players := []game.Player{
		{ID: "p1", Name: "You", Color: game.ColorGreen},
		{ID: "p2", Name: "Rival", Color: game.ColorRed},
	}
	for i := range players {
		players[i].Deck = game.GenerateDeck(r)
	}
	eng.InitGame("local", players)
	if err := eng.SetFirstPlayer("p1"); err != nil {
		log.Fatal("start failed", zap.Error(err))
	}

	reader := bufio.NewReader(os.Stdin)
	for eng.Status() != game.StatusFinished {
		p := eng.CurrentPlayer()
		fmt.Printf("\nTurn: %s (%s)\n", p.Name, p.Color)
		fmt.Printf("Hand: %v\n", p.Hand)
		printLocalBoard(eng.State().Board)

		fmt.Println("Enter move: x y card")
		fmt.Print("> ")
		line, _ := reader.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) != 3 {
			fmt.Println("Bad format, try again.")
			continue
		}
		x, _ := strconv.Atoi(parts[0])
		y, _ := strconv.Atoi(parts[1])
		card, _ := strconv.Atoi(parts[2])
		err := eng.PlaceCard(
			game.Card{Value: card, Color: p.Color, OwnerID: p.ID},
			game.Position{X: x, Y: y},
		)
		if err != nil {
			fmt.Println("Invalid move:", err)
			continue
		}
		eng.NextTurn()
	}

	st := eng.State()
	fmt.Println("\nGame finished!")
	if st.Winner != nil {
		fmt.Printf("Winner: %s (%s)\n", st.Winner.Name, st.WinCondition.WinType)
	}
}

func printLocalBoard(b game.Board) {
	for y := range b {
		for x := range b[y] {
			if b[y][x].Card == nil {
				fmt.Print(". ")
			} else {
				fmt.Printf("%d ", b[y][x].Card.Value)
			}
		}
		fmt.Println()
	}
}
