// Package main provides the player CLI for driving sessions from a terminal.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apiconnect "github.com/osa030/folioplayer/internal/api/connect"
	"github.com/osa030/folioplayer/internal/domain/lyric"
)

var (
	app        = kingpin.New("folioplayer-cli", "folioplayer player client")
	server     = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	adminToken = app.Flag("admin-token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()

	// parse command (offline)
	parseCmd  = app.Command("parse", "Parse an LRC file and print the timeline")
	parseFile = parseCmd.Arg("file", "LRC file").Required().ExistingFile()
	parseAt   = parseCmd.Flag("at", "Mark the active line at this time (seconds)").Default("-1").Float64()

	// create command
	createCmd    = app.Command("create", "Create a session")
	createTracks = createCmd.Flag("tracks", "YAML file with a list of tracks (default: server playlist)").ExistingFile()

	// session commands
	stateCmd     = app.Command("state", "Show the player state")
	stateSession = stateCmd.Arg("session-id", "Session ID").Required().String()

	toggleCmd     = app.Command("toggle", "Toggle play/pause")
	toggleSession = toggleCmd.Arg("session-id", "Session ID").Required().String()

	nextCmd     = app.Command("next", "Skip to the next track")
	nextSession = nextCmd.Arg("session-id", "Session ID").Required().String()

	prevCmd     = app.Command("prev", "Go back to the previous track")
	prevSession = prevCmd.Arg("session-id", "Session ID").Required().String()

	selectCmd     = app.Command("select", "Jump to a track")
	selectSession = selectCmd.Arg("session-id", "Session ID").Required().String()
	selectIndex   = selectCmd.Arg("index", "Track index (0-based)").Required().Int()

	seekCmd      = app.Command("seek", "Seek within the current track")
	seekSession  = seekCmd.Arg("session-id", "Session ID").Required().String()
	seekFraction = seekCmd.Arg("fraction", "Position between 0 and 1").Required().Float64()

	lyricsCmd     = app.Command("lyrics", "Toggle the lyrics panel and print the timeline")
	lyricsSession = lyricsCmd.Arg("session-id", "Session ID").Required().String()

	closeCmd     = app.Command("close", "Close a session")
	closeSession = closeCmd.Arg("session-id", "Session ID").Required().String()

	subscribeCmd     = app.Command("subscribe", "Subscribe to session notifications")
	subscribeSession = subscribeCmd.Arg("session-id", "Session ID").Required().String()

	// admin command
	sessionsCmd = app.Command("sessions", "List sessions (admin)")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == parseCmd.FullCommand() {
		parse(*parseFile, *parseAt)
		return
	}

	var opts []connect.ClientOption
	if command == sessionsCmd.FullCommand() {
		if *adminToken == "" {
			fmt.Println("Error: admin token is required (use --admin-token or ADMIN_TOKEN env)")
			os.Exit(1)
		}
		opts = append(opts, apiconnect.WithAdminToken(*adminToken))
	}

	// Create client
	client := apiconnect.NewClient(http.DefaultClient, *server, opts...)
	ctx := context.Background()

	// Execute command
	switch command {
	case createCmd.FullCommand():
		create(ctx, client, *createTracks)
	case stateCmd.FullCommand():
		call(ctx, client, apiconnect.PlayerGetStateProcedure, map[string]any{"sessionId": *stateSession})
	case toggleCmd.FullCommand():
		call(ctx, client, apiconnect.PlayerTogglePlayProcedure, map[string]any{"sessionId": *toggleSession})
	case nextCmd.FullCommand():
		call(ctx, client, apiconnect.PlayerAdvanceProcedure, map[string]any{"sessionId": *nextSession, "direction": "next"})
	case prevCmd.FullCommand():
		call(ctx, client, apiconnect.PlayerAdvanceProcedure, map[string]any{"sessionId": *prevSession, "direction": "previous"})
	case selectCmd.FullCommand():
		call(ctx, client, apiconnect.PlayerSelectTrackProcedure, map[string]any{"sessionId": *selectSession, "index": *selectIndex})
	case seekCmd.FullCommand():
		call(ctx, client, apiconnect.PlayerSeekProcedure, map[string]any{"sessionId": *seekSession, "fraction": *seekFraction})
	case lyricsCmd.FullCommand():
		lyrics(ctx, client, *lyricsSession)
	case closeCmd.FullCommand():
		if _, err := client.Call(ctx, apiconnect.PlayerCloseSessionProcedure, map[string]any{"sessionId": *closeSession}); err != nil {
			fail(err)
		}
		fmt.Println("Session closed")
	case subscribeCmd.FullCommand():
		subscribe(ctx, client, *subscribeSession)
	case sessionsCmd.FullCommand():
		listSessions(ctx, client)
	}
}

func fail(err error) {
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}

func parse(path string, at float64) {
	data, err := os.ReadFile(path)
	if err != nil {
		fail(err)
	}

	timeline := lyric.Parse(string(data))
	active := -1
	if at >= 0 {
		active = timeline.ActiveIndex(at)
	}
	printTimeline(timeline, active)
}

func create(ctx context.Context, client *apiconnect.Client, tracksFile string) {
	body := map[string]any{}
	if tracksFile != "" {
		data, err := os.ReadFile(tracksFile)
		if err != nil {
			fail(err)
		}
		var tracks []any
		if err := yaml.Unmarshal(data, &tracks); err != nil {
			fail(fmt.Errorf("invalid tracks file: %w", err))
		}
		body["tracks"] = tracks
	}

	resp, err := client.Call(ctx, apiconnect.PlayerCreateSessionProcedure, body)
	if err != nil {
		fail(err)
	}

	fmt.Printf("Session created! ID: %s (source: %v)\n", resp["sessionId"], resp["source"])
	if tracks, ok := resp["tracks"].([]any); ok {
		fmt.Println("\nPlaylist:")
		for i, t := range tracks {
			tr, _ := t.(map[string]any)
			fmt.Printf("  %2d. %v - %v\n", i, tr["title"], tr["artist"])
		}
	}
	printState(resp["state"])
}

func call(ctx context.Context, client *apiconnect.Client, procedure string, body map[string]any) {
	resp, err := client.Call(ctx, procedure, body)
	if err != nil {
		fail(err)
	}
	printState(resp["state"])
}

func lyrics(ctx context.Context, client *apiconnect.Client, sessionID string) {
	resp, err := client.Call(ctx, apiconnect.PlayerToggleLyricsProcedure, map[string]any{"sessionId": sessionID})
	if err != nil {
		fail(err)
	}
	state, _ := resp["state"].(map[string]any)
	if visible, _ := state["lyricsVisible"].(bool); !visible {
		fmt.Println("Lyrics hidden")
		return
	}

	resp, err = client.Call(ctx, apiconnect.PlayerGetTimelineProcedure, map[string]any{"sessionId": sessionID})
	if err != nil {
		fail(err)
	}

	lines, _ := resp["lines"].([]any)
	timeline := make(lyric.Timeline, 0, len(lines))
	for _, l := range lines {
		line, _ := l.(map[string]any)
		t, _ := line["time"].(float64)
		text, _ := line["text"].(string)
		timeline = append(timeline, lyric.Line{Time: t, Text: text})
	}
	active, _ := resp["activeLine"].(float64)
	printTimeline(timeline, int(active))
}

func subscribe(ctx context.Context, client *apiconnect.Client, sessionID string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nUnsubscribing...")
		cancel()
	}()

	fmt.Println("Subscribed to notifications. Press Ctrl+C to exit.")

	err := client.Subscribe(ctx, sessionID, func(msg map[string]any) error {
		printNotification(msg)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func listSessions(ctx context.Context, client *apiconnect.Client) {
	resp, err := client.Call(ctx, apiconnect.AdminListSessionsProcedure, map[string]any{})
	if err != nil {
		fail(err)
	}

	sessions, _ := resp["sessions"].([]any)
	fmt.Printf("Sessions (%d):\n", len(sessions))
	for _, s := range sessions {
		entry, _ := s.(map[string]any)
		fmt.Printf("\n  ID: %v\n", entry["sessionId"])
		fmt.Printf("  Source: %v\n", entry["source"])
		fmt.Printf("  Created: %v\n", entry["createdAt"])
		fmt.Printf("  Subscribers: %v\n", entry["subscribers"])
		if state, ok := entry["state"].(map[string]any); ok {
			fmt.Printf("  Phase: %v\n", state["phase"])
		}
	}
}

func printTimeline(timeline lyric.Timeline, active int) {
	if len(timeline) == 0 {
		fmt.Println("No lyrics")
		return
	}
	for i, l := range timeline {
		marker := "  "
		if i == active {
			marker = "▶ "
		}
		fmt.Printf("%s[%02d:%05.2f] %s\n", marker, int(l.Time)/60, l.Time-float64(int(l.Time)/60*60), l.Text)
	}
}

func printState(v any) {
	state, ok := v.(map[string]any)
	if !ok {
		return
	}
	fmt.Println("\nPlayer State:")
	if tr, ok := state["track"].(map[string]any); ok {
		fmt.Printf("  Track: %v - %v (#%v)\n", tr["title"], tr["artist"], state["currentIndex"])
		fmt.Printf("  URL: %v\n", tr["url"])
	}
	fmt.Printf("  Phase: %v\n", state["phase"])
	fmt.Printf("  Progress: %.0f%%\n", toFloat(state["progress"])*100)
	fmt.Printf("  Lyrics: visible=%v activeLine=%v\n", state["lyricsVisible"], state["activeLine"])
}

func printNotification(n map[string]any) {
	// Print sequence number
	fmt.Printf("\n[Sequence: %.0f] ", toFloat(n["sequenceNo"]))

	switch n["type"] {
	case "command":
		fmt.Printf("=== COMMAND: %v ===\n", n["name"])
		if payload, ok := n["payload"].(map[string]any); ok && len(payload) > 0 {
			if tr, ok := payload["track"].(map[string]any); ok {
				fmt.Printf("  Load: %v - %v\n  URL: %v\n", tr["title"], tr["artist"], tr["url"])
			} else {
				fmt.Printf("  %v\n", payload)
			}
		}
	case "event":
		fmt.Printf("=== EVENT: %v ===\n", n["name"])
		if payload, ok := n["payload"].(map[string]any); ok {
			printState(payload["state"])
		}
	case "closed":
		fmt.Println("=== SESSION CLOSED ===")
	default:
		fmt.Printf("=== UNKNOWN (%v) ===\n", n["type"])
	}
}

func toFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}
