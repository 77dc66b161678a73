// wsclient subscribes to the caption channel and prints the running transcript.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"live-caption-service/internal/models"
	"live-caption-service/internal/observability/logging"
)

// render prints the snapshot as finalized lines followed by the interim tail.
func render(w io.Writer, snap models.Snapshot) {
	fmt.Fprint(w, "\033[H\033[2J")
	for _, s := range snap.Sentences {
		fmt.Fprintln(w, s.Sentence)
		if s.Translation != nil {
			fmt.Fprintf(w, "  > %s\n", *s.Translation)
		}
	}
	for _, s := range snap.Interim {
		fmt.Fprintf(w, "… %s\n", s.Sentence)
		if s.Translation != nil {
			fmt.Fprintf(w, "  > %s\n", *s.Translation)
		}
	}
}

func main() {
	addr := flag.String("addr", "localhost:8765", "Caption service address")
	raw := flag.Bool("raw", false, "Print raw JSON instead of the rendered transcript")
	flag.Parse()

	cfg := logging.DefaultConfig()
	cfg.Format = "console"
	logging.Init(cfg)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", u.String()).Msg("Failed to connect")
	}
	defer conn.Close()
	log.Info().Str("url", u.String()).Msg("Connected")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Info().Err(err).Msg("Disconnected")
			}
			return
		}
		if *raw {
			fmt.Println(string(payload))
			continue
		}
		var snap models.Snapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			log.Warn().Err(err).Msg("Invalid snapshot")
			continue
		}
		render(os.Stdout, snap)
	}
}
