package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/gemini-relay/backend/internal/config"
	"github.com/zhouzirui/gemini-relay/backend/internal/widget"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] .env not loaded, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	endpoint := flag.String("endpoint", defaultEndpoint(cfg.Server.Addr), "relay endpoint URL")
	timeout := flag.Duration("timeout", 0, "per-request timeout (0 keeps the transport default)")
	flag.Parse()

	w := widget.New(
		widget.NewRelayClient(*endpoint, &http.Client{Timeout: *timeout}),
		widget.NewLineView(os.Stdout),
	)
	w.HandleKey(widget.Key{Name: "k", Ctrl: true})

	fmt.Printf("chatting with %s (/quit exits)\n", *endpoint)
	run(context.Background(), w, os.Stdin)

	w.Wait()
}

// run feeds stdin lines into the widget. Replies print as they arrive and may
// interleave with later prompts.
func run(ctx context.Context, w *widget.Widget, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "/quit" {
			return
		}

		w.SetInput(line)
		w.SubmitInput(ctx)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("read input: %v", err)
	}
}

func defaultEndpoint(addr string) string {
	host := addr
	if strings.HasPrefix(addr, ":") {
		host = "localhost" + addr
	}
	return "http://" + host + widget.DefaultEndpoint
}
