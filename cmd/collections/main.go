package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/SietraX/saved/internal/apiclient"
	"github.com/SietraX/saved/internal/logging"
)

const usage = `usage: collections <command> [args]

commands:
  list                      show collections in display order
  create NAME               create a collection
  rename ID NAME            rename a collection
  delete [-y] ID            delete a collection after confirmation
  top ID                    move a collection to the top
  reorder ID...             put the given collections first, in that order
  videos [-q term] [-type all|videos|shorts] [-sort order] SOURCE ID
                            list the videos of a saved, liked or youtube playlist
  search TERM               search the transcripts of saved videos
  later                     list the Watch Later playlist
  transcript VIDEO_ID       print the stored transcript of a video`

func main() {
	_ = godotenv.Load()
	logging.Init(os.Getenv("LOG_LEVEL"), "collections-cli")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	token := os.Getenv("SAVED_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "SAVED_TOKEN is required")
		os.Exit(1)
	}
	baseURL := os.Getenv("SAVED_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3010"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := &cli{
		api: apiclient.New(baseURL, token),
		in:  os.Stdin,
		out: os.Stdout,
	}
	if err := c.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
