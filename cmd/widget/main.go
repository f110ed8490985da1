// Command widget is a terminal client for a vibecheck server: it shows the
// live tally for one event and renders each incoming vote as a falling,
// bouncing emoji.
//
// Controls (each followed by enter): f/m/s vote fire/meh/sleep, k shake, q quit.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/vibecheck/api/client"
	"github.com/vibecheck/api/internal/anim"
	"github.com/vibecheck/api/internal/core/domain"
)

const (
	worldWidth  = 800.0
	worldHeight = 400.0

	frameRate = 30
)

func main() {
	var serverURL, event string
	flag.StringVar(&serverURL, "server", "http://localhost:8080", "vibecheck server URL")
	flag.StringVar(&event, "event", domain.DefaultEvent, "event id to watch")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := client.New(serverURL, event)
	defer c.Close()

	surface := anim.NewSurface(worldWidth, worldHeight)
	c.OnVote(func(vibe domain.Vibe) {
		surface.Spawn(vibe)
	})

	if err := c.FetchCounts(ctx); err != nil {
		log.Error("initial load failed", "error", err)
	}
	go surface.BulkLoad(c.Counts())

	if err := c.Subscribe(ctx); err != nil {
		log.Error("live feed unavailable", "error", err)
		os.Exit(1)
	}

	go readInput(ctx, cancel, c, surface, log)

	ticker := time.NewTicker(time.Second / frameRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Print("\x1b[2J\x1b[H")
			return
		case <-ticker.C:
			frame := surface.Step(1.0 / frameRate)
			draw(c, frame)
		}
	}
}

func readInput(ctx context.Context, cancel context.CancelFunc, c *client.Client, surface *anim.Surface, log *slog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "f":
			vote(ctx, c, domain.VibeFire, log)
		case "m":
			vote(ctx, c, domain.VibeMeh, log)
		case "s":
			vote(ctx, c, domain.VibeSleep, log)
		case "k":
			surface.Shake()
		case "q":
			cancel()
			return
		}
	}
}

func vote(ctx context.Context, c *client.Client, vibe domain.Vibe, log *slog.Logger) {
	if err := c.Vote(ctx, vibe); err != nil {
		log.Error("vote failed", "vibe", vibe, "error", err)
	}
}

// termCols/termRows are the character grid the world is scaled onto.
const (
	termCols = 80
	termRows = 24
)

func draw(c *client.Client, frame []anim.Glyph) {
	var b strings.Builder
	b.WriteString("\x1b[2J\x1b[H")

	counts := c.Counts()
	b.WriteString(fmt.Sprintf("event=%s   🔥 %d   😐 %d   😴 %d",
		c.EventID(), counts[domain.VibeFire], counts[domain.VibeMeh], counts[domain.VibeSleep]))
	if last := c.LastVoted(); last != "" {
		b.WriteString(fmt.Sprintf("   voted: %s!", last))
	}
	if msg := c.Err(); msg != "" {
		b.WriteString("   " + msg)
	}
	b.WriteString("\r\n")

	grid := make(map[[2]int]rune, len(frame))
	for _, g := range frame {
		col := int(g.X / worldWidth * termCols)
		row := int(g.Y / worldHeight * float64(termRows-2))
		if col < 0 || col >= termCols || row < 0 || row >= termRows-2 {
			continue
		}
		grid[[2]int{row, col}] = g.Rune
	}

	for row := 0; row < termRows-2; row++ {
		for col := 0; col < termCols; col++ {
			if r, ok := grid[[2]int{row, col}]; ok {
				b.WriteRune(r)
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString("\r\n")
	}
	b.WriteString("[f]ire [m]eh [s]leep [k]=shake [q]uit\r\n")

	fmt.Print(b.String())
}
