package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"skoll/internal/book"
	"skoll/internal/net"
)

func main() {
	address := flag.String("address", "0.0.0.0", "Listen address")
	port := flag.Int("port", 9001, "Listen port")
	ticker := flag.String("ticker", "AAPL", "Book ticker (max 4 chars)")
	participants := flag.String(
		"participants",
		"alice:100000:1000,bob:100000:1000",
		"Comma-separated name:balance:position account seeds",
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	ledger, err := seedLedger(*participants)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid participant seed")
	}

	// Setup the TCP server and the book, wired back as the trade reporter.
	b := book.New(*ticker, ledger, map[string]string{
		"tick_size": "0.01",
		"lot_size":  "1",
	})
	srv := net.New(*address, *port, b)
	b.SetReporter(srv)

	go srv.Run(ctx)
	// Block on running the server.
	<-ctx.Done()
}

// seedLedger parses "name:balance:position" triples into ledger accounts.
func seedLedger(spec string) (*book.Ledger, error) {
	ledger := book.NewLedger()
	for _, entry := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed participant seed %q", entry)
		}
		balance, err := decimal.NewFromString(parts[1])
		if err != nil {
			return nil, err
		}
		position, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return nil, err
		}
		if err := ledger.Add(book.Participant{
			Name:     parts[0],
			Balance:  balance,
			Position: position,
		}); err != nil {
			return nil, err
		}
	}
	return ledger, nil
}
