package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"skoll/internal/common"
	skollNet "skoll/internal/net"
)

func main() {
	// 1. CLI Parameter Parsing
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange server")
	owner := flag.String("owner", "", "Owner username (compulsory)")
	action := flag.String("action", "place", "Action to perform: ['place', 'cancel']")

	// Order Parameters
	ticker := flag.String("ticker", "AAPL", "Ticker symbol (max 4 chars)")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	price := flag.Float64("price", 100.0, "Limit price")
	qtyStr := flag.String("qty", "10", "Quantity or comma-separated list (e.g. 10,20,50)")

	// Cancel Parameters
	orderID := flag.Uint64("id", 0, "Identifier of the order to cancel")

	flag.Parse()

	// Validation
	if *owner == "" {
		fmt.Println("Error: -owner is compulsory.")
		flag.Usage()
		os.Exit(1)
	}

	// Connect to Server
	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s as '%s'\n", *serverAddr, *owner)

	// Start Listening for Reports (Async)
	go readReports(conn)

	side := common.Bid
	if strings.ToLower(*sideStr) == "sell" {
		side = common.Ask
	}

	// Execute Action
	switch strings.ToLower(*action) {
	case "place":
		for _, q := range parseQuantities(*qtyStr) {
			msg := skollNet.NewOrderMessage{
				Side:     side,
				Ticker:   *ticker,
				Price:    *price,
				Quantity: q,
				Owner:    *owner,
			}
			if _, err := conn.Write(msg.Serialize()); err != nil {
				log.Printf("Failed to place order (Qty: %d): %v", q, err)
				continue
			}
			fmt.Printf("-> Sent %s Order: %s %d @ %.2f\n", strings.ToUpper(*sideStr), *ticker, q, *price)
			// Small optional sleep to ensure server processes sequence distinctly if needed
			time.Sleep(5 * time.Millisecond)
		}

	case "cancel":
		if *orderID == 0 {
			log.Fatal("Error: -id is required for cancellation")
		}
		msg := skollNet.CancelOrderMessage{OrderID: *orderID}
		if _, err := conn.Write(msg.Serialize()); err != nil {
			log.Printf("Failed to send cancel request: %v", err)
		} else {
			fmt.Printf("-> Sent Cancel Request for order %d\n", *orderID)
		}

	default:
		log.Fatalf("Unknown action %q", *action)
	}

	// Give the server a moment to respond before exiting.
	time.Sleep(500 * time.Millisecond)
}

// readReports decodes and prints report frames as the server sends them.
func readReports(conn net.Conn) {
	buffer := make([]byte, 4*1024)
	for {
		n, err := conn.Read(buffer)
		if err != nil {
			if err != io.EOF {
				log.Printf("Report stream closed: %v", err)
			}
			return
		}

		report, err := skollNet.ParseReport(buffer[:n])
		if err != nil {
			log.Printf("Failed to parse report: %v", err)
			continue
		}

		switch report.TypeOf {
		case skollNet.OrderAck:
			fmt.Printf("<- Ack: order %d (%s %s, qty %d @ %.2f)\n",
				report.OrderID, report.Ticker, report.Side, report.Quantity, report.Price)
		case skollNet.ExecutionReport:
			fmt.Printf("<- Fill: %s qty %d @ %.2f (counterparty %s @ %.2f) trade %s\n",
				report.Ticker, report.Quantity, report.Price,
				report.Counterparty, report.CounterPrice, report.TradeID)
		case skollNet.CancelAck:
			fmt.Printf("<- Cancel Ack: order %d\n", report.OrderID)
		case skollNet.ErrorReport:
			fmt.Printf("<- Error: %s\n", report.Err)
		}
	}
}

// parseQuantities splits a comma-separated quantity list.
func parseQuantities(spec string) []uint64 {
	var quantities []uint64
	for _, part := range strings.Split(spec, ",") {
		q, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			log.Fatalf("Invalid quantity %q: %v", part, err)
		}
		quantities = append(quantities, q)
	}
	return quantities
}
