package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"orderbook-observer/src/grpc_control"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const usage = `usage: bookctl [-addr host:port] <command> [arg]

commands:
  status                 engine status
  view                   rendered book currently displayed
  book <SYMBOL>          raw book state, e.g. BTC/USD
  symbol <SYMBOL>        change the desired symbol
  timetravel on|off|toggle
  scrub <INDEX>          move the history cursor (0 = oldest)
`

// -----------------------------------------------------------------------------

func main() {
	addr := flag.String("addr", "127.0.0.1:50051", "gRPC control address")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, grpc_control.NewBookControlClient(conn), flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

func run(ctx context.Context, client *grpc_control.BookControlClient, args []string) error {
	arg := func() (string, error) {
		if len(args) < 2 {
			return "", fmt.Errorf("%s needs an argument\n\n%s", args[0], usage)
		}
		return args[1], nil
	}

	switch args[0] {
	case "status":
		return printResult(client.GetStatus(ctx))
	case "view":
		return printResult(client.GetView(ctx))
	case "book":
		symbol, err := arg()
		if err != nil {
			return err
		}
		return printResult(client.GetBook(ctx, symbol))
	case "symbol":
		symbol, err := arg()
		if err != nil {
			return err
		}
		if err := client.SetSymbol(ctx, symbol); err != nil {
			return err
		}
		return printResult(client.GetStatus(ctx))
	case "timetravel":
		mode, err := arg()
		if err != nil {
			return err
		}
		switch mode {
		case "on":
			err = client.SetTimeTravel(ctx, true)
		case "off":
			err = client.SetTimeTravel(ctx, false)
		case "toggle":
			err = client.ToggleTimeTravel(ctx)
		default:
			return fmt.Errorf("timetravel expects on, off or toggle, got %q", mode)
		}
		if err != nil {
			return err
		}
		return printResult(client.GetStatus(ctx))
	case "scrub":
		raw, err := arg()
		if err != nil {
			return err
		}
		index, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return fmt.Errorf("scrub index %q: %w", raw, err)
		}
		if err := client.Scrub(ctx, int32(index)); err != nil {
			return err
		}
		return printResult(client.GetView(ctx))
	}
	return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
}

// -----------------------------------------------------------------------------

func printResult(result map[string]interface{}, err error) error {
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
