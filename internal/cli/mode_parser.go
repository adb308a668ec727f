package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeOrder      = "order-service"
	ModeEvents     = "events-service"
	ModeEventStore = "event-store-worker"
	ModeBilling    = "billing-worker"
	ModeNotify     = "notification-worker"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeOrder, "order", "orders":
		return ModeOrder, true
	case ModeEvents, "events":
		return ModeEvents, true
	case ModeEventStore, "event-store", "store":
		return ModeEventStore, true
	case ModeBilling, "billing":
		return ModeBilling, true
	case ModeNotify, "notify", "notifications":
		return ModeNotify, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `order-service --port=3001`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "--mode=") {
			mode = strings.TrimPrefix(arg, "--mode=")
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, nil
	}

	if m, ok := isKnownMode(mode); ok {
		mode = m
	}

	return mode, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // switch the color to cyan

	fmt.Fprintln(w, `Usage:
  ./ecommerce-orders --mode=<service> [flags]

Services (modes):
  order-service          HTTP API for placing and managing orders
  events-service         HTTP API for querying order events by customer
  event-store-worker     RabbitMQ consumer that persists every order event
  billing-worker         RabbitMQ consumer that triggers billing for new orders
  notification-worker    RabbitMQ batch consumer that emails order receipts

Examples:
  ./ecommerce-orders --mode=order-service --port=3000 --max-concurrent=50
  ./ecommerce-orders --mode=events-service --port=3001
  ./ecommerce-orders --mode=event-store-worker
  ./ecommerce-orders --mode=billing-worker
  ./ecommerce-orders --mode=notification-worker`)

	fmt.Fprint(w, "\033[0m") // switch back to normal
}

func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./ecommerce-orders --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
