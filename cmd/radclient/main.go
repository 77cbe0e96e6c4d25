package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"

	"github.com/vitalvas/radcli/pkg/client"
	"github.com/vitalvas/radcli/pkg/log"
	"github.com/vitalvas/radcli/pkg/packet"
)

type options struct {
	config  string
	server  string
	secret  string
	acct    bool
	status  bool
	count   int
	nasPort uint
	timeout time.Duration
	retries int
	level   string
}

func main() {
	var opts options
	flag.StringVar(&opts.config, "config", "", "YAML configuration file")
	flag.StringVar(&opts.server, "server", "", "RADIUS server as host[:port[:secret]]")
	flag.StringVar(&opts.secret, "secret", "", "Shared secret, when not part of -server")
	flag.BoolVar(&opts.acct, "acct", false, "Send Accounting-Request instead of Access-Request")
	flag.BoolVar(&opts.status, "status", false, "Send Status-Server to the server and exit")
	flag.IntVar(&opts.count, "count", 0, "Send the request N times concurrently through the asynchronous engine")
	flag.UintVar(&opts.nasPort, "nas-port", 0, "NAS-Port added when the input has none")
	flag.DurationVar(&opts.timeout, "timeout", 0, "Per-transmission timeout")
	flag.IntVar(&opts.retries, "retries", -1, "Retransmissions after the first send")
	flag.StringVar(&opts.level, "log-level", "", "Log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-config <file>] [-server <host[:port[:secret]]>] [flags]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nAttributes are read from stdin, one per line in format:\n")
		fmt.Fprintf(os.Stderr, "  Attribute-Name = value\n")
		fmt.Fprintf(os.Stderr, "\nSettings can also come from RADCLI_* environment variables.\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  printf 'User-Name = bob\\nUser-Password = hello\\n' | %s -server 127.0.0.1::testing123\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  echo 'Acct-Status-Type = 1' | %s -acct -server 127.0.0.1::testing123\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -status -server 127.0.0.1::testing123\n", os.Args[0])
	}
	flag.Parse()

	os.Exit(run(opts))
}

func run(opts options) int {
	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		flag.Usage()
		return 2
	}

	logger := log.NewLoggerWithLevel(cfg.LogLevel)
	cl, err := client.New(
		client.WithConfig(cfg),
		client.WithLogger(logger),
		client.WithTypeResolver(resolveType),
	)
	if err != nil {
		logger.Errorf("Failed to create client: %v", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.status {
		servers := cfg.AuthServers
		if opts.acct {
			servers = cfg.AcctServers
		}
		if len(servers) == 0 {
			logger.Error("No server configured")
			return 2
		}
		reply, err := cl.Status(ctx, servers[0])
		return report(reply, err)
	}

	send, err := parseAttributes(os.Stdin)
	if err != nil {
		logger.Errorf("Failed to parse attributes: %v", err)
		return 2
	}

	if opts.acct && !send.Has(packet.Standard(packet.AttributeAcctSessionID)) {
		send.Add(packet.NewString(packet.Standard(packet.AttributeAcctSessionID), uuid.NewString()))
	}

	if opts.count > 0 {
		return runAsync(ctx, cl, cfg, opts, send)
	}

	var reply *client.Reply
	if opts.acct {
		reply, err = cl.Acct(ctx, uint32(opts.nasPort), send)
	} else {
		reply, err = cl.Auth(ctx, uint32(opts.nasPort), send, nil)
	}
	return report(reply, err)
}

// loadConfig layers the configuration file, the environment and the
// command line, in that order.
func loadConfig(opts options) (*client.Config, error) {
	cfg := client.DefaultConfig()
	if opts.config != "" {
		var err error
		if cfg, err = client.LoadConfig(opts.config); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if opts.server != "" {
		port := uint16(client.DefaultAuthPort)
		if opts.acct {
			port = client.DefaultAcctPort
		}
		srv, err := client.ParseServer(opts.server, port)
		if err != nil {
			return nil, err
		}
		if opts.secret != "" {
			srv.Secret = opts.secret
		}
		if opts.acct {
			cfg.AcctServers = client.ServerList{srv}
		} else {
			cfg.AuthServers = client.ServerList{srv}
		}
	}
	if opts.timeout > 0 {
		cfg.Timeout = opts.timeout
	}
	if opts.retries >= 0 {
		cfg.Retries = opts.retries
	}
	if opts.level != "" {
		cfg.LogLevel = opts.level
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runAsync sends count copies of the request to the first server through
// one scheduler.
func runAsync(ctx context.Context, cl *client.Client, cfg *client.Config, opts options, send packet.Pairs) int {
	code := packet.CodeAccessRequest
	servers := cfg.AuthServers
	if opts.acct {
		code = packet.CodeAccountingRequest
		servers = cfg.AcctServers
	}
	if len(servers) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no server configured")
		return 2
	}

	multi := client.NewMulti()
	defer multi.Close()

	for i := 0; i < opts.count; i++ {
		r, err := cl.NewRequest(servers[0], code, uint32(opts.nasPort), send, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
		if _, err := multi.Add(r); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
	}

	if err := multi.Perform(ctx, 100*time.Millisecond); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	counts := make(map[client.Result]int)
	for {
		r, _, ok := multi.NextDone()
		if !ok {
			break
		}
		counts[r.Result()]++
		r.Close()
	}

	failed := 0
	for result, n := range counts {
		fmt.Printf("%s: %d\n", result, n)
		if result != client.ResultOK {
			failed += n
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func report(reply *client.Reply, err error) int {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed (%s): %v\n", client.ResultOf(err), err)
		return 1
	}

	fmt.Printf("Received %s (%s)\n", reply.Code, reply.Result)
	printPairs(os.Stdout, reply.Pairs)

	switch reply.Result {
	case client.ResultOK, client.ResultChallenge:
		return 0
	default:
		return 1
	}
}
