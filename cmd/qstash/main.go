// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Command qstash publishes messages to the QStash hosted delivery service
// and inspects its event log, queued messages and dead letter queue.
//
// Usage:
//
//	qstash [-config FILE] publish -url URL | -topic NAME [options]
//	qstash [-config FILE] events [-cursor C]
//	qstash [-config FILE] message -id ID
//	qstash [-config FILE] cancel -id ID
//	qstash [-config FILE] dlq [-cursor C]
//
// The token is taken from the config file or the QSTASH_TOKEN environment
// variable.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/absmach/qstash/client"
	"github.com/absmach/qstash/config"
	"github.com/absmach/qstash/ratelimit"
)

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: qstash [-config FILE] publish|events|message|cancel|dlq [options]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg)

	c, err := newClient(cfg)
	if err != nil {
		slog.Error("Failed to create client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Timeout))
	defer cancel()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "publish":
		err = runPublish(ctx, c, args)
	case "events":
		err = runEvents(ctx, c, args)
	case "message":
		err = runMessage(ctx, c, args)
	case "cancel":
		err = runCancel(ctx, c, args)
	case "dlq":
		err = runDLQ(ctx, c, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("Command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}
	slog.SetDefault(slog.New(handler))
}

func newClient(cfg *config.Config) (*client.Client, error) {
	opts := client.NewOptions().
		SetToken(cfg.Token).
		SetBaseURL(cfg.BaseURL).
		SetVersion(client.Version(cfg.Version)).
		SetTimeout(time.Duration(cfg.Timeout))

	if cfg.RateLimit.Enabled {
		opts.SetRateLimiter(ratelimit.NewPublishLimiter(cfg.RateLimit.Rate, cfg.RateLimit.Burst))
	}
	if cfg.Breaker.Enabled {
		opts.SetCircuitBreaker(cfg.Breaker.FailureThreshold, time.Duration(cfg.Breaker.ResetTimeout))
	}

	return client.New(opts)
}

// headerFlags collects repeatable -header NAME:VALUE flags.
type headerFlags []string

func (h *headerFlags) String() string { return strings.Join(*h, ", ") }

func (h *headerFlags) Set(v string) error {
	if !strings.Contains(v, ":") {
		return fmt.Errorf("header must be NAME:VALUE, got %q", v)
	}
	*h = append(*h, v)
	return nil
}

func runPublish(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	destURL := fs.String("url", "", "Destination URL")
	topic := fs.String("topic", "", "Destination topic")
	body := fs.String("body", "", "Raw message body")
	jsonBody := fs.String("json", "", "JSON message body (sent with Content-Type: application/json)")
	delay := fs.Duration("delay", 0, "Delivery delay")
	notBefore := fs.Int64("not-before", 0, "Deliver no earlier than this Unix timestamp (overrides -delay)")
	dedupID := fs.String("dedup-id", "", "Deduplication id")
	contentDedup := fs.Bool("content-dedup", false, "Enable content-based deduplication")
	retries := fs.Int("retries", -1, "Delivery retry cap (-1 for account default)")
	callback := fs.String("callback", "", "Callback URL")
	method := fs.String("method", "", "HTTP method used toward the destination (default POST)")
	var headers headerFlags
	fs.Var(&headers, "header", "Pass-through header NAME:VALUE (repeatable)")
	fs.Parse(args)

	if (*destURL == "") == (*topic == "") {
		return fmt.Errorf("exactly one of -url or -topic is required")
	}

	var dest client.Destination
	if *destURL != "" {
		dest = client.DestinationURL(*destURL)
	} else {
		dest = client.DestinationTopic(*topic)
	}

	opts := client.PublishOptions{
		Delay:           *delay,
		NotBefore:       *notBefore,
		DeduplicationID: *dedupID,
		Callback:        *callback,
		Method:          *method,
	}
	if *contentDedup {
		t := true
		opts.ContentBasedDeduplication = &t
	}
	if *retries >= 0 {
		opts.Retries = retries
	}
	for _, h := range headers {
		name, value, _ := strings.Cut(h, ":")
		if opts.Headers == nil {
			opts.Headers = map[string][]string{}
		}
		opts.Headers[strings.TrimSpace(name)] = append(opts.Headers[strings.TrimSpace(name)], strings.TrimSpace(value))
	}

	var (
		out []client.PublishResponse
		err error
	)
	if *jsonBody != "" {
		out, err = c.PublishJSON(ctx, dest, json.RawMessage(*jsonBody), opts)
	} else {
		var raw []byte
		if *body != "" {
			raw = []byte(*body)
		}
		out, err = c.Publish(ctx, client.PublishRequest{Destination: dest, Body: raw, Options: opts})
	}
	if err != nil {
		return err
	}

	for _, r := range out {
		switch {
		case r.Failed():
			fmt.Printf("error\t%s\t%s\n", r.URL, r.Error)
		case r.Deduplicated:
			fmt.Printf("duplicate\t%s\n", r.URL)
		default:
			fmt.Printf("enqueued\t%s\t%s\n", r.MessageID, r.URL)
		}
	}
	return nil
}

func runEvents(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	cursor := fs.String("cursor", "", "Page cursor")
	fs.Parse(args)

	page, err := c.GetEvents(ctx, *cursor)
	if err != nil {
		return err
	}
	for _, ev := range page.Events {
		fmt.Printf("%s\t%s\t%s\t%s\n",
			time.UnixMilli(ev.Time).Format(time.RFC3339), ev.State, ev.MessageID, ev.URL)
	}
	if page.Cursor != "" {
		fmt.Printf("next cursor: %s\n", page.Cursor)
	}
	return nil
}

func runMessage(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("message", flag.ExitOnError)
	id := fs.String("id", "", "Message id")
	fs.Parse(args)

	msg, err := c.GetMessage(ctx, *id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(msg)
}

func runCancel(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	id := fs.String("id", "", "Message id")
	fs.Parse(args)

	if err := c.CancelMessage(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("canceled\t%s\n", *id)
	return nil
}

func runDLQ(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("dlq", flag.ExitOnError)
	cursor := fs.String("cursor", "", "Page cursor")
	fs.Parse(args)

	page, err := c.ListDLQ(ctx, *cursor)
	if err != nil {
		return err
	}
	for _, msg := range page.Messages {
		fmt.Printf("%s\t%s\t%s\n", msg.DLQID, msg.MessageID, msg.URL)
	}
	if page.Cursor != "" {
		fmt.Printf("next cursor: %s\n", page.Cursor)
	}
	return nil
}
