package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/edvin/certbind/internal/certctl"
)

const defaultAPIURL = "http://localhost:8090"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var code int
	switch os.Args[1] {
	case "submit":
		code = cmdSubmit(ctx, os.Args[2:])
	case "status":
		code = cmdStatus(ctx, os.Args[2:])
	case "audit":
		code = cmdAudit(ctx, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		code = 1
	}
	os.Exit(code)
}

func apiURL(flagValue, fileValue string) string {
	switch {
	case flagValue != "":
		return flagValue
	case fileValue != "":
		return fileValue
	case os.Getenv("CERTBIND_API_URL") != "":
		return os.Getenv("CERTBIND_API_URL")
	default:
		return defaultAPIURL
	}
}

func cmdSubmit(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	file := fs.String("f", "", "YAML file listing domains")
	api := fs.String("api", "", "API base URL (default: file api_url, $CERTBIND_API_URL or "+defaultAPIURL+")")
	concurrency := fs.Int("c", certctl.DefaultConcurrency, "Parallel submissions")
	fs.Parse(args)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: certctl submit -f domains.yaml [-api URL] [-c N]")
		return 1
	}

	df, err := certctl.LoadDomains(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	client := certctl.NewClient(apiURL(*api, df.APIURL))
	failed := 0
	for _, r := range certctl.SubmitAll(ctx, client, df.Domains, *concurrency) {
		if r.Err != nil {
			failed++
			fmt.Printf("FAIL  %s: %v\n", r.Domain, r.Err)
			continue
		}
		fmt.Printf("OK    %s\n", r.Domain)
	}
	fmt.Printf("\n%d submitted, %d failed\n", len(df.Domains)-failed, failed)
	if failed > 0 {
		return 1
	}
	return 0
}

func cmdStatus(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	api := fs.String("api", "", "API base URL")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: certctl status [-api URL] <domain>")
		return 1
	}

	o, err := certctl.NewClient(apiURL(*api, "")).Status(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("Domain:     %s\n", o.Domain)
	fmt.Printf("Status:     %s\n", o.Status)
	fmt.Printf("Order:      %s\n", o.OrderURL)
	if o.CertificateURL != nil {
		fmt.Printf("Cert:       %s\n", *o.CertificateURL)
	}
	if o.LastEvent != nil {
		fmt.Printf("Last event: %s\n", *o.LastEvent)
	}
	fmt.Printf("Updated:    %s\n", o.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	return 0
}

func cmdAudit(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	api := fs.String("api", "", "API base URL")
	limit := fs.Int("n", 20, "Number of records")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: certctl audit [-api URL] [-n N] <domain>")
		return 1
	}

	records, err := certctl.NewClient(apiURL(*api, "")).Audit(ctx, fs.Arg(0), *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(records) == 0 {
		fmt.Println("No audit records.")
		return 0
	}
	enc := json.NewEncoder(os.Stdout)
	for _, r := range records {
		fmt.Printf("%s  %-24s ", r.CreatedAt.Format("2006-01-02 15:04:05"), r.Event)
		enc.Encode(r.Data)
	}
	return 0
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: certctl <command> [args]

Commands:
  submit -f FILE     Submit every domain listed in a YAML file
  status DOMAIN      Show the certificate order for a domain
  audit DOMAIN       List audit records for a domain

Environment:
  CERTBIND_API_URL   API base URL (default `+defaultAPIURL+`)`)
}
