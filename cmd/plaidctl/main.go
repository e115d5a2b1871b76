package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/joho/godotenv"

	pkgAuth "github.com/angelmondragon/plaidbridge/pkg/auth"
	"github.com/angelmondragon/plaidbridge/pkg/config"
	pkgerrors "github.com/angelmondragon/plaidbridge/pkg/errors"
	"github.com/angelmondragon/plaidbridge/pkg/logger"
	"github.com/angelmondragon/plaidbridge/pkg/plaid"
)

const usage = `usage: plaidctl [-env sandbox|development|production] [-v] <command> [flags]

commands:
  categories                                   list transaction categories
  institution  -id ID                          fetch one institution
  search       -query TEXT [-products a,b]     search institutions
  sandbox-link [-institution ID] [-products a,b]
                                               create a sandbox item and print its access token
  accounts     -token ACCESS_TOKEN             list accounts for an item
  transactions -token T -start YYYY-MM-DD -end YYYY-MM-DD
  sync         -token T [-cursor C] [-count N] fetch one transactions/sync page
  token        -user CLIENT_USER_ID            mint a caller token for the plaidbridge API
`

type clientFactory func(env plaid.Environment, logg *logger.Logger) (*plaid.Client, error)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, clientFromEnv); err != nil {
		fmt.Fprintln(os.Stderr, "plaidctl:", err)
		if apiErr := plaid.AsAPIError(err); apiErr != nil {
			fmt.Fprintf(os.Stderr, "plaid %s/%s request_id=%s\n", apiErr.ErrorType, apiErr.ErrorCode, apiErr.RequestID)
		}
		os.Exit(1)
	}
}

func clientFromEnv(env plaid.Environment, logg *logger.Logger) (*plaid.Client, error) {
	cfg, err := config.LoadPlaid()
	if err != nil {
		return nil, err
	}
	if env.Valid() {
		cfg.Environment = env.String()
	}
	return plaid.NewClientFromConfig(*cfg, plaid.WithLogger(logg))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, newClient clientFactory) error {
	global := flag.NewFlagSet("plaidctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	var env plaid.Environment
	global.TextVar(&env, "env", plaid.Sandbox, "plaid environment, overrides PLAID_ENVIRONMENT when set")
	verbose := global.Bool("v", false, "log plaid requests to stderr")
	if err := global.Parse(args); err != nil {
		return err
	}

	envSet := false
	global.Visit(func(f *flag.Flag) {
		if f.Name == "env" {
			envSet = true
		}
	})
	if !envSet {
		env = 0
	}

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return errors.New("missing command")
	}
	command, cmdArgs := rest[0], rest[1:]

	if command == "token" {
		return mintToken(cmdArgs, stdout, stderr)
	}

	level := logger.ParseLevel("error")
	if *verbose {
		level = logger.ParseLevel("debug")
	}
	logg := logger.New(logger.Options{ServiceName: "plaidctl", Level: level, Output: stderr})

	client, err := newClient(env, logg)
	if err != nil {
		return err
	}

	result, err := dispatch(ctx, client, command, cmdArgs, stderr)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func dispatch(ctx context.Context, client *plaid.Client, command string, args []string, stderr io.Writer) (any, error) {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	countries := fs.String("countries", "US", "comma separated country codes")

	switch command {
	case "categories":
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return client.GetCategories(ctx)

	case "institution":
		id := fs.String("id", plaid.SandboxInstitutionID, "institution id")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return client.GetInstitutionByID(ctx, *id, splitList(*countries), &plaid.GetInstitutionByIDOptions{IncludeStatus: true})

	case "search":
		query := fs.String("query", "", "institution name")
		products := fs.String("products", "", "comma separated products")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if strings.TrimSpace(*query) == "" {
			return nil, errors.New("search requires -query")
		}
		return client.SearchInstitutions(ctx, *query, splitList(*products), splitList(*countries), nil)

	case "sandbox-link":
		institution := fs.String("institution", plaid.SandboxInstitutionID, "sandbox institution id")
		products := fs.String("products", plaid.ProductTransactions, "comma separated initial products")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if client.Environment() != plaid.Sandbox {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sandbox-link only works against the sandbox environment")
		}
		public, err := client.CreateSandboxPublicToken(ctx, *institution, splitList(*products))
		if err != nil {
			return nil, err
		}
		return client.ExchangePublicToken(ctx, public.PublicToken)

	case "accounts":
		token := fs.String("token", "", "access token")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if err := requireFlag("token", *token); err != nil {
			return nil, err
		}
		return client.GetAccounts(ctx, *token, nil)

	case "transactions":
		token := fs.String("token", "", "access token")
		start := fs.String("start", civil.DateOf(time.Now().AddDate(0, 0, -30)).String(), "start date")
		end := fs.String("end", civil.DateOf(time.Now()).String(), "end date")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if err := requireFlag("token", *token); err != nil {
			return nil, err
		}
		startDate, err := civil.ParseDate(*start)
		if err != nil {
			return nil, fmt.Errorf("invalid -start: %w", err)
		}
		endDate, err := civil.ParseDate(*end)
		if err != nil {
			return nil, fmt.Errorf("invalid -end: %w", err)
		}
		return client.GetTransactions(ctx, *token, startDate, endDate, nil)

	case "sync":
		token := fs.String("token", "", "access token")
		cursor := fs.String("cursor", "", "cursor from a previous sync")
		count := fs.Int("count", 100, "page size")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if err := requireFlag("token", *token); err != nil {
			return nil, err
		}
		return client.SyncTransactions(ctx, *token, *cursor, *count)

	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

func mintToken(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	user := fs.String("user", "", "client_user_id to embed as the subject")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("user", *user); err != nil {
		return err
	}
	cfg, err := config.LoadJWT()
	if err != nil {
		return err
	}
	token, err := pkgAuth.MintCallerToken(*cfg, time.Now(), *user)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}

func requireFlag(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("-%s is required", name)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
