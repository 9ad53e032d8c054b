package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/iapod/internal/errors"
	"github.com/hpungsan/iapod/internal/ops"
	"github.com/hpungsan/iapod/internal/web"
)

// newCLIApp creates the CLI application with all commands.
// svc may be nil for --help and --version.
func newCLIApp(svc *ops.Services) *cli.App {
	app := &cli.App{
		Name:    "iapod",
		Usage:   "Archive podcast episode reconciler",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "auto", Usage: "Output format: auto|json|table"},
		},
		Commands: []*cli.Command{
			syncCmd(svc),
			listCmd(svc),
			showCmd(svc),
			normalizeCmd(svc),
			deliveriesCmd(svc),
			runsCmd(svc),
			serveCmd(svc),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// syncCmd creates the sync command.
func syncCmd(svc *ops.Services) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Reconcile the archive catalog with the local episodes and announce new ones",
		Action: func(c *cli.Context) error {
			output, err := ops.Sync(c.Context, svc)
			if output != nil {
				if werr := writeSync(c, output); werr != nil {
					return werr
				}
			}
			if err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// listCmd creates the list command.
func listCmd(svc *ops.Services) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List local episodes, most recent first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Skip this many results"},
			&cli.StringFlag{Name: "subject", Aliases: []string{"s"}, Usage: "Only episodes tagged with this subject"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(svc.Store, ops.ListInput{
				Limit:   c.Int("limit"),
				Offset:  c.Int("offset"),
				Subject: c.String("subject"),
			})
			if err != nil {
				return outputError(err)
			}
			if useTable(c) {
				return outputTable(episodeTable(output.Items))
			}
			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(svc *ops.Services) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one episode record",
		ArgsUsage: "<identifier>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-body", Usage: "Exclude the body from output"},
			&cli.BoolFlag{Name: "public", Usage: "Include the rendered HTML view"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("identifier is required"))
			}
			input := ops.FetchInput{
				Identifier: c.Args().First(),
				Public:     c.Bool("public"),
			}
			if c.Bool("no-body") {
				includeBody := false
				input.IncludeBody = &includeBody
			}

			output, err := ops.Fetch(svc.Store, svc.Config.ArchiveURL, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// normalizeCmd creates the normalize command.
func normalizeCmd(svc *ops.Services) *cli.Command {
	return &cli.Command{
		Name:  "normalize",
		Usage: "Fill missing slugs and excerpts and move records to canonical file names",
		Action: func(c *cli.Context) error {
			unlock, err := svc.Store.Lock()
			if err != nil {
				return outputError(err)
			}
			defer func() { _ = unlock() }()

			output, err := ops.Normalize(svc.Store)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deliveriesCmd creates the deliveries command.
func deliveriesCmd(svc *ops.Services) *cli.Command {
	return &cli.Command{
		Name:  "deliveries",
		Usage: "List recorded publish attempts, most recent first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "identifier", Aliases: []string{"i"}, Usage: "Filter by episode identifier"},
			&cli.StringFlag{Name: "channel", Aliases: []string{"c"}, Usage: "Filter by channel (telegram|mastodon)"},
			&cli.StringFlag{Name: "run", Usage: "Filter by run ID"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultDeliveryLimit, Usage: "Max results"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Deliveries(c.Context, svc.DB, ops.DeliveriesInput{
				Identifier: c.String("identifier"),
				Channel:    c.String("channel"),
				RunID:      c.String("run"),
				Limit:      c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			if useTable(c) {
				return outputTable(deliveryTable(output.Items))
			}
			return outputJSON(output)
		},
	}
}

// runsCmd creates the runs command.
func runsCmd(svc *ops.Services) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List recorded sync passes, most recent first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultDeliveryLimit, Usage: "Max results"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Runs(c.Context, svc.DB, c.Int("limit"))
			if err != nil {
				return outputError(err)
			}
			if useTable(c) {
				return outputTable(runTable(output.Items))
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(svc *ops.Services) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve a read-only HTML preview of the local episodes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8080, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(svc, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(err)
			}
			if err := web.Run(srv, svc.Logger); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// Helper functions

// writeSync prints the pass summary.
func writeSync(c *cli.Context, output *ops.SyncOutput) error {
	if useTable(c) {
		return outputTable(syncTable(output))
	}
	return outputJSON(output)
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputTable writes a rendered table to stdout.
func outputTable(s string) error {
	_, err := fmt.Fprintln(os.Stdout, s)
	return err
}

// useTable reports whether the command should print a table instead of JSON.
func useTable(c *cli.Context) bool {
	switch c.String("format") {
	case "table":
		return true
	case "json":
		return false
	default:
		return isStdoutTerminal()
	}
}

// outputError formats error for CLI.
func outputError(err error) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
		if e.Cause != nil {
			msg += ": " + e.Cause.Error()
		}
		return cli.Exit(msg, 1)
	}
	return cli.Exit(err.Error(), 1)
}

// exitCode returns the process exit status for an error returned by the app.
func exitCode(err error) int {
	var ec cli.ExitCoder
	if stderrors.As(err, &ec) {
		return ec.ExitCode()
	}
	return 1
}
