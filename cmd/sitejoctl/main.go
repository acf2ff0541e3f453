// sitejoctl is a command-line front-end for the SiTeJo ticket API.
//
// Workflow commands (review, approve, reject, complete) check the action
// locally against the fetched ticket before calling the server, so an
// illegal action fails without a round trip.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/client"
	"github.com/kurokana/SiTeJo-Web/internal/lifecycle"
	"github.com/kurokana/SiTeJo-Web/internal/models"
)

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }
func (usageError) ExitCode() int   { return 2 }

func usagef(format string, args ...any) error {
	return usageError{fmt.Sprintf(format, args...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

type cli struct {
	api    *client.Client
	out    io.Writer
	asJSON bool
}

type command struct {
	usage string
	run   func(ctx context.Context, c *cli, args []string) error
}

var commands = map[string]command{
	"login":     {"login <email> <password>", cmdLogin},
	"me":        {"me", cmdMe},
	"lecturers": {"lecturers", cmdLecturers},
	"tickets":   {"tickets [--status --priority --type --search --page --per-page]", cmdTickets},
	"show":      {"show <id>", cmdShow},
	"create":    {"create --title --description --lecturer [--type --priority]", cmdCreate},
	"edit":      {"edit <id> [--title --description --type --priority]", cmdEdit},
	"review":    {"review <id> [--notes]", transition(lifecycle.ActionReview)},
	"approve":   {"approve <id> [--notes]", transition(lifecycle.ActionApprove)},
	"reject":    {"reject <id> --reason", transition(lifecycle.ActionReject)},
	"complete":  {"complete <id> [--notes]", transition(lifecycle.ActionComplete)},
	"delete":    {"delete <id>", cmdDelete},
	"stats":     {"stats", cmdStats},
	"docs":      {"docs <ticket-id>", cmdDocs},
	"upload":    {"upload <ticket-id> <file> [--type]", cmdUpload},
	"download":  {"download <doc-id> <dest>", cmdDownload},
	"rm-doc":    {"rm-doc <doc-id>", cmdRemoveDocument},
}

func run(ctx context.Context, args []string, out io.Writer, getenv func(string) string) error {
	var apiURL, token, output string
	fs := pflag.NewFlagSet("sitejoctl", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	fs.StringVar(&apiURL, "api", envOr(getenv, "SITEJO_API", "http://localhost:8080"), "API base URL (env SITEJO_API)")
	fs.StringVar(&token, "token", getenv("SITEJO_TOKEN"), "bearer token (env SITEJO_TOKEN)")
	fs.StringVarP(&output, "output", "o", "text", "output format: text or json")
	fs.BoolP("help", "h", false, "show help")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(out, fs)
			return nil
		}
		return usageError{err.Error()}
	}
	if help, _ := fs.GetBool("help"); help || fs.NArg() == 0 {
		printHelp(out, fs)
		return nil
	}
	if output != "text" && output != "json" {
		return usagef("--output must be text or json, got %q", output)
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		return usagef("unknown command %q (see --help)", name)
	}
	c := &cli{
		api:    client.New(apiURL, client.WithToken(token)),
		out:    out,
		asJSON: output == "json",
	}
	err := cmd.run(ctx, c, fs.Args()[1:])
	if errors.Is(err, client.ErrUnauthenticated) {
		return fmt.Errorf("%w: run `sitejoctl login` and export SITEJO_TOKEN", err)
	}
	var ue usageError
	if errors.As(err, &ue) {
		return usagef("%s\nusage: sitejoctl %s", ue.msg, cmd.usage)
	}
	return err
}

func envOr(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func printHelp(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, "sitejoctl: command-line client for the SiTeJo ticket service.\n\nUsage: sitejoctl [flags] <command> [args]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	slices.Sort(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %s\n", commands[n].usage)
	}
	fmt.Fprintf(w, "\nFlags:\n%s", fs.FlagUsages())
}

// subFlags parses command flags, allowing them before or after
// positional arguments, and checks the positional count.
func subFlags(name string, args []string, positional int, define func(*pflag.FlagSet)) ([]string, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if define != nil {
		define(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, usageError{err.Error()}
	}
	if fs.NArg() != positional {
		return nil, usagef("%s expects %d argument(s), got %d", name, positional, fs.NArg())
	}
	return fs.Args(), nil
}

func (c *cli) emit(v any, text func(w io.Writer)) error {
	if c.asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func cmdLogin(ctx context.Context, c *cli, args []string) error {
	pos, err := subFlags("login", args, 2, nil)
	if err != nil {
		return err
	}
	s, err := c.api.Login(ctx, pos[0], pos[1])
	if err != nil {
		return err
	}
	return c.emit(s, func(w io.Writer) {
		fmt.Fprintln(w, s.Token)
	})
}

func cmdMe(ctx context.Context, c *cli, args []string) error {
	if _, err := subFlags("me", args, 0, nil); err != nil {
		return err
	}
	u, err := c.api.Me(ctx)
	if err != nil {
		return err
	}
	return c.emit(u, func(w io.Writer) { printUser(w, u) })
}

func printUser(w io.Writer, u *models.User) {
	fmt.Fprintf(w, "ID:\t%s\nName:\t%s\nEmail:\t%s\nRole:\t%s\n", u.ID, u.Name, u.Email, u.Role)
	if u.Identifier != "" {
		fmt.Fprintf(w, "NIM/NIP:\t%s\n", u.Identifier)
	}
}

func cmdLecturers(ctx context.Context, c *cli, args []string) error {
	if _, err := subFlags("lecturers", args, 0, nil); err != nil {
		return err
	}
	list, err := c.api.Lecturers(ctx)
	if err != nil {
		return err
	}
	return c.emit(list, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tNIP")
		for _, l := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\n", l.ID, l.Name, l.Identifier)
		}
	})
}

func cmdTickets(ctx context.Context, c *cli, args []string) error {
	var o client.ListOptions
	_, err := subFlags("tickets", args, 0, func(fs *pflag.FlagSet) {
		fs.StringVar(&o.Status, "status", "", "filter by status")
		fs.StringVar(&o.Priority, "priority", "", "filter by priority")
		fs.StringVar(&o.Type, "type", "", "filter by ticket type")
		fs.StringVar(&o.Search, "search", "", "search title, description and number")
		fs.IntVar(&o.Page, "page", 0, "page number")
		fs.IntVar(&o.PerPage, "per-page", 0, "page size")
	})
	if err != nil {
		return err
	}
	list, err := c.api.ListTickets(ctx, o)
	if err != nil {
		return err
	}
	return c.emit(list, func(w io.Writer) {
		fmt.Fprintln(w, "NUMBER\tSTATUS\tPRIORITY\tTITLE\tID")
		for _, t := range list.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.Number, t.Status, t.Priority, t.Title, t.ID)
		}
		p := list.Pagination
		fmt.Fprintf(w, "page %d/%d, %d total\n", p.CurrentPage, p.LastPage, p.Total)
	})
}

func printTicket(w io.Writer, t *client.Ticket) {
	fmt.Fprintf(w, "Number:\t%s\nID:\t%s\nTitle:\t%s\nType:\t%s\nPriority:\t%s\nStatus:\t%s\n",
		t.Number, t.ID, t.Title, t.Type, t.Priority, t.Status)
	if t.Student != nil {
		fmt.Fprintf(w, "Student:\t%s\n", t.Student.Name)
	}
	if t.Lecturer != nil {
		fmt.Fprintf(w, "Lecturer:\t%s\n", t.Lecturer.Name)
	}
	for _, kv := range [][2]string{
		{"Lecturer notes", t.LecturerNotes},
		{"Rejection reason", t.RejectionReason},
		{"Admin notes", t.AdminNotes},
	} {
		if kv[1] != "" {
			fmt.Fprintf(w, "%s:\t%s\n", kv[0], kv[1])
		}
	}
	fmt.Fprintf(w, "Created:\t%s\n", t.CreatedAt.Local().Format(time.DateTime))
	if len(t.AllowedActions) > 0 {
		actions := make([]string, len(t.AllowedActions))
		for i, a := range t.AllowedActions {
			actions[i] = string(a)
		}
		fmt.Fprintf(w, "Actions:\t%s\n", strings.Join(actions, ", "))
	}
	if t.Description != "" {
		fmt.Fprintf(w, "\n%s\n", t.Description)
	}
}

func cmdShow(ctx context.Context, c *cli, args []string) error {
	pos, err := subFlags("show", args, 1, nil)
	if err != nil {
		return err
	}
	t, err := c.api.GetTicket(ctx, pos[0])
	if err != nil {
		return err
	}
	return c.emit(t, func(w io.Writer) { printTicket(w, t) })
}

func cmdCreate(ctx context.Context, c *cli, args []string) error {
	var in client.NewTicket
	_, err := subFlags("create", args, 0, func(fs *pflag.FlagSet) {
		fs.StringVar(&in.Title, "title", "", "ticket title")
		fs.StringVar(&in.Description, "description", "", "ticket description")
		fs.StringVar(&in.Type, "type", "", "ticket type")
		fs.StringVar(&in.Priority, "priority", "", "low, medium or high")
		fs.StringVar(&in.LecturerID, "lecturer", "", "lecturer id (see `lecturers`)")
	})
	if err != nil {
		return err
	}
	t, err := c.api.CreateTicket(ctx, in)
	if err != nil {
		return err
	}
	return c.emit(t, func(w io.Writer) { printTicket(w, t) })
}

func cmdEdit(ctx context.Context, c *cli, args []string) error {
	var title, desc, typ, prio string
	var fs *pflag.FlagSet
	pos, err := subFlags("edit", args, 1, func(f *pflag.FlagSet) {
		fs = f
		f.StringVar(&title, "title", "", "new title")
		f.StringVar(&desc, "description", "", "new description")
		f.StringVar(&typ, "type", "", "new ticket type")
		f.StringVar(&prio, "priority", "", "new priority")
	})
	if err != nil {
		return err
	}
	var in client.TicketEdit
	if fs.Changed("title") {
		in.Title = &title
	}
	if fs.Changed("description") {
		in.Description = &desc
	}
	if fs.Changed("type") {
		in.Type = &typ
	}
	if fs.Changed("priority") {
		in.Priority = &prio
	}
	t, err := c.api.EditTicket(ctx, pos[0], in)
	if err != nil {
		return err
	}
	return c.emit(t, func(w io.Writer) { printTicket(w, t) })
}

func transition(action lifecycle.Action) func(context.Context, *cli, []string) error {
	return func(ctx context.Context, c *cli, args []string) error {
		var p lifecycle.Payload
		pos, err := subFlags(string(action), args, 1, func(fs *pflag.FlagSet) {
			if action == lifecycle.ActionReject {
				fs.StringVar(&p.Reason, "reason", "", "rejection reason (required)")
				return
			}
			fs.StringVar(&p.Notes, "notes", "", "notes for the student")
		})
		if err != nil {
			return err
		}

		me, err := c.api.Me(ctx)
		if err != nil {
			return err
		}
		current, err := c.api.GetTicket(ctx, pos[0])
		if err != nil {
			return err
		}
		if _, err := lifecycle.Decide(current.Ticket, lifecycle.Actor{ID: me.ID, Role: me.Role}, action, p, time.Now()); err != nil {
			return err
		}

		t, err := c.api.Transition(ctx, pos[0], action, p)
		if err != nil {
			return err
		}
		return c.emit(t, func(w io.Writer) {
			fmt.Fprintf(w, "%s is now %s\n", t.Number, t.Status)
		})
	}
}

func cmdDelete(ctx context.Context, c *cli, args []string) error {
	pos, err := subFlags("delete", args, 1, nil)
	if err != nil {
		return err
	}
	if err := c.api.DeleteTicket(ctx, pos[0]); err != nil {
		return err
	}
	return c.emit(map[string]string{"deleted": pos[0]}, func(w io.Writer) {
		fmt.Fprintf(w, "deleted %s\n", pos[0])
	})
}

func cmdStats(ctx context.Context, c *cli, args []string) error {
	if _, err := subFlags("stats", args, 0, nil); err != nil {
		return err
	}
	s, err := c.api.Statistics(ctx)
	if err != nil {
		return err
	}
	return c.emit(s, func(w io.Writer) {
		fmt.Fprintf(w, "TOTAL\t%d\n", s.Total)
		for _, st := range models.Statuses {
			fmt.Fprintf(w, "%s\t%d\n", st, s.ByStatus[st])
		}
		for _, p := range models.Priorities {
			fmt.Fprintf(w, "priority %s\t%d\n", p, s.ByPriority[p])
		}
	})
}

func cmdDocs(ctx context.Context, c *cli, args []string) error {
	pos, err := subFlags("docs", args, 1, nil)
	if err != nil {
		return err
	}
	docs, err := c.api.ListDocuments(ctx, pos[0])
	if err != nil {
		return err
	}
	return c.emit(docs, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tTYPE\tSIZE\tNAME")
		for _, d := range docs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", d.ID, d.DocumentType, d.Size, d.FileName)
		}
	})
}

func cmdUpload(ctx context.Context, c *cli, args []string) error {
	var docType string
	pos, err := subFlags("upload", args, 2, func(fs *pflag.FlagSet) {
		fs.StringVar(&docType, "type", "", "document type tag")
	})
	if err != nil {
		return err
	}
	f, err := os.Open(pos[1])
	if err != nil {
		return err
	}
	defer f.Close()
	d, err := c.api.Upload(ctx, pos[0], filepath.Base(pos[1]), docType, f)
	if err != nil {
		return err
	}
	return c.emit(d, func(w io.Writer) {
		fmt.Fprintf(w, "uploaded %s (%d bytes, blake3 %s)\n", d.ID, d.Size, d.Checksum)
	})
}

func cmdDownload(ctx context.Context, c *cli, args []string) error {
	pos, err := subFlags("download", args, 2, nil)
	if err != nil {
		return err
	}
	tmp := pos[1] + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	got, err := c.api.Download(ctx, pos[0], f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, pos[1]); err != nil {
		return err
	}
	return c.emit(got, func(w io.Writer) {
		fmt.Fprintf(w, "saved %s (%d bytes)\n", pos[1], got.Size)
	})
}

func cmdRemoveDocument(ctx context.Context, c *cli, args []string) error {
	pos, err := subFlags("rm-doc", args, 1, nil)
	if err != nil {
		return err
	}
	if err := c.api.DeleteDocument(ctx, pos[0]); err != nil {
		return err
	}
	return c.emit(map[string]string{"deleted": pos[0]}, func(w io.Writer) {
		fmt.Fprintf(w, "deleted document %s\n", pos[0])
	})
}

// exitCode lets scripts tell failure kinds apart.
func exitCode(err error) int {
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return 3
	case apperr.KindUnauthorized:
		return 4
	case apperr.KindNotFound:
		return 5
	case apperr.KindInvalidTransition:
		return 6
	default:
		return 1
	}
}
