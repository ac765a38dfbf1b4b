// Command hostelctl is a non-interactive companion to hostelhub. It shares
// the same configuration and local session.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss/table"
	"go.uber.org/zap"

	"github.com/notepid/hostelhub/internal/api"
	"github.com/notepid/hostelhub/internal/app"
	"github.com/notepid/hostelhub/internal/session"
)

const usage = `usage: hostelctl [-config path] <command> [args]

commands:
  login [-email addr]            sign in (prompts for anything missing)
  logout                         forget the stored session
  whoami                         show the signed-in user
  inbox                          list conversations with unread counts
  read <conversation>            print a conversation and mark it read
  send [-file p,...] <conversation> <text>
                                 post a message
  hostels                        list hostels
`

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	a, cleanup, err := app.New(*configPath, app.WithoutPolling())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	err = run(a, flag.Args(), os.Stdout)
	cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, "hostelctl:", err)
		os.Exit(1)
	}
}

func run(a *app.App, args []string, out io.Writer) error {
	ctx, cancel := context.WithTimeout(a.Context(), 2*time.Minute)
	defer cancel()

	cmd, rest := args[0], args[1:]

	// Commands that need a session check for one themselves; a failed
	// verification leaves either an offline session or none.
	if cmd != "login" && cmd != "logout" {
		if err := a.Restore(ctx); err != nil {
			a.Log.Warn("restore session", zap.Error(err))
		}
	}

	switch cmd {
	case "login":
		return login(ctx, a, rest, out)
	case "logout":
		a.Session.Logout()
		fmt.Fprintln(out, "signed out")
		return nil
	case "whoami":
		return whoami(a, out)
	case "inbox":
		return inbox(ctx, a, out)
	case "read":
		return read(ctx, a, rest, out)
	case "send":
		return send(ctx, a, rest, out)
	case "hostels":
		return hostels(ctx, a, out)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func login(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var password string
	fields := []huh.Field{}
	if *email == "" {
		fields = append(fields, huh.NewInput().Title("Email").Value(email))
	}
	fields = append(fields, huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password))
	if err := huh.NewForm(huh.NewGroup(fields...)).RunWithContext(ctx); err != nil {
		return err
	}

	u, err := a.Session.Login(ctx, api.Credentials{Email: *email, Password: password})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "signed in as %s (%s)\n", u.Name, session.ParseRole(u.Role))
	return nil
}

func whoami(a *app.App, out io.Writer) error {
	st := a.Session.Snapshot()
	if !st.Authenticated() {
		return errNotSignedIn
	}
	status := "verified"
	if !st.Confirmed {
		status = "offline, not verified"
	}
	fmt.Fprintf(out, "%s <%s> %s [%s]\n", st.User.Name, st.User.Email, st.Role(), status)
	return nil
}

var errNotSignedIn = errors.New("not signed in; run hostelctl login")

func inbox(ctx context.Context, a *app.App, out io.Writer) error {
	if !a.Session.Snapshot().Authenticated() {
		return errNotSignedIn
	}
	if err := a.Messages.Refresh(ctx); err != nil {
		return err
	}

	t := table.New().Headers("ID", "WITH", "HOSTEL", "UNREAD", "LAST MESSAGE")
	for _, c := range a.Messages.Conversations() {
		hostel := ""
		if c.Listing != nil {
			hostel = c.Listing.Name
		}
		t.Row(strconv.Itoa(c.ID), c.OtherParty.Name, hostel, strconv.Itoa(c.UnreadCount), oneLine(c.LastMessage, 50))
	}
	fmt.Fprintln(out, t.Render())
	fmt.Fprintf(out, "%d unread\n", a.Messages.Unread())
	return nil
}

func read(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("read needs a conversation id")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid conversation id %q", args[0])
	}
	if !a.Session.Snapshot().Authenticated() {
		return errNotSignedIn
	}

	// Refresh first so Open knows the unread count and marks it read.
	_ = a.Messages.Refresh(ctx)
	msgs, err := a.Messages.Open(ctx, id)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		fmt.Fprintf(out, "[%s] #%d: %s\n", m.CreatedAt.Local().Format("2006-01-02 15:04"), m.SenderID, m.Content)
		for _, att := range m.Attachments {
			fmt.Fprintf(out, "    attachment: %s %s\n", att.Name, att.URL)
		}
	}
	return nil
}

func send(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	files := fs.String("file", "", "comma-separated paths to attach")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("send needs a conversation id")
	}
	id, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid conversation id %q", fs.Arg(0))
	}
	if !a.Session.Snapshot().Authenticated() {
		return errNotSignedIn
	}

	var paths []string
	for _, p := range strings.Split(*files, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	msg, err := a.Messages.Send(ctx, id, strings.Join(fs.Args()[1:], " "), paths)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "sent message %d\n", msg.ID)
	return nil
}

func hostels(ctx context.Context, a *app.App, out io.Writer) error {
	hs, err := a.API.ListHostels(ctx, a.Session.Token())
	if err != nil {
		return err
	}
	t := table.New().Headers("ID", "NAME", "LOCATION", "PRICE", "ROOMS")
	for _, h := range hs {
		t.Row(strconv.Itoa(h.ID), h.Name, h.Location, fmt.Sprintf("%.2f", h.Price), strconv.Itoa(h.RoomsAvailable))
	}
	fmt.Fprintln(out, t.Render())
	return nil
}

func oneLine(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
