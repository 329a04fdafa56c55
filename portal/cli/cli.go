// Package cli is the portal console: a cobra command tree over the session,
// catalog and circulation services.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Astemirdum/library-portal/portal/internal/catalog"
	"github.com/Astemirdum/library-portal/portal/internal/circulation"
	"github.com/Astemirdum/library-portal/portal/internal/session"
)

// Sessions is the part of session.Manager the console drives.
type Sessions interface {
	CurrentSession(ctx context.Context) (*session.Session, bool)
	Login(ctx context.Context, identifier, secret string) (session.Session, error)
	Register(ctx context.Context, identifier, secret string) (session.Session, error)
	Logout(ctx context.Context) error
	RequestPasswordReset(ctx context.Context, identifier string) (string, error)
	ResetPassword(ctx context.Context, token, newSecret string) error
}

type App struct {
	sessions    Sessions
	catalog     *catalog.Cache
	circulation *circulation.Service
	log         *zap.Logger

	in  *bufio.Reader
	out io.Writer
	tty bool
	// secret reads a password; the default disables echo on a terminal.
	secret func(prompt string) (string, error)

	sess *session.Session
}

type Option func(a *App)

func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.in = bufio.NewReader(in)
		a.out = out
		a.tty = false
	}
}

func NewApp(sessions Sessions, cat *catalog.Cache, circ *circulation.Service, log *zap.Logger, opts ...Option) *App {
	a := &App{
		sessions:    sessions,
		catalog:     cat,
		circulation: circ,
		log:         log.Named("cli"),
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		tty:         true,
	}
	a.secret = a.readSecret
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *App) readSecret(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	fd := int(os.Stdin.Fd())
	if a.tty && term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(a.out)
		if err != nil {
			return "", errors.Wrap(err, "read password")
		}
		return string(b), nil
	}
	return a.readLine()
}

func (a *App) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" && errors.Is(err, io.EOF) {
		return "", io.ErrUnexpectedEOF
	}
	return line, nil
}

const (
	rolesKey = "roles"
	// guest commands are for visitors without a session.
	guest = "GUEST"
)

var (
	readerRoles = []session.Role{session.RoleReader}
	staffRoles  = []session.Role{session.RoleLibrarian, session.RoleAdmin}
)

func requireRoles(cmd *cobra.Command, roles ...session.Role) *cobra.Command {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	return annotate(cmd, strings.Join(names, ","))
}

func annotate(cmd *cobra.Command, value string) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[rolesKey] = value
	return cmd
}

// declaredRoles returns the nearest role annotation up the command tree.
func declaredRoles(cmd *cobra.Command) (string, bool) {
	for c := cmd; c != nil; c = c.Parent() {
		if v, ok := c.Annotations[rolesKey]; ok {
			return v, true
		}
	}
	return "", false
}

// RedirectError is returned when the session may not run a command.
type RedirectError struct {
	Target string
	// SignedIn marks a visitor-only command refused to a signed-in user.
	SignedIn bool
}

func (e *RedirectError) Error() string {
	return "redirect to " + e.Target
}

// authorize loads the session and checks it against the command's roles.
func (a *App) authorize(cmd *cobra.Command, _ []string) error {
	sess, ok := a.sessions.CurrentSession(cmd.Context())
	if ok {
		a.sess = sess
	} else {
		a.sess = nil
	}
	declared, ok := declaredRoles(cmd)
	if !ok {
		return nil
	}

	var d session.Decision
	if declared == guest {
		d = session.RedirectIfAuthenticated(a.sess)
	} else {
		var roles []session.Role
		for _, r := range strings.Split(declared, ",") {
			roles = append(roles, session.Role(r))
		}
		d = session.Authorize(a.sess, roles...)
	}
	if !d.Allowed {
		a.log.Debug("denied", zap.String("command", cmd.CommandPath()), zap.String("redirect", d.Redirect))
		return &RedirectError{Target: d.Redirect, SignedIn: declared == guest}
	}
	return nil
}

func (a *App) Root() *cobra.Command {
	root := &cobra.Command{
		Use:               "portal",
		Short:             "Library portal console",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.authorize,
	}
	root.AddCommand(a.authCommands()...)
	root.AddCommand(a.readerCommands()...)
	root.AddCommand(a.staffCommand())
	return root
}

// Execute runs the command line and prints failures as user-facing messages.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.Root()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.out)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(a.out, Message(err, ""))
	}
	return err
}
