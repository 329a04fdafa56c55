package cli

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Astemirdum/library-portal/portal/internal/session"
)

var errMismatch = errors.New("Пароли не совпадают")

func (a *App) authCommands() []*cobra.Command {
	return []*cobra.Command{
		annotate(a.loginCommand(), guest),
		annotate(a.registerCommand(), guest),
		annotate(a.forgotCommand(), guest),
		annotate(a.resetCommand(), guest),
		a.logoutCommand(),
		a.whoamiCommand(),
	}
}

func (a *App) identifier(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	fmt.Fprint(a.out, "Email: ")
	return a.readLine()
}

// newSecret asks for a password twice.
func (a *App) newSecret() (string, error) {
	pw, err := a.secret("Пароль: ")
	if err != nil {
		return "", err
	}
	again, err := a.secret("Повторите пароль: ")
	if err != nil {
		return "", err
	}
	if pw != again {
		return "", errMismatch
	}
	return pw, nil
}

func (a *App) welcome(s session.Session) {
	fmt.Fprintf(a.out, "Вход выполнен: %s (%s). Ваш раздел: %s\n",
		s.User.Identifier, s.User.Role, session.LandingArea(s.User.Role))
}

func (a *App) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login [email]",
		Short: "Sign in",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.identifier(args)
			if err != nil {
				return err
			}
			pw, err := a.secret("Пароль: ")
			if err != nil {
				return err
			}
			s, err := a.sessions.Login(cmd.Context(), id, pw)
			if err != nil {
				return err
			}
			a.welcome(s)
			return nil
		},
	}
}

func (a *App) registerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register [email]",
		Short: "Create a reader account and sign in",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.identifier(args)
			if err != nil {
				return err
			}
			pw, err := a.newSecret()
			if err != nil {
				return err
			}
			s, err := a.sessions.Register(cmd.Context(), id, pw)
			if err != nil {
				return err
			}
			a.welcome(s)
			return nil
		},
	}
}

func (a *App) forgotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password [email]",
		Short: "Request a password reset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.identifier(args)
			if err != nil {
				return err
			}
			token, err := a.sessions.RequestPasswordReset(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Если такой email зарегистрирован, ссылка для сброса отправлена.")
			if token != "" {
				fmt.Fprintf(a.out, "Токен сброса: %s\n", token)
			}
			return nil
		},
	}
}

func (a *App) resetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <token>",
		Short: "Set a new password with a reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(args[0])
			pw, err := a.newSecret()
			if err != nil {
				return err
			}
			if err := a.sessions.ResetPassword(cmd.Context(), token, pw); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Пароль изменён. Войдите с новым паролем.")
			return nil
		},
	}
}

func (a *App) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.sessions.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Вы вышли.")
			return nil
		},
	}
}

func (a *App) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if a.sess == nil {
				fmt.Fprintln(a.out, "Гость")
				return nil
			}
			u := a.sess.User
			fmt.Fprintf(a.out, "%s\t%s\t%s\t%s\n", u.ID, u.Identifier, u.Role, session.LandingArea(u.Role))
			return nil
		},
	}
}
