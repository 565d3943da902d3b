package cli

import (
	"bufio"
	"fmt"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/remote"
	"github.com/dmitrijs2005/finnysync/internal/client/services"
	"github.com/spf13/cobra"
)

func (r *runner) loginCmd() *cobra.Command {
	var (
		token   string
		refresh string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the API credential",
		Long: "Store the bearer token used for remote calls. Without --token the\n" +
			"token is read from the terminal without echo.",
		Args: cobra.NoArgs,
		RunE: r.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			out := cmd.OutOrStdout()
			in := cmd.InOrStdin()
			rd := bufio.NewReader(in)
			prompted := token == ""
			if prompted {
				pw, err := GetSecret(rd, in, out, "Access token: ")
				if err != nil {
					return err
				}
				token = string(pw)
			}
			if prompted && !cmd.Flags().Changed("refresh-token") {
				s, err := GetSimpleText(rd, "Refresh token (empty to skip)", out)
				if err == nil {
					refresh = s
				}
			}
			if err := app.Auth.Login(cmd.Context(), remote.Tokens{AccessToken: token, RefreshToken: refresh}); err != nil {
				return err
			}
			_, err := fmt.Fprintln(out, "logged in")
			return err
		}),
	}
	cmd.Flags().StringVar(&token, "token", "", "access token")
	cmd.Flags().StringVar(&refresh, "refresh-token", "", "refresh token")
	return cmd
}

func (r *runner) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: r.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			if err := app.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return err
		}),
	}
}

func authLabel(s services.AuthStatus, now time.Time) string {
	switch {
	case !s.LoggedIn:
		return "logged out"
	case s.Expired(now) && s.HasRefresh:
		return "token expired, will refresh"
	case s.Expired(now):
		return "token expired"
	case !s.ExpiresAt.IsZero():
		return "logged in until " + s.ExpiresAt.Local().Format(time.DateTime)
	default:
		return "logged in"
	}
}
