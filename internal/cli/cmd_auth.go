package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/typicalmohit/tinku-ji/internal/session"
	"github.com/typicalmohit/tinku-ji/internal/storage"
)

type userOutput struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	CountryCode string `json:"country_code,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Address     string `json:"address,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Birthday    string `json:"birthday,omitempty"`
	Image       string `json:"image,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toUserOutput(user *storage.User) userOutput {
	return userOutput{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		CountryCode: derefString(user.CountryCode),
		PhoneNumber: derefString(user.PhoneNumber),
		Address:     derefString(user.Address),
		Gender:      derefString(user.Gender),
		Birthday:    derefString(user.Birthday),
		Image:       derefString(user.Image),
		CreatedAt:   user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func printUser(deps commandDeps, user *storage.User) error {
	if deps.globals.JSON {
		return printJSON(deps.out, toUserOutput(user))
	}
	if deps.globals.Quiet {
		return nil
	}
	_, err := fmt.Fprintf(deps.out, "%s <%s> id=%s\n", user.Name, user.Email, user.ID)
	return err
}

func newSignUpCommand(deps commandDeps) *cobra.Command {
	var (
		email         string
		name          string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:     "signup",
		Short:   "Create an account and sign in",
		Example: "  printf 'secret\\n' | tinkuji signup --email asha@example.com --name Asha --password-stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("signup does not accept positional arguments")
			}
			if strings.TrimSpace(email) == "" {
				return usageErrorf("signup requires --email")
			}
			if strings.TrimSpace(name) == "" {
				return usageErrorf("signup requires --name")
			}
			password, err := readPassword(cmd.InOrStdin(), passwordStdin, "Password")
			if err != nil {
				return mapCommandError(err)
			}
			defer password.Destroy()

			return withRuntime(cmd.Context(), deps, func(ctx context.Context, env *runtimeEnv) error {
				user, err := env.session.SignUp(ctx, email, password.Bytes(), name)
				if err != nil {
					return err
				}
				return printUser(deps, user)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newSignInCommand(deps commandDeps) *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("signin does not accept positional arguments")
			}
			if strings.TrimSpace(email) == "" {
				return usageErrorf("signin requires --email")
			}
			password, err := readPassword(cmd.InOrStdin(), passwordStdin, "Password")
			if err != nil {
				return mapCommandError(err)
			}
			defer password.Destroy()

			return withRuntime(cmd.Context(), deps, func(ctx context.Context, env *runtimeEnv) error {
				user, err := env.session.SignIn(ctx, email, password.Bytes())
				if err != nil {
					return err
				}
				return printUser(deps, user)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newSignOutCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("signout does not accept positional arguments")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, env *runtimeEnv) error {
				if err := env.session.SignOut(ctx); err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, map[string]any{"signed_out": true})
				}
				if deps.globals.Quiet {
					return nil
				}
				_, err := fmt.Fprintln(deps.out, "signed out")
				return err
			})
		},
	}
}

func newWhoAmICommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("whoami does not accept positional arguments")
			}
			return withRuntime(cmd.Context(), deps, func(_ context.Context, env *runtimeEnv) error {
				user, ok := env.session.Profile()
				if !ok {
					return session.ErrNotSignedIn
				}
				return printUser(deps, user)
			})
		},
	}
}
