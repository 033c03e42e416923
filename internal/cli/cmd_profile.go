package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/typicalmohit/tinku-ji/internal/session"
	"github.com/typicalmohit/tinku-ji/internal/storage"
)

func newProfileCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Profile of the signed-in user",
	}
	cmd.AddCommand(newProfileUpdateCommand(deps))
	return cmd
}

func newProfileUpdateCommand(deps commandDeps) *cobra.Command {
	var (
		sets          []string
		image         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields and picture",
		Example: "  tinkuji profile update --set address='12 MG Road' --set birthday=1990-04-01\n" +
			"  tinkuji profile update --image ./me.jpg\n" +
			"  printf 'new\\n' | tinkuji profile update --password-stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("profile update does not accept positional arguments")
			}
			patch, err := parseSetFlags(sets)
			if err != nil {
				return err
			}
			if patch.Has("password") {
				return usageErrorf("use --password-stdin to change the password")
			}

			update := session.ProfileUpdate{Patch: patch}
			if strings.TrimSpace(image) != "" {
				update.NewImage = &image
			}
			if passwordStdin {
				password, err := readPassword(cmd.InOrStdin(), true, "New password")
				if err != nil {
					return mapCommandError(err)
				}
				defer password.Destroy()
				update.Patch = update.Patch.Set("password", password.Bytes())
			}
			if len(update.Patch) == 0 && update.NewImage == nil {
				return usageErrorf("profile update requires --set, --image or --password-stdin")
			}

			return withRuntime(cmd.Context(), deps, func(ctx context.Context, env *runtimeEnv) error {
				user, err := env.session.UpdateProfile(ctx, update)
				if err != nil {
					return err
				}
				return printUser(deps, user)
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Profile column=value (repeatable; value null clears)")
	cmd.Flags().StringVar(&image, "image", "", "New profile picture file")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read a new password from stdin")
	return cmd
}

func newPhoneCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phone",
		Short: "Phone numbers of the signed-in user",
	}
	cmd.AddCommand(
		newPhoneAddCommand(deps),
		newPhoneListCommand(deps),
		newPhoneDeleteCommand(deps),
	)
	return cmd
}

func parsePhoneType(raw string) (storage.PhoneType, error) {
	for _, t := range []storage.PhoneType{storage.PhoneTypePrimary, storage.PhoneTypeSecondary, storage.PhoneTypeOther} {
		if strings.EqualFold(strings.TrimSpace(raw), string(t)) {
			return t, nil
		}
	}
	return "", usageErrorf("--type must be Primary, Secondary or Other")
}

func newPhoneAddCommand(deps commandDeps) *cobra.Command {
	var (
		countryCode string
		number      string
		phoneType   string
	)

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a phone number",
		Example: "  tinkuji phone add --country-code +91 --number 9876543210 --type primary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("phone add does not accept positional arguments")
			}
			if strings.TrimSpace(countryCode) == "" || strings.TrimSpace(number) == "" {
				return usageErrorf("phone add requires --country-code and --number")
			}
			typ, err := parsePhoneType(phoneType)
			if err != nil {
				return err
			}

			return withRuntime(cmd.Context(), deps, func(ctx context.Context, env *runtimeEnv) error {
				phone, err := env.session.AddPhone(ctx, countryCode, number, typ)
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, phone)
				}
				if deps.globals.Quiet {
					return nil
				}
				_, err = fmt.Fprintf(deps.out, "added %s %s %s id=%s\n", phone.PhoneType, phone.CountryCode, phone.PhoneNumber, phone.ID)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&countryCode, "country-code", "", "Country calling code, e.g. +91")
	cmd.Flags().StringVar(&number, "number", "", "Phone number")
	cmd.Flags().StringVar(&phoneType, "type", string(storage.PhoneTypeOther), "Primary, Secondary or Other")
	return cmd
}

func newPhoneListCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List phone numbers, Primary first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("phone list does not accept positional arguments")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, env *runtimeEnv) error {
				phones, err := env.session.Phones(ctx)
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, phones)
				}
				if deps.globals.Quiet {
					return nil
				}
				for _, phone := range phones {
					if _, err := fmt.Fprintf(deps.out, "%s\t%s %s\t%s\n", phone.PhoneType, phone.CountryCode, phone.PhoneNumber, phone.ID); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newPhoneDeleteCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a phone number",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("phone delete requires exactly one phone id")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, env *runtimeEnv) error {
				if err := env.session.DeletePhone(ctx, args[0]); err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, map[string]any{"deleted": args[0]})
				}
				if deps.globals.Quiet {
					return nil
				}
				_, err := fmt.Fprintf(deps.out, "deleted phone %s\n", args[0])
				return err
			})
		},
	}
}
