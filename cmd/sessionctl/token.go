package main

import (
	"fmt"
	"time"

	"github.com/paperloop/paperloop-backend/pkg/actor"
	"github.com/paperloop/paperloop-backend/pkg/auth"
	"github.com/paperloop/paperloop-backend/pkg/errors"
	"github.com/spf13/cobra"
)

// tokenOutput is the structured form of an issued token
type tokenOutput struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
}

func tokenCmd(a *app) *cobra.Command {
	var who actor.Actor
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for the collection API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if who.ID == "" {
				return errors.BadRequest("--user-id is required")
			}

			token, expiresAt, err := auth.NewManager(&a.cfg.JWT).Issue(who)
			if err != nil {
				return err
			}

			out := tokenOutput{Token: token, ExpiresAt: expiresAt, UserID: who.ID, Role: who.Role}
			return a.render(out, func() {
				fmt.Fprintln(a.out, token)
			})
		},
	}
	cmd.Flags().StringVar(&who.ID, "user-id", "", "user id (sub claim)")
	cmd.Flags().StringVar(&who.Name, "name", "", "display name")
	cmd.Flags().StringVar(&who.Email, "email", "", "email address")
	cmd.Flags().StringVar(&who.Role, "role", "coordinator", "role; permissions follow the role")
	return cmd
}
