package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"adaptive-view-backend/internal/auth"
)

func newTokenCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a bearer token for /predict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("user id must be an integer, got %q", args[0])
			}
			tok, err := auth.GenerateToken([]byte(app.Config.JWTSecret), userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
}
