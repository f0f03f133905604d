package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"adaptive-view-backend/internal/prediction"
)

func newPredictCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "predict [file|-]",
		Short: "Predict for one JSON snapshot read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			in, err := openInput(path, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer in.Close()

			body, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("reading snapshot: %w", err)
			}

			registry, err := app.registry()
			if err != nil {
				return fmt.Errorf("loading models: %w", err)
			}
			res, err := prediction.New(registry, app.Logger).Predict(cmd.Context(), body)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if app.IsTerminal != nil && app.IsTerminal() {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(res)
		},
	}
}
