package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"adaptive-view-backend/internal/dataset"
	"adaptive-view-backend/internal/prediction"
)

func newEngineerCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "engineer <raw.csv|-> <engineered.csv>",
		Short: "Turn a raw dataset into the engineered feature layout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer in.Close()

			out, err := os.Create(args[1])
			if err != nil {
				return err
			}

			st, err := dataset.Engineer(in, out, app.Logger)
			if cerr := out.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("engineering %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), st)
			return nil
		},
	}
}

func newEvaluateCmd(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "evaluate <labelled.csv|->",
		Short: "Score the configured classifiers against a labelled raw dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer in.Close()

			registry, err := app.registry()
			if err != nil {
				return fmt.Errorf("loading models: %w", err)
			}

			rep, err := dataset.Evaluate(cmd.Context(), in, prediction.New(registry, app.Logger), app.Logger)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			_, err = rep.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
