package main

import (
	"encoding/json"
	"fmt"

	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/infrastructure/toolchain"
	"github.com/ev-tile-publisher/internal/usecase"
	"github.com/spf13/cobra"
)

func newConvertCmd(e *env) *cobra.Command {
	var stage, out string

	cmd := &cobra.Command{
		Use:   "convert <gpkg>",
		Short: "Convert a single GeoPackage",
		Long: `Convert one GeoPackage to a PMTiles archive. --stage selects the
column slice and geometry settings from the catalog; an unknown stage keeps
every column. The tile layer is named after the output file stem, which the
viewer uses as source-layer. --out defaults to the output directory plus the
stage id, or the input stem when no stage is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]

			runner := toolchain.NewExecRunner(e.log, e.cfg.Pipeline.ToolTimeout)
			conversionUC := usecase.NewConversionUseCase(
				e.catalog,
				toolchain.NewGDAL(runner, e.cfg.Pipeline.Ogr2OgrPath, e.log),
				toolchain.NewTippecanoe(runner, e.cfg.Pipeline.TippecanoePath, e.log),
				e.cfg.Pipeline,
				e.log,
			)

			result := conversionUC.Convert(cmd.Context(), conversionUC.ItemForFile(input, stage, out))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if result.Status == domain.StatusFailed {
				return fmt.Errorf("convert %s: %s", input, result.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&stage, "stage", "", "catalog stage id")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output archive path")
	return cmd
}
