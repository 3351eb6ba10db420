package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/xsd"
)

var xsdPath string

var validateCmd = &cobra.Command{
	Use:   "validate <cfdi.xml>...",
	Short: "Valida uno o más XML contra el esquema XSD",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&xsdPath, "xsd", "", "Esquema XSD (por defecto STORAGE_XSD_PATH)")
	rootCmd.AddCommand(validateCmd)
}

type validationResult struct {
	File   string `json:"file"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := xsdPath
	if path == "" {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		path = conf.Storage.XSDPath
	}
	if path == "" {
		return fmt.Errorf("indique el esquema con --xsd o STORAGE_XSD_PATH")
	}
	v, err := xsd.NewValidator(path)
	if err != nil {
		return err
	}
	defer xsd.Cleanup()
	defer v.Close()

	results := make([]validationResult, 0, len(args))
	invalid := 0
	for _, file := range args {
		r := validationResult{File: file, Valid: true}
		data, err := readInput(cmd, file)
		if err == nil {
			err = v.Validate(data)
		}
		if err != nil {
			r.Valid = false
			r.Reason = err.Error()
			invalid++
		}
		results = append(results, r)
	}

	if outputFormat == "json" {
		if err := printJSON(cmd, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: VALID\n", r.File)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "✗ %s: INVALID\n  %s\n", r.File, r.Reason)
			}
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%d de %d archivos no cumplen el esquema", invalid, len(args))
	}
	return nil
}
