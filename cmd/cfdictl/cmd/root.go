package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/pkg/config"
	"github.com/jhoicas/cfdi-timbrado/pkg/logger"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	configDir    string

	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cfdictl",
	Short: "Sellado, timbrado y cancelación de CFDI desde la terminal",
	Long: `cfdictl opera con la misma configuración que la API (variables de entorno,
.env y .env.<APP_ENV>) sin pasar por la base de datos.

Ejemplos:
  # Sellar una solicitud JSON y guardar el XML
  cfdictl sign solicitud.json -o factura.xml

  # Sellar y timbrar con el PAC de pruebas
  cfdictl stamp solicitud.json --provider test -o timbrado.xml

  # Cancelar un comprobante timbrado
  cfdictl cancel timbrado.xml --motivo 02

  # Revisar un XML y su sello
  cfdictl inspect timbrado.xml`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		log = logger.New(logger.Config{Env: "development", Level: level, Service: "cfdictl", Out: cmd.ErrOrStderr()}).Zerolog()
		return nil
	},
}

// Execute ejecuta el comando raíz.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Salida detallada en stderr")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "text", "Formato de salida (text, json)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directorio con .env y config.env")
}

// loadConfig lee la configuración una sola vez por ejecución.
func loadConfig() (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := config.LoadDir(configDir)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

func issuerFrom(c *config.Config) cfdi.Issuer {
	return cfdi.Issuer{
		Rfc:             c.Issuer.Rfc,
		Nombre:          c.Issuer.Nombre,
		RegimenFiscal:   c.Issuer.RegimenFiscal,
		LugarExpedicion: c.Issuer.LugarExpedicion,
		Version:         c.Issuer.Version,
		Test:            c.Issuer.Test,
	}
}

// readInput lee path o stdin cuando path es "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// writeOutput escribe en path o en stdout cuando path está vacío.
func writeOutput(cmd *cobra.Command, path, data string) error {
	if path == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), data)
		return err
	}
	return os.WriteFile(path, []byte(data), 0o644)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printVerbose(cmd *cobra.Command, format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
	}
}
