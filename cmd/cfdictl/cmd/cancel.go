package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/cfdi-timbrado/internal/domain/entity"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/pac"
	"github.com/jhoicas/cfdi-timbrado/pkg/sat"
)

var (
	cancelMotivo           string
	cancelFolioSustitucion string
	cancelTest             bool
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <cfdi.xml>",
	Short: "Solicita la cancelación de un comprobante timbrado",
	Long: `Lee el XML timbrado y solicita la cancelación al PAC que lo timbró (según
RfcProvCertif). Los timbres de prueba se cancelan localmente.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func init() {
	cancelCmd.Flags().StringVarP(&cancelMotivo, "motivo", "m", sat.MotivoNoSeLlevoACabo, "Motivo de cancelación (01, 02, 03, 04)")
	cancelCmd.Flags().StringVar(&cancelFolioSustitucion, "folio-sustitucion", "", "UUID que sustituye al comprobante (motivo 01)")
	cancelCmd.Flags().BoolVar(&cancelTest, "test", false, "El comprobante es de pruebas")
	rootCmd.AddCommand(cancelCmd)
}

type cancelSummary struct {
	UUID    string `json:"uuid"`
	OK      bool   `json:"ok"`
	State   string `json:"state"`
	Message string `json:"message"`
}

func runCancel(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	folio := strings.ToUpper(strings.TrimSpace(cancelFolioSustitucion))
	if err := sat.ValidateMotivoCancelacion(cancelMotivo, folio); err != nil {
		return err
	}
	data, err := readInput(cmd, args[0])
	if err != nil {
		return fmt.Errorf("leer XML: %w", err)
	}
	inv, err := entity.FromXML(string(data))
	if err != nil {
		return err
	}
	inv.Test = cancelTest
	c, err := inv.Comprobante()
	if err != nil {
		return err
	}

	creds := pac.CredentialsFromConfig(conf.PAC)
	dispatcher := pac.NewCancelDispatcher(log, nil, pac.Routes(creds), pac.NewProviders(creds, nil)...)

	ctx, cancel := context.WithTimeout(cmd.Context(), pac.RESTTimeout+15*time.Second)
	defer cancel()
	res, err := dispatcher.Cancel(ctx, c, pac.CancelRequest{Motivo: cancelMotivo, FolioSustitucion: folio})
	if err != nil {
		return err
	}

	summary := cancelSummary{UUID: c.Timbre.UUID, OK: res.OK, State: string(c.State), Message: res.Message}
	if outputFormat == "json" {
		if err := printJSON(cmd, summary); err != nil {
			return err
		}
	} else if res.OK {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %s\n", summary.UUID, summary.State)
	}
	if !res.OK {
		return fmt.Errorf("cancelación rechazada: %s", res.Message)
	}
	return nil
}
