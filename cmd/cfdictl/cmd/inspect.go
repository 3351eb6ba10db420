package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/sello"
	"github.com/jhoicas/cfdi-timbrado/pkg/xmlquery"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <cfdi.xml>",
	Short: "Muestra el resumen de un CFDI y verifica su sello",
	Long: `Lee un XML sellado o timbrado (UTF-8 o con BOM), muestra emisor, receptor,
totales, conceptos y timbre, calcula el digest C14N y verifica el Sello con el
certificado incluido en el documento.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

type inspectSummary struct {
	Version       string `json:"version"`
	Serie         string `json:"serie,omitempty"`
	Folio         string `json:"folio,omitempty"`
	Fecha         string `json:"fecha"`
	Tipo          string `json:"tipo_de_comprobante"`
	RfcEmisor     string `json:"rfc_emisor"`
	RfcReceptor   string `json:"rfc_receptor"`
	SubTotal      string `json:"subtotal"`
	Total         string `json:"total"`
	Moneda        string `json:"moneda,omitempty"`
	Conceptos     int    `json:"conceptos"`
	NoCertificado string `json:"no_certificado,omitempty"`
	UUID          string `json:"uuid,omitempty"`
	FechaTimbrado string `json:"fecha_timbrado,omitempty"`
	RfcProvCertif string `json:"rfc_prov_certif,omitempty"`
	Digest        string `json:"digest_c14n"`
	SelloValido   bool   `json:"sello_valido"`
	SelloMensaje  string `json:"sello_mensaje,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return fmt.Errorf("leer XML: %w", err)
	}
	doc, err := xmlquery.Load(bytes.NewReader(data))
	if err != nil {
		return err
	}
	root := doc.Find("Comprobante", "")
	if root.Empty() {
		return fmt.Errorf("%s: el documento no es un CFDI", args[0])
	}
	xml := doc.String()

	s := inspectSummary{
		Version:       root.Get("Version", ""),
		Serie:         root.Get("Serie", ""),
		Folio:         root.Get("Folio", ""),
		Fecha:         root.Get("Fecha", ""),
		Tipo:          root.Get("TipoDeComprobante", ""),
		RfcEmisor:     root.Find("Emisor", "").Get("Rfc", ""),
		RfcReceptor:   root.Find("Receptor", "").Get("Rfc", ""),
		SubTotal:      root.Get("SubTotal", ""),
		Total:         root.Get("Total", ""),
		Moneda:        root.Get("Moneda", ""),
		Conceptos:     len(root.Find("Conceptos", "").FindList("Concepto", "")),
		NoCertificado: root.Get("NoCertificado", ""),
	}
	if t, err := cfdi.ExtractTimbre(xml); err == nil {
		s.UUID = t.UUID
		s.FechaTimbrado = t.FechaTimbrado
		s.RfcProvCertif = t.RfcProvCertif
	}
	if s.Digest, err = cfdi.CanonicalDigest(xml); err != nil {
		return err
	}
	if err := sello.Verify(xml, nil); err != nil {
		s.SelloMensaje = err.Error()
	} else {
		s.SelloValido = true
	}

	if outputFormat == "json" {
		return printJSON(cmd, s)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "CFDI %s  %s%s  %s  (%s)\n", s.Version, s.Serie, s.Folio, s.Fecha, s.Tipo)
	fmt.Fprintf(out, "  Emisor:    %s\n", s.RfcEmisor)
	fmt.Fprintf(out, "  Receptor:  %s\n", s.RfcReceptor)
	fmt.Fprintf(out, "  SubTotal:  %s  Total: %s %s\n", s.SubTotal, s.Total, s.Moneda)
	fmt.Fprintf(out, "  Conceptos: %d\n", s.Conceptos)
	if s.UUID != "" {
		fmt.Fprintf(out, "  UUID:      %s (%s, %s)\n", s.UUID, s.RfcProvCertif, s.FechaTimbrado)
	}
	fmt.Fprintf(out, "  Digest:    %s\n", s.Digest)
	if s.SelloValido {
		fmt.Fprintf(out, "  Sello:     ✓ válido (NoCertificado %s)\n", s.NoCertificado)
	} else {
		fmt.Fprintf(out, "  Sello:     ✗ %s\n", s.SelloMensaje)
	}
	return nil
}
