package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Diagnostica el CSD configurado",
	Long: `Carga el CSD (de la configuración o de --cer/--key/--pfx) y muestra el número
de certificado, el titular, la vigencia y la huella. Sirve para descartar
problemas de ruta o contraseña antes de sellar.`,
	Args: cobra.NoArgs,
	RunE: runCert,
}

func init() {
	addCSDFlags(certCmd)
	rootCmd.AddCommand(certCmd)
}

type certSummary struct {
	NoCertificado string    `json:"no_certificado"`
	Subject       string    `json:"subject"`
	NotBefore     time.Time `json:"not_before"`
	NotAfter      time.Time `json:"not_after"`
	Vigente       bool      `json:"vigente"`
	LlavePrivada  bool      `json:"llave_privada"`
	Fingerprint   string    `json:"fingerprint_sha256"`
}

func runCert(cmd *cobra.Command, _ []string) error {
	csd, err := loadCSD()
	if err != nil {
		return fmt.Errorf("CSD inválido: %w", err)
	}
	if csd == nil {
		return fmt.Errorf("no hay CSD configurado (ISSUER_CER_PATH o ISSUER_PFX_PATH)")
	}
	now := time.Now()
	s := certSummary{
		NoCertificado: csd.NoCertificado,
		Subject:       csd.Certificate.Subject.String(),
		NotBefore:     csd.Certificate.NotBefore,
		NotAfter:      csd.Certificate.NotAfter,
		Vigente:       now.After(csd.Certificate.NotBefore) && now.Before(csd.Certificate.NotAfter),
		LlavePrivada:  csd.PrivateKey != nil,
		Fingerprint:   csd.Fingerprint(),
	}
	if outputFormat == "json" {
		return printJSON(cmd, s)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "NoCertificado: %s\n", s.NoCertificado)
	fmt.Fprintf(out, "Titular:       %s\n", s.Subject)
	fmt.Fprintf(out, "Vigencia:      %s a %s\n", s.NotBefore.Format(time.DateOnly), s.NotAfter.Format(time.DateOnly))
	fmt.Fprintf(out, "Huella:        %s\n", s.Fingerprint)
	if !s.Vigente {
		fmt.Fprintln(out, "✗ el certificado no está vigente")
	}
	if !s.LlavePrivada {
		fmt.Fprintln(out, "✗ sin llave privada: no se puede sellar")
	}
	return nil
}
