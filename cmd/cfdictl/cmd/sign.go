package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/cfdi-timbrado/internal/application/billing"
	"github.com/jhoicas/cfdi-timbrado/internal/application/dto"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/sello"
)

var (
	signOutput   string
	signCadena   bool
	cerPath      string
	keyPath      string
	pfxPath      string
	certPassword string
)

var signCmd = &cobra.Command{
	Use:   "sign <solicitud.json>",
	Short: "Arma y sella un comprobante a partir de una solicitud JSON",
	Long: `Arma el comprobante con los datos del emisor configurado, calcula importes
e impuestos y lo sella con el CSD. Usa "-" para leer la solicitud de stdin.

Las rutas del CSD se toman de ISSUER_CER_PATH, ISSUER_KEY_PATH e ISSUER_PFX_PATH
salvo que se indiquen con --cer, --key o --pfx.`,
	Args: cobra.ExactArgs(1),
	RunE: runSign,
}

func init() {
	signCmd.Flags().StringVarP(&signOutput, "output", "o", "", "Archivo de salida (stdout si se omite)")
	signCmd.Flags().BoolVar(&signCadena, "cadena", false, "Imprimir la cadena original en lugar del XML")
	addCSDFlags(signCmd)
	rootCmd.AddCommand(signCmd)
}

func addCSDFlags(c *cobra.Command) {
	c.Flags().StringVar(&cerPath, "cer", "", "Certificado del CSD (.cer, DER o PEM)")
	c.Flags().StringVar(&keyPath, "key", "", "Llave privada del CSD (PEM PKCS#1 o PKCS#8)")
	c.Flags().StringVar(&pfxPath, "pfx", "", "CSD en PKCS#12; ignora --cer y --key")
	c.Flags().StringVar(&certPassword, "password", "", "Contraseña del PKCS#12")
}

func runSign(cmd *cobra.Command, args []string) error {
	c, err := signRequest(cmd, args[0])
	if err != nil {
		return err
	}
	if !signCadena {
		return writeOutput(cmd, signOutput, c.XML)
	}
	cadena, err := cfdi.CadenaOriginal(c.XML)
	if err != nil {
		return err
	}
	return writeOutput(cmd, signOutput, cadena)
}

// signRequest lee la solicitud, arma el comprobante y lo sella.
func signRequest(cmd *cobra.Command, path string) (*cfdi.Comprobante, error) {
	conf, err := loadConfig()
	if err != nil {
		return nil, err
	}
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, fmt.Errorf("leer solicitud: %w", err)
	}
	var in dto.CreateCFDIRequest
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("solicitud JSON inválida: %w", err)
	}

	c, err := billing.BuildComprobante(issuerFrom(conf), in, time.Now())
	if err != nil {
		return nil, err
	}
	csd, err := loadCSD()
	if err != nil {
		return nil, err
	}
	if err := sello.NewService(log).Sign(c, csd); err != nil {
		return nil, err
	}
	printVerbose(cmd, "Comprobante sellado: %s %s%s (NoCertificado %s)\n", c.Emisor.Rfc, c.Serie, c.Folio, c.NoCertificado)
	return c, nil
}

// loadCSD usa las banderas si se indicó alguna ruta; si no, la configuración.
func loadCSD() (*sello.CSD, error) {
	conf, err := loadConfig()
	if err != nil {
		return nil, err
	}
	issuer := conf.Issuer
	if cerPath != "" || keyPath != "" || pfxPath != "" {
		issuer.CerPath, issuer.KeyPath, issuer.PfxPath = cerPath, keyPath, pfxPath
		if certPassword != "" {
			issuer.Password = certPassword
		}
	}
	return sello.LoadFromConfig(issuer)
}
