package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jhoicas/cfdi-timbrado/pkg/jwt"
)

var (
	tokenClientID string
	tokenRfc      string
	tokenRole     string
	tokenMinutes  int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Emite un token de acceso para un sistema cliente",
	Long: `Firma un JWT con JWT_SECRET para que un ERP o sistema contable consuma la API.
Sin --rfc se usa ISSUER_RFC.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenClientID, "client", "", "Identificador del sistema cliente")
	tokenCmd.Flags().StringVar(&tokenRfc, "rfc", "", "RFC del emisor autorizado")
	tokenCmd.Flags().StringVar(&tokenRole, "role", jwt.RoleEmisor, "Rol: admin, emisor o consulta")
	tokenCmd.Flags().IntVar(&tokenMinutes, "minutes", 0, "Vigencia en minutos (por defecto JWT_EXPIRATION_MINUTES)")
	_ = tokenCmd.MarkFlagRequired("client")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	if conf.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET no configurado")
	}
	switch tokenRole {
	case jwt.RoleAdmin, jwt.RoleEmisor, jwt.RoleConsulta:
	default:
		return fmt.Errorf("rol %q inválido", tokenRole)
	}
	rfc := strings.ToUpper(tokenRfc)
	if rfc == "" {
		rfc = conf.Issuer.Rfc
	}
	minutes := tokenMinutes
	if minutes <= 0 {
		minutes = conf.JWT.Expiration
	}
	token, err := jwt.Generate(conf.JWT.Secret, tokenClientID, rfc, tokenRole, conf.JWT.Issuer, minutes)
	if err != nil {
		return err
	}
	if outputFormat == "json" {
		return printJSON(cmd, map[string]interface{}{"token": token, "expires_in_minutes": minutes})
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
