package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-timbrado/pkg/config"
)

func TestLoadDir_ValoresPorDefecto(t *testing.T) {
	t.Setenv("APP_ENV", "")
	cfg, err := config.LoadDir(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "cfdi-timbrado", cfg.App.Name)
	assert.Equal(t, 10, cfg.DB.MaxConns)
	assert.Equal(t, "4.0", cfg.Issuer.Version)
	assert.True(t, cfg.Issuer.Test, "por defecto se timbra en pruebas")
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "cfdi", cfg.RabbitMQ.Exchange)
	assert.Empty(t, cfg.PAC.Providers)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoadDir_VariablesDeEntorno(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("ISSUER_RFC", "eku9003173c9")
	t.Setenv("ISSUER_TEST", "false")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("PAC_DEFAULT", "B")
	t.Setenv("PAC_B_PROD_STAMP_URL", "https://pac-b.example.com/timbrado")
	t.Setenv("PAC_B_PROD_USER", "usuario")
	t.Setenv("PAC_B_TEST_STAMP_URL", "https://pruebas.pac-b.example.com/timbrado")
	t.Setenv("PAC_B_RFC", "fli081010ek2")

	cfg, err := config.LoadDir(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "EKU9003173C9", cfg.Issuer.Rfc)
	assert.False(t, cfg.Issuer.Test)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, "b", cfg.PAC.Default)
	require.Contains(t, cfg.PAC.Providers, "b")
	b := cfg.PAC.Providers["b"]
	assert.Equal(t, "usuario", b.Production.User)
	assert.Equal(t, "https://pruebas.pac-b.example.com/timbrado", b.Test.StampURL)
	assert.Equal(t, "FLI081010EK2", b.Rfc)
	assert.NotContains(t, cfg.PAC.Providers, "a", "un PAC sin URL no se registra")
}

func TestLoadDir_PACPorDefectoSinURL_Error(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("PAC_DEFAULT", "c")
	_, err := config.LoadDir(t.TempDir())
	assert.Error(t, err)
}

func TestLoadDir_VersionInvalida_Error(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("ISSUER_CFDI_VERSION", "3.2")
	_, err := config.LoadDir(t.TempDir())
	assert.Error(t, err)
}

func TestLoadDir_ArchivoPorAmbiente(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.staging"),
		[]byte("ISSUER_NAME=ESCUELA KEMPER URGATE\nSTORAGE_XML_DIR=/var/cfdi\n"), 0o600))
	t.Setenv("APP_ENV", "staging")
	t.Cleanup(func() {
		os.Unsetenv("ISSUER_NAME")
		os.Unsetenv("STORAGE_XML_DIR")
	})

	cfg, err := config.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.App.Env)
	assert.Equal(t, "ESCUELA KEMPER URGATE", cfg.Issuer.Nombre)
	assert.Equal(t, "/var/cfdi", cfg.Storage.XMLDir)
}

func TestDBConfig_DSN_EscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/word", DBName: "cfdi", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:5432/cfdi?sslmode=disable", c.DSN())
	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
