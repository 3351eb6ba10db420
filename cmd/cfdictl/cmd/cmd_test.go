package cmd

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/pac"
	"github.com/jhoicas/cfdi-timbrado/pkg/jwt"
	"github.com/jhoicas/cfdi-timbrado/pkg/sat"
)

const (
	testRfc           = "AAA010101AAA"
	testSecret        = "secreto-cli"
	testNoCertificado = "30001000000400002434"
)

const solicitud = `{
  "serie": "A",
  "folio": "10",
  "fecha": "2024-01-15T10:00:00",
  "tipo_de_comprobante": "I",
  "forma_pago": "01",
  "metodo_pago": "PUE",
  "receptor": {"rfc": "XAXX010101000", "nombre": "PUBLICO EN GENERAL", "domicilio_fiscal": "45079", "regimen_fiscal": "616", "uso_cfdi": "S01"},
  "conceptos": [
    {"clave_prod_serv": "01010101", "cantidad": "1", "clave_unidad": "H87", "descripcion": "Servicio", "valor_unitario": "100",
     "traslados": [{"impuesto": "002", "tipo_factor": "Tasa", "tasa_o_cuota": "0.16"}]}
  ]
}`

// setup prepara un emisor de pruebas en el entorno y devuelve el directorio de trabajo.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("APP_ENV", "")
	t.Setenv("ISSUER_RFC", testRfc)
	t.Setenv("ISSUER_NAME", "EMPRESA DEMO")
	t.Setenv("ISSUER_REGIMEN_FISCAL", "601")
	t.Setenv("ISSUER_LUGAR_EXPEDICION", "45079")
	t.Setenv("ISSUER_TEST", "true")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("STORAGE_XML_DIR", filepath.Join(dir, "xml"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "solicitud.json"), []byte(solicitud), 0o600))
	return dir
}

// writeCSD genera un certificado autofirmado con serial al estilo SAT y su llave PEM.
func writeCSD(t *testing.T, dir string) (string, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: new(big.Int).SetBytes([]byte(testNoCertificado)),
		Subject:      pkix.Name{CommonName: "EMPRESA DEMO", SerialNumber: testRfc},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	cer := filepath.Join(dir, "csd.cer")
	require.NoError(t, os.WriteFile(cer, der, 0o600))
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	keyFile := filepath.Join(dir, "csd.key.pem")
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	return cer, keyFile
}

// execute corre el comando raíz con banderas limpias y devuelve stdout.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	verbose, outputFormat, configDir = false, "text", dir
	signOutput, signCadena = "", false
	cerPath, keyPath, pfxPath, certPassword = "", "", "", ""
	stampOutput, stampProvider, stampSave = "", "", false
	cancelMotivo, cancelFolioSustitucion, cancelTest = sat.MotivoNoSeLlevoACabo, "", false
	xsdPath = ""
	tokenClientID, tokenRfc, tokenRole, tokenMinutes = "", "", jwt.RoleEmisor, 0
	cfg = nil

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(solicitud))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// ── sign ─────────────────────────────────────────────────────────────────────

func TestSign_SinCSDEnPruebasGeneraXMLSinSello(t *testing.T) {
	dir := setup(t)

	out, err := execute(t, dir, "sign", filepath.Join(dir, "solicitud.json"))
	require.NoError(t, err)
	assert.Contains(t, out, `<cfdi:Comprobante`)
	assert.Contains(t, out, `Total="116.00"`)
	assert.Contains(t, out, `Rfc="`+testRfc+`"`)
	assert.NotContains(t, out, `Sello="`)
}

func TestSign_LeeSolicitudDeStdin(t *testing.T) {
	dir := setup(t)

	out, err := execute(t, dir, "sign", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `SubTotal="100.00"`)
}

func TestSign_CadenaOriginal(t *testing.T) {
	dir := setup(t)

	out, err := execute(t, dir, "sign", filepath.Join(dir, "solicitud.json"), "--cadena")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "||4.0|A|10|"), out)
}

const solicitudPago = `{
  "fecha": "2024-02-01T10:00:00",
  "tipo_de_comprobante": "P",
  "receptor": {"rfc": "XAXX010101000", "nombre": "PUBLICO EN GENERAL", "domicilio_fiscal": "45079", "regimen_fiscal": "616", "uso_cfdi": "CP01"},
  "complementos": {
    "pagos": {
      "totales": {"monto_total_pagos": "116.00"},
      "pagos": [{"fecha_pago": "2024-02-01T12:00:00", "forma_de_pago": "03", "moneda": "MXN", "monto": "116.00",
        "documentos": [{"id_documento": "6F5A1B2C-3D4E-4F60-8A9B-0C1D2E3F4A5B", "num_parcialidad": "1",
          "imp_saldo_ant": "116.00", "imp_pagado": "116.00", "imp_saldo_insoluto": "0.00", "objeto_imp": "01"}]}]
    }
  }
}`

func TestSign_ComprobanteDePago(t *testing.T) {
	dir := setup(t)
	path := filepath.Join(dir, "pago.json")
	require.NoError(t, os.WriteFile(path, []byte(solicitudPago), 0o600))

	out, err := execute(t, dir, "sign", path)
	require.NoError(t, err)
	assert.Contains(t, out, `TipoDeComprobante="P"`)
	assert.Contains(t, out, `<pago20:Pagos Version="2.0"`)
	assert.Contains(t, out, `IdDocumento="6F5A1B2C-3D4E-4F60-8A9B-0C1D2E3F4A5B"`)

	sinComplemento := strings.Replace(solicitudPago, `"pagos": {`, `"leyendas": {`, 1)
	require.NoError(t, os.WriteFile(path, []byte(sinComplemento), 0o600))
	_, err = execute(t, dir, "sign", path)
	require.Error(t, err)
}

func TestSign_SolicitudInvalida(t *testing.T) {
	dir := setup(t)
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"receptor":{"rfc":"NO-ES-RFC"},"conceptos":[]}`), 0o600))

	_, err := execute(t, dir, "sign", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "receptor")
}

func TestSign_ConCSDYVerificacion(t *testing.T) {
	dir := setup(t)
	cer, key := writeCSD(t, dir)
	signed := filepath.Join(dir, "sellado.xml")

	_, err := execute(t, dir, "sign", filepath.Join(dir, "solicitud.json"), "--cer", cer, "--key", key, "-o", signed)
	require.NoError(t, err)

	out, err := execute(t, dir, "inspect", signed, "--format", "json")
	require.NoError(t, err)
	var s inspectSummary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.True(t, s.SelloValido, s.SelloMensaje)
	assert.Equal(t, testNoCertificado, s.NoCertificado)
	assert.Equal(t, 1, s.Conceptos)
	assert.Len(t, s.Digest, 64)
}

// ── stamp / cancel ───────────────────────────────────────────────────────────

func TestStampYCancel_ProveedorDePruebas(t *testing.T) {
	dir := setup(t)
	stamped := filepath.Join(dir, "timbrado.xml")

	out, err := execute(t, dir, "stamp", filepath.Join(dir, "solicitud.json"), "--provider", "test", "--save", "-o", stamped, "--format", "json")
	require.NoError(t, err)
	var s stampSummary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, pac.ProviderTest, s.Provider)
	assert.Equal(t, pac.TestRfcProvCertif, s.RfcProvCertif)
	require.NotEmpty(t, s.UUID)
	assert.FileExists(t, s.Path)

	xml, err := os.ReadFile(stamped)
	require.NoError(t, err)
	assert.Contains(t, string(xml), "TimbreFiscalDigital")

	out, err = execute(t, dir, "inspect", stamped)
	require.NoError(t, err)
	assert.Contains(t, out, s.UUID)

	out, err = execute(t, dir, "cancel", stamped, "--motivo", sat.MotivoErroresSinRelacion, "--test")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+s.UUID+": CANCELLED")
}

func TestStamp_ProveedorDePruebasConComprobanteReal(t *testing.T) {
	dir := setup(t)
	t.Setenv("ISSUER_TEST", "false")
	cer, key := writeCSD(t, dir)

	_, err := execute(t, dir, "stamp", filepath.Join(dir, "solicitud.json"), "--provider", "test", "--cer", cer, "--key", key)
	require.Error(t, err)
}

func TestCancel_Motivo01SinFolio(t *testing.T) {
	dir := setup(t)

	_, err := execute(t, dir, "cancel", filepath.Join(dir, "solicitud.json"), "--motivo", sat.MotivoErroresConRelacion)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "01")
}

func TestCancel_DocumentoNoEsCFDI(t *testing.T) {
	dir := setup(t)
	other := filepath.Join(dir, "otro.xml")
	require.NoError(t, os.WriteFile(other, []byte(`<Invoice/>`), 0o600))

	_, err := execute(t, dir, "cancel", other)
	require.Error(t, err)
}

// ── cert / token / validate ──────────────────────────────────────────────────

func TestCert_MuestraNoCertificado(t *testing.T) {
	dir := setup(t)
	cer, key := writeCSD(t, dir)

	out, err := execute(t, dir, "cert", "--cer", cer, "--key", key, "--format", "json")
	require.NoError(t, err)
	var s certSummary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, testNoCertificado, s.NoCertificado)
	assert.True(t, s.Vigente)
	assert.True(t, s.LlavePrivada)
	assert.Len(t, s.Fingerprint, 64)
}

func TestCert_SinCSDConfigurado(t *testing.T) {
	dir := setup(t)

	_, err := execute(t, dir, "cert")
	require.Error(t, err)
}

func TestToken_SeValidaConElSecreto(t *testing.T) {
	dir := setup(t)

	out, err := execute(t, dir, "token", "--client", "erp-contable", "--role", jwt.RoleConsulta)
	require.NoError(t, err)

	clientID, rfc, role, err := jwt.Parse(testSecret, strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "erp-contable", clientID)
	assert.Equal(t, testRfc, rfc)
	assert.Equal(t, jwt.RoleConsulta, role)
}

func TestToken_RolInvalido(t *testing.T) {
	dir := setup(t)

	_, err := execute(t, dir, "token", "--client", "erp", "--role", "root")
	require.Error(t, err)
}

func TestValidate_SinEsquema(t *testing.T) {
	dir := setup(t)

	_, err := execute(t, dir, "validate", "a.xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--xsd")
}

func TestValidate_ValidoEInvalido(t *testing.T) {
	dir := setup(t)
	schema := filepath.Join(dir, "cfdv40.xsd")
	require.NoError(t, os.WriteFile(schema, []byte(`<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="http://www.sat.gob.mx/cfd/4" elementFormDefault="qualified">
  <xs:element name="Comprobante">
    <xs:complexType>
      <xs:attribute name="Total" type="xs:decimal" use="required"/>
    </xs:complexType>
  </xs:element>
</xs:schema>`), 0o600))
	ok := filepath.Join(dir, "ok.xml")
	bad := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(ok, []byte(`<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" Total="116.00"/>`), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte(`<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" Total="abc"/>`), 0o600))

	out, err := execute(t, dir, "validate", ok, bad, "--xsd", schema)
	require.Error(t, err)
	assert.Contains(t, out, "✓ "+ok+": VALID")
	assert.Contains(t, out, "✗ "+bad+": INVALID")
}
