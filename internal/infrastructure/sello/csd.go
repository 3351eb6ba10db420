// Carga del Certificado de Sello Digital (CSD) del emisor: certificado .cer (DER o PEM),
// llave privada PEM/DER sin cifrar (PKCS#1 o PKCS#8) o paquete .pfx (PKCS#12).

package sello

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"

	"github.com/jhoicas/cfdi-timbrado/pkg/config"
)

// CSD certificado y llave del emisor. PrivateKey puede ser nil (solo verificación o
// comprobantes de pruebas).
type CSD struct {
	Certificate   *x509.Certificate
	PrivateKey    *rsa.PrivateKey
	NoCertificado string
}

// CertificateBase64 certificado DER en base64, como va en el atributo Certificado.
func (c *CSD) CertificateBase64() string {
	if c == nil || c.Certificate == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(c.Certificate.Raw)
}

// NewCSD arma el CSD y calcula el número de certificado.
func NewCSD(cert *x509.Certificate, key *rsa.PrivateKey) (*CSD, error) {
	if cert == nil {
		return nil, fmt.Errorf("sello: certificado obligatorio")
	}
	if key != nil {
		pub, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("sello: el certificado no tiene llave pública RSA")
		}
		if pub.N.Cmp(key.N) != 0 {
			return nil, fmt.Errorf("sello: la llave privada no corresponde al certificado")
		}
	}
	return &CSD{Certificate: cert, PrivateKey: key, NoCertificado: NoCertificado(cert)}, nil
}

// NoCertificado decodifica el número de serie del SAT: el serial X.509 son los bytes
// ASCII de los 20 dígitos (p. ej. 3330303031... → 30001...). Si el serial no sigue esa
// convención se devuelve en decimal.
func NoCertificado(cert *x509.Certificate) string {
	raw := cert.SerialNumber.Bytes()
	if len(raw) == 0 {
		return cert.SerialNumber.String()
	}
	for _, b := range raw {
		if b < '0' || b > '9' {
			return cert.SerialNumber.String()
		}
	}
	return string(raw)
}

// ParseCertificate acepta DER (.cer del SAT) o PEM.
func ParseCertificate(data []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(data); block != nil {
		data = block.Bytes
	}
	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("sello: parsear certificado: %w", err)
	}
	return cert, nil
}

// ParsePrivateKey acepta PEM o DER sin cifrar, PKCS#1 o PKCS#8. Las .key cifradas del
// SAT deben convertirse antes (o usar el .pfx).
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	if block, _ := pem.Decode(data); block != nil {
		if block.Type == "ENCRYPTED PRIVATE KEY" {
			return nil, fmt.Errorf("sello: llave PKCS#8 cifrada no soportada; use el .pfx o conviértala a PEM")
		}
		data = block.Bytes
	}
	if key, err := x509.ParsePKCS1PrivateKey(data); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("sello: parsear llave privada: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("sello: la llave privada debe ser RSA")
	}
	return key, nil
}

// ParsePFX decodifica un paquete PKCS#12. El password puede ser vacío.
func ParsePFX(data []byte, password string) (*CSD, error) {
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("sello: decodificar pfx: %w", err)
	}
	key, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("sello: la llave del pfx debe ser RSA")
	}
	return NewCSD(cert, key)
}

// LoadFiles carga el CSD desde disco. Con pfxPath se ignoran cerPath y keyPath;
// keyPath vacío carga solo el certificado.
func LoadFiles(cerPath, keyPath, pfxPath, pfxPassword string) (*CSD, error) {
	if pfxPath != "" {
		data, err := os.ReadFile(pfxPath)
		if err != nil {
			return nil, fmt.Errorf("sello: leer pfx: %w", err)
		}
		return ParsePFX(data, pfxPassword)
	}
	if cerPath == "" {
		return nil, fmt.Errorf("sello: falta la ruta del certificado")
	}
	cerData, err := os.ReadFile(cerPath)
	if err != nil {
		return nil, fmt.Errorf("sello: leer certificado: %w", err)
	}
	cert, err := ParseCertificate(cerData)
	if err != nil {
		return nil, err
	}
	var key *rsa.PrivateKey
	if keyPath != "" {
		keyData, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("sello: leer llave: %w", err)
		}
		if key, err = ParsePrivateKey(keyData); err != nil {
			return nil, err
		}
	}
	return NewCSD(cert, key)
}

// Fingerprint SHA-256 del certificado en hex, útil para diagnóstico.
func (c *CSD) Fingerprint() string {
	if c == nil || c.Certificate == nil {
		return ""
	}
	sum := sha256.Sum256(c.Certificate.Raw)
	return hex.EncodeToString(sum[:])
}

// LoadFromConfig carga el CSD del emisor. Sin rutas configuradas devuelve nil, nil:
// sólo los comprobantes de prueba pueden sellarse así.
func LoadFromConfig(cfg config.IssuerConfig) (*CSD, error) {
	if cfg.PfxPath == "" && cfg.CerPath == "" {
		if !cfg.Test {
			return nil, fmt.Errorf("sello: el emisor %s no tiene CSD configurado", cfg.Rfc)
		}
		return nil, nil
	}
	return LoadFiles(cfg.CerPath, cfg.KeyPath, cfg.PfxPath, cfg.Password)
}
