// Sellado del CFDI: cadena original + firma RSA PKCS#1 v1.5 en proceso, sin archivos
// temporales ni procesos externos.

package sello

import (
	"crypto/rand"
	"crypto/rsa"
	_ "crypto/sha1" // registra crypto.SHA1 para CFDI anteriores a 3.3
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/pkg/xmlquery"
)

// SigningError resultado tipado de un sellado fallido. Diagnostic es el texto que se
// guarda en el comprobante (cfdi_status).
type SigningError struct {
	Diagnostic string
	Err        error
}

func (e *SigningError) Error() string { return "sello: " + e.Diagnostic }

func (e *SigningError) Unwrap() error { return e.Err }

// Service firma comprobantes con el CSD del emisor.
type Service struct {
	log zerolog.Logger
}

// NewService crea el servicio de sellado.
func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("component", "sello").Logger()}
}

// Sign fija NoCertificado y Certificado, ensambla, calcula la cadena original, la
// firma y vuelve a ensamblar con el atributo Sello. Deja el comprobante en estado
// signed. Un comprobante de pruebas sin llave privada se acepta con Sello vacío.
func (s *Service) Sign(c *cfdi.Comprobante, csd *CSD) error {
	if csd != nil && csd.Certificate != nil {
		c.NoCertificado = csd.NoCertificado
		c.Certificado = csd.CertificateBase64()
	}
	c.Sello = ""

	xml, err := cfdi.Assemble(c)
	if err != nil {
		return s.fail(c, err.Error(), err)
	}
	if issues := c.CheckTotals(); len(issues) > 0 {
		s.log.Warn().Strs("discrepancias", issues).Str("rfc", c.Emisor.Rfc).Msg("totales inconsistentes; se sella de todos modos")
	}

	if csd == nil || csd.PrivateKey == nil {
		if c.Test {
			s.log.Warn().Str("rfc", c.Emisor.Rfc).Msg("comprobante de pruebas sin llave privada: se omite el sello")
			c.State = cfdi.StateSigned
			c.StatusMessage = ""
			return nil
		}
		return s.fail(c, "no hay llave privada del CSD para sellar", nil)
	}

	cadena, err := cfdi.CadenaOriginal(xml)
	if err != nil {
		return s.fail(c, "no se pudo generar la cadena original: "+err.Error(), err)
	}
	sello, err := SignCadena(cadena, c.Version, csd.PrivateKey)
	if err != nil {
		return s.fail(c, err.Error(), err)
	}

	c.Sello = sello
	if _, err := cfdi.Assemble(c); err != nil {
		return s.fail(c, err.Error(), err)
	}
	c.State = cfdi.StateSigned
	c.StatusMessage = ""
	s.log.Debug().Str("rfc", c.Emisor.Rfc).Str("no_certificado", c.NoCertificado).Msg("comprobante sellado")
	return nil
}

func (s *Service) fail(c *cfdi.Comprobante, diagnostic string, err error) error {
	c.StatusMessage = diagnostic
	s.log.Error().Err(err).Str("rfc", c.Emisor.Rfc).Msg(diagnostic)
	return &SigningError{Diagnostic: diagnostic, Err: err}
}

// SignCadena firma la cadena original con el digest de la versión y devuelve base64.
func SignCadena(cadena, version string, key *rsa.PrivateKey) (string, error) {
	hash := cfdi.DigestFor(version)
	h := hash.New()
	h.Write([]byte(cadena))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, hash, h.Sum(nil))
	if err != nil {
		return "", fmt.Errorf("firmar cadena original: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// ErrInvalidSello el sello no corresponde a la cadena original del documento.
var ErrInvalidSello = errors.New("sello: el sello no corresponde al comprobante")

// Verify recalcula la cadena original del XML y valida su Sello contra el certificado.
// Si cert es nil se usa el atributo Certificado del propio documento.
func Verify(xmlText string, cert *x509.Certificate) error {
	root := xmlquery.New(xmlText).Find("Comprobante", "")
	sello := root.Get("Sello", "")
	if sello == "" {
		return fmt.Errorf("%w: el documento no tiene Sello", ErrInvalidSello)
	}
	if cert == nil {
		raw, err := base64.StdEncoding.DecodeString(root.Get("Certificado", ""))
		if err != nil {
			return fmt.Errorf("sello: decodificar Certificado: %w", err)
		}
		if cert, err = x509.ParseCertificate(raw); err != nil {
			return fmt.Errorf("sello: parsear Certificado: %w", err)
		}
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("sello: el certificado no tiene llave pública RSA")
	}
	sig, err := base64.StdEncoding.DecodeString(sello)
	if err != nil {
		return fmt.Errorf("%w: base64 inválido", ErrInvalidSello)
	}
	cadena, err := cfdi.CadenaOriginal(xmlText)
	if err != nil {
		return err
	}
	hash := cfdi.DigestFor(root.Get("Version", ""))
	h := hash.New()
	h.Write([]byte(cadena))
	if err := rsa.VerifyPKCS1v15(pub, hash, h.Sum(nil), sig); err != nil {
		return ErrInvalidSello
	}
	return nil
}
