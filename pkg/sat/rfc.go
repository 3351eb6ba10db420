package sat

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// rfcPattern: 3 letras (moral) o 4 (física), fecha AAMMDD y homoclave de 3.
var rfcPattern = regexp.MustCompile(`^([A-ZÑ&]{3,4})([0-9]{6})([A-Z0-9]{2}[0-9A])$`)

// alfabeto del dígito verificador del RFC; la posición es el valor.
const rfcAlphabet = "0123456789ABCDEFGHIJKLMN&OPQRSTUVWXYZ Ñ"

// NormalizeRFC quita espacios y guiones y pasa a mayúsculas.
func NormalizeRFC(rfc string) string {
	r := strings.ToUpper(strings.TrimSpace(rfc))
	return strings.NewReplacer(" ", "", "-", "").Replace(r)
}

// ValidateRFC revisa la estructura del RFC y que la fecha embebida exista.
// No exige el dígito verificador: los RFC de pruebas del SAT no lo cumplen.
func ValidateRFC(rfc string) error {
	r := NormalizeRFC(rfc)
	if r == RfcPublicoEnGeneral || r == RfcExtranjero {
		return nil
	}
	m := rfcPattern.FindStringSubmatch(r)
	if m == nil {
		return fmt.Errorf("sat: RFC %q con formato inválido", rfc)
	}
	if _, err := time.Parse("060102", m[2]); err != nil {
		return fmt.Errorf("sat: RFC %q con fecha inválida %s", rfc, m[2])
	}
	return nil
}

// IsPersonaMoral indica si el RFC corresponde a persona moral (12 caracteres).
func IsPersonaMoral(rfc string) bool {
	return len([]rune(NormalizeRFC(rfc))) == 12
}

// RFCCheckDigit calcula el dígito verificador (módulo 11) de un RFC completo.
func RFCCheckDigit(rfc string) (rune, error) {
	r := []rune(NormalizeRFC(rfc))
	if len(r) != 12 && len(r) != 13 {
		return 0, fmt.Errorf("sat: el RFC debe tener 12 o 13 caracteres, se recibieron %d", len(r))
	}
	base := r[:len(r)-1]
	if len(base) == 11 {
		base = append([]rune{' '}, base...)
	}
	alphabet := []rune(rfcAlphabet)
	var sum int
	for i, c := range base {
		v := -1
		for j, a := range alphabet {
			if a == c {
				v = j
				break
			}
		}
		if v < 0 {
			return 0, fmt.Errorf("sat: carácter %q no válido en RFC", c)
		}
		sum += v * (13 - i)
	}
	switch d := 11 - sum%11; d {
	case 11:
		return '0', nil
	case 10:
		return 'A', nil
	default:
		return rune('0' + d), nil
	}
}

// ValidateMotivoCancelacion valida el motivo; el 01 exige folio de sustitución.
func ValidateMotivoCancelacion(motivo, folioSustitucion string) error {
	if !ValidMotivosCancelacion[motivo] {
		return fmt.Errorf("sat: motivo de cancelación %q inválido", motivo)
	}
	if motivo == MotivoErroresConRelacion && folioSustitucion == "" {
		return fmt.Errorf("sat: el motivo 01 requiere el UUID que sustituye al comprobante")
	}
	if motivo != MotivoErroresConRelacion && folioSustitucion != "" {
		return fmt.Errorf("sat: el folio de sustitución sólo aplica al motivo 01")
	}
	return nil
}
