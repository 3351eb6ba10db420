package cfdi

import "strings"

// ── Complemento de nómina 1.2 ────────────────────────────────────────────────

const (
	nsNomina12  = "http://www.sat.gob.mx/nomina12"
	xsdNomina12 = "http://www.sat.gob.mx/sitio_internet/cfd/nomina/nomina12.xsd"
)

// NominaEmisor datos patronales.
type NominaEmisor struct {
	Curp             string
	RegistroPatronal string
	RfcPatronOrigen  string
}

// NominaReceptor datos del trabajador.
type NominaReceptor struct {
	Curp                   string
	NumSeguridadSocial     string
	FechaInicioRelLaboral  string
	Antiguedad             string // atributo Antigüedad
	TipoContrato           string
	TipoJornada            string
	TipoRegimen            string
	NumEmpleado            string
	Departamento           string
	Puesto                 string
	PeriodicidadPago       string
	SalarioBaseCotApor     string
	SalarioDiarioIntegrado string
	ClaveEntFed            string
}

// Percepcion concepto de ingreso del trabajador.
type Percepcion struct {
	TipoPercepcion string
	Clave          string
	Concepto       string
	ImporteGravado string
	ImporteExento  string
}

// Deduccion concepto de descuento al trabajador.
type Deduccion struct {
	TipoDeduccion string
	Clave         string
	Concepto      string
	Importe       string
}

// OtroPago pagos que no son percepción (p. ej. subsidio al empleo).
type OtroPago struct {
	TipoOtroPago    string
	Clave           string
	Concepto        string
	Importe         string
	SubsidioCausado string
}

// Nomina complemento de recibo de nómina.
type Nomina struct {
	TipoNomina        string
	FechaPago         string
	FechaInicialPago  string
	FechaFinalPago    string
	NumDiasPagados    string
	TotalPercepciones string
	TotalDeducciones  string
	TotalOtrosPagos   string

	Emisor   *NominaEmisor
	Receptor NominaReceptor

	TotalSueldos            string
	TotalGravado            string
	TotalExento             string
	Percepciones            []Percepcion
	TotalOtrasDeducciones   string
	TotalImpuestosRetenidos string
	Deducciones             []Deduccion
	OtrosPagos              []OtroPago
}

// Render implementa Complemento.
func (n Nomina) Render() Fragment {
	const p = "nomina12:"
	var inner strings.Builder
	if n.Emisor != nil {
		inner.WriteString(element(p+"Emisor", attrs(
			"Curp", n.Emisor.Curp,
			"RegistroPatronal", n.Emisor.RegistroPatronal,
			"RfcPatronOrigen", n.Emisor.RfcPatronOrigen,
		), ""))
	}
	r := n.Receptor
	inner.WriteString(element(p+"Receptor", attrs(
		"Curp", r.Curp,
		"NumSeguridadSocial", r.NumSeguridadSocial,
		"FechaInicioRelLaboral", r.FechaInicioRelLaboral,
		"Antigüedad", r.Antiguedad,
		"TipoContrato", r.TipoContrato,
		"TipoJornada", r.TipoJornada,
		"TipoRegimen", r.TipoRegimen,
		"NumEmpleado", r.NumEmpleado,
		"Departamento", r.Departamento,
		"Puesto", r.Puesto,
		"PeriodicidadPago", r.PeriodicidadPago,
		"SalarioBaseCotApor", r.SalarioBaseCotApor,
		"SalarioDiarioIntegrado", r.SalarioDiarioIntegrado,
		"ClaveEntFed", r.ClaveEntFed,
	), ""))

	if len(n.Percepciones) > 0 {
		var items strings.Builder
		for _, pe := range n.Percepciones {
			items.WriteString(element(p+"Percepcion", attrs(
				"TipoPercepcion", pe.TipoPercepcion,
				"Clave", pe.Clave,
				"Concepto", pe.Concepto,
				"ImporteGravado", pe.ImporteGravado,
				"ImporteExento", pe.ImporteExento,
			), ""))
		}
		inner.WriteString(element(p+"Percepciones", attrs(
			"TotalSueldos", n.TotalSueldos,
			"TotalGravado", n.TotalGravado,
			"TotalExento", n.TotalExento,
		), items.String()))
	}
	if len(n.Deducciones) > 0 {
		var items strings.Builder
		for _, d := range n.Deducciones {
			items.WriteString(element(p+"Deduccion", attrs(
				"TipoDeduccion", d.TipoDeduccion,
				"Clave", d.Clave,
				"Concepto", d.Concepto,
				"Importe", d.Importe,
			), ""))
		}
		inner.WriteString(element(p+"Deducciones", attrs(
			"TotalOtrasDeducciones", n.TotalOtrasDeducciones,
			"TotalImpuestosRetenidos", n.TotalImpuestosRetenidos,
		), items.String()))
	}
	if len(n.OtrosPagos) > 0 {
		var items strings.Builder
		for _, o := range n.OtrosPagos {
			var sub string
			if o.SubsidioCausado != "" {
				sub = element(p+"SubsidioAlEmpleo", Attr("SubsidioCausado", o.SubsidioCausado), "")
			}
			items.WriteString(element(p+"OtroPago", attrs(
				"TipoOtroPago", o.TipoOtroPago,
				"Clave", o.Clave,
				"Concepto", o.Concepto,
				"Importe", o.Importe,
			), sub))
		}
		inner.WriteString(element(p+"OtrosPagos", "", items.String()))
	}

	root := element(p+"Nomina", attrs(
		"Version", "1.2",
		"TipoNomina", n.TipoNomina,
		"FechaPago", n.FechaPago,
		"FechaInicialPago", n.FechaInicialPago,
		"FechaFinalPago", n.FechaFinalPago,
		"NumDiasPagados", n.NumDiasPagados,
		"TotalPercepciones", n.TotalPercepciones,
		"TotalDeducciones", n.TotalDeducciones,
		"TotalOtrosPagos", n.TotalOtrosPagos,
	), inner.String())
	return fragment("nomina12", nsNomina12, xsdNomina12, root)
}
