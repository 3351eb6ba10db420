package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-timbrado/internal/application/dto"
	"github.com/jhoicas/cfdi-timbrado/internal/domain"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/pkg/sat"
)

// exportacionDefinitiva c_Exportacion para comercio exterior.
const exportacionDefinitiva = "02"

// conceptoPago concepto único que SAT fija para el CFDI de pagos.
var conceptoPago = dto.ConceptoRequest{
	ClaveProdServ: "84111506",
	Cantidad:      decimal.NewFromInt(1),
	ClaveUnidad:   "ACT",
	Descripcion:   "Pago",
	ObjetoImp:     sat.ObjetoImpNo,
}

// addComplementos agrega los complementos pedidos. Los tipos P y N exigen el suyo y
// no se aceptan en otros tipos. Los impuestos locales ajustan el Total.
func addComplementos(c *cfdi.Comprobante, in dto.CreateCFDIRequest) error {
	req := in.Complementos
	if req == nil {
		req = &dto.ComplementosRequest{}
	}
	tipo := c.TipoDeComprobante

	switch {
	case tipo == sat.TipoPago && req.Pagos == nil:
		return fmt.Errorf("%w: el comprobante de pago requiere el complemento pagos", domain.ErrInvalidInput)
	case tipo == sat.TipoNomina && req.Nomina == nil:
		return fmt.Errorf("%w: el comprobante de nómina requiere el complemento nomina", domain.ErrInvalidInput)
	case tipo != sat.TipoPago && req.Pagos != nil:
		return fmt.Errorf("%w: el complemento pagos solo aplica al tipo P", domain.ErrInvalidInput)
	case tipo != sat.TipoNomina && req.Nomina != nil:
		return fmt.Errorf("%w: el complemento nomina solo aplica al tipo N", domain.ErrInvalidInput)
	}

	if req.Pagos != nil {
		p, err := buildPagos(*req.Pagos, c.Version)
		if err != nil {
			return fmt.Errorf("%w: pagos: %v", domain.ErrInvalidInput, err)
		}
		c.AddComplemento(p)
	}
	if req.Nomina != nil {
		n, err := buildNomina(*req.Nomina)
		if err != nil {
			return fmt.Errorf("%w: nomina: %v", domain.ErrInvalidInput, err)
		}
		c.AddComplemento(n)
	}
	if ce := req.ComercioExterior; ce != nil {
		if err := applyComercioExterior(c, *ce, in.Exportacion); err != nil {
			return fmt.Errorf("%w: comercio_exterior: %v", domain.ErrInvalidInput, err)
		}
	}
	if il := req.ImpuestosLocales; il != nil {
		if err := applyImpuestosLocales(c, *il); err != nil {
			return fmt.Errorf("%w: impuestos_locales: %v", domain.ErrInvalidInput, err)
		}
	}
	if len(req.LeyendasFiscales) > 0 {
		l := cfdi.LeyendasFiscales{}
		for i, ly := range req.LeyendasFiscales {
			if ly.TextoLeyenda == "" {
				return fmt.Errorf("%w: leyendas_fiscales[%d]: texto_leyenda es obligatorio", domain.ErrInvalidInput, i)
			}
			l.Leyendas = append(l.Leyendas, cfdi.Leyenda{
				DisposicionFiscal: ly.DisposicionFiscal,
				Norma:             ly.Norma,
				TextoLeyenda:      ly.TextoLeyenda,
			})
		}
		c.AddComplemento(l)
	}
	return nil
}

func buildPagos(in dto.PagosRequest, version string) (cfdi.Pagos, error) {
	out := cfdi.Pagos{Version: "2.0"}
	if version == cfdi.Version33 {
		out.Version = "1.0"
	}
	if len(in.Pagos) == 0 {
		return out, fmt.Errorf("se requiere al menos un pago")
	}
	if t := in.Totales; t != nil {
		out.Totales = &cfdi.PagosTotales{
			TotalRetencionesIVA:         t.TotalRetencionesIVA,
			TotalRetencionesISR:         t.TotalRetencionesISR,
			TotalTrasladosBaseIVA16:     t.TotalTrasladosBaseIVA16,
			TotalTrasladosImpuestoIVA16: t.TotalTrasladosImpuestoIVA16,
			MontoTotalPagos:             t.MontoTotalPagos,
		}
	}
	for i, p := range in.Pagos {
		if p.FechaPago == "" || p.FormaDePagoP == "" || p.Monto == "" {
			return out, fmt.Errorf("pagos[%d]: fecha_pago, forma_de_pago y monto son obligatorios", i)
		}
		if _, err := decimal.NewFromString(p.Monto); err != nil {
			return out, fmt.Errorf("pagos[%d]: monto %q inválido", i, p.Monto)
		}
		pago := cfdi.Pago{
			FechaPago:       p.FechaPago,
			FormaDePagoP:    p.FormaDePagoP,
			MonedaP:         nonEmpty(p.MonedaP, "MXN"),
			TipoCambioP:     p.TipoCambioP,
			Monto:           p.Monto,
			NumOperacion:    p.NumOperacion,
			RfcEmisorCtaOrd: p.RfcEmisorCtaOrd,
			CtaOrdenante:    p.CtaOrdenante,
			RfcEmisorCtaBen: p.RfcEmisorCtaBen,
			CtaBeneficiario: p.CtaBeneficiario,
		}
		if out.Version == "2.0" && pago.MonedaP == "MXN" && pago.TipoCambioP == "" {
			pago.TipoCambioP = "1"
		}
		for _, d := range p.DoctoRelacionados {
			if d.IdDocumento == "" {
				return out, fmt.Errorf("pagos[%d]: id_documento es obligatorio", i)
			}
			pago.DoctoRelacionados = append(pago.DoctoRelacionados, cfdi.DoctoRelacionado{
				IdDocumento:      d.IdDocumento,
				Serie:            d.Serie,
				Folio:            d.Folio,
				MonedaDR:         nonEmpty(d.MonedaDR, pago.MonedaP),
				EquivalenciaDR:   d.EquivalenciaDR,
				MetodoDePagoDR:   d.MetodoDePagoDR,
				NumParcialidad:   d.NumParcialidad,
				ImpSaldoAnt:      d.ImpSaldoAnt,
				ImpPagado:        d.ImpPagado,
				ImpSaldoInsoluto: d.ImpSaldoInsoluto,
				ObjetoImpDR:      d.ObjetoImpDR,
			})
		}
		out.Pagos = append(out.Pagos, pago)
	}
	return out, nil
}

func buildNomina(in dto.NominaRequest) (cfdi.Nomina, error) {
	r := in.Receptor
	if in.TipoNomina == "" || in.FechaPago == "" || in.NumDiasPagados == "" {
		return cfdi.Nomina{}, fmt.Errorf("tipo_nomina, fecha_pago y num_dias_pagados son obligatorios")
	}
	if r.Curp == "" || r.NumEmpleado == "" {
		return cfdi.Nomina{}, fmt.Errorf("receptor: curp y num_empleado son obligatorios")
	}
	n := cfdi.Nomina{
		TipoNomina:        in.TipoNomina,
		FechaPago:         in.FechaPago,
		FechaInicialPago:  in.FechaInicialPago,
		FechaFinalPago:    in.FechaFinalPago,
		NumDiasPagados:    in.NumDiasPagados,
		TotalPercepciones: in.TotalPercepciones,
		TotalDeducciones:  in.TotalDeducciones,
		TotalOtrosPagos:   in.TotalOtrosPagos,
		Receptor: cfdi.NominaReceptor{
			Curp:                   r.Curp,
			NumSeguridadSocial:     r.NumSeguridadSocial,
			FechaInicioRelLaboral:  r.FechaInicioRelLaboral,
			Antiguedad:             r.Antiguedad,
			TipoContrato:           r.TipoContrato,
			TipoJornada:            r.TipoJornada,
			TipoRegimen:            r.TipoRegimen,
			NumEmpleado:            r.NumEmpleado,
			Departamento:           r.Departamento,
			Puesto:                 r.Puesto,
			PeriodicidadPago:       r.PeriodicidadPago,
			SalarioBaseCotApor:     r.SalarioBaseCotApor,
			SalarioDiarioIntegrado: r.SalarioDiarioIntegrado,
			ClaveEntFed:            r.ClaveEntFed,
		},
		TotalSueldos:            in.TotalSueldos,
		TotalGravado:            in.TotalGravado,
		TotalExento:             in.TotalExento,
		TotalOtrasDeducciones:   in.TotalOtrasDeducciones,
		TotalImpuestosRetenidos: in.TotalImpuestosRetenidos,
	}
	if e := in.Emisor; e != nil {
		n.Emisor = &cfdi.NominaEmisor{Curp: e.Curp, RegistroPatronal: e.RegistroPatronal, RfcPatronOrigen: e.RfcPatronOrigen}
	}
	for _, p := range in.Percepciones {
		n.Percepciones = append(n.Percepciones, cfdi.Percepcion{
			TipoPercepcion: p.TipoPercepcion,
			Clave:          p.Clave,
			Concepto:       p.Concepto,
			ImporteGravado: p.ImporteGravado,
			ImporteExento:  p.ImporteExento,
		})
	}
	for _, d := range in.Deducciones {
		n.Deducciones = append(n.Deducciones, cfdi.Deduccion{
			TipoDeduccion: d.TipoDeduccion,
			Clave:         d.Clave,
			Concepto:      d.Concepto,
			Importe:       d.Importe,
		})
	}
	for _, o := range in.OtrosPagos {
		n.OtrosPagos = append(n.OtrosPagos, cfdi.OtroPago{
			TipoOtroPago:    o.TipoOtroPago,
			Clave:           o.Clave,
			Concepto:        o.Concepto,
			Importe:         o.Importe,
			SubsidioCausado: o.SubsidioCausado,
		})
	}
	return n, nil
}

// applyComercioExterior agrega el complemento y marca la exportación definitiva cuando
// la solicitud no indicó otra clave.
func applyComercioExterior(c *cfdi.Comprobante, in dto.ComercioExteriorRequest, exportacion string) error {
	if in.TipoCambioUSD == "" || in.TotalUSD == "" {
		return fmt.Errorf("tipo_cambio_usd y total_usd son obligatorios")
	}
	if c.Version == cfdi.Version40 {
		switch exportacion {
		case "":
			c.Exportacion = exportacionDefinitiva
		case sat.ExportacionNoAplica:
			return fmt.Errorf("exportacion %q no admite comercio exterior", exportacion)
		}
	}
	ce := cfdi.ComercioExterior{
		ClaveDePedimento:     in.ClaveDePedimento,
		CertificadoOrigen:    in.CertificadoOrigen,
		NumCertificadoOrigen: in.NumCertificadoOrigen,
		Incoterm:             in.Incoterm,
		Observaciones:        in.Observaciones,
		TipoCambioUSD:        in.TipoCambioUSD,
		TotalUSD:             in.TotalUSD,
	}
	for _, m := range in.Mercancias {
		ce.Mercancias = append(ce.Mercancias, cfdi.Mercancia{
			NoIdentificacion:    m.NoIdentificacion,
			FraccionArancelaria: m.FraccionArancelaria,
			CantidadAduana:      m.CantidadAduana,
			UnidadAduana:        m.UnidadAduana,
			ValorUnitarioAduana: m.ValorUnitarioAduana,
			ValorDolares:        m.ValorDolares,
		})
	}
	c.AddComplemento(ce)
	return nil
}

// applyImpuestosLocales suma los impuestos locales y los refleja en el Total:
// traslados se suman, retenciones se restan.
func applyImpuestosLocales(c *cfdi.Comprobante, in dto.ImpuestosLocalesRequest) error {
	il := cfdi.ImpuestosLocales{}
	retenidos, err := sumLocales(in.Retenciones, &il.Retenciones)
	if err != nil {
		return err
	}
	trasladados, err := sumLocales(in.Traslados, &il.Traslados)
	if err != nil {
		return err
	}
	il.TotalDeRetenciones = retenidos.StringFixed(2)
	il.TotalDeTraslados = trasladados.StringFixed(2)

	total, err := decimal.NewFromString(c.Total)
	if err != nil {
		return fmt.Errorf("total %q inválido", c.Total)
	}
	c.Total = total.Add(trasladados).Sub(retenidos).StringFixed(2)
	c.AddComplemento(il)
	return nil
}

func sumLocales(items []dto.ImpuestoLocalRequest, out *[]cfdi.ImpuestoLocal) (decimal.Decimal, error) {
	sum := decimal.Zero
	for i, it := range items {
		if it.Nombre == "" {
			return sum, fmt.Errorf("[%d]: nombre es obligatorio", i)
		}
		importe, err := decimal.NewFromString(it.Importe)
		if err != nil || importe.IsNegative() {
			return sum, fmt.Errorf("[%d]: importe %q inválido", i, it.Importe)
		}
		sum = sum.Add(importe)
		*out = append(*out, cfdi.ImpuestoLocal{Nombre: it.Nombre, Tasa: it.Tasa, Importe: importe.StringFixed(2)})
	}
	return sum, nil
}
