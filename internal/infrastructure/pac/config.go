package pac

import "github.com/jhoicas/cfdi-timbrado/pkg/config"

// CredentialsFromConfig traduce la sección PAC de la configuración.
func CredentialsFromConfig(cfg config.PACConfig) map[string]Credentials {
	out := make(map[string]Credentials, len(cfg.Providers))
	for id, p := range cfg.Providers {
		out[id] = Credentials{
			Production: endpointFromConfig(p.Production),
			Test:       endpointFromConfig(p.Test),
			Rfc:        p.Rfc,
		}
	}
	return out
}

func endpointFromConfig(e config.PACEndpoint) Endpoint {
	return Endpoint{
		StampURL:    e.StampURL,
		CancelURL:   e.CancelURL,
		RegisterURL: e.RegisterURL,
		User:        e.User,
		Password:    e.Password,
		Contract:    e.Contract,
	}
}

// DefaultProvider PAC por defecto: el configurado, el único con URLs, el de pruebas
// para emisores de prueba sin PAC propio, o el PAC A.
func DefaultProvider(cfg config.PACConfig, test bool) string {
	if cfg.Default != "" {
		return cfg.Default
	}
	if len(cfg.Providers) == 1 {
		for id := range cfg.Providers {
			return id
		}
	}
	if test && len(cfg.Providers) == 0 {
		return ProviderTest
	}
	return ProviderA
}
