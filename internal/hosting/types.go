package hosting

// Hostname record types accepted by the hosting provider.
const (
	RecordTypeCName = "CName"
	RecordTypeA     = "A"
)

// SSL binding states.
const (
	SSLStateSNI = "SniEnabled"
)

// Hostname is a custom hostname split into apex and subdomain.
type Hostname struct {
	Apex       string `json:"apex"`
	Subdomain  string `json:"subdomain"`
	RecordType string `json:"record_type"`
}

// FQDN joins the subdomain and apex.
func (h Hostname) FQDN() string {
	if h.Subdomain == "" {
		return h.Apex
	}
	return h.Subdomain + "." + h.Apex
}

// Certificate is a PKCS#12 bundle to bind to a hostname.
type Certificate struct {
	Hostname string
	PFX      []byte
	Password string
}

type installCertificateRequest struct {
	Hostname string `json:"hostname"`
	PFX      string `json:"pfx"`
	Password string `json:"password"`
	SSLState string `json:"ssl_state"`
}

// InstalledCertificate is the provider's view of an installed certificate.
type InstalledCertificate struct {
	Thumbprint string `json:"thumbprint"`
	Hostname   string `json:"hostname"`
	SSLState   string `json:"ssl_state"`
}
