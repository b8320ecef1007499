package request

type SubmitDomain struct {
	Domain string `json:"domain" validate:"required"`
}

type ValidateDomains struct {
	BaseDomain    string `json:"baseDomain" validate:"required,hostname_multi"`
	MobileDomain  string `json:"mobileDomain" validate:"required,hostname_multi"`
	DesktopDomain string `json:"desktopDomain" validate:"required,hostname_multi"`
}
