package platform

// CertificateWorkflowID is the workflow ID of the issuance run for a domain.
// Reusing it per domain lets Temporal reject a second concurrent run.
func CertificateWorkflowID(domain string) string {
	return "certificate-" + domain
}
