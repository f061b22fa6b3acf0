package output

// ProbeResult is the outcome of one probe attempt against one URL
type ProbeResult struct {
	Timestamp   string `json:"timestamp"`
	URL         string `json:"url"`
	Input       string `json:"input"`
	Scheme      string `json:"scheme"`
	Port        string `json:"port"`
	FinalURL    string `json:"final_url,omitempty"`
	StatusCode  int    `json:"status_code,omitempty"`
	Protocol    string `json:"protocol,omitempty"`
	TLSVersion  string `json:"tls_version,omitempty"`
	CipherSuite string `json:"cipher_suite,omitempty"`
	IP          string `json:"a,omitempty"`
	Time        string `json:"time,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Failed reports whether the probe ended in an error rather than a response
func (r ProbeResult) Failed() bool {
	return r.Error != ""
}
