package domain

import (
	"strings"
	"time"
)

type ThreatType string

const (
	Phishing     ThreatType = "Phishing"
	Malware      ThreatType = "Malware"
	Ransomware   ThreatType = "Ransomware"
	DDoS         ThreatType = "DDoS"
	SQLInjection ThreatType = "SQL Injection"
	Unidentified ThreatType = "Unidentified"
)

// ThreatReport is the record that flows through the whole pipeline: built by
// the intake handler, published to the broker, re-classified and stamped by
// the consumer, persisted by the repository.
type ThreatReport struct {
	ID               int64      `json:"id,omitempty"`        // assigned on insert, never by the producer
	ReportKey        string     `json:"reportId,omitempty"`  // dedup key stamped by intake before publish
	Message          string     `json:"message"`
	Type             ThreatType `json:"type,omitempty"`
	LocationURL      string     `json:"locationUrl"`
	IncidentLocation string     `json:"incidentLocation,omitempty"`
	ThreatDate       string     `json:"threatDate,omitempty"`
	MoreInformation  string     `json:"moreInformation,omitempty"`
	Evidence         string     `json:"evidence,omitempty"`
	ReasonForDelay   string     `json:"reasonForDelay,omitempty"`
	FirstStep        string     `json:"firstStep,omitempty"`
	Timestamp        time.Time  `json:"timestamp,omitzero"` // server-assigned ingestion time
}

// Verdict is the classifier's three-valued output. Every failure mode of the
// remote model (transport, timeout, bad body) collapses into VerdictError so
// callers only ever branch on the variant.
type Verdict string

const (
	VerdictPhishing Verdict = "phishing"
	VerdictSafe     Verdict = "safe"
	VerdictError    Verdict = "error"
)

// typeKeywords is ordered: first match wins.
var typeKeywords = []struct {
	keyword string
	threat  ThreatType
}{
	{"phishing", Phishing},
	{"malware", Malware},
	{"ransomware", Ransomware},
	{"ddos", DDoS},
	{"sql injection", SQLInjection},
}

// DeriveType re-derives a coarse threat category from the reporter's free-text
// message. The upstream ML verdict stays authoritative for the publish
// decision; this only normalises the stored type so queries don't depend on
// whatever free text a producer happened to include.
func DeriveType(message string) ThreatType {
	lower := strings.ToLower(message)
	for _, tk := range typeKeywords {
		if strings.Contains(lower, tk.keyword) {
			return tk.threat
		}
	}
	return Unidentified
}
