package signing

import (
	"encoding/json"
	"fmt"
)

// reportDateLayout is the wire form of report_date inside the signed
// payload. A DATE column has no meaningful time component.
const reportDateLayout = "2006-01-02"

type payloadItem struct {
	T string `json:"t"`
	R string `json:"r"`
	U string `json:"u"`
}

type signedPayload struct {
	ID         string        `json:"id"`
	RecordID   string        `json:"record_id"`
	ReportType string        `json:"report_type"`
	ReportDate string        `json:"report_date"`
	Items      []payloadItem `json:"items"`
}

// canonicalPayload renders the exact byte sequence that gets hashed and
// signed. Struct field order pins the JSON key order and items arrive
// ordered by position, so equal report content always yields equal bytes.
// A nil unit serializes as the empty string.
func canonicalPayload(report *LabReport, items []*ReportItem) ([]byte, error) {
	p := signedPayload{
		ID:         report.ID.String(),
		RecordID:   report.RecordID.String(),
		ReportType: report.ReportType,
		ReportDate: report.ReportDate.Format(reportDateLayout),
		Items:      make([]payloadItem, 0, len(items)),
	}
	for _, item := range items {
		unit := ""
		if item.Unit != nil {
			unit = *item.Unit
		}
		p.Items = append(p.Items, payloadItem{T: item.TestName, R: item.Result, U: unit})
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal report payload: %w", err)
	}
	return data, nil
}
