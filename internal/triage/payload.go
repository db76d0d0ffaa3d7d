// Package triage implements the asynchronous AI triage pipeline: the
// payload transformer, the HTTP client for the external prediction
// service, and the polling scheduler that reconciles patient records
// against it.
package triage

import "encoding/json"

// Payload is the request shape the external prediction service accepts.
type Payload struct {
	PatientID         string   `json:"patient_id"`
	Age               int      `json:"age"`
	Gender            string   `json:"gender"`
	Complaint         string   `json:"complaint"`
	PainLevel         int      `json:"pain_level"`
	PainDuration      string   `json:"pain_duration"`
	PainLocation      []string `json:"pain_location"`
	PainLocationOther string   `json:"pain_location_other,omitempty"`
	Conditions        []string `json:"conditions"`
	ConditionsOther   string   `json:"conditions_other,omitempty"`
	Trauma            []string `json:"trauma"`
	TraumaOther       string   `json:"trauma_other,omitempty"`
	ExamNotes         string   `json:"exam_notes"`
	ExpectedDiagnosis string   `json:"expected_diagnosis"`
}

// FeedbackRequest is the reinforcement payload relayed to the service when
// a doctor records whether the AI assessment was accurate.
type FeedbackRequest struct {
	Input         Payload                `json:"input"`
	AIOutput      map[string]interface{} `json:"ai_output"`
	HumanFeedback HumanFeedback          `json:"human_feedback"`
}

// HumanFeedback carries the doctor's verdict.
type HumanFeedback struct {
	IsCorrect       bool     `json:"is_correct"`
	Correction      string   `json:"correction"`
	ActualDiagnosis []string `json:"actual_diagnosis"`
}

// ResponseView is the narrow typed view of the AI response fields the
// system actually reads. The full response is stored as an opaque
// document so unknown fields from the service survive round-trips.
type ResponseView struct {
	Scans            []string
	Reasoning        string
	Urgency          string
	MedicalDiagnosis []string
	SafetyOverride   string
	AnalyzedAt       string
}

// ViewResponse extracts the typed view from a raw AI response document.
// Missing or mistyped fields yield zero values rather than errors.
func ViewResponse(raw map[string]interface{}) ResponseView {
	return ResponseView{
		Scans:            stringSlice(raw["scans"]),
		Reasoning:        stringValue(raw["reasoning"]),
		Urgency:          stringValue(raw["urgency"]),
		MedicalDiagnosis: stringSlice(raw["medical_diagnosis"]),
		SafetyOverride:   stringValue(raw["safety_override"]),
		AnalyzedAt:       stringValue(raw["analyzedAt"]),
	}
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

func stringSlice(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case json.RawMessage:
		var out []string
		if err := json.Unmarshal(vv, &out); err == nil {
			return out
		}
	}
	return nil
}
