package triage

import (
	"github.com/spineclinic/intake/internal/domain/patient"
)

// Declared key orders for the clinical flag groups. The transformer's list
// output follows these orders so payloads are stable across runs.
var (
	painLocationKeys = []string{
		"neck", "upperBack", "midBack", "lowerBack",
		"leftArm", "rightArm", "leftLeg", "rightLeg",
	}
	conditionKeys = []string{
		"osteoporosis", "arthritis", "scoliosis", "diabetes",
		"hypertension", "cancerHistory", "priorSpineSurgery",
	}
	traumaKeys = []string{
		"fall", "vehicleAccident", "sportsInjury", "liftingInjury", "directBlow",
	}
)

// passthroughKey carries free text inside a flag group and is never
// treated as a flag.
const passthroughKey = "others"

// BuildPayload maps a patient record into the prediction service's request
// shape. It is pure and total: absent optional fields become documented
// defaults (pain level 0, false flags, empty lists) instead of errors.
func BuildPayload(p *patient.Patient) Payload {
	out := Payload{
		PatientID:         p.ID.String(),
		Complaint:         p.Complaint,
		ExpectedDiagnosis: p.ExpectedDiagnosis,
		PainLocation:      flagList(p.PainLocation, painLocationKeys),
		PainLocationOther: passthrough(p.PainLocation),
		Conditions:        flagList(p.Conditions, conditionKeys),
		ConditionsOther:   passthrough(p.Conditions),
		Trauma:            flagList(p.Trauma, traumaKeys),
		TraumaOther:       passthrough(p.Trauma),
	}
	if p.Age != nil {
		out.Age = *p.Age
	}
	if p.Gender != nil {
		out.Gender = *p.Gender
	}
	if p.PainLevel != nil {
		out.PainLevel = *p.PainLevel
	}
	if p.PainDuration != nil {
		out.PainDuration = *p.PainDuration
	}
	if p.ExamNotes != nil {
		out.ExamNotes = *p.ExamNotes
	}
	return out
}

// flagList filters a flag group down to the keys with truthy values, in
// declared key order. A nil group yields an empty, non-nil list.
func flagList(group map[string]interface{}, keys []string) []string {
	out := make([]string, 0, len(keys))
	if group == nil {
		return out
	}
	for _, key := range keys {
		if truthy(group[key]) {
			out = append(out, key)
		}
	}
	return out
}

// passthrough returns the free-text "others" entry of a flag group, if any.
func passthrough(group map[string]interface{}) string {
	if group == nil {
		return ""
	}
	s, _ := group[passthroughKey].(string)
	return s
}

// truthy mirrors the loose flag semantics of the intake forms: booleans
// are taken as-is, non-empty strings and non-zero numbers count as set.
func truthy(v interface{}) bool {
	switch vv := v.(type) {
	case bool:
		return vv
	case string:
		return vv != ""
	case float64:
		return vv != 0
	case int:
		return vv != 0
	default:
		return false
	}
}
